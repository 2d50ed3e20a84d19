package display_test

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/micro-nova/amplipi-panel/internal/display"
)

func lit(f *display.FrameNotifier) int {
	img := f.Frame()
	n := 0
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.RGBAAt(x, y) != (color.RGBA{0, 0, 0, 255}) {
				n++
			}
		}
	}
	return n
}

func TestFrameNotifierRendersAndExpires(t *testing.T) {
	f := display.NewFrameNotifier("")
	if lit(f) != 0 {
		t.Fatal("new frame is not blank")
	}
	f.ShowNotification("Volume: 70%\n[■■■■■■■□□□]", 50*time.Millisecond)
	if got := f.Text(); got != "Volume: 70%\n[■■■■■■■□□□]" {
		t.Errorf("Text = %q", got)
	}
	if lit(f) == 0 {
		t.Error("frame still blank after notification")
	}
	time.Sleep(80 * time.Millisecond)
	if got := f.Text(); got != "" {
		t.Errorf("Text after expiry = %q, want empty", got)
	}
	if lit(f) != 0 {
		t.Error("frame not cleared after expiry")
	}
}

func TestFrameNotifierGaugeFill(t *testing.T) {
	full := display.NewFrameNotifier("")
	full.ShowNotification("[■■■■■■■■■■]", time.Minute)
	empty := display.NewFrameNotifier("")
	empty.ShowNotification("[□□□□□□□□□□]", time.Minute)
	if lit(full) <= lit(empty) {
		t.Errorf("full gauge lit %d pixels, empty gauge %d", lit(full), lit(empty))
	}
}

func TestFrameNotifierPNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	f := display.NewFrameNotifier(path)
	f.ShowNotification("Volume: 5%", time.Minute)

	data, err := f.PNG()
	if err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if b := img.Bounds(); b.Dx() != display.FrameWidth || b.Dy() != display.FrameHeight {
		t.Errorf("bounds = %v", b)
	}

	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("frame file: %v", err)
	}
	if _, err := png.Decode(bytes.NewReader(raw)); err != nil {
		t.Errorf("frame file is not a PNG: %v", err)
	}
}

func TestFrameNotifierSlowWriterDoesNotBlock(t *testing.T) {
	release := make(chan struct{})
	var (
		mu      sync.Mutex
		written []*image.RGBA
	)
	write := func(_ string, img *image.RGBA) error {
		<-release
		mu.Lock()
		written = append(written, img)
		mu.Unlock()
		return nil
	}
	f := display.NewFrameNotifierWithWriter("frame.png", write)

	shown := make(chan struct{})
	go func() {
		for i := 0; i < 5; i++ {
			f.ShowNotification(fmt.Sprintf("Volume: %d%%", i), time.Minute)
		}
		close(shown)
	}()
	select {
	case <-shown:
	case <-time.After(time.Second):
		t.Fatal("ShowNotification blocked on the frame writer")
	}

	close(release)
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	mu.Lock()
	defer mu.Unlock()
	if len(written) == 0 || len(written) > 2 {
		t.Fatalf("wrote %d frames, want the first and the newest", len(written))
	}
	last := written[len(written)-1]
	if !bytes.Equal(last.Pix, f.Frame().Pix) {
		t.Error("last written frame is not the newest frame")
	}
}

type countNotifier struct{ n int }

func (c *countNotifier) ShowNotification(string, time.Duration) { c.n++ }

func TestMulti(t *testing.T) {
	a, b := &countNotifier{}, &countNotifier{}
	display.Multi{a, b, display.LogNotifier{}}.ShowNotification("x", time.Second)
	if a.n != 1 || b.n != 1 {
		t.Errorf("counts = %d/%d, want 1/1", a.n, b.n)
	}
}
