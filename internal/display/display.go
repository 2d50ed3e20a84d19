// Package display shows short notifications from the panel, such as the
// volume gauge.
package display

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Notifier shows a short text for a while.
type Notifier interface {
	ShowNotification(text string, d time.Duration)
}

// LogNotifier logs notifications. Used when there is no screen.
type LogNotifier struct{}

func (LogNotifier) ShowNotification(text string, d time.Duration) {
	slog.Info("display: notification", "text", strings.ReplaceAll(text, "\n", " "), "duration", d)
}

const (
	FrameWidth  = 160
	FrameHeight = 40

	lineHeight = 15
	marginX    = 4
)

// Gauge glyphs are outside basicfont, so they are drawn as boxes.
const (
	glyphFilled = '■'
	glyphEmpty  = '□'
)

var (
	colorBackground = color.RGBA{0, 0, 0, 255}
	colorText       = color.RGBA{255, 255, 255, 255}
)

// FrameNotifier renders notifications into a small RGBA frame. The frame is
// cleared once the notification duration has passed. If path is set every
// rendered frame is also written there as a PNG by a background writer;
// only the newest pending frame is kept.
type FrameNotifier struct {
	mu      sync.Mutex
	img     *image.RGBA
	text    string
	expires time.Time
	path    string
	now     func() time.Time
	write   func(path string, img *image.RGBA) error

	pending chan *image.RGBA
	done    chan struct{}
	closed  bool
}

// NewFrameNotifier creates a blank frame. path may be empty.
func NewFrameNotifier(path string) *FrameNotifier {
	return newFrameNotifier(path, writePNG)
}

func newFrameNotifier(path string, write func(string, *image.RGBA) error) *FrameNotifier {
	f := &FrameNotifier{
		img:   image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight)),
		path:  path,
		now:   time.Now,
		write: write,
	}
	f.clear()
	if path != "" {
		f.pending = make(chan *image.RGBA, 1)
		f.done = make(chan struct{})
		go f.writeLoop()
	}
	return f
}

// Close stops the frame writer after the last pending frame is written.
func (f *FrameNotifier) Close() error {
	f.mu.Lock()
	if f.closed || f.pending == nil {
		f.closed = true
		f.mu.Unlock()
		return nil
	}
	f.closed = true
	close(f.pending)
	f.mu.Unlock()
	<-f.done
	return nil
}

func (f *FrameNotifier) writeLoop() {
	defer close(f.done)
	for img := range f.pending {
		if err := f.write(f.path, img); err != nil {
			slog.Warn("display: failed to write frame", "path", f.path, "err", err)
		}
	}
}

// queueLocked hands a copy of the frame to the writer, replacing any frame
// it has not picked up yet. It never blocks.
func (f *FrameNotifier) queueLocked() {
	if f.pending == nil || f.closed {
		return
	}
	snap := image.NewRGBA(f.img.Bounds())
	copy(snap.Pix, f.img.Pix)
	for {
		select {
		case f.pending <- snap:
			return
		default:
		}
		select {
		case <-f.pending:
		default:
		}
	}
}

// ShowNotification renders text (one line per "\n") and keeps it for d.
func (f *FrameNotifier) ShowNotification(text string, d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.text = text
	f.expires = f.now().Add(d)
	f.clear()
	for i, line := range strings.Split(text, "\n") {
		f.drawLine(marginX, lineHeight*(i+1)-2, line)
	}
	f.queueLocked()
}

// Text returns the notification currently shown, or "" once it expired.
func (f *FrameNotifier) Text() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expireLocked()
	return f.text
}

// Frame returns a copy of the current frame.
func (f *FrameNotifier) Frame() *image.RGBA {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expireLocked()
	out := image.NewRGBA(f.img.Bounds())
	copy(out.Pix, f.img.Pix)
	return out
}

// PNG encodes the current frame.
func (f *FrameNotifier) PNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, f.Frame()); err != nil {
		return nil, fmt.Errorf("display: encode frame: %w", err)
	}
	return buf.Bytes(), nil
}

func (f *FrameNotifier) expireLocked() {
	if f.text != "" && !f.now().Before(f.expires) {
		f.text = ""
		f.clear()
	}
}

func (f *FrameNotifier) clear() {
	draw.Draw(f.img, f.img.Bounds(), &image.Uniform{colorBackground}, image.Point{}, draw.Src)
}

// drawLine draws text with its baseline at y. Gauge glyphs are drawn as
// 7x13 cells matching basicfont's advance.
func (f *FrameNotifier) drawLine(x, y int, text string) {
	d := &font.Drawer{
		Dst:  f.img,
		Src:  image.NewUniform(colorText),
		Face: basicfont.Face7x13,
		Dot:  fixed.Point26_6{X: fixed.I(x), Y: fixed.I(y)},
	}
	for _, r := range text {
		switch r {
		case glyphFilled, glyphEmpty:
			px := d.Dot.X.Floor()
			cell := image.Rect(px+1, y-9, px+6, y-1)
			if r == glyphFilled {
				draw.Draw(f.img, cell, d.Src, image.Point{}, draw.Src)
			} else {
				outline(f.img, cell, colorText)
			}
			d.Dot.X += fixed.I(basicfont.Face7x13.Advance)
		default:
			d.DrawString(string(r))
		}
	}
}

func outline(img draw.Image, r image.Rectangle, c color.Color) {
	for x := r.Min.X; x < r.Max.X; x++ {
		img.Set(x, r.Min.Y, c)
		img.Set(x, r.Max.Y-1, c)
	}
	for y := r.Min.Y; y < r.Max.Y; y++ {
		img.Set(r.Min.X, y, c)
		img.Set(r.Max.X-1, y, c)
	}
}

// writePNG replaces the file at path atomically.
func writePNG(path string, img *image.RGBA) error {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".frame-*.png")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}

// Multi fans a notification out to several notifiers.
type Multi []Notifier

func (m Multi) ShowNotification(text string, d time.Duration) {
	for _, n := range m {
		n.ShowNotification(text, d)
	}
}
