package input_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/micro-nova/amplipi-panel/internal/hardware"
	"github.com/micro-nova/amplipi-panel/internal/input"
)

// scripted returns a fixed sequence of levels per pin, then repeats the last.
type scripted struct {
	mu     sync.Mutex
	levels map[int][]bool
	fail   map[int]bool
}

func newScripted() *scripted {
	return &scripted{levels: make(map[int][]bool), fail: make(map[int]bool)}
}

func (s *scripted) set(pin int, levels ...bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.levels[pin] = levels
}

func (s *scripted) ReadBit(ctx context.Context, pin int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail[pin] {
		return false, hardware.ErrHardware("scripted failure")
	}
	l := s.levels[pin]
	if len(l) == 0 {
		return false, nil
	}
	v := l[0]
	if len(l) > 1 {
		s.levels[pin] = l[1:]
	}
	return v, nil
}

// recorder collects events in firing order.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, s)
}

func (r *recorder) get() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func (r *recorder) dispatch(prefix string) *input.Dispatch {
	d := input.NewDispatch()
	d.OnPressDown(func() { r.add(prefix + "down") })
	d.OnPressUp(func() { r.add(prefix + "up") })
	d.OnClick(func() { r.add(prefix + "click") })
	return d
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestMonitorEdgeSequence(t *testing.T) {
	r := newScripted()
	r.set(4, true, true, false, false, true)
	rec := &recorder{}
	m, err := input.NewMonitor(r, input.Config{Name: "test", Interval: time.Hour},
		[]input.Channel{{Name: "up", Pin: 4, Dispatch: rec.dispatch("")}})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	want := [][]string{
		{"down"},
		{"down"},
		{"down", "up", "click"},
		{"down", "up", "click"},
		{"down", "up", "click", "down"},
	}
	for i, w := range want {
		if err := m.Poll(context.Background()); err != nil {
			t.Fatalf("Poll %d: %v", i+1, err)
		}
		if got := rec.get(); !equal(got, w) {
			t.Errorf("after tick %d events = %v, want %v", i+1, got, w)
		}
	}
	if s := m.Stats(); s.Samples != 5 || s.Events != 4 || s.Faults != 0 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestMonitorLongHoldIsOneClick(t *testing.T) {
	r := newScripted()
	levels := []bool{true}
	for i := 0; i < 50; i++ {
		levels = append(levels, true)
	}
	levels = append(levels, false)
	r.set(0, levels...)
	rec := &recorder{}
	m, _ := input.NewMonitor(r, input.Config{Interval: time.Hour},
		[]input.Channel{{Pin: 0, Dispatch: rec.dispatch("")}})
	for range levels {
		m.Poll(context.Background())
	}
	if got := rec.get(); !equal(got, []string{"down", "up", "click"}) {
		t.Errorf("events = %v", got)
	}
}

func TestMonitorBaseline(t *testing.T) {
	r := newScripted()
	r.set(3, true, true, false)
	rec := &recorder{}
	m, _ := input.NewMonitor(r, input.Config{Interval: time.Hour, Baseline: true},
		[]input.Channel{{Pin: 3, Dispatch: rec.dispatch("")}})
	for i := 0; i < 3; i++ {
		m.Poll(context.Background())
	}
	if got := rec.get(); !equal(got, []string{"up", "click"}) {
		t.Errorf("events = %v, want [up click]", got)
	}
}

func TestMonitorChannelOrder(t *testing.T) {
	r := newScripted()
	r.set(5, true)
	r.set(4, true)
	rec := &recorder{}
	m, _ := input.NewMonitor(r, input.Config{Interval: time.Hour}, []input.Channel{
		{Pin: 5, Dispatch: rec.dispatch("5:")},
		{Pin: 4, Dispatch: rec.dispatch("4:")},
	})
	m.Poll(context.Background())
	if got := rec.get(); !equal(got, []string{"5:down", "4:down"}) {
		t.Errorf("events = %v", got)
	}
}

func TestMonitorFaultSkipsTick(t *testing.T) {
	r := newScripted()
	r.set(4, true, false)
	rec := &recorder{}
	m, _ := input.NewMonitor(r, input.Config{Interval: time.Hour},
		[]input.Channel{{Pin: 4, Dispatch: rec.dispatch("")}})
	ctx := context.Background()

	m.Poll(ctx) // down
	r.mu.Lock()
	r.fail[4] = true
	r.mu.Unlock()
	m.Poll(ctx)
	m.Poll(ctx)
	if got := rec.get(); !equal(got, []string{"down"}) {
		t.Errorf("events during fault = %v, want [down]", got)
	}
	if s := m.Stats(); s.Faults != 2 {
		t.Errorf("Faults = %d, want 2", s.Faults)
	}

	r.mu.Lock()
	r.fail[4] = false
	r.mu.Unlock()
	m.Poll(ctx) // false: up, click
	if got := rec.get(); !equal(got, []string{"down", "up", "click"}) {
		t.Errorf("events after recovery = %v", got)
	}
}

func TestMonitorMissingCallbacks(t *testing.T) {
	r := newScripted()
	r.set(1, true, false)
	d := input.NewDispatch()
	clicks := 0
	d.OnClick(func() { clicks++ })
	m, _ := input.NewMonitor(r, input.Config{Interval: time.Hour}, []input.Channel{
		{Pin: 1, Dispatch: d},
		{Pin: 2}, // no dispatch at all
	})
	m.Poll(context.Background())
	m.Poll(context.Background())
	if clicks != 1 {
		t.Errorf("clicks = %d, want 1", clicks)
	}
}

func TestMonitorOnEvent(t *testing.T) {
	r := newScripted()
	r.set(9, true, false)
	var got []input.Event
	m, _ := input.NewMonitor(r, input.Config{
		Name:     "keys",
		Interval: time.Hour,
		OnEvent:  func(e input.Event) { got = append(got, e) },
	}, []input.Channel{{Name: "boot", Pin: 9}})
	m.Poll(context.Background())
	m.Poll(context.Background())
	if len(got) != 3 {
		t.Fatalf("got %d events, want 3", len(got))
	}
	kinds := []input.EventKind{input.PressDown, input.PressUp, input.Click}
	for i, e := range got {
		if e.Kind != kinds[i] || e.Channel != "boot" || e.Monitor != "keys" || e.Pin != 9 {
			t.Errorf("event %d = %+v", i, e)
		}
	}
}

func TestNewMonitorValidation(t *testing.T) {
	r := newScripted()
	tests := []struct {
		name     string
		reader   input.LineReader
		cfg      input.Config
		channels []input.Channel
	}{
		{"nil reader", nil, input.Config{Interval: time.Second}, nil},
		{"zero interval", r, input.Config{}, nil},
		{"bad drive", r, input.Config{Interval: time.Second, Drive: "isr"}, nil},
		{"duplicate pin", r, input.Config{Interval: time.Second}, []input.Channel{{Pin: 1}, {Pin: 1}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := input.NewMonitor(tc.reader, tc.cfg, tc.channels); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMonitorLifecycle(t *testing.T) {
	m, _ := input.NewMonitor(newScripted(), input.Config{Interval: time.Millisecond}, nil)
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	if err := m.Start(); !errors.Is(err, input.ErrRunning) {
		t.Errorf("second Start = %v, want ErrRunning", err)
	}
	m.Stop()
	m.Stop()
	if err := m.Start(); !errors.Is(err, input.ErrStopped) {
		t.Errorf("Start after Stop = %v, want ErrStopped", err)
	}
	if err := m.Poll(context.Background()); !errors.Is(err, input.ErrStopped) {
		t.Errorf("Poll after Stop = %v, want ErrStopped", err)
	}
}

func TestMonitorStopSilences(t *testing.T) {
	for _, drive := range []input.Drive{input.DriveTask, input.DriveTimer} {
		t.Run(string(drive), func(t *testing.T) {
			mock := hardware.NewMock(0x20)
			e := hardware.NewExpander(mock, 0x20)
			rec := &recorder{}
			m, err := input.NewMonitor(e, input.Config{Interval: time.Millisecond, Drive: drive},
				[]input.Channel{{Pin: 4, Dispatch: rec.dispatch("")}})
			if err != nil {
				t.Fatal(err)
			}
			if err := m.Start(); err != nil {
				t.Fatal(err)
			}
			m.Stop()
			before := len(rec.get())

			for i := 0; i < 10; i++ {
				mock.SetPressed(4, i%2 == 0)
				if err := m.Poll(context.Background()); !errors.Is(err, input.ErrStopped) {
					t.Fatalf("Poll after Stop = %v", err)
				}
				time.Sleep(2 * time.Millisecond)
			}
			if got := len(rec.get()); got != before {
				t.Errorf("%d events fired after Stop", got-before)
			}
		})
	}
}

func TestMonitorDrives(t *testing.T) {
	for _, drive := range []input.Drive{input.DriveTask, input.DriveTimer} {
		t.Run(string(drive), func(t *testing.T) {
			mock := hardware.NewMock(0x20)
			e := hardware.NewExpander(mock, 0x20)
			clicks := make(chan int, 4)
			up := input.NewDispatch()
			up.OnClick(func() { clicks <- 5 })
			down := input.NewDispatch()
			down.OnClick(func() { clicks <- 4 })
			m, err := input.NewMonitor(e, input.Config{Interval: 2 * time.Millisecond, Drive: drive},
				[]input.Channel{{Pin: 5, Dispatch: up}, {Pin: 4, Dispatch: down}})
			if err != nil {
				t.Fatal(err)
			}
			if err := m.Start(); err != nil {
				t.Fatal(err)
			}
			defer m.Stop()

			press := func(pin int) {
				mock.SetPressed(pin, true)
				time.Sleep(20 * time.Millisecond)
				mock.SetPressed(pin, false)
				select {
				case got := <-clicks:
					if got != pin {
						t.Errorf("click from pin %d, want %d", got, pin)
					}
				case <-time.After(time.Second):
					t.Fatalf("no click for pin %d", pin)
				}
			}
			press(5)
			press(4)
		})
	}
}

func TestDispatchOverwrite(t *testing.T) {
	d := input.NewDispatch()
	var got []int
	d.OnClick(func() { got = append(got, 1) })
	d.OnClick(func() { got = append(got, 2) })
	d.Fire(input.Click)
	d.OnClick(nil)
	d.Fire(input.Click)
	d.Fire(input.PressDown)
	if len(got) != 1 || got[0] != 2 {
		t.Errorf("got %v, want [2]", got)
	}
}

func TestEventKindString(t *testing.T) {
	tests := []struct {
		kind input.EventKind
		want string
	}{
		{input.PressDown, "press_down"},
		{input.PressUp, "press_up"},
		{input.Click, "click"},
		{input.EventKind(9), "unknown"},
	}
	for _, tc := range tests {
		if got := tc.kind.String(); got != tc.want {
			t.Errorf("EventKind(%d).String() = %q, want %q", tc.kind, got, tc.want)
		}
	}
}
