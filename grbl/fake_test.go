package grbl

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeFirmware is a Link that records every Write call and answers lines
// the way GRBL does. Lines are acknowledged automatically, or one at a time
// with ack when manual is set.
type fakeFirmware struct {
	manual bool

	// respond returns the acknowledgment for a line; "ok" when nil.
	respond func(line string) string

	mx          sync.Mutex
	writes      []string
	lines       []string
	inFlight    int
	maxInFlight int
	writeErr    error
	afterClose  int

	rx        chan string
	unacked   chan string
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeFirmware(manual bool) *fakeFirmware {
	fw := &fakeFirmware{
		manual:  manual,
		rx:      make(chan string, 1000),
		unacked: make(chan string, 1000),
		closed:  make(chan struct{}),
	}
	if !manual {
		go fw.run()
	}
	return fw
}

func (fw *fakeFirmware) run() {
	for {
		select {
		case <-fw.closed:
			return
		case line := <-fw.unacked:
			time.Sleep(time.Millisecond)
			fw.reply(line)
		}
	}
}

func (fw *fakeFirmware) reply(line string) {
	fw.mx.Lock()
	fw.inFlight -= len(line) + 1
	respond := fw.respond
	fw.mx.Unlock()

	resp := "ok"
	if respond != nil {
		resp = respond(line)
	}
	fw.send(resp)
}

// ack acknowledges the oldest unacknowledged line.
func (fw *fakeFirmware) ack(t *testing.T) string {
	t.Helper()
	select {
	case line := <-fw.unacked:
		fw.reply(line)
		return line
	case <-time.After(time.Second):
		t.Fatal("no line to acknowledge")
		return ""
	}
}

// send queues a response line for the engine to read.
func (fw *fakeFirmware) send(line string) { fw.rx <- line + "\n" }

func (fw *fakeFirmware) Read(p []byte) (int, error) {
	select {
	case s := <-fw.rx:
		return copy(p, s), nil
	case <-fw.closed:
		return 0, io.ErrClosedPipe
	case <-time.After(2 * time.Millisecond):
		return 0, nil
	}
}

func (fw *fakeFirmware) Write(p []byte) (int, error) {
	fw.mx.Lock()
	defer fw.mx.Unlock()

	select {
	case <-fw.closed:
		fw.afterClose++
		return 0, io.ErrClosedPipe
	default:
	}
	if fw.writeErr != nil {
		return 0, fw.writeErr
	}

	s := string(p)
	fw.writes = append(fw.writes, s)
	if len(s) == 1 && IsRealtime(s[0]) {
		return len(p), nil
	}

	fw.inFlight += len(s)
	if fw.inFlight > fw.maxInFlight {
		fw.maxInFlight = fw.inFlight
	}
	line := strings.TrimSuffix(s, "\n")
	fw.lines = append(fw.lines, line)
	fw.unacked <- line
	return len(p), nil
}

func (fw *fakeFirmware) Close() error {
	fw.closeOnce.Do(func() { close(fw.closed) })
	return nil
}

func (fw *fakeFirmware) isClosed() bool {
	select {
	case <-fw.closed:
		return true
	default:
		return false
	}
}

func (fw *fakeFirmware) setWriteErr(err error) {
	fw.mx.Lock()
	fw.writeErr = err
	fw.mx.Unlock()
}

func (fw *fakeFirmware) Lines() []string {
	fw.mx.Lock()
	defer fw.mx.Unlock()
	return append([]string(nil), fw.lines...)
}

func (fw *fakeFirmware) Writes() []string {
	fw.mx.Lock()
	defer fw.mx.Unlock()
	return append([]string(nil), fw.writes...)
}

func testConfig() Config {
	cfg := DefaultConfig("test")
	cfg.BufferSize = 20
	cfg.Reserve = 0
	cfg.PollInterval = 0
	cfg.SettleDelay = 0
	cfg.StartupCommands = nil
	return cfg
}

func newTestEngine(t *testing.T, fw *fakeFirmware, cfg Config) *Engine {
	t.Helper()
	e, err := New(context.Background(), fw, cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Shutdown)
	return e
}

// waitFor polls cond until it holds or a second passes.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timeout waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

// messageCollector accumulates TakeMessages output across polls.
type messageCollector struct {
	e     *Engine
	lines []string
}

func (m *messageCollector) has(line string) bool {
	m.lines = append(m.lines, m.e.TakeMessages()...)
	for _, l := range m.lines {
		if l == line {
			return true
		}
	}
	return false
}

func (m *messageCollector) hasPrefix(prefix string) bool {
	m.lines = append(m.lines, m.e.TakeMessages()...)
	for _, l := range m.lines {
		if strings.HasPrefix(l, prefix) {
			return true
		}
	}
	return false
}

var errUnplugged = errors.New("device unplugged")
