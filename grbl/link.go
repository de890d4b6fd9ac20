package grbl

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"
	"golang.org/x/net/websocket"
)

// Link is the byte stream to the firmware.
//
// Read must return within a bounded time even when no data arrives, either
// with (0, nil) or with an error whose Timeout method reports true, so the
// receiver can observe shutdown.
type Link interface {
	io.ReadWriteCloser
}

// OpenLink opens target, which is either a serial device path or a
// ws:// or wss:// URL of a serial-to-websocket bridge.
func OpenLink(target string, baud int, readTimeout time.Duration) (Link, error) {
	if strings.HasPrefix(target, "ws://") || strings.HasPrefix(target, "wss://") {
		return OpenWebsocket(target, readTimeout)
	}
	return OpenSerial(target, baud, readTimeout)
}

// OpenSerial opens a serial device in 8N1 mode.
func OpenSerial(device string, baud int, readTimeout time.Duration) (Link, error) {
	port, err := serial.Open(device, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", device, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		port.Close()
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	return port, nil
}

// wsLink receives frames on its own goroutine without a read deadline, so a
// Read timeout never leaves a frame half consumed.
type wsLink struct {
	ws          *websocket.Conn
	readTimeout time.Duration

	frames    chan []byte
	recvDone  chan struct{}
	recvErr   error
	closed    chan struct{}
	closeOnce sync.Once

	// pending holds the rest of a frame that did not fit the caller's buffer.
	mx      sync.Mutex
	pending []byte
}

// OpenWebsocket dials a websocket that carries the raw serial byte stream.
func OpenWebsocket(url string, readTimeout time.Duration) (Link, error) {
	origin := "http://localhost"
	ws, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return newWSLink(ws, readTimeout), nil
}

func newWSLink(ws *websocket.Conn, readTimeout time.Duration) *wsLink {
	l := &wsLink{
		ws:          ws,
		readTimeout: readTimeout,
		frames:      make(chan []byte),
		recvDone:    make(chan struct{}),
		closed:      make(chan struct{}),
	}
	go l.receive()
	return l
}

func (l *wsLink) receive() {
	defer close(l.recvDone)
	for {
		var frame []byte
		if err := websocket.Message.Receive(l.ws, &frame); err != nil {
			l.recvErr = err
			return
		}
		if len(frame) == 0 {
			continue
		}
		select {
		case l.frames <- frame:
		case <-l.closed:
			return
		}
	}
}

func (l *wsLink) Read(p []byte) (int, error) {
	l.mx.Lock()
	defer l.mx.Unlock()

	if len(l.pending) > 0 {
		n := copy(p, l.pending)
		l.pending = l.pending[n:]
		return n, nil
	}

	t := time.NewTimer(l.readTimeout)
	defer t.Stop()
	select {
	case frame := <-l.frames:
		n := copy(p, frame)
		l.pending = frame[n:]
		return n, nil
	case <-l.recvDone:
		return 0, l.recvErr
	case <-t.C:
		return 0, nil
	}
}

func (l *wsLink) Write(p []byte) (int, error) {
	err := websocket.Message.Send(l.ws, string(p))
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (l *wsLink) Close() error {
	l.closeOnce.Do(func() { close(l.closed) })
	return l.ws.Close()
}

// linkWriter serializes every write to the link, so a real-time byte can
// never land inside a line.
type linkWriter struct {
	mx     sync.Mutex
	link   Link
	closed bool
}

func (w *linkWriter) write(p []byte) error {
	w.mx.Lock()
	defer w.mx.Unlock()

	if w.closed {
		return ErrClosed
	}
	for len(p) > 0 {
		n, err := w.link.Write(p)
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		p = p[n:]
	}
	return nil
}

// close closes the link. No write can start afterwards.
func (w *linkWriter) close() error {
	w.mx.Lock()
	defer w.mx.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.link.Close()
}

// isTimeout reports whether err is a read timeout rather than a link failure.
func isTimeout(err error) bool {
	var nerr net.Error
	return errors.As(err, &nerr) && nerr.Timeout()
}
