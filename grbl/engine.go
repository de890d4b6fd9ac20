package grbl

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Engine streams line commands to the firmware using character-counting flow
// control and tracks the status reports it sends back.
//
// Three goroutines run for the lifetime of an Engine: a sender draining the
// command queue, a receiver reading responses, and a poller requesting
// status reports.
type Engine struct {
	cfg Config
	log zerolog.Logger

	link   Link
	w      *linkWriter
	ledger *Ledger
	queue  chan *command
	msgs   messageLog

	latest  atomic.Pointer[StatusReport]
	updates chan *StatusReport

	// subMx orders submissions against the switch to ShuttingDown, so every
	// queued command is either sent or completed by teardown.
	subMx sync.RWMutex
	state atomic.Int32

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	errMx sync.Mutex
	err   error

	closeOnce sync.Once
	closed    chan struct{}
}

// Open connects to cfg.Port and starts the engine. See New.
func Open(ctx context.Context, cfg Config) (*Engine, error) {
	cfg.setDefaults()
	link, err := OpenLink(cfg.Port, cfg.Baud, cfg.ReadTimeout)
	if err != nil {
		return nil, &ConnectionError{Port: cfg.Port, Err: err}
	}
	return New(ctx, link, cfg)
}

// New starts an engine on an already opened link. It waits cfg.SettleDelay
// for the firmware to boot, queues cfg.StartupCommands and returns without
// waiting for them to be acknowledged. The link is closed if New fails.
func New(ctx context.Context, link Link, cfg Config) (*Engine, error) {
	cfg.setDefaults()
	e := &Engine{
		cfg:     cfg,
		log:     cfg.Logger.With().Str("port", cfg.Port).Logger(),
		link:    link,
		w:       &linkWriter{link: link},
		ledger:  NewLedger(cfg.BufferSize, cfg.Reserve),
		queue:   make(chan *command, cfg.QueueSize),
		msgs:    messageLog{limit: cfg.MessageLimit},
		updates: make(chan *StatusReport, 1),
		closed:  make(chan struct{}),
	}
	e.ctx, e.cancel = context.WithCancel(context.Background())
	e.state.Store(int32(StateConnecting))
	e.log.Info().Int("baud", cfg.Baud).Int("buffer", e.ledger.Limit()).Msg("connecting")

	e.start("receiver", e.receiveLoop)
	e.start("sender", e.sendLoop)
	if cfg.PollInterval > 0 {
		e.start("poller", e.pollLoop)
	}

	connErr := func(err error) error {
		e.Shutdown()
		return &ConnectionError{Port: cfg.Port, Err: err}
	}

	t := time.NewTimer(cfg.SettleDelay)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
		return nil, connErr(ctx.Err())
	case <-e.closed:
		return nil, connErr(e.Err())
	}

	for _, line := range cfg.StartupCommands {
		if _, err := e.submit(line); err != nil {
			return nil, connErr(err)
		}
	}

	if !e.state.CompareAndSwap(int32(StateConnecting), int32(StateRunning)) {
		return nil, connErr(ErrClosed)
	}
	e.log.Info().Msg("running")
	return e, nil
}

func (e *Engine) start(name string, loop func(context.Context) error) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.log.Debug().Str("activity", name).Msg("start")
		err := loop(e.ctx)
		if err != nil {
			e.fail(err)
		}
		e.log.Debug().Str("activity", name).Msg("exit")
	}()
}

// fail records a fatal error and tears the engine down in the background.
func (e *Engine) fail(err error) {
	e.errMx.Lock()
	first := e.err == nil
	if first {
		e.err = err
	}
	e.errMx.Unlock()

	if first {
		e.log.Error().Err(err).Msg("link failed")
		e.msgs.add(prefixWarning + err.Error())
	}
	go e.Shutdown()
}

// Err returns the fatal error that closed the engine, if any.
func (e *Engine) Err() error {
	e.errMx.Lock()
	defer e.errMx.Unlock()
	return e.err
}

func (e *Engine) closeReason() error {
	if err := e.Err(); err != nil {
		return err
	}
	return ErrClosed
}

// State returns the current lifecycle state.
func (e *Engine) State() State { return State(e.state.Load()) }

// Done is closed once the engine has fully shut down.
func (e *Engine) Done() <-chan struct{} { return e.closed }

// Occupancy returns the bytes sent but not yet acknowledged.
func (e *Engine) Occupancy() int { return e.ledger.Occupancy() }

// Queued returns the number of lines waiting to be sent.
func (e *Engine) Queued() int { return len(e.queue) }

// SubmitLine queues a line for sending. It does not wait for the line to be
// written.
func (e *Engine) SubmitLine(line string) error {
	_, err := e.submit(line)
	return err
}

// SendCommand queues a line and, if wait is set, blocks until the firmware
// acknowledges it. A negative acknowledgment is returned as *CommandError.
func (e *Engine) SendCommand(ctx context.Context, line string, wait bool) error {
	cmd, err := e.submit(line)
	if err != nil {
		return err
	}
	if !wait {
		return nil
	}
	select {
	case <-cmd.DoneCh:
		return cmd.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) submit(line string) (*command, error) {
	if strings.ContainsAny(line, "\r\n") {
		return nil, ErrInvalidLine
	}
	cmd := newCommand(line)
	if cmd.size() > e.ledger.Limit() {
		return nil, ErrLineTooLong
	}

	e.subMx.RLock()
	defer e.subMx.RUnlock()

	switch e.State() {
	case StateConnecting, StateRunning:
	default:
		return nil, ErrQueueClosed
	}

	select {
	case e.queue <- cmd:
		return cmd, nil
	case <-e.ctx.Done():
		return nil, ErrQueueClosed
	}
}

// SubmitRealtime writes one of the real-time bytes (?, ! or ~) immediately,
// ahead of any queued lines.
func (e *Engine) SubmitRealtime(b byte) error {
	if !IsRealtime(b) {
		return ErrNotRealtime
	}
	switch e.State() {
	case StateShuttingDown, StateClosed:
		if err := e.Err(); err != nil {
			return err
		}
		return ErrClosed
	}
	err := e.writeRealtime(b)
	if err != nil && err != ErrClosed {
		e.fail(err)
	}
	return err
}

// LatestStatus returns the most recent status report, or nil if none has arrived.
func (e *Engine) LatestStatus() *StatusReport { return e.latest.Load() }

// Updates delivers each new status report. Stale reports are dropped when the
// consumer falls behind. The channel is closed on shutdown.
func (e *Engine) Updates() <-chan *StatusReport { return e.updates }

// TakeMessages returns and clears the accumulated message log: sent lines,
// informational firmware output, and warnings.
func (e *Engine) TakeMessages() []string { return e.msgs.take() }

// publish queues rep on the updates channel, replacing a stale report, and
// then makes it the latest status.
func (e *Engine) publish(rep *StatusReport) {
	defer e.latest.Store(rep)
	select {
	case e.updates <- rep:
		return
	default:
	}
	select {
	case <-e.updates:
	default:
	}
	select {
	case e.updates <- rep:
	default:
	}
}

// Shutdown stops all activities, discards lines that were not yet sent and
// closes the link. It blocks until that is done and may be called repeatedly.
func (e *Engine) Shutdown() {
	e.closeOnce.Do(e.teardown)
	<-e.closed
}

func (e *Engine) teardown() {
	e.cancel()

	e.subMx.Lock()
	e.state.Store(int32(StateShuttingDown))
	e.subMx.Unlock()
	e.log.Info().Msg("shutting down")

	e.wg.Wait()
	if err := e.w.close(); err != nil {
		e.log.Warn().Err(err).Msg("close link")
	}

	reason := e.closeReason()
	var discarded int
	for done := false; !done; {
		select {
		case cmd := <-e.queue:
			cmd.finish(reason)
			discarded++
		default:
			done = true
		}
	}
	for _, p := range e.ledger.drain() {
		p.cmd.finish(reason)
	}
	close(e.updates)

	e.state.Store(int32(StateClosed))
	close(e.closed)
	e.log.Info().Int("discarded", discarded).Msg("closed")
}
