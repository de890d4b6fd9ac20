package grbl

import (
	"bufio"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
)

const (
	// jobLinesInFlight is the max number of job lines queued or unacknowledged at a time.
	jobLinesInFlight = 100

	// jobLinesBuffer is the max number of lines of a job read ahead of sending.
	jobLinesBuffer = 100000
)

var errJobCancelled = errors.New("job cancelled")

// Job streams the lines of a G-code program through an Engine.
//
// Blank lines and `;` comment lines are skipped; everything else is sent
// trimmed but otherwise unmodified.
type Job struct {
	e *Engine

	ctx      context.Context
	cancelFn func()

	lines chan string

	// statusCh holds the current status; receiving from it takes the lock.
	statusCh chan JobStatus
	notify   chan JobStatus

	finished   chan struct{}
	finishOnce sync.Once
	wg         sync.WaitGroup
}

// NewJob starts reading r. Call Start to begin sending.
func NewJob(ctx context.Context, e *Engine, name string, r io.Reader) *Job {
	return newJob(ctx, e, name, r, nil)
}

func newJob(ctx context.Context, e *Engine, name string, r io.Reader, notify chan JobStatus) *Job {
	jc := &Job{
		e:        e,
		statusCh: make(chan JobStatus, 1),
		notify:   notify,
		lines:    make(chan string, jobLinesBuffer),
		finished: make(chan struct{}),
	}
	if jc.notify == nil {
		jc.notify = make(chan JobStatus, 1)
	}
	jc.statusCh <- JobStatus{Valid: true, Name: name}
	jc.ctx, jc.cancelFn = context.WithCancel(ctx)

	jc.wg.Add(1)
	closer, _ := r.(io.Closer)
	go jc.readLoop(bufio.NewScanner(r), closer)

	return jc
}

// Updates delivers status changes. Only the latest pending update is kept.
func (jc *Job) Updates() <-chan JobStatus { return jc.notify }

// Status returns the current status.
func (jc *Job) Status() JobStatus {
	stat := <-jc.statusCh
	jc.statusCh <- stat
	return stat
}

func (jc *Job) updateStatus(update func(s *JobStatus)) JobStatus {
	stat := <-jc.statusCh
	if stat.Err == nil {
		update(&stat)
		select {
		case jc.notify <- stat:
		default:
			select {
			case <-jc.notify:
			default:
			}
			select {
			case jc.notify <- stat:
			default:
			}
		}
	}

	jc.statusCh <- stat
	return stat
}

func (jc *Job) failWith(err error) {
	jc.updateStatus(func(s *JobStatus) {
		s.Err = err
		s.Active = false
	})
	jc.cancelFn()
}

func (jc *Job) readLoop(scan *bufio.Scanner, c io.Closer) {
	defer jc.wg.Done()
	defer close(jc.lines)
	if c != nil {
		defer c.Close()
	}

	for scan.Scan() {
		text := strings.TrimSpace(scan.Text())
		if strings.HasPrefix(text, ";") || text == "" {
			continue
		}

		jc.updateStatus(func(s *JobStatus) { s.Read++ })
		select {
		case jc.lines <- text:
		case <-jc.ctx.Done():
			return
		}
	}

	if scan.Err() != nil {
		jc.failWith(scan.Err())
		return
	}
	jc.updateStatus(func(s *JobStatus) { s.ReadComplete = true })
}

// Start begins sending. A job can only be started once.
func (jc *Job) Start() error {
	var wasStarted bool
	stat := jc.updateStatus(func(s *JobStatus) {
		wasStarted = s.Active || s.Done
		if !wasStarted {
			s.Active = true
		}
	})
	if stat.Err != nil {
		return stat.Err
	}
	if wasStarted {
		return errors.New("already started")
	}
	jc.wg.Add(2)

	ch := make(chan *command, jobLinesInFlight)

	// send commands
	go func() {
		defer jc.wg.Done()
		defer close(ch)

		var line string
		var ok bool
		for {
			select {
			case line, ok = <-jc.lines:
			case <-jc.ctx.Done():
				return
			}
			if !ok {
				// done sending
				return
			}

			cmd, err := jc.e.submit(line)
			if err != nil {
				jc.failWith(err)
				// abort on failure
				return
			}

			select {
			case <-jc.ctx.Done():
				return
			case ch <- cmd:
			}
		}
	}()

	// process responses
	go func() {
		defer jc.wg.Done()
		defer jc.finish()
		defer func() {
			if jc.ctx.Err() != nil {
				jc.failWith(errJobCancelled)
				return
			}
			jc.updateStatus(func(s *JobStatus) {
				s.Active = false
				s.Done = true
			})
		}()

		var cmd *command
		var ok bool
		for {
			select {
			case cmd, ok = <-ch:
			case <-jc.ctx.Done():
				return
			}
			if !ok {
				return
			}

			select {
			case <-cmd.WriteCh:
				jc.updateStatus(func(s *JobStatus) { s.Sent++ })
			case <-cmd.DoneCh:
				if cmd.Err != nil {
					jc.failWith(cmd.Err)
					return
				}
				jc.updateStatus(func(s *JobStatus) {
					s.Sent++
					s.Completed++
				})
				continue
			case <-jc.ctx.Done():
				return
			}

			select {
			case <-cmd.DoneCh:
				if cmd.Err != nil {
					jc.failWith(cmd.Err)
					return
				}
				jc.updateStatus(func(s *JobStatus) { s.Completed++ })
			case <-jc.ctx.Done():
				return
			}
		}
	}()

	return nil
}

func (jc *Job) finish() { jc.finishOnce.Do(func() { close(jc.finished) }) }

// Wait blocks until a started job has finished, failed or been closed.
func (jc *Job) Wait(ctx context.Context) (JobStatus, error) {
	select {
	case <-jc.finished:
	case <-ctx.Done():
		return jc.Status(), ctx.Err()
	}
	stat := jc.Status()
	return stat, stat.Err
}

func (jc *Job) Err() error {
	return jc.Status().Err
}

// Close cancels the job. Lines already handed to the engine are still sent.
func (jc *Job) Close() error {
	if stat := jc.Status(); stat.Err == nil && !stat.Done {
		jc.failWith(errJobCancelled)
	}
	jc.cancelFn()
	jc.wg.Wait()
	jc.finish()
	return nil
}
