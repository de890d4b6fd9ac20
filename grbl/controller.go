package grbl

import (
	"context"
	"errors"
	"io"
	"sync"
)

// Controller adds machine-level commands and job handling on top of an Engine.
type Controller struct {
	*Engine

	mx        sync.Mutex
	job       *Job
	jobStatus chan JobStatus
}

func NewController(e *Engine) *Controller {
	return &Controller{Engine: e, jobStatus: make(chan JobStatus, 1)}
}

// SetJob loads a new job, cancelling the previous one.
func (c *Controller) SetJob(name string, r io.Reader) error {
	c.mx.Lock()
	defer c.mx.Unlock()

	if c.job != nil {
		c.job.Close()
	}

	c.job = newJob(context.Background(), c.Engine, name, r, c.jobStatus)

	return nil
}

// JobStatus delivers job progress updates. It always returns the same channel.
func (c *Controller) JobStatus() <-chan JobStatus { return c.jobStatus }

func (c *Controller) StartJob(ctx context.Context) error {
	c.mx.Lock()
	defer c.mx.Unlock()

	if c.job == nil {
		return errors.New("no loaded job")
	}

	return c.job.Start()
}

// CancelJob drops the loaded job and holds the feed so queued motion stops.
func (c *Controller) CancelJob(ctx context.Context) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.job != nil {
		c.job.Close()
		c.job = nil
		select {
		case c.jobStatus <- JobStatus{}:
		default:
		}
	}

	return c.SubmitRealtime(FeedHold)
}

func (c *Controller) CommandCycleStart(ctx context.Context) error { return c.SubmitRealtime(CycleStart) }
func (c *Controller) CommandFeedHold(ctx context.Context) error   { return c.SubmitRealtime(FeedHold) }
func (c *Controller) QueryStatus(ctx context.Context) error       { return c.SubmitRealtime(StatusQuery) }

func (c *Controller) CommandHome(ctx context.Context, wait bool) error {
	return c.SendCommand(ctx, CmdHome, wait)
}

// CommandInfo requests the build info; the reply lines appear in the message log.
func (c *Controller) CommandInfo(ctx context.Context, wait bool) error {
	return c.SendCommand(ctx, CmdInfo, wait)
}

// CommandUnlock clears an alarm lock.
func (c *Controller) CommandUnlock(ctx context.Context, wait bool) error {
	return c.SendCommand(ctx, CmdUnlock, wait)
}

// CommandJog issues a jog command and optionally waits for it to be accepted.
func (c *Controller) CommandJog(ctx context.Context, axis rune, mm float64, wait bool) error {
	return c.SendCommand(ctx, JogCommand(axis, mm), wait)
}

// SetWPos will set the work coordinate to the provided value.
func (c *Controller) SetWPos(ctx context.Context, axis rune, mm float64) error {
	err := c.SendCommand(ctx, WPosCommand(axis, mm), true)
	if err != nil {
		return err
	}
	return c.SubmitRealtime(StatusQuery)
}

// MachineStatus decodes the latest status report. It returns false until
// a report has arrived or if the report cannot be decoded.
func (c *Controller) MachineStatus() (MachineStatus, bool) {
	rep := c.LatestStatus()
	if rep == nil {
		return MachineStatus{}, false
	}
	st, err := rep.Machine()
	if err != nil {
		return st, false
	}
	return st, true
}

// Close cancels any job and shuts the engine down.
func (c *Controller) Close() {
	c.mx.Lock()
	if c.job != nil {
		c.job.Close()
		c.job = nil
	}
	c.mx.Unlock()
	c.Shutdown()
}
