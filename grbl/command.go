package grbl

import "sync"

// command is a queued line plus the channels its submitter may wait on.
type command struct {
	line string

	WriteCh chan struct{}
	DoneCh  chan struct{}
	Err     error

	writeOnce sync.Once
	doneOnce  sync.Once
}

func newCommand(line string) *command {
	return &command{
		line:    line,
		WriteCh: make(chan struct{}),
		DoneCh:  make(chan struct{}),
	}
}

// size is the credit a line costs in the firmware buffer, terminator included.
func (c *command) size() int { return len(c.line) + 1 }

func (c *command) written() {
	if c == nil {
		return
	}
	c.writeOnce.Do(func() { close(c.WriteCh) })
}

// finish completes the command. Only the first call has any effect.
func (c *command) finish(err error) {
	if c == nil {
		return
	}
	c.doneOnce.Do(func() {
		c.Err = err
		close(c.DoneCh)
	})
}
