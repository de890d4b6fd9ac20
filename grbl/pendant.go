package grbl

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

// Pendant relays an Arduino jog pendant to a controller.
//
// The pendant sends `STEP:axis,mult,step` for each detent of its wheel and
// `STOP` for its stop button.
type Pendant struct {
	ctrl *Controller
	log  zerolog.Logger
}

// NewPendant will create a new pendant driver that will relay commands to the provided controller.
func NewPendant(ctrl *Controller, log zerolog.Logger) *Pendant {
	return &Pendant{ctrl: ctrl, log: log.With().Str("component", "pendant").Logger()}
}

// Run reads pendant lines from link until ctx is done or the link fails.
// Errors handling a single line are logged and do not stop the pendant.
func (p *Pendant) Run(ctx context.Context, link Link) error {
	err := readLines(ctx, link, func(line string) {
		if err := p.HandleData(ctx, line); err != nil {
			p.log.Warn().Err(err).Str("data", line).Msg("pendant command")
		}
	})
	if err != nil {
		return &LinkError{Op: "read pendant", Err: err}
	}
	return nil
}

// pendantAxes maps the pendant's axis selector to an axis letter and direction.
var pendantAxes = map[int]struct {
	axis rune
	sign float64
}{
	1: {'X', 1},
	2: {'Y', 1},
	3: {'Z', -1},
}

// HandleData translates one pendant line into a controller command.
// Unknown lines are ignored.
func (p *Pendant) HandleData(ctx context.Context, data string) error {
	data = strings.TrimSpace(data)
	switch {
	case data == "STOP":
		return p.ctrl.CommandFeedHold(ctx)
	case !strings.HasPrefix(data, "STEP:"):
		return nil
	}

	var sel, mult, step int
	if _, err := fmt.Sscanf(data, "STEP:%d,%d,%d", &sel, &mult, &step); err != nil {
		return fmt.Errorf("parse %q: %w", data, err)
	}
	ax, ok := pendantAxes[sel]
	if !ok || step == 0 {
		return nil
	}

	// mult is in hundredths of a millimeter per step
	mm := ax.sign * float64(step) * float64(mult) / 100
	return p.ctrl.CommandJog(ctx, ax.axis, mm, false)
}
