package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne"
	"fyne.io/fyne/app"
	"fyne.io/fyne/dialog"
	"fyne.io/fyne/layout"
	"fyne.io/fyne/storage"
	"fyne.io/fyne/theme"
	"fyne.io/fyne/widget"
	"github.com/spf13/cobra"

	"github.com/mastercactapus/grblstream/grbl"
)

const guiLogLines = 200

var guiFullscreen bool

var guiCmd = &cobra.Command{
	Use:   "gui",
	Short: "Touch-friendly control panel",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := context.Background()
		sess, err := openSession(ctx)
		if err != nil {
			return err
		}
		defer sess.Close()

		runGUI(ctx, sess)
		return nil
	},
}

func init() {
	guiCmd.Flags().BoolVar(&guiFullscreen, "fullscreen", false, "run in fullscreen")
}

// historyEntry is a command entry that submits on Enter and recalls
// previous lines with Up and Down.
type historyEntry struct {
	widget.Entry

	onSubmit func(string)
	history  []string
	pos      int
}

func newHistoryEntry(onSubmit func(string)) *historyEntry {
	e := &historyEntry{onSubmit: onSubmit}
	e.ExtendBaseWidget(e)
	return e
}

func (e *historyEntry) TypedKey(key *fyne.KeyEvent) {
	switch key.Name {
	case fyne.KeyReturn, fyne.KeyEnter:
		line := strings.TrimSpace(e.Text)
		if line == "" {
			return
		}
		e.history = append(e.history, line)
		e.pos = len(e.history)
		e.SetText("")
		e.onSubmit(line)
	case fyne.KeyUp:
		if e.pos > 0 {
			e.pos--
			e.SetText(e.history[e.pos])
		}
	case fyne.KeyDown:
		if e.pos < len(e.history)-1 {
			e.pos++
			e.SetText(e.history[e.pos])
		} else {
			e.pos = len(e.history)
			e.SetText("")
		}
	default:
		e.Entry.TypedKey(key)
	}
}

func runGUI(ctx context.Context, sess *session) {
	a := app.New()
	w := a.NewWindow("GRBL Stream")
	w.Resize(fyne.NewSize(800, 600))
	if guiFullscreen {
		w.SetFullScreen(true)
	}

	var (
		mx    sync.Mutex
		jobSt grbl.JobStatus
	)
	showErr := func(err error) {
		if err != nil {
			dialog.ShowError(err, w)
		}
	}

	home := widget.NewButtonWithIcon("", theme.HomeIcon(), func() {
		dialog.ShowConfirm("Home Machine?", "The machine will move to its home position and lose its work coordinates.", func(proceed bool) {
			if !proceed {
				return
			}
			prog := dialog.NewProgressInfinite("Homing Machine", "The machine is finding its home position, please wait...", w)
			go func() {
				err := sess.CommandHome(ctx, true)
				prog.Hide()
				showErr(err)
			}()
		}, w)
	})
	unlock := widget.NewButtonWithIcon("", theme.ConfirmIcon(), func() {
		showErr(sess.CommandUnlock(ctx, false))
	})
	load := widget.NewButtonWithIcon("", theme.FolderOpenIcon(), func() {
		open := dialog.NewFileOpen(func(rc fyne.URIReadCloser, err error) {
			if err != nil {
				log.Error().Err(err).Msg("open file")
				return
			}
			if rc == nil {
				return
			}
			if err := sess.SetJob(rc.Name(), rc); err != nil {
				rc.Close()
				showErr(err)
			}
		}, w)
		open.SetFilter(storage.NewExtensionFileFilter([]string{".nc", ".gcode", ".ngc"}))
		open.Show()
	})
	runJob := widget.NewButtonWithIcon("", theme.ContentRedoIcon(), func() {
		showErr(sess.StartJob(ctx))
	})
	runJob.Disable()
	cancelJob := widget.NewButtonWithIcon("", theme.CancelIcon(), func() {
		showErr(sess.CancelJob(ctx))
	})
	cycleStart := widget.NewButtonWithIcon("", theme.MediaPlayIcon(), func() {
		showErr(sess.CommandCycleStart(ctx))
	})
	feedHold := widget.NewButtonWithIcon("", theme.MediaPauseIcon(), func() {
		showErr(sess.CommandFeedHold(ctx))
	})

	status := widget.NewLabel("State: ...")
	buffer := widget.NewLabel("Buffer: 0")
	actions := fyne.NewContainerWithLayout(layout.NewHBoxLayout(),
		fyne.NewContainerWithLayout(newSquareRow(64),
			home, unlock, load, runJob, cancelJob, cycleStart, feedHold,
		),
		fyne.NewContainerWithLayout(layout.NewVBoxLayout(), status, buffer),
	)

	newPos := func() *widget.Label {
		l := widget.NewLabel("         -")
		l.Alignment = fyne.TextAlignTrailing
		l.TextStyle.Monospace = true
		return l
	}
	var wPos, mPos [3]*widget.Label
	for i := range wPos {
		wPos[i], mPos[i] = newPos(), newPos()
	}
	setPos := func(labels [3]*widget.Label, p grbl.Position) {
		for i, l := range labels {
			if i < len(p) {
				l.SetText(fmt.Sprintf("%10.3f", p[i]))
			} else {
				l.SetText("         -")
			}
		}
	}
	zero := func(axis rune) func() {
		return func() { go func() { showErr(sess.SetWPos(ctx, axis, 0)) }() }
	}
	posRead := fyne.NewContainerWithLayout(layout.NewGridLayout(4),
		widget.NewLabel("WPos"), wPos[0], wPos[1], wPos[2],
		widget.NewLabel("MPos"), mPos[0], mPos[1], mPos[2],
		widget.NewLabel(""),
		widget.NewButton("X=0", zero('X')),
		widget.NewButton("Y=0", zero('Y')),
		widget.NewButton("Z=0", zero('Z')),
	)

	step := "10"
	sel := widget.NewRadioGroup([]string{"100", "10", "1", "0.1", "0.01"}, nil)
	sel.OnChanged = func(val string) {
		if val == "" {
			sel.SetSelected(step)
			return
		}
		step = val
	}
	sel.SetSelected(step)

	jog := func(axis rune, sign float64) func() {
		return func() {
			mm, err := strconv.ParseFloat(step, 64)
			if err != nil {
				showErr(err)
				return
			}
			showErr(sess.CommandJog(ctx, axis, sign*mm, false))
		}
	}
	centerLabel := func(text string) fyne.CanvasObject {
		label := widget.NewLabel(text)
		label.Alignment = fyne.TextAlignCenter
		return widget.NewVBox(layout.NewSpacer(), label, layout.NewSpacer())
	}
	touchPendant := fyne.NewContainerWithLayout(newSquareGrid(5, 64),
		widget.NewButtonWithIcon("", theme.MoveUpIcon(), jog('Z', 1)), layout.NewSpacer(), layout.NewSpacer(), widget.NewButtonWithIcon("", theme.MoveUpIcon(), jog('Y', 1)), layout.NewSpacer(),
		centerLabel("Z"), layout.NewSpacer(), widget.NewButtonWithIcon("", theme.NavigateBackIcon(), jog('X', -1)), centerLabel("XY"), widget.NewButtonWithIcon("", theme.NavigateNextIcon(), jog('X', 1)),
		widget.NewButtonWithIcon("", theme.MoveDownIcon(), jog('Z', -1)), layout.NewSpacer(), layout.NewSpacer(), widget.NewButtonWithIcon("", theme.MoveDownIcon(), jog('Y', -1)), layout.NewSpacer(),
	)
	pos := fyne.NewContainerWithLayout(layout.NewHBoxLayout(),
		sel, touchPendant, layout.NewSpacer(), posRead,
	)

	jobLabel := widget.NewLabel("No job loaded.")
	jobProgress := widget.NewProgressBar()
	jobProgress.TextFormatter = func() string {
		mx.Lock()
		st := jobSt
		mx.Unlock()
		if !st.Valid {
			return "No job loaded."
		}
		total := fmt.Sprintf("%d", st.Read)
		if !st.ReadComplete {
			total += "+"
		}
		return fmt.Sprintf("%.f%% (%d of %s)", st.Progress()*100, st.Completed, total)
	}
	jobGroup := widget.NewGroup("Job", jobLabel, jobProgress)

	logText := widget.NewLabel("")
	logText.TextStyle.Monospace = true
	logScroll := widget.NewVScrollContainer(logText)
	logScroll.SetMinSize(fyne.NewSize(0, 160))
	var logLines []string
	entry := newHistoryEntry(func(line string) {
		if err := submitConsoleLine(sess.Engine, line); err != nil {
			showErr(err)
		}
	})
	entry.SetPlaceHolder("G-code or $ command, Enter to send")

	top := widget.NewVBox(actions, pos, jobGroup)
	w.SetContent(fyne.NewContainerWithLayout(layout.NewBorderLayout(top, entry, nil, nil),
		top, entry, logScroll,
	))

	refresh := func() {
		if st, ok := sess.MachineStatus(); ok {
			status.SetText("State: " + st.State)
			setPos(mPos, st.MPos)
			setPos(wPos, st.WPos)
		} else if rep := sess.LatestStatus(); rep != nil {
			status.SetText("State: " + rep.State)
		}
		buffer.SetText(fmt.Sprintf("Buffer: %d  Queued: %d", sess.Occupancy(), sess.Queued()))

		if lines := sess.TakeMessages(); len(lines) > 0 {
			logLines = append(logLines, lines...)
			if len(logLines) > guiLogLines {
				logLines = logLines[len(logLines)-guiLogLines:]
			}
			logText.SetText(strings.Join(logLines, "\n"))
			logScroll.Offset = fyne.NewPos(0, logText.MinSize().Height)
			logScroll.Refresh()
		}

		select {
		case st := <-sess.JobStatus():
			mx.Lock()
			jobSt = st
			mx.Unlock()
			if st.Valid && !st.Active && !st.Done {
				runJob.Enable()
			} else {
				runJob.Disable()
			}
			switch {
			case !st.Valid:
				jobLabel.SetText("No job loaded.")
			case st.Err != nil:
				jobLabel.SetText(fmt.Sprintf("%s (error: %v)", st.Name, st.Err))
			case st.Done:
				jobLabel.SetText(st.Name + " (done)")
			case !st.Active:
				jobLabel.SetText(st.Name + " (ready)")
			default:
				jobLabel.SetText(st.Name)
			}
			jobProgress.SetValue(st.Progress())
		default:
		}
	}

	go func() {
		t := time.NewTicker(100 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-sess.Done():
				refresh()
				status.SetText("State: " + sess.State().String())
				if err := sess.Err(); err != nil {
					dialog.ShowError(err, w)
				}
				return
			case <-t.C:
				refresh()
			}
		}
	}()

	w.ShowAndRun()
}
