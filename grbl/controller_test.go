package grbl

import (
	"context"
	"strings"
	"testing"
	"time"
)

func lastLine(fw *fakeFirmware) string {
	lines := fw.Lines()
	if len(lines) == 0 {
		return ""
	}
	return lines[len(lines)-1]
}

func TestControllerCommands(t *testing.T) {
	fw := newFakeFirmware(false)
	cfg := testConfig()
	cfg.BufferSize = 127
	c := NewController(newTestEngine(t, fw, cfg))
	ctx := context.Background()

	if err := c.CommandJog(ctx, 'X', 1.5, true); err != nil {
		t.Fatal(err)
	}
	if l := lastLine(fw); l != "$J=G21G91F10000X1.5" {
		t.Errorf("jog sent %q", l)
	}

	if err := c.SetWPos(ctx, 'Z', 0); err != nil {
		t.Fatal(err)
	}
	if l := lastLine(fw); l != "G10L20P1Z0" {
		t.Errorf("set wpos sent %q", l)
	}
	writes := fw.Writes()
	if w := writes[len(writes)-1]; w != "?" {
		t.Errorf("set wpos did not query status, last write %q", w)
	}

	if err := c.CommandUnlock(ctx, true); err != nil {
		t.Fatal(err)
	}
	if err := c.CommandHome(ctx, true); err != nil {
		t.Fatal(err)
	}
	lines := fw.Lines()
	if got := lines[len(lines)-2:]; got[0] != CmdUnlock || got[1] != CmdHome {
		t.Errorf("sent %q", got)
	}

	for b, fn := range map[string]func(context.Context) error{
		"!": c.CommandFeedHold,
		"~": c.CommandCycleStart,
		"?": c.QueryStatus,
	} {
		if err := fn(ctx); err != nil {
			t.Fatal(err)
		}
		writes := fw.Writes()
		if w := writes[len(writes)-1]; w != b {
			t.Errorf("wrote %q; want %q", w, b)
		}
	}
}

func TestControllerMachineStatus(t *testing.T) {
	fw := newFakeFirmware(true)
	c := NewController(newTestEngine(t, fw, testConfig()))

	if _, ok := c.MachineStatus(); ok {
		t.Error("status before any report")
	}
	fw.send("<Jog|MPos:1,2,3|WCO:1,1,1>")
	waitFor(t, "status", func() bool { _, ok := c.MachineStatus(); return ok })
	st, _ := c.MachineStatus()
	if st.State != "Jog" || st.WPos.String() != "0.000,1.000,2.000" {
		t.Errorf("status = %+v", st)
	}
}

func TestControllerJob(t *testing.T) {
	fw := newFakeFirmware(false)
	c := NewController(newTestEngine(t, fw, testConfig()))
	ctx := context.Background()

	if err := c.StartJob(ctx); err == nil {
		t.Error("StartJob with no job succeeded")
	}
	if err := c.SetJob("square.nc", strings.NewReader(testProgram)); err != nil {
		t.Fatal(err)
	}
	if err := c.StartJob(ctx); err != nil {
		t.Fatal(err)
	}

	timeout := time.After(2 * time.Second)
	for {
		var st JobStatus
		select {
		case st = <-c.JobStatus():
		case <-timeout:
			t.Fatal("job did not finish")
		}
		if st.Err != nil {
			t.Fatalf("job failed: %v", st.Err)
		}
		if st.Done {
			if st.Name != "square.nc" || st.Completed != 4 {
				t.Errorf("final status = %+v", st)
			}
			break
		}
	}

	if err := c.CancelJob(ctx); err != nil {
		t.Fatal(err)
	}
	writes := fw.Writes()
	if w := writes[len(writes)-1]; w != "!" {
		t.Errorf("cancel wrote %q; want feed hold", w)
	}
	if err := c.StartJob(ctx); err == nil {
		t.Error("StartJob after cancel succeeded")
	}

	c.Close()
	if c.State() != StateClosed {
		t.Errorf("state = %s after Close", c.State())
	}
}
