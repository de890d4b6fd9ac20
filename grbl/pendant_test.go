package grbl

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestPendantHandleData(t *testing.T) {
	fw := newFakeFirmware(false)
	cfg := testConfig()
	cfg.BufferSize = 127
	p := NewPendant(NewController(newTestEngine(t, fw, cfg)), zerolog.Nop())
	ctx := context.Background()

	check := func(data, expLine string) {
		t.Helper()
		n := len(fw.Lines())
		if err := p.HandleData(ctx, data); err != nil {
			t.Fatalf("HandleData(%q): %v", data, err)
		}
		waitFor(t, "jog line", func() bool { return len(fw.Lines()) > n })
		if l := lastLine(fw); l != expLine {
			t.Errorf("HandleData(%q) sent %q; want %q", data, l, expLine)
		}
	}

	check("STEP:1,10,2", "$J=G21G91F10000X0.2")
	check("STEP:2,100,-1\r", "$J=G21G91F10000Y-1")
	check("STEP:3,1,5", "$J=G21G91F10000Z-0.05")

	for _, data := range []string{"STEP:9,10,1", "STEP:1,10,0", "HELLO"} {
		if err := p.HandleData(ctx, data); err != nil {
			t.Errorf("HandleData(%q): %v", data, err)
		}
	}
	if err := p.HandleData(ctx, "STEP:x"); err == nil {
		t.Error("HandleData(STEP:x) succeeded")
	}
	if err := p.HandleData(ctx, "STOP"); err != nil {
		t.Fatal(err)
	}
	writes := fw.Writes()
	if w := writes[len(writes)-1]; w != "!" {
		t.Errorf("STOP wrote %q; want feed hold", w)
	}
	if n := len(fw.Lines()); n != 3 {
		t.Errorf("%d lines sent; want 3", n)
	}
}

func TestPendantRun(t *testing.T) {
	fw := newFakeFirmware(false)
	cfg := testConfig()
	cfg.BufferSize = 127
	p := NewPendant(NewController(newTestEngine(t, fw, cfg)), zerolog.Nop())

	pendant := newFakeFirmware(true)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx, pendant) }()

	pendant.send("garbage")
	pendant.send("STEP:1,100,1")
	waitFor(t, "jog", func() bool { return lastLine(fw) == "$J=G21G91F10000X1" })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
