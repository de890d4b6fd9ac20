package grbl

import (
	"fmt"
	"strconv"
	"strings"
)

// Position is a coordinate with as many axes as the firmware reports.
type Position []float64

func (p Position) sub(o Position) Position {
	if len(o) == 0 {
		return append(Position(nil), p...)
	}
	res := make(Position, len(p))
	for i := range p {
		res[i] = p[i]
		if i < len(o) {
			res[i] -= o[i]
		}
	}
	return res
}

func (p Position) add(o Position) Position {
	res := make(Position, len(p))
	for i := range p {
		res[i] = p[i]
		if i < len(o) {
			res[i] += o[i]
		}
	}
	return res
}

func (p Position) String() string {
	s := make([]string, len(p))
	for i, v := range p {
		s[i] = strconv.FormatFloat(v, 'f', 3, 64)
	}
	return strings.Join(s, ",")
}

func parsePosition(s string) (Position, error) {
	fields := strings.Split(s, ",")
	pos := make(Position, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return nil, err
		}
		pos[i] = v
	}
	return pos, nil
}

// PinStatus holds the `Pn` input pin flags.
type PinStatus struct{ X, Y, Z, P, D, H, R, S bool }

// Accessories holds the `A` accessory flags.
type Accessories struct {
	SpindleEnabled bool
	SpindleCCW     bool
	Flood          bool
	Mist           bool
}

// MachineStatus is a typed view of the fields GRBL commonly reports.
type MachineStatus struct {
	State    string
	SubState string

	MPos, WPos, WCO Position

	// Joints holds the `Qj` joint angles reported by SCARA builds.
	Joints Position

	// PlannerBlocks and RxBytes are the free planner blocks and serial
	// receive buffer bytes from the `Bf` field, or -1 when not reported.
	PlannerBlocks int
	RxBytes       int

	Line     int
	Feed     float64
	Spindle  float64
	Pins     PinStatus
	Override struct {
		Feed, Rapid, Spindle float64
	}
	Accessory Accessories
}

func (st MachineStatus) IsAlarm() bool { return strings.HasPrefix(st.State, "Alarm") }
func (st MachineStatus) IsReady() bool { return st.State == "Idle" }

// Machine decodes the report's well-known fields. Unknown fields are ignored.
func (r *StatusReport) Machine() (MachineStatus, error) {
	st := MachineStatus{PlannerBlocks: -1, RxBytes: -1}
	st.State, st.SubState, _ = strings.Cut(r.State, ":")

	var err error
	field := func(key string, parse func(string) error) {
		v, ok := r.Fields[key]
		if !ok || err != nil {
			return
		}
		if perr := parse(v); perr != nil {
			err = fmt.Errorf("parse %s '%s': %w", key, v, perr)
		}
	}

	// WCO first so MPos and WPos can derive each other.
	field("WCO", func(v string) (e error) { st.WCO, e = parsePosition(v); return })
	field("MPos", func(v string) (e error) {
		st.MPos, e = parsePosition(v)
		st.WPos = st.MPos.sub(st.WCO)
		return
	})
	field("WPos", func(v string) (e error) {
		st.WPos, e = parsePosition(v)
		if _, ok := r.Fields["MPos"]; !ok {
			st.MPos = st.WPos.add(st.WCO)
		}
		return
	})
	field("Qj", func(v string) (e error) { st.Joints, e = parsePosition(v); return })
	field("Bf", func(v string) error {
		_, e := fmt.Sscanf(v, "%d,%d", &st.PlannerBlocks, &st.RxBytes)
		return e
	})
	field("Ln", func(v string) (e error) { st.Line, e = strconv.Atoi(v); return })
	field("F", func(v string) (e error) { st.Feed, e = strconv.ParseFloat(v, 64); return })
	field("FS", func(v string) error {
		_, e := fmt.Sscanf(v, "%g,%g", &st.Feed, &st.Spindle)
		return e
	})
	field("Ov", func(v string) error {
		_, e := fmt.Sscanf(v, "%g,%g,%g", &st.Override.Feed, &st.Override.Rapid, &st.Override.Spindle)
		return e
	})
	field("Pn", func(v string) error { st.Pins.parse(v); return nil })
	field("A", func(v string) error {
		st.Accessory.SpindleEnabled = strings.ContainsAny(v, "SC")
		st.Accessory.SpindleCCW = strings.ContainsRune(v, 'C')
		st.Accessory.Flood = strings.ContainsRune(v, 'F')
		st.Accessory.Mist = strings.ContainsRune(v, 'M')
		return nil
	})

	return st, err
}

func (pins *PinStatus) parse(s string) {
	pins.X = strings.ContainsRune(s, 'X')
	pins.Y = strings.ContainsRune(s, 'Y')
	pins.Z = strings.ContainsRune(s, 'Z')
	pins.P = strings.ContainsRune(s, 'P')
	pins.D = strings.ContainsRune(s, 'D')
	pins.H = strings.ContainsRune(s, 'H')
	pins.R = strings.ContainsRune(s, 'R')
	pins.S = strings.ContainsRune(s, 'S')
}
