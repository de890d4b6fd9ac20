package grbl

import (
	"reflect"
	"testing"
)

func TestMachineStatus(t *testing.T) {
	rep, err := ParseReport("<Idle|MPos:10.000,20.000,5.000|WCO:1.000,2.000,0.000|Bf:15,128|FS:500,12000|Ov:100,90,110|Pn:XZ|A:CF|Ln:42>")
	if err != nil {
		t.Fatal(err)
	}
	st, err := rep.Machine()
	if err != nil {
		t.Fatalf("Machine: %v", err)
	}

	if st.State != "Idle" || st.SubState != "" || !st.IsReady() || st.IsAlarm() {
		t.Errorf("state = %q/%q", st.State, st.SubState)
	}
	if !reflect.DeepEqual(st.MPos, Position{10, 20, 5}) {
		t.Errorf("MPos = %v", st.MPos)
	}
	if !reflect.DeepEqual(st.WPos, Position{9, 18, 5}) {
		t.Errorf("WPos = %v", st.WPos)
	}
	if st.PlannerBlocks != 15 || st.RxBytes != 128 {
		t.Errorf("Bf = %d,%d", st.PlannerBlocks, st.RxBytes)
	}
	if st.Feed != 500 || st.Spindle != 12000 {
		t.Errorf("FS = %g,%g", st.Feed, st.Spindle)
	}
	if st.Override.Feed != 100 || st.Override.Rapid != 90 || st.Override.Spindle != 110 {
		t.Errorf("Ov = %+v", st.Override)
	}
	if !st.Pins.X || st.Pins.Y || !st.Pins.Z {
		t.Errorf("Pn = %+v", st.Pins)
	}
	if !st.Accessory.SpindleEnabled || !st.Accessory.SpindleCCW || !st.Accessory.Flood || st.Accessory.Mist {
		t.Errorf("A = %+v", st.Accessory)
	}
	if st.Line != 42 {
		t.Errorf("Ln = %d", st.Line)
	}
}

func TestMachineStatusWorkPosition(t *testing.T) {
	rep, err := ParseReport("<Hold:1|WPos:1.5,-2,3>")
	if err != nil {
		t.Fatal(err)
	}
	st, err := rep.Machine()
	if err != nil {
		t.Fatal(err)
	}
	if st.State != "Hold" || st.SubState != "1" {
		t.Errorf("state = %q/%q", st.State, st.SubState)
	}
	if !reflect.DeepEqual(st.WPos, Position{1.5, -2, 3}) || !reflect.DeepEqual(st.MPos, st.WPos) {
		t.Errorf("WPos = %v MPos = %v", st.WPos, st.MPos)
	}
	if st.RxBytes != -1 || st.PlannerBlocks != -1 {
		t.Errorf("Bf defaults = %d,%d", st.PlannerBlocks, st.RxBytes)
	}
	if s := st.WPos.String(); s != "1.500,-2.000,3.000" {
		t.Errorf("String() = %q", s)
	}
}

func TestMachineStatusJoints(t *testing.T) {
	rep, _ := ParseReport("<Idle|MPos:0.00,0.00|Qj:12.5,-40>")
	st, err := rep.Machine()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(st.Joints, Position{12.5, -40}) {
		t.Errorf("Joints = %v", st.Joints)
	}
}

func TestMachineStatusBadField(t *testing.T) {
	rep, _ := ParseReport("<Alarm:1|MPos:1,x,3>")
	st, err := rep.Machine()
	if err == nil {
		t.Fatal("expected error for bad MPos")
	}
	if !st.IsAlarm() {
		t.Errorf("IsAlarm() = false for %q", st.State)
	}
}
