package drumkit

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	intpattern "github.com/cbegin/drumkit-go/internal/pattern"
)

func TestNewMachineDefaults(t *testing.T) {
	m := NewMachine()
	if m.LoopCount() != 1 || m.Tempo() != 120 || m.CurrentLoop() != 0 {
		t.Fatalf("loops=%d tempo=%d current=%d", m.LoopCount(), m.Tempo(), m.CurrentLoop())
	}
	for _, d := range SequencedDrums {
		if v := m.Volume(d); v != 80 {
			t.Fatalf("%s volume = %d, want 80", d, v)
		}
	}
	if v := m.Volume(Tom); v != 0 {
		t.Fatalf("tom volume = %d, want 0", v)
	}
	if p, _ := m.Loop(0); !p.Empty() {
		t.Fatal("first loop should be empty")
	}
}

func TestMachineStepEditing(t *testing.T) {
	m := NewMachine()
	if err := m.SetStep(0, Kick, 3, 150); err != nil {
		t.Fatal(err)
	}
	if v := m.Step(0, Kick, 3); v != 100 {
		t.Fatalf("clamped velocity = %d", v)
	}
	if err := m.SetStep(0, Kick, 3, 0); err != nil {
		t.Fatal(err)
	}
	if v := m.Step(0, Kick, 3); v != 0 {
		t.Fatalf("cleared velocity = %d", v)
	}

	if err := m.ToggleStep(0, Openhat, 7); err != nil {
		t.Fatal(err)
	}
	if v := m.Step(0, Openhat, 7); v != 100 {
		t.Fatalf("toggle on = %d", v)
	}
	if err := m.ToggleStep(0, Openhat, 7); err != nil {
		t.Fatal(err)
	}
	if v := m.Step(0, Openhat, 7); v != 0 {
		t.Fatalf("toggle off = %d", v)
	}
}

func TestMachineSetStepVelocity(t *testing.T) {
	m := NewMachine()
	if err := m.SetStepVelocity(0, Snare, 4, 60); err != nil {
		t.Fatal(err)
	}
	if v := m.Step(0, Snare, 4); v != 0 {
		t.Fatalf("inactive step changed to %d", v)
	}
	_ = m.ToggleStep(0, Snare, 4)
	_ = m.SetStepVelocity(0, Snare, 4, 60)
	if v := m.Step(0, Snare, 4); v != 60 {
		t.Fatalf("velocity = %d, want 60", v)
	}
	_ = m.SetStepVelocity(0, Snare, 4, 0)
	if v := m.Step(0, Snare, 4); v != 1 {
		t.Fatalf("velocity = %d, want the step kept on at 1", v)
	}
}

func TestMachineStepErrors(t *testing.T) {
	m := NewMachine()
	cases := []struct {
		name string
		err  error
		want error
	}{
		{"tom has no row", m.SetStep(0, Tom, 0, 50), ErrNotSequenced},
		{"step past bar", m.SetStep(0, Kick, Steps, 50), ErrStepIndex},
		{"negative step", m.ToggleStep(0, Kick, -1), ErrStepIndex},
		{"missing loop", m.SetStep(1, Kick, 0, 50), ErrLoopIndex},
		{"unknown volume", m.SetVolume(Rim, 50), ErrNotSequenced},
	}
	for _, tc := range cases {
		if !errors.Is(tc.err, tc.want) {
			t.Fatalf("%s: err = %v, want %v", tc.name, tc.err, tc.want)
		}
	}
	if v := m.Step(5, Kick, 0); v != 0 {
		t.Fatalf("out of range read = %d", v)
	}
}

func TestMachineLoopLimits(t *testing.T) {
	m := NewMachine()
	for i := 1; i < MaxLoops; i++ {
		idx, err := m.AddLoop()
		if err != nil {
			t.Fatal(err)
		}
		if idx != i {
			t.Fatalf("index = %d, want %d", idx, i)
		}
	}
	if _, err := m.AddLoop(); !errors.Is(err, intpattern.ErrLoopLimit) {
		t.Fatalf("ninth loop err = %v", err)
	}
	if _, err := m.CopyLoop(0); !errors.Is(err, intpattern.ErrLoopLimit) {
		t.Fatalf("copy past limit err = %v", err)
	}
	for m.LoopCount() > 1 {
		if err := m.RemoveLoop(0); err != nil {
			t.Fatal(err)
		}
	}
	if err := m.RemoveLoop(0); !errors.Is(err, intpattern.ErrLoopLimit) {
		t.Fatalf("removing the only loop err = %v", err)
	}
}

func TestMachineCopyAndClear(t *testing.T) {
	m := NewMachine()
	_ = m.SetStep(0, Clap, 12, 90)
	idx, err := m.CopyLoop(0)
	if err != nil {
		t.Fatal(err)
	}
	if v := m.Step(idx, Clap, 12); v != 90 {
		t.Fatalf("copied velocity = %d", v)
	}
	_ = m.SetStep(idx, Clap, 12, 0)
	if v := m.Step(0, Clap, 12); v != 90 {
		t.Fatal("editing the copy changed the source")
	}
	if err := m.ClearLoop(0); err != nil {
		t.Fatal(err)
	}
	if p, _ := m.Loop(0); !p.Empty() {
		t.Fatal("loop not cleared")
	}
	if err := m.ClearLoop(4); !errors.Is(err, ErrLoopIndex) {
		t.Fatalf("err = %v", err)
	}
}

// markedMachine builds n loops where loop i has a kick on step i.
func markedMachine(t *testing.T, n int) *Machine {
	t.Helper()
	m := NewMachine()
	for i := 0; i < n; i++ {
		if i > 0 {
			if _, err := m.AddLoop(); err != nil {
				t.Fatal(err)
			}
		}
		if err := m.SetStep(i, Kick, i, 100); err != nil {
			t.Fatal(err)
		}
	}
	return m
}

func loopOrder(m *Machine) []int {
	var order []int
	for _, p := range m.Loops() {
		for step := 0; step < Steps; step++ {
			if p.Get(intpattern.Kick, step) > 0 {
				order = append(order, step)
				break
			}
		}
	}
	return order
}

func TestMachineMoveLoop(t *testing.T) {
	cases := []struct {
		from, to    int
		current     int
		wantOrder   []int
		wantCurrent int
	}{
		{0, 2, 0, []int{1, 2, 0, 3}, 2},
		{0, 2, 1, []int{1, 2, 0, 3}, 0},
		{3, 0, 1, []int{3, 0, 1, 2}, 2},
		{1, 3, 0, []int{0, 2, 3, 1}, 0},
		{2, 2, 2, []int{0, 1, 2, 3}, 2},
	}
	for _, tc := range cases {
		m := markedMachine(t, 4)
		_ = m.SetCurrentLoop(tc.current)
		if err := m.MoveLoop(tc.from, tc.to); err != nil {
			t.Fatal(err)
		}
		got := loopOrder(m)
		for i := range tc.wantOrder {
			if got[i] != tc.wantOrder[i] {
				t.Fatalf("move %d->%d order = %v, want %v", tc.from, tc.to, got, tc.wantOrder)
			}
		}
		if m.CurrentLoop() != tc.wantCurrent {
			t.Fatalf("move %d->%d current = %d, want %d", tc.from, tc.to, m.CurrentLoop(), tc.wantCurrent)
		}
	}
	m := markedMachine(t, 2)
	if err := m.MoveLoop(0, 2); !errors.Is(err, ErrLoopIndex) {
		t.Fatalf("err = %v", err)
	}
}

func TestMachineRemoveKeepsCurrentInRange(t *testing.T) {
	m := markedMachine(t, 3)
	_ = m.SetCurrentLoop(2)
	if err := m.RemoveLoop(2); err != nil {
		t.Fatal(err)
	}
	if m.CurrentLoop() != 1 {
		t.Fatalf("current = %d, want 1", m.CurrentLoop())
	}
	if got := loopOrder(m); len(got) != 2 || got[0] != 0 || got[1] != 1 {
		t.Fatalf("order = %v", got)
	}
}

func TestMachineRhythmPresets(t *testing.T) {
	m := markedMachine(t, 3)
	if err := m.LoadPreset("house"); err != nil {
		t.Fatal(err)
	}
	if m.LoopCount() != 1 {
		t.Fatalf("loops = %d", m.LoopCount())
	}
	if m.Step(0, Kick, 0) != 100 || m.Step(0, Kick, 1) != 0 || m.Step(0, Openhat, 7) != 100 {
		t.Fatal("house preset not applied")
	}
	_, _ = m.AddLoop()
	if err := m.LoadPresetInto(1, "trap"); err != nil {
		t.Fatal(err)
	}
	if m.Step(1, Kick, 7) != 100 || m.Step(1, Kick, 4) != 0 {
		t.Fatal("trap preset not applied to loop 1")
	}
	if m.Step(0, Kick, 4) != 100 {
		t.Fatal("loop 0 changed")
	}
	if err := m.LoadPreset("polka"); !errors.Is(err, ErrUnknownPreset) {
		t.Fatalf("err = %v", err)
	}
	if err := m.LoadPresetInto(5, "house"); !errors.Is(err, ErrLoopIndex) {
		t.Fatalf("err = %v", err)
	}
}

func TestMachineTempoAndVolume(t *testing.T) {
	m := NewMachine()
	for _, tc := range []struct{ in, want int }{{200, 180}, {10, 60}, {97, 97}} {
		if got := m.SetTempo(tc.in); got != tc.want || m.Tempo() != tc.want {
			t.Fatalf("SetTempo(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
	_ = m.SetVolume(Snare, 120)
	_ = m.SetVolume(Hihat, -5)
	if m.Volume(Snare) != 100 || m.Volume(Hihat) != 0 {
		t.Fatalf("volumes = %d %d", m.Volume(Snare), m.Volume(Hihat))
	}
	snap := machineSource{m}.Snapshot()
	if snap.Tempo != 97 || snap.Volumes[intpattern.Snare] != 100 || len(snap.Loops) != 1 {
		t.Fatalf("snapshot = %+v", snap)
	}
}

func TestMachineSaveLoad(t *testing.T) {
	m := markedMachine(t, 3)
	_ = m.SetStep(2, Hihat, 9, 55)
	m.SetTempo(97)
	_ = m.SetVolume(Clap, 35)

	var buf bytes.Buffer
	if err := m.Save(&buf); err != nil {
		t.Fatal(err)
	}
	got := NewMachine()
	if err := got.Load(&buf); err != nil {
		t.Fatal(err)
	}
	want := m.Loops()
	loops := got.Loops()
	if len(loops) != len(want) {
		t.Fatalf("loops = %d, want %d", len(loops), len(want))
	}
	for i := range want {
		if loops[i] != want[i] {
			t.Fatalf("loop %d differs", i)
		}
	}
	if got.Tempo() != 97 || got.Volume(Clap) != 35 || got.Volume(Kick) != 80 {
		t.Fatalf("tempo=%d clap=%d kick=%d", got.Tempo(), got.Volume(Clap), got.Volume(Kick))
	}
}

func TestMachineLoadRejectsBadState(t *testing.T) {
	m := markedMachine(t, 2)
	cases := []string{
		"loops: [{cowbell: [1]}]\n",
		"volumes: {tom: 3}\n",
		"tempo: [1, 2]\n",
	}
	for _, body := range cases {
		if err := m.Load(strings.NewReader(body)); err == nil {
			t.Fatalf("%q: expected error", body)
		}
	}
	if m.LoopCount() != 2 {
		t.Fatal("failed load changed the machine")
	}

	if err := m.Load(strings.NewReader("tempo: 400\n")); err != nil {
		t.Fatal(err)
	}
	if m.Tempo() != 180 || m.LoopCount() != 1 {
		t.Fatalf("tempo=%d loops=%d", m.Tempo(), m.LoopCount())
	}
}
