package cast

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "session.cast")
	file := &File{
		Header: Header{Version: SupportedVersion, Term: &Term{Cols: 80, Rows: 24}},
		Events: []Event{
			Output(1.0, "one\n"),
			Output(2.0, "two\n"),
			Output(3.0, "three\n"),
		},
	}
	if err := Write(path, file); err != nil {
		t.Fatalf("Write: %v", err)
	}
	return path
}

func TestWriteParseRoundTrip(t *testing.T) {
	path := writeSample(t)
	file, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if file.Header.Version != SupportedVersion {
		t.Errorf("Version = %d, want %d", file.Header.Version, SupportedVersion)
	}
	if len(file.Events) != 3 {
		t.Fatalf("got %d events, want 3", len(file.Events))
	}
	if file.Events[1].Data != "two\n" || file.Events[1].Kind != KindOutput {
		t.Errorf("Events[1] = %+v, unexpected", file.Events[1])
	}
}

func TestCumulativeTimes(t *testing.T) {
	events := []Event{Output(1.0, "a"), Output(2.0, "b"), Output(3.0, "c")}
	got := CumulativeTimes(events)
	want := []float64{1.0, 3.0, 6.0}
	if len(got) != len(want) {
		t.Fatalf("got %d cumulative times, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("CumulativeTimes[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestParseRejectsUnsupportedVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.cast")
	file := &File{Header: Header{Version: 2}}
	if err := Write(path, file); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if _, err := Parse(path); err == nil {
		t.Fatal("expected Parse to reject an unsupported version")
	}
}

func TestInsertPreservesDownstreamCumulativeTimes(t *testing.T) {
	path := writeSample(t)
	before, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	beforeCumulative := CumulativeTimes(before.Events)

	// Insert a marker between the second and third events (cumulative time 3.0).
	if err := Insert(path, 4.5, "halfway point"); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	after, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse after Insert: %v", err)
	}
	if len(after.Events) != len(before.Events)+1 {
		t.Fatalf("got %d events after insert, want %d", len(after.Events), len(before.Events)+1)
	}

	var markerIdx = -1
	for i, ev := range after.Events {
		if ev.IsMarker() {
			markerIdx = i
			break
		}
	}
	if markerIdx < 0 {
		t.Fatal("no marker event found after Insert")
	}

	afterCumulative := CumulativeTimes(after.Events)
	markerTime := afterCumulative[markerIdx]
	if markerTime < 4.49 || markerTime > 4.51 {
		t.Errorf("marker cumulative time = %v, want ~4.5", markerTime)
	}

	// Every non-marker event's cumulative time must be unchanged.
	nonMarkerIdx := 0
	for i, ev := range after.Events {
		if ev.IsMarker() {
			continue
		}
		if afterCumulative[i] != beforeCumulative[nonMarkerIdx] {
			t.Errorf("event %d cumulative time = %v, want unchanged %v", i, afterCumulative[i], beforeCumulative[nonMarkerIdx])
		}
		nonMarkerIdx++
	}
}

// TestInsertPinnedOverlapSequence pins the literal three-event sequence
// [(0.5,"o"), (0.1,"o"), (0.2,"o")] (cumulative 0.5/0.6/0.8): inserting a
// marker at absolute time 0.55 must land at index 1 with its label intact,
// and the three original events' cumulative times must remain exactly
// 0.5, 0.6, 0.8.
func TestInsertPinnedOverlapSequence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pinned.cast")
	file := &File{
		Header: Header{Version: SupportedVersion},
		Events: []Event{
			Output(0.5, "o"),
			Output(0.1, "o"),
			Output(0.2, "o"),
		},
	}
	if err := Write(path, file); err != nil {
		t.Fatalf("Write: %v", err)
	}

	if err := Insert(path, 0.55, "label"); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	after, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(after.Events) != 4 {
		t.Fatalf("got %d events, want 4", len(after.Events))
	}
	if !after.Events[1].IsMarker() || after.Events[1].Data != "label" {
		t.Fatalf("Events[1] = %+v, want marker with Data %q", after.Events[1], "label")
	}

	var nonMarkerCumulative []float64
	var running float64
	for _, ev := range after.Events {
		running += ev.Time
		if !ev.IsMarker() {
			nonMarkerCumulative = append(nonMarkerCumulative, running)
		}
	}
	want := []float64{0.5, 0.6, 0.8}
	for i, w := range want {
		if i >= len(nonMarkerCumulative) || nonMarkerCumulative[i] < w-0.001 || nonMarkerCumulative[i] > w+0.001 {
			t.Errorf("nonMarkerCumulative = %v, want %v", nonMarkerCumulative, want)
			break
		}
	}
}

func TestClearRemovesMarkersAndRestoresDelay(t *testing.T) {
	path := writeSample(t)
	if err := Insert(path, 4.5, "marker one"); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	before, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	beforeCumulative := CumulativeTimes(before.Events)
	var lastNonMarkerCumulative float64
	for i, ev := range before.Events {
		if !ev.IsMarker() {
			lastNonMarkerCumulative = beforeCumulative[i]
		}
	}

	removed, err := Clear(path)
	if err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if removed != 1 {
		t.Errorf("Clear removed %d markers, want 1", removed)
	}

	after, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse after Clear: %v", err)
	}
	for _, ev := range after.Events {
		if ev.IsMarker() {
			t.Error("marker event survived Clear")
		}
	}
	afterCumulative := CumulativeTimes(after.Events)
	if afterCumulative[len(afterCumulative)-1] != lastNonMarkerCumulative {
		t.Errorf("final cumulative time = %v, want %v (delay should be preserved, not dropped)", afterCumulative[len(afterCumulative)-1], lastNonMarkerCumulative)
	}
}

func TestCount(t *testing.T) {
	path := writeSample(t)
	n, err := Count(path)
	if err != nil || n != 0 {
		t.Fatalf("Count = (%d, %v), want (0, nil)", n, err)
	}
	if err := Insert(path, 1.5, "a marker"); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	n, err = Count(path)
	if err != nil || n != 1 {
		t.Fatalf("Count after insert = (%d, %v), want (1, nil)", n, err)
	}
}

func TestDiagnoseCleanFile(t *testing.T) {
	path := writeSample(t)
	result, err := Diagnose(path)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if len(result.BadLines) != 0 {
		t.Errorf("got %d bad lines on a clean file, want 0: %+v", len(result.BadLines), result.BadLines)
	}
	if result.ValidEventLines != 3 {
		t.Errorf("ValidEventLines = %d, want 3", result.ValidEventLines)
	}
}

func TestDiagnoseAndRepairCorruptFile(t *testing.T) {
	path := writeSample(t)
	appendRaw(t, path, "not valid json at all\n")

	result, err := Diagnose(path)
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if len(result.BadLines) != 1 {
		t.Fatalf("got %d bad lines, want 1: %+v", len(result.BadLines), result.BadLines)
	}
	if result.ValidEventLines != 3 {
		t.Errorf("ValidEventLines = %d, want 3", result.ValidEventLines)
	}

	removed, err := Repair(path)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if removed != 1 {
		t.Errorf("Repair removed %d lines, want 1", removed)
	}

	file, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse after repair: %v", err)
	}
	if len(file.Events) != 3 {
		t.Errorf("got %d events after repair, want 3", len(file.Events))
	}
}

func appendRaw(t *testing.T, path, s string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		t.Fatalf("open for append: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(s); err != nil {
		t.Fatalf("write: %v", err)
	}
}
