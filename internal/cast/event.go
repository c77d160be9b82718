// Package cast implements the append-only asciicast v3 wire format: header
// parsing, streaming event reads, atomic writes, integrity diagnosis/repair,
// and marker insertion/clear/count.
package cast

import (
	"encoding/json"
	"fmt"
)

// Kind is the single-letter event classification used on the wire.
type Kind string

const (
	KindOutput Kind = "o"
	KindInput  Kind = "i"
	KindMarker Kind = "m"
	KindResize Kind = "r"
	KindExit   Kind = "x"
)

func (k Kind) valid() bool {
	switch k {
	case KindOutput, KindInput, KindMarker, KindResize, KindExit:
		return true
	default:
		return false
	}
}

// Event is the unit of the cast stream: a delay since the previous event, a
// kind code, and UTF-8 data (for resize events, data is "<COLS>x<ROWS>").
type Event struct {
	Time float64
	Kind Kind
	Data string
}

// IsMarker reports whether this event is a marker annotation.
func (e Event) IsMarker() bool {
	return e.Kind == KindMarker
}

// Output constructs an output event. Convenience constructor mirroring the
// original implementation's Event::output.
func Output(time float64, data string) Event {
	return Event{Time: time, Kind: KindOutput, Data: data}
}

// Marker constructs a marker event.
func Marker(time float64, label string) Event {
	return Event{Time: time, Kind: KindMarker, Data: label}
}

// MarshalJSON emits the array wire form: [delay, "kind", "data"].
func (e Event) MarshalJSON() ([]byte, error) {
	return json.Marshal([3]any{e.Time, string(e.Kind), e.Data})
}

// UnmarshalJSON accepts either the array wire form or an equivalent object
// form ({"time":..,"kind":..,"data":..}), per the spec's "parsers must
// accept either form" requirement.
func (e *Event) UnmarshalJSON(b []byte) error {
	var arr [3]json.RawMessage
	if err := json.Unmarshal(b, &arr); err == nil {
		var t float64
		var k, d string
		if err := json.Unmarshal(arr[0], &t); err != nil {
			return fmt.Errorf("event time: %w", err)
		}
		if err := json.Unmarshal(arr[1], &k); err != nil {
			return fmt.Errorf("event kind: %w", err)
		}
		if err := json.Unmarshal(arr[2], &d); err != nil {
			return fmt.Errorf("event data: %w", err)
		}
		return e.fromParts(t, k, d)
	}

	var obj struct {
		Time float64 `json:"time"`
		Kind string  `json:"kind"`
		Data string  `json:"data"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("event: not array or object form: %w", err)
	}
	return e.fromParts(obj.Time, obj.Kind, obj.Data)
}

func (e *Event) fromParts(t float64, k, d string) error {
	if t < 0 {
		return fmt.Errorf("event time must be non-negative, got %v", t)
	}
	kind := Kind(k)
	if !kind.valid() {
		return fmt.Errorf("unknown event kind %q", k)
	}
	e.Time = t
	e.Kind = kind
	e.Data = d
	return nil
}

// FromJSON parses a single event line. Named to mirror the original
// Event::from_json used throughout integrity diagnosis.
func FromJSON(line string) (Event, error) {
	var e Event
	if err := json.Unmarshal([]byte(line), &e); err != nil {
		return Event{}, err
	}
	return e, nil
}
