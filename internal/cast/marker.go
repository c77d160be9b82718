package cast

import "fmt"

// MarkerManager has no fields or methods; marker events are inserted,
// cleared and counted by the package-level Insert, Clear and Count, which
// preserve the cumulative timeline of every non-marker event.
type MarkerManager struct{}

// Insert locates the insertion index by scanning cumulative times until the
// next one exceeds absTime, rewrites the event at that point as a marker
// whose delay is absTime minus the cumulative time at the previous event,
// and shrinks the following event's delay by the same amount so every
// other event's cumulative time is preserved bit-for-bit.
func Insert(path string, absTime float64, label string) error {
	file, err := Parse(path)
	if err != nil {
		return fmt.Errorf("parse cast file: %w", err)
	}

	events := file.Events
	var cumulative float64
	insertAt := len(events)
	for i, ev := range events {
		if cumulative+ev.Time > absTime {
			insertAt = i
			break
		}
		cumulative += ev.Time
	}

	delay := absTime - cumulative
	marker := Marker(delay, label)

	newEvents := make([]Event, 0, len(events)+1)
	newEvents = append(newEvents, events[:insertAt]...)
	newEvents = append(newEvents, marker)
	if insertAt < len(events) {
		following := events[insertAt]
		following.Time -= delay
		if following.Time < 0 {
			following.Time = 0
		}
		newEvents = append(newEvents, following)
		newEvents = append(newEvents, events[insertAt+1:]...)
	}

	file.Events = newEvents
	if err := Write(path, file); err != nil {
		return fmt.Errorf("write cast file: %w", err)
	}
	return nil
}

// Clear removes every marker event, restoring the removed marker's delay to
// the event that followed it, and returns the count removed.
func Clear(path string) (int, error) {
	file, err := Parse(path)
	if err != nil {
		return 0, fmt.Errorf("parse cast file: %w", err)
	}

	events := file.Events
	newEvents := make([]Event, 0, len(events))
	removed := 0
	var carry float64
	for _, ev := range events {
		if ev.IsMarker() {
			carry += ev.Time
			removed++
			continue
		}
		ev.Time += carry
		carry = 0
		newEvents = append(newEvents, ev)
	}

	file.Events = newEvents
	if err := Write(path, file); err != nil {
		return 0, fmt.Errorf("write cast file: %w", err)
	}
	return removed, nil
}

// Count returns the number of marker events currently in the file.
func Count(path string) (int, error) {
	file, err := Parse(path)
	if err != nil {
		return 0, fmt.Errorf("parse cast file: %w", err)
	}
	n := 0
	for _, ev := range file.Events {
		if ev.IsMarker() {
			n++
		}
	}
	return n, nil
}
