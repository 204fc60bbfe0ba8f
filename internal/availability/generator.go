package availability

import (
	"iter"
	"slices"
)

// DefaultSlotDuration is the slot length in minutes used when none is configured.
const DefaultSlotDuration = 30

// Slot is a candidate appointment window of a working day.
type Slot struct {
	Start     TimeOfDay
	End       TimeOfDay
	Available bool
}

// Interval returns the slot bounds.
func (s Slot) Interval() Interval {
	return Interval{Start: s.Start, End: s.End}
}

// Window is the effective working period of a day with an optional break.
type Window struct {
	Start TimeOfDay
	End   TimeOfDay
	Break *Interval
}

// Slots returns a single-pass sequence of duration-long slots inside the window.
//
// The cursor starts at the window start and advances by duration. Slots that
// overlap the break are skipped, and a cursor landing inside the break jumps
// straight to its end so the first slot after a break starts exactly when the
// break finishes. The sequence stops once the next slot would run past the
// window end. Inverted windows and non-positive durations yield nothing.
func Slots(window Window, duration int) iter.Seq[Slot] {
	return func(yield func(Slot) bool) {
		if duration <= 0 || window.Start >= window.End {
			return
		}
		step := TimeOfDay(duration)
		cursor := window.Start
		for cursor+step <= window.End {
			end := cursor + step
			if window.Break == nil || !Overlaps(cursor, end, window.Break.Start, window.Break.End) {
				if !yield(Slot{Start: cursor, End: end, Available: true}) {
					return
				}
			}
			cursor = end
			if window.Break != nil && cursor >= window.Break.Start && cursor < window.Break.End {
				cursor = window.Break.End
			}
		}
	}
}

// GenerateSlots collects Slots into a slice.
func GenerateSlots(window Window, duration int) []Slot {
	return slices.Collect(Slots(window, duration))
}
