package availability

import "iter"

// DefaultStrideMinutes is the distance between consecutive candidate slot starts.
const DefaultStrideMinutes = 15

// Interval is a half-open [Start, End) range in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

func (i Interval) Overlaps(o Interval) bool {
	return Overlaps(i.Start, i.End, o.Start, o.End)
}

// SlotSequence describes the candidate slots of one working window. It holds no
// iteration state, so All can be ranged over repeatedly with identical results.
type SlotSequence struct {
	windowStart int
	windowEnd   int
	length      int
	stride      int
}

// GenerateSlots returns the slots of slotLength minutes that fit inside
// [windowStart, windowEnd). The first slot starts exactly at windowStart; later
// ones follow every stride minutes. A non-positive stride falls back to
// DefaultStrideMinutes.
func GenerateSlots(windowStart, windowEnd, slotLength, stride int) SlotSequence {
	if stride <= 0 {
		stride = DefaultStrideMinutes
	}
	return SlotSequence{windowStart: windowStart, windowEnd: windowEnd, length: slotLength, stride: stride}
}

func (s SlotSequence) empty() bool {
	return s.length <= 0 || s.windowEnd <= s.windowStart || s.windowStart+s.length > s.windowEnd
}

// All yields the slots in ascending start order.
func (s SlotSequence) All() iter.Seq[Interval] {
	return func(yield func(Interval) bool) {
		if s.empty() {
			return
		}
		for t := s.windowStart; t+s.length <= s.windowEnd; t += s.stride {
			if !yield(Interval{Start: t, End: t + s.length}) {
				return
			}
		}
	}
}

func (s SlotSequence) Len() int {
	if s.empty() {
		return 0
	}
	return (s.windowEnd-s.length-s.windowStart)/s.stride + 1
}

func (s SlotSequence) Collect() []Interval {
	out := make([]Interval, 0, s.Len())
	for slot := range s.All() {
		out = append(out, slot)
	}
	return out
}
