package core

// RTCMaxCount is the CH592 counter range: 43200 two-second periods of
// 65536 ticks, so the counter wraps once per day.
const RTCMaxCount = 0xA8C00000

// TickSpace does wraparound-aware arithmetic on counter values that live
// in [0, Max). After Max-1 the counter reads 0.
type TickSpace struct {
	Max uint32
}

// NewTickSpace returns the tick space for a counter wrapping at max
func NewTickSpace(max uint32) TickSpace {
	if max < 2 {
		panic("tick space needs a counter range of at least 2")
	}
	return TickSpace{Max: max}
}

// Add returns t advanced by d ticks
func (s TickSpace) Add(t, d uint32) uint32 {
	return uint32((uint64(t) + uint64(d)) % uint64(s.Max))
}

// Sub returns t moved back by d ticks
func (s TickSpace) Sub(t, d uint32) uint32 {
	d = uint32(uint64(d) % uint64(s.Max))
	return uint32((uint64(t) + uint64(s.Max) - uint64(d)) % uint64(s.Max))
}

// Distance returns the forward distance in ticks from 'from' to 'to'
func (s TickSpace) Distance(from, to uint32) uint32 {
	return uint32((uint64(to%s.Max) + uint64(s.Max) - uint64(from%s.Max)) % uint64(s.Max))
}

// Horizon is the largest forward distance that still reads as "ahead".
// Anything at or beyond it is ambiguous across a wrap and treated as past.
func (s TickSpace) Horizon() uint32 {
	return s.Max / 2
}

// Reached reports whether now is at or past target, assuming the two are
// less than half a counter range apart.
func (s TickSpace) Reached(now, target uint32) bool {
	return s.Distance(target, now) < s.Horizon()
}

// Before reports whether a comes strictly before b
func (s TickSpace) Before(a, b uint32) bool {
	d := s.Distance(a, b)
	return d != 0 && d < s.Horizon()
}

// Valid reports whether t is a possible counter value
func (s TickSpace) Valid(t uint32) bool {
	return t < s.Max
}
