package drive

// PHASE_DELTA[from][to] is the head movement, in half tracks, when coil to is
// energized while from was the last one on. Opposite coils pull with a
// fixed sign.
var PHASE_DELTA = [4][4]int{
	{0, 1, 2, -1},
	{-1, 0, 1, 2},
	{-2, -1, 0, 1},
	{1, -2, -1, 0},
}

// Stepper models the four-phase head positioner. position counts half
// tracks.
type Stepper struct {
	position int
	phase    int
}

// SetPhase energizes or releases one coil. Only energizing moves the head;
// the result is clamped to the half tracks of a trackCount track disk.
func (s *Stepper) SetPhase(phase int, on bool, trackCount int) {
	if !on {
		return
	}
	phase &= 3

	s.position += PHASE_DELTA[s.phase][phase]
	s.phase = phase

	limit := 2*trackCount - 1
	if s.position > limit {
		s.position = limit
	}
	if s.position < 0 {
		s.position = 0
	}
}

func (s *Stepper) Position() int {
	return s.position
}

func (s *Stepper) Phase() int {
	return s.phase
}

// Track is the whole track under the head.
func (s *Stepper) Track() int {
	return s.position >> 1
}
