package drive

import "fmt"

// TrackStore owns the raw track buffers of one disk.
type TrackStore struct {
	tracks [][]byte
}

func (ts *TrackStore) Len() int {
	return len(ts.tracks)
}

// Replace installs deep copies of tracks.
func (ts *TrackStore) Replace(tracks [][]byte) {
	ts.tracks = copyTracks(tracks)
}

func (ts *TrackStore) Clear() {
	ts.tracks = nil
}

// Clone returns deep copies of all track buffers.
func (ts *TrackStore) Clone() [][]byte {
	return copyTracks(ts.tracks)
}

func copyTracks(tracks [][]byte) [][]byte {
	if tracks == nil {
		return nil
	}
	out := make([][]byte, len(tracks))
	for i, t := range tracks {
		out[i] = append([]byte(nil), t...)
	}
	return out
}

// Track returns the live buffer of track i.
func (ts *TrackStore) Track(i int) ([]byte, error) {
	if i < 0 || i >= len(ts.tracks) {
		return nil, fmt.Errorf("%w: track %d of %d", ErrTrackRange, i, len(ts.tracks))
	}
	return ts.tracks[i], nil
}

func (ts *TrackStore) TrackLen(i int) int {
	if i < 0 || i >= len(ts.tracks) {
		return 0
	}
	return len(ts.tracks[i])
}

// wrap is the one place offsets are reduced modulo a track's length.
func (ts *TrackStore) wrap(track, off int) int {
	n := ts.TrackLen(track)
	if n == 0 {
		return 0
	}
	off %= n
	if off < 0 {
		off += n
	}
	return off
}

func (ts *TrackStore) Get(track, off int) (byte, bool) {
	if ts.TrackLen(track) == 0 {
		return 0, false
	}
	return ts.tracks[track][ts.wrap(track, off)], true
}

func (ts *TrackStore) Put(track, off int, v byte) bool {
	if ts.TrackLen(track) == 0 {
		return false
	}
	ts.tracks[track][ts.wrap(track, off)] = v
	return true
}

// Advance moves off forward by n bytes around the track.
func (ts *TrackStore) Advance(track, off, n int) int {
	return ts.wrap(track, off+n)
}
