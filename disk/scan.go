package disk

// SCAN_REVOLUTIONS bounds a sector search. The scan may start anywhere in the
// track, there is no index pulse to line up on.
const SCAN_REVOLUTIONS = 4

type scanState int

const (
	scanSync scanState = iota
	scanProlog1
	scanProlog2
	scanAddress
	scanData
)

type trackScanner struct {
	track []byte
	pos   int
	laps  int

	addressOK       bool
	atTrack, atSect int
}

func newTrackScanner(track []byte, start int) *trackScanner {
	s := &trackScanner{track: track}
	if len(track) > 0 {
		s.pos = start % len(track)
		if s.pos < 0 {
			s.pos += len(track)
		}
	}
	return s
}

func (s *trackScanner) exhausted() bool {
	return len(s.track) == 0 || s.laps >= SCAN_REVOLUTIONS
}

func (s *trackScanner) next() byte {
	b := s.track[s.pos]
	s.pos++
	if s.pos >= len(s.track) {
		s.pos = 0
		s.laps++
	}
	return b
}

func (s *trackScanner) skip(count int) {
	for i := 0; i < count && !s.exhausted(); i++ {
		s.next()
	}
}

// seek runs the field parser until the data prolog belonging to the wanted
// track/sector has been consumed. The scanner is then positioned on the
// first payload nibble.
func (s *trackScanner) seek(wantTrack, wantSector int) bool {
	state := scanSync
	for !s.exhausted() {
		switch state {
		case scanSync:
			if s.next() == 0xd5 {
				state = scanProlog1
			}
		case scanProlog1:
			switch s.next() {
			case 0xaa:
				state = scanProlog2
			case 0xd5:
				state = scanProlog1
			default:
				state = scanSync
			}
		case scanProlog2:
			switch s.next() {
			case 0x96:
				state = scanAddress
			case 0xad:
				state = scanData
			default:
				state = scanSync
			}
		case scanAddress:
			var f [8]byte
			for i := range f {
				f[i] = s.next()
			}
			volume := DeFourAndFour(f[0], f[1])
			track := DeFourAndFour(f[2], f[3])
			sector := DeFourAndFour(f[4], f[5])
			sum := DeFourAndFour(f[6], f[7])
			s.addressOK = sum == volume^track^sector
			s.atTrack, s.atSect = int(track), int(sector)
			// epilog falls through the sync state
			state = scanSync
		case scanData:
			if s.addressOK && s.atTrack == wantTrack && s.atSect == wantSector {
				s.addressOK = false
				return true
			}
			s.addressOK = false
			s.skip(PAYLOAD_LENGTH)
			state = scanSync
		}
	}
	return false
}

// ScanSector searches a raw track for the data field of (track, sector),
// starting at offset start. It returns the decoded sector, or nil when the
// sector could not be found within SCAN_REVOLUTIONS passes, together with
// the offset the scan stopped at.
func ScanSector(track []byte, start, wantTrack, wantSector int) ([]byte, int) {
	s := newTrackScanner(track, start)
	payload := make([]byte, PAYLOAD_LENGTH)
	for s.seek(wantTrack, wantSector) {
		for i := range payload {
			payload[i] = s.next()
		}
		data, err := DecodeDataField(payload)
		if err == nil {
			return data, s.pos
		}
	}
	return nil, s.pos
}

// LocateSector returns the offset of the first payload nibble of the data
// field for (track, sector) and the offset just past the field's payload.
func LocateSector(track []byte, start, wantTrack, wantSector int) (int, int, bool) {
	s := newTrackScanner(track, start)
	if !s.seek(wantTrack, wantSector) {
		return 0, s.pos, false
	}
	at := s.pos
	end := (at + PAYLOAD_LENGTH) % len(track)
	return at, end, true
}
