package drive

import (
	"fmt"

	"github.com/paleotronic/diskii/disk"
)

type DriveState struct {
	Format   string   `json:"format"`
	Volume   byte     `json:"volume"`
	Tracks   [][]byte `json:"tracks"`
	Position int      `json:"track"`
	Head     int      `json:"head"`
	Phase    int      `json:"phase"`
	ReadOnly bool     `json:"readOnly"`
	Dirty    bool     `json:"dirty"`
}

// State is a complete, independent copy of the card and both drives.
type State struct {
	BitSkip   int                `json:"skip"`
	Latch     byte               `json:"latch"`
	WriteMode bool               `json:"writeMode"`
	MotorOn   bool               `json:"on"`
	Drive     int                `json:"drive"`
	Drives    [DRIVES]DriveState `json:"drives"`
}

func (c *Controller) State() *State {
	s := &State{
		BitSkip:   c.bitSkip,
		Latch:     c.latch,
		WriteMode: c.writeMode,
		MotorOn:   c.motorOn,
		Drive:     c.drive,
	}
	for i, d := range c.drives {
		s.Drives[i] = DriveState{
			Format:   d.format.Tag(),
			Volume:   d.volume,
			Tracks:   d.store.Clone(),
			Position: d.stepper.position,
			Head:     d.head,
			Phase:    d.stepper.phase,
			ReadOnly: d.readOnly,
			Dirty:    d.dirty,
		}
	}
	return s
}

func badState(format string, v ...interface{}) error {
	return fmt.Errorf("%w: "+format, append([]interface{}{ErrBadState}, v...)...)
}

func (ds *DriveState) check(n int) (disk.Format, error) {
	format := disk.FormatNone
	if ds.Format != "" {
		f, err := disk.ParseFormat(ds.Format)
		if err != nil {
			return format, fmt.Errorf("%w: drive %d: %v", ErrBadState, n, err)
		}
		format = f
	}

	if ds.Phase < 0 || ds.Phase > 3 {
		return format, badState("drive %d phase %d", n, ds.Phase)
	}

	count := len(ds.Tracks)
	if count == 0 {
		count = disk.STD_TRACKS_PER_DISK
	}
	if ds.Position < 0 || ds.Position > 2*count-1 {
		return format, badState("drive %d half track %d", n, ds.Position)
	}

	length := 0
	if t := ds.Position >> 1; t < len(ds.Tracks) {
		length = len(ds.Tracks[t])
	}
	if ds.Head < 0 || (length > 0 && ds.Head >= length) || (length == 0 && ds.Head != 0) {
		return format, badState("drive %d head offset %d", n, ds.Head)
	}

	return format, nil
}

// Restore replaces the whole controller state with a copy of s. Nothing is
// changed if s is inconsistent.
func (c *Controller) Restore(s *State) error {
	if s.Drive < 1 || s.Drive > DRIVES {
		return badState("selected drive %d", s.Drive)
	}
	if s.BitSkip < 0 || s.BitSkip > 3 {
		return badState("bit timing %d", s.BitSkip)
	}

	var formats [DRIVES]disk.Format
	for i := range s.Drives {
		f, err := s.Drives[i].check(i + 1)
		if err != nil {
			return err
		}
		formats[i] = f
	}

	c.bitSkip = s.BitSkip
	c.latch = s.Latch
	c.writeMode = s.WriteMode
	c.motorOn = s.MotorOn
	c.drive = s.Drive
	c.wpLogged = false

	for i, d := range c.drives {
		ds := &s.Drives[i]
		d.store.Replace(ds.Tracks)
		d.format = formats[i]
		d.volume = ds.Volume
		d.stepper.position = ds.Position
		d.stepper.phase = ds.Phase
		d.head = ds.Head
		d.readOnly = ds.ReadOnly
		d.dirty = ds.Dirty
		d.indicator.DirtyFlag(d.number, d.dirty)
		d.indicator.DriveLight(d.number, c.motorOn && d.number == c.drive)
	}

	c.log.Logf("Restored state: drive %d selected, motor %v", c.drive, c.motorOn)
	return nil
}
