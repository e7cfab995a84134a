package drive

import (
	"errors"

	"github.com/paleotronic/diskii/disk"
)

var (
	ErrTrackRange     = errors.New("track out of range")
	ErrSectorRange    = errors.New("sector out of range")
	ErrDriveRange     = errors.New("no such drive")
	ErrWriteProtected = errors.New("disk is write protected")
	ErrNoDisk         = errors.New("no disk in drive")
	ErrSectorSize     = errors.New("sector data must be 256 bytes")
	ErrBadState       = errors.New("invalid saved state")
)

// Drive is one Disk II unit and the disk spinning in it.
type Drive struct {
	number    int
	indicator Indicator

	store   TrackStore
	stepper Stepper
	head    int

	format   disk.Format
	volume   byte
	readOnly bool
	dirty    bool
}

func newDrive(number int, indicator Indicator) *Drive {
	return &Drive{
		number:    number,
		indicator: indicator,
		volume:    disk.DEFAULT_VOLUME,
	}
}

// Insert replaces the disk with a copy of img. Head position and phase are
// mechanical and survive the swap.
func (d *Drive) Insert(img *disk.Image) {
	d.store.Replace(img.Tracks)
	d.format = img.Format
	d.volume = img.Volume
	d.readOnly = img.ReadOnly
	d.head = 0
	d.clampPosition()
	d.setDirty(false)
}

func (d *Drive) Eject() {
	d.store.Clear()
	d.format = disk.FormatNone
	d.volume = disk.DEFAULT_VOLUME
	d.readOnly = false
	d.head = 0
	d.setDirty(false)
}

// Image snapshots the disk currently in the drive.
func (d *Drive) Image() *disk.Image {
	return &disk.Image{
		Format:   d.format,
		Volume:   d.volume,
		ReadOnly: d.readOnly,
		Tracks:   d.store.Clone(),
	}
}

func (d *Drive) Number() int         { return d.number }
func (d *Drive) HasDisk() bool       { return d.store.Len() > 0 }
func (d *Drive) Format() disk.Format { return d.format }
func (d *Drive) Volume() byte        { return d.volume }
func (d *Drive) ReadOnly() bool      { return d.readOnly }
func (d *Drive) Dirty() bool         { return d.dirty }
func (d *Drive) Position() int       { return d.stepper.Position() }
func (d *Drive) Track() int          { return d.stepper.Track() }
func (d *Drive) Phase() int          { return d.stepper.Phase() }
func (d *Drive) Head() int           { return d.head }
func (d *Drive) SetReadOnly(ro bool) { d.readOnly = ro }
func (d *Drive) TrackCount() int     { return d.trackCount() }

func (d *Drive) ClearDirty() {
	d.setDirty(false)
}

func (d *Drive) setDirty(dirty bool) {
	if d.dirty == dirty {
		return
	}
	d.dirty = dirty
	d.indicator.DirtyFlag(d.number, dirty)
}

// An empty drive still has the stepper limits of a standard disk.
func (d *Drive) trackCount() int {
	if n := d.store.Len(); n > 0 {
		return n
	}
	return disk.STD_TRACKS_PER_DISK
}

func (d *Drive) SetPhase(phase int, on bool) {
	d.stepper.SetPhase(phase, on, d.trackCount())
	d.head = d.store.wrap(d.Track(), d.head)
}

func (d *Drive) clampPosition() {
	limit := 2*d.trackCount() - 1
	if d.stepper.position > limit {
		d.stepper.position = limit
	}
	d.head = d.store.wrap(d.Track(), d.head)
}

// readNibble returns the byte under the head and moves on.
func (d *Drive) readNibble() (byte, bool) {
	track := d.Track()
	b, ok := d.store.Get(track, d.head)
	if !ok {
		return 0, false
	}
	d.head = d.store.Advance(track, d.head, 1)
	return b, true
}

// writeNibble stores v under the head and moves on.
func (d *Drive) writeNibble(v byte) error {
	if d.readOnly {
		return ErrWriteProtected
	}
	track := d.Track()
	if !d.store.Put(track, d.head, v) {
		return ErrNoDisk
	}
	d.head = d.store.Advance(track, d.head, 1)
	d.setDirty(true)
	return nil
}
