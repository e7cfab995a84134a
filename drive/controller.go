package drive

import (
	"fmt"

	"github.com/paleotronic/diskii/disk"
	"github.com/paleotronic/diskii/loggy"
)

// Soft switches, relative to the slot's I/O page. Any $C0n0-$C0nF address
// reduces to these with addr & 0x8F.
const (
	PHASE0_OFF     = 0x80
	PHASE0_ON      = 0x81
	PHASE1_OFF     = 0x82
	PHASE1_ON      = 0x83
	PHASE2_OFF     = 0x84
	PHASE2_ON      = 0x85
	PHASE3_OFF     = 0x86
	PHASE3_ON      = 0x87
	DRIVE_OFF      = 0x88
	DRIVE_ON       = 0x89
	DRIVE_SELECT_1 = 0x8A
	DRIVE_SELECT_2 = 0x8B
	DATA_READ      = 0x8C // Q6L
	DATA_WRITE     = 0x8D // Q6H
	READ_MODE      = 0x8E // Q7L
	WRITE_MODE     = 0x8F // Q7H
)

const SWITCH_MASK = 0x8F

const DRIVES = 2

// Indicator receives drive light and modified-disk notifications.
type Indicator interface {
	DriveLight(drive int, on bool)
	DirtyFlag(drive int, dirty bool)
}

type nopIndicator struct{}

func (nopIndicator) DriveLight(int, bool) {}
func (nopIndicator) DirtyFlag(int, bool)  {}

// Controller is the Disk II interface card. It is driven one bus access at a
// time by the CPU emulation and never blocks.
type Controller struct {
	drives    [DRIVES]*Drive
	drive     int
	motorOn   bool
	writeMode bool
	latch     byte
	bitSkip   int

	indicator Indicator
	wpLogged  bool
	log       *loggy.Logger
}

// NewController returns a card with two empty drives. indicator may be nil.
func NewController(indicator Indicator) *Controller {
	if indicator == nil {
		indicator = nopIndicator{}
	}
	this := &Controller{
		drive:     1,
		indicator: indicator,
		log:       loggy.Get(loggy.CONTROLLER),
	}
	for i := range this.drives {
		this.drives[i] = newDrive(i+1, indicator)
	}
	return this
}

func (c *Controller) cur() *Drive {
	return c.drives[c.drive-1]
}

// Drive returns drive n (1 or 2).
func (c *Controller) Drive(n int) (*Drive, error) {
	if n < 1 || n > DRIVES {
		return nil, fmt.Errorf("%w: %d", ErrDriveRange, n)
	}
	return c.drives[n-1], nil
}

func (c *Controller) Insert(n int, img *disk.Image) error {
	d, err := c.Drive(n)
	if err != nil {
		return err
	}
	d.Insert(img)
	c.log.Logf("Drive %d: inserted %s disk, volume %d, %d tracks", n, img.Format, img.Volume, len(img.Tracks))
	return nil
}

func (c *Controller) Eject(n int) error {
	d, err := c.Drive(n)
	if err != nil {
		return err
	}
	d.Eject()
	c.log.Logf("Drive %d: ejected", n)
	return nil
}

func (c *Controller) SelectedDrive() int { return c.drive }
func (c *Controller) MotorOn() bool      { return c.motorOn }
func (c *Controller) WriteMode() bool    { return c.writeMode }
func (c *Controller) Latch() byte        { return c.latch }

// LoadByte services a CPU read of one of the card's soft switches.
func (c *Controller) LoadByte(addr uint16) byte {
	return c.ioSwitch(byte(addr), 0, false)
}

// StoreByte services a CPU write of one of the card's soft switches.
func (c *Controller) StoreByte(addr uint16, v byte) {
	c.ioSwitch(byte(addr), v, true)
}

func (c *Controller) ioSwitch(off byte, v byte, store bool) byte {
	var result byte

	sw := off & SWITCH_MASK
	switch sw {
	case PHASE0_OFF, PHASE0_ON, PHASE1_OFF, PHASE1_ON,
		PHASE2_OFF, PHASE2_ON, PHASE3_OFF, PHASE3_ON:
		c.cur().SetPhase(int(sw-PHASE0_OFF)>>1, sw&1 == 1)
	case DRIVE_OFF:
		c.setMotor(false)
	case DRIVE_ON:
		c.setMotor(true)
	case DRIVE_SELECT_1:
		c.selectDrive(1)
	case DRIVE_SELECT_2:
		c.selectDrive(2)
	case DATA_READ:
		if c.writeMode {
			c.shiftWrite()
		} else {
			result = c.shiftRead()
		}
	case DATA_WRITE:
		if store && c.writeMode {
			c.latch = v
		}
		result = c.latch
	case READ_MODE:
		c.setWriteMode(false)
		if c.cur().ReadOnly() {
			result = 0x80
		}
	case WRITE_MODE:
		c.setWriteMode(true)
		if store {
			c.latch = v
		}
	}

	return result
}

func (c *Controller) setMotor(on bool) {
	if c.motorOn == on {
		return
	}
	c.motorOn = on
	c.indicator.DriveLight(c.drive, on)
	c.log.Debugf("Drive %d: motor %v", c.drive, on)
}

func (c *Controller) selectDrive(n int) {
	if c.drive == n {
		return
	}
	old := c.drive
	c.drive = n
	if c.motorOn {
		c.indicator.DriveLight(old, false)
		c.indicator.DriveLight(n, true)
	}
}

func (c *Controller) setWriteMode(on bool) {
	if c.writeMode == on {
		return
	}
	c.writeMode = on
	c.bitSkip = 0
	c.wpLogged = false
}

// shiftRead hands out one disk byte every fourth access. In between the
// latch is still shifting and reads back with the high bit clear.
func (c *Controller) shiftRead() byte {
	if !c.motorOn {
		return 0
	}

	c.bitSkip = (c.bitSkip + 1) & 3
	if c.bitSkip != 0 {
		return c.latch & 0x7f
	}

	b, ok := c.cur().readNibble()
	if !ok {
		c.latch = 0
		return 0
	}
	c.latch = b
	return b
}

// shiftWrite commits the latch under the head.
func (c *Controller) shiftWrite() {
	if !c.motorOn {
		return
	}
	if err := c.cur().writeNibble(c.latch); err != nil && !c.wpLogged {
		c.wpLogged = true
		c.log.Errorf("Drive %d: write rejected: %s", c.drive, err.Error())
	}
}

// ReadSector runs the sector search on drive n.
func (c *Controller) ReadSector(n, track, sector int) ([]byte, error) {
	d, err := c.Drive(n)
	if err != nil {
		return nil, err
	}
	return d.ReadSector(track, sector)
}

func (c *Controller) WriteSector(n, track, sector int, data []byte) error {
	d, err := c.Drive(n)
	if err != nil {
		return err
	}
	return d.WriteSector(track, sector, data)
}
