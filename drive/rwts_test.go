package drive

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/paleotronic/diskii/disk"
)

func sectorImage(t *testing.T, format disk.Format) ([]byte, *disk.Image) {
	t.Helper()
	data := make([]byte, disk.STD_DISK_BYTES)
	rand.New(rand.NewSource(1977)).Read(data)
	img, err := disk.NewImage(format, disk.DEFAULT_VOLUME, data)
	if err != nil {
		t.Fatal(err)
	}
	return data, img
}

func imageSector(data []byte, track, sector int) []byte {
	off := track*disk.STD_TRACK_BYTES + sector*disk.STD_BYTES_PER_SECTOR
	return data[off : off+disk.STD_BYTES_PER_SECTOR]
}

func TestReadSectorFromDOSImage(t *testing.T) {
	data, img := sectorImage(t, disk.FormatDOS)
	c := NewController(nil)
	if err := c.Insert(1, img); err != nil {
		t.Fatal(err)
	}

	got, err := c.ReadSector(1, 17, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, imageSector(data, 17, 0)) {
		t.Fatalf("track 17 sector 0 differs from the image")
	}
}

func TestReadSectorLogicalOrder(t *testing.T) {
	for _, format := range []disk.Format{disk.FormatDOS, disk.FormatProDOS, disk.FormatPhysical} {
		data, img := sectorImage(t, format)
		c := NewController(nil)
		c.Insert(2, img)
		for _, track := range []int{0, 1, 17, 34} {
			for sector := 0; sector < disk.STD_SECTORS_PER_TRACK; sector++ {
				got, err := c.ReadSector(2, track, sector)
				if err != nil {
					t.Fatal(err)
				}
				if !bytes.Equal(got, imageSector(data, track, sector)) {
					t.Fatalf("%s: track %d sector %d differs", format, track, sector)
				}
			}
		}
	}
}

func TestReadSectorNotFound(t *testing.T) {
	c := NewController(nil)

	got, err := c.ReadSector(1, 0, 0)
	if err != nil || got != nil {
		t.Fatalf("empty drive: %v, %v", got, err)
	}

	c.Insert(1, nibbleDisk([]byte{}, bytes.Repeat([]byte{0xff}, 100)))
	if got, err := c.ReadSector(1, 0, 3); err != nil || got != nil {
		t.Fatalf("zero length track: %v, %v", got, err)
	}
	if got, err := c.ReadSector(1, 1, 3); err != nil || got != nil {
		t.Fatalf("sync only track: %v, %v", got, err)
	}
}

func TestReadSectorRange(t *testing.T) {
	_, img := sectorImage(t, disk.FormatDOS)
	c := NewController(nil)
	c.Insert(1, img)

	if _, err := c.ReadSector(1, 35, 0); !errors.Is(err, ErrTrackRange) {
		t.Errorf("track 35: %v", err)
	}
	if _, err := c.ReadSector(1, -1, 0); !errors.Is(err, ErrTrackRange) {
		t.Errorf("track -1: %v", err)
	}
	if _, err := c.ReadSector(1, 0, 16); !errors.Is(err, ErrSectorRange) {
		t.Errorf("sector 16: %v", err)
	}
	if _, err := c.ReadSector(3, 0, 0); !errors.Is(err, ErrDriveRange) {
		t.Errorf("drive 3: %v", err)
	}
	if _, err := c.Drive(0); !errors.Is(err, ErrDriveRange) {
		t.Errorf("drive 0: %v", err)
	}
}

// The search begins at the current head offset and leaves the head where it
// stopped, so the result of a read depends on what came before it.
func TestReadSectorMovesHead(t *testing.T) {
	_, img := sectorImage(t, disk.FormatPhysical)
	c := NewController(nil)
	c.Insert(1, img)
	d, _ := c.Drive(1)

	if _, err := d.ReadSector(0, 5); err != nil {
		t.Fatal(err)
	}
	first := d.Head()
	if first == 0 {
		t.Fatalf("head did not move")
	}

	track, _ := d.Tracks().Track(0)
	at, _, _ := disk.LocateSector(track, 0, 0, 5)
	if first != at+disk.PAYLOAD_LENGTH {
		t.Fatalf("head %d, want just past the payload at %d", first, at+disk.PAYLOAD_LENGTH)
	}

	// going round again lands in the same place
	again, _ := d.ReadSector(0, 5)
	if again == nil || d.Head() != first {
		t.Fatalf("second read: head %d want %d", d.Head(), first)
	}

	// an earlier sector is only reached by wrapping past the index
	if data, _ := d.ReadSector(0, 2); data == nil || d.Head() >= first {
		t.Fatalf("head %d after reading sector 2", d.Head())
	}
}

func TestWriteSector(t *testing.T) {
	data, img := sectorImage(t, disk.FormatDOS)
	r := &recorder{}
	c := NewController(r)
	c.Insert(1, img)

	fresh := bytes.Repeat([]byte{0x60}, 256)
	if err := c.WriteSector(1, 20, 7, fresh); err != nil {
		t.Fatal(err)
	}
	got, _ := c.ReadSector(1, 20, 7)
	if !bytes.Equal(got, fresh) {
		t.Fatalf("written sector does not read back")
	}
	got, _ = c.ReadSector(1, 20, 8)
	if !bytes.Equal(got, imageSector(data, 20, 8)) {
		t.Fatalf("neighbouring sector damaged")
	}

	d, _ := c.Drive(1)
	if !d.Dirty() {
		t.Fatalf("not dirty")
	}
	out, err := d.Image().Encode(disk.FormatDOS)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(imageSector(out, 20, 7), fresh) {
		t.Fatalf("exported image lacks the write")
	}

	if err := c.WriteSector(1, 20, 7, []byte{1}); !errors.Is(err, ErrSectorSize) {
		t.Errorf("short data: %v", err)
	}
	if err := c.WriteSector(1, 40, 7, fresh); !errors.Is(err, ErrTrackRange) {
		t.Errorf("track 40: %v", err)
	}
}

func TestWriteSectorReadOnly(t *testing.T) {
	data, img := sectorImage(t, disk.FormatDOS)
	img.ReadOnly = true
	c := NewController(nil)
	c.Insert(1, img)

	err := c.WriteSector(1, 3, 3, make([]byte, 256))
	if !errors.Is(err, ErrWriteProtected) {
		t.Fatalf("got %v", err)
	}
	got, _ := c.ReadSector(1, 3, 3)
	if !bytes.Equal(got, imageSector(data, 3, 3)) {
		t.Fatalf("protected sector changed")
	}
}

func TestWriteSectorMissing(t *testing.T) {
	c := NewController(nil)
	c.Insert(1, nibbleDisk(bytes.Repeat([]byte{0xff}, 64)))
	err := c.WriteSector(1, 0, 0, make([]byte, 256))
	if !errors.Is(err, disk.ErrSectorNotFound) {
		t.Fatalf("got %v", err)
	}
}

func TestDirtyFlagSemantics(t *testing.T) {
	_, img := sectorImage(t, disk.FormatDOS)
	r := &recorder{}
	c := NewController(r)
	c.Insert(1, img)
	d, _ := c.Drive(1)

	for i := 0; i < 3; i++ {
		c.WriteSector(1, 1, i, make([]byte, 256))
	}
	if got := r.take(); len(got) != 1 || got[0] != "dirty 1 true" {
		t.Fatalf("events %v", got)
	}
	d.ClearDirty()
	d.ClearDirty()
	if d.Dirty() {
		t.Fatalf("still dirty")
	}
	c.WriteSector(1, 1, 0, make([]byte, 256))
	want := []string{"dirty 1 false", "dirty 1 true"}
	got := r.take()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("events %v want %v", got, want)
	}
}
