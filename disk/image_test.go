package disk

import (
	"bytes"
	"errors"
	"math/rand"
	"testing"

	"github.com/spf13/afero"
)

func testImage(tracks int) []byte {
	data := make([]byte, tracks*STD_TRACK_BYTES)
	rand.New(rand.NewSource(int64(tracks))).Read(data)
	return data
}

func TestSectorOrdersAreBijections(t *testing.T) {
	for _, f := range []Format{FormatDOS, FormatProDOS, FormatPhysical} {
		order := f.SectorOrder()
		if len(order) != STD_SECTORS_PER_TRACK {
			t.Fatalf("%s: %d entries", f, len(order))
		}
		seen := make([]bool, STD_SECTORS_PER_TRACK)
		for _, v := range order {
			if v < 0 || v >= STD_SECTORS_PER_TRACK || seen[v] {
				t.Fatalf("%s: not a permutation: %v", f, order)
			}
			seen[v] = true
		}
		for s := 0; s < STD_SECTORS_PER_TRACK; s++ {
			if LogicalSector(order, PhysicalSector(order, s)) != s {
				t.Fatalf("%s: sector %d does not map back", f, s)
			}
		}
	}
	if FormatNibble.SectorOrder() != nil {
		t.Fatalf("nibble images have no sector order")
	}
}

func TestDOSOrderInterleave(t *testing.T) {
	// DOS 3.3 logical sector 1 sits in physical sector 13
	if p := PhysicalSector(DOS_33_SECTOR_ORDER, 1); p != 13 {
		t.Fatalf("DOS logical 1 -> physical %d", p)
	}
	// ProDOS block 0 is split over physical sectors 0 and 2
	if p := PhysicalSector(PRODOS_SECTOR_ORDER, 1); p != 2 {
		t.Fatalf("ProDOS logical 1 -> physical %d", p)
	}
}

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"dsk": FormatDOS, ".DO": FormatDOS, "po": FormatProDOS,
		"phys": FormatPhysical, ".nib": FormatNibble, "2mg": Format2MG,
	}
	for tag, want := range cases {
		got, err := ParseFormat(tag)
		if err != nil || got != want {
			t.Errorf("ParseFormat(%q) = %v, %v", tag, got, err)
		}
	}
	for _, tag := range []string{"", "d13", "woz", "hdv"} {
		if _, err := ParseFormat(tag); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("ParseFormat(%q): %v", tag, err)
		}
	}
	if f, err := FormatForPath("/tmp/Games.PO"); err != nil || f != FormatProDOS {
		t.Errorf("FormatForPath: %v %v", f, err)
	}
}

func TestNibblizeLayout(t *testing.T) {
	tracks, err := Nibblize(FormatDOS, DEFAULT_VOLUME, testImage(STD_TRACKS_PER_DISK))
	if err != nil {
		t.Fatal(err)
	}
	if len(tracks) != STD_TRACKS_PER_DISK {
		t.Fatalf("%d tracks", len(tracks))
	}

	sector := ADDRESS_FIELD_LENGTH + GAP2_LENGTH + DATA_FIELD_LENGTH + 1
	track0 := GAP1_LENGTH + 15*GAP3_TRACK0_LENGTH + 16*sector
	other := GAP1_LENGTH + 15*GAP3_LENGTH + 16*sector
	if len(tracks[0]) != track0 {
		t.Errorf("track 0 is %d bytes, want %d", len(tracks[0]), track0)
	}
	for i := 1; i < len(tracks); i++ {
		if len(tracks[i]) != other {
			t.Fatalf("track %d is %d bytes, want %d", i, len(tracks[i]), other)
		}
	}
	if !bytes.Equal(tracks[5][GAP1_LENGTH:GAP1_LENGTH+3], ADDRESS_PROLOG) {
		t.Errorf("track 5 does not open with an address field")
	}
}

func TestNibblizeRoundTrip(t *testing.T) {
	data := testImage(STD_TRACKS_PER_DISK)
	for _, f := range []Format{FormatDOS, FormatProDOS, FormatPhysical} {
		tracks, err := Nibblize(f, 17, data)
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		back, err := Denibblize(f, tracks)
		if err != nil {
			t.Fatalf("%s: %v", f, err)
		}
		if !bytes.Equal(back, data) {
			t.Fatalf("%s: image changed on round trip", f)
		}
	}
}

func TestReorderDOSToProDOS(t *testing.T) {
	data := testImage(STD_TRACKS_PER_DISK)
	tracks, _ := Nibblize(FormatDOS, DEFAULT_VOLUME, data)
	po, err := Denibblize(FormatProDOS, tracks)
	if err != nil {
		t.Fatal(err)
	}
	// the same physical sector lands at each format's own image offset
	for physical := 0; physical < STD_SECTORS_PER_TRACK; physical++ {
		d := LogicalSector(DOS_33_SECTOR_ORDER, physical) * STD_BYTES_PER_SECTOR
		p := LogicalSector(PRODOS_SECTOR_ORDER, physical) * STD_BYTES_PER_SECTOR
		if !bytes.Equal(data[d:d+256], po[p:p+256]) {
			t.Fatalf("physical sector %d not carried over", physical)
		}
	}
}

func TestImageSizeErrors(t *testing.T) {
	if _, err := NewImage(FormatDOS, DEFAULT_VOLUME, make([]byte, 1000)); !errors.Is(err, ErrImageSize) {
		t.Errorf("odd size: %v", err)
	}
	if _, err := NewImage(FormatDOS, DEFAULT_VOLUME, nil); !errors.Is(err, ErrImageSize) {
		t.Errorf("empty: %v", err)
	}
	if _, err := NewImage(FormatProDOS, DEFAULT_VOLUME, make([]byte, 41*STD_TRACK_BYTES)); !errors.Is(err, ErrImageSize) {
		t.Errorf("too many tracks: %v", err)
	}
	if _, err := NewImage(FormatNibble, DEFAULT_VOLUME, make([]byte, STD_DISK_BYTES)); !errors.Is(err, ErrImageSize) {
		t.Errorf("nibble size: %v", err)
	}
	if _, err := NewImage(FormatNone, DEFAULT_VOLUME, make([]byte, STD_DISK_BYTES)); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("no format: %v", err)
	}
}

func TestNibbleImagePassThrough(t *testing.T) {
	data := make([]byte, DISK_NIBBLE_LENGTH)
	rand.New(rand.NewSource(9)).Read(data)

	img, err := NewImage(FormatNibble, DEFAULT_VOLUME, data)
	if err != nil {
		t.Fatal(err)
	}
	if len(img.Tracks) != STD_TRACKS_PER_DISK || len(img.Tracks[3]) != TRACK_NIBBLE_LENGTH {
		t.Fatalf("unexpected geometry")
	}
	out, err := img.Encode(FormatNibble)
	if err != nil || !bytes.Equal(out, data) {
		t.Fatalf("nibble image changed: %v", err)
	}
	data[0] ^= 0xff
	if img.Tracks[0][0] == data[0] {
		t.Fatalf("tracks alias the input buffer")
	}
}

func Test2MG(t *testing.T) {
	data := testImage(STD_TRACKS_PER_DISK)
	wrapped, err := Build2MG(FormatProDOS, 99, true, data)
	if err != nil {
		t.Fatal(err)
	}

	h, payload, err := Split2MG(wrapped)
	if err != nil {
		t.Fatal(err)
	}
	if h.GetProDOSBlocks() != 280 || !bytes.Equal(payload, data) {
		t.Fatalf("header blocks %d", h.GetProDOSBlocks())
	}
	if h.GetCreatorID() != "DSK2" || h.GetVersion() != 1 || h.GetHeaderSize() != PREAMBLE_2MG_SIZE {
		t.Fatalf("creator %q version %d header %d", h.GetCreatorID(), h.GetVersion(), h.GetHeaderSize())
	}

	img, err := NewImage(Format2MG, DEFAULT_VOLUME, wrapped)
	if err != nil {
		t.Fatal(err)
	}
	if img.Format != FormatProDOS || img.Volume != 99 || !img.ReadOnly {
		t.Fatalf("got %s volume %d ro %v", img.Format, img.Volume, img.ReadOnly)
	}

	again, err := img.Encode(Format2MG)
	if err != nil || !bytes.Equal(again, wrapped) {
		t.Fatalf("2mg re-encode differs: %v", err)
	}

	bad := append([]byte(nil), wrapped...)
	bad[0x0C] = 7
	if _, err := NewImage(Format2MG, DEFAULT_VOLUME, bad); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("format selector 7: %v", err)
	}
	short := append([]byte(nil), wrapped...)
	short[0x08] = 0x20
	if _, _, err := Split2MG(short); !errors.Is(err, ErrBadHeader) {
		t.Errorf("header size $20: %v", err)
	}
	long := append([]byte(nil), wrapped...)
	long[0x08] = 0x80
	if _, _, err := Split2MG(long); !errors.Is(err, ErrBadHeader) {
		t.Errorf("data inside a $80 byte header: %v", err)
	}
	if _, err := NewImage(Format2MG, DEFAULT_VOLUME, data); !errors.Is(err, ErrBadHeader) {
		t.Errorf("no magic: %v", err)
	}
}

func TestOpenSave(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := testImage(STD_TRACKS_PER_DISK)
	if err := afero.WriteFile(fs, "/disks/master.dsk", data, 0644); err != nil {
		t.Fatal(err)
	}

	img, err := Open(fs, "/disks/master.dsk")
	if err != nil {
		t.Fatal(err)
	}
	if img.Format != FormatDOS || img.Volume != DEFAULT_VOLUME {
		t.Fatalf("got %s volume %d", img.Format, img.Volume)
	}

	if err := Save(fs, "/disks/copy.po", img); err != nil {
		t.Fatal(err)
	}
	po, err := Open(fs, "/disks/copy.po")
	if err != nil {
		t.Fatal(err)
	}
	if err := Save(fs, "/disks/back.dsk", po); err != nil {
		t.Fatal(err)
	}
	back, _ := afero.ReadFile(fs, "/disks/back.dsk")
	if !bytes.Equal(back, data) {
		t.Fatalf("dsk -> po -> dsk changed the image")
	}

	if _, err := Open(fs, "/disks/master.woz"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("woz: %v", err)
	}
	if _, err := Open(fs, "/disks/missing.dsk"); err == nil {
		t.Errorf("missing file opened")
	}
}

func TestDump(t *testing.T) {
	var buf bytes.Buffer
	Dump(&buf, []byte("HELLO WORLD, THIS IS A DISK"))
	out := buf.String()
	if !bytes.HasPrefix([]byte(out), []byte("0000: 48 45 4C 4C 4F")) {
		t.Fatalf("dump: %q", out)
	}
	if !bytes.Contains([]byte(out), []byte("0010:")) {
		t.Fatalf("no second line: %q", out)
	}
}

func TestOpenFormatOverride(t *testing.T) {
	fs := afero.NewMemMapFs()
	data := testImage(STD_TRACKS_PER_DISK)
	afero.WriteFile(fs, "/disks/GAME", data, 0644)

	if _, err := Open(fs, "/disks/GAME"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("no extension: %v", err)
	}
	img, err := OpenFormat(fs, "/disks/GAME", FormatProDOS)
	if err != nil {
		t.Fatal(err)
	}
	back, _ := img.Encode(FormatProDOS)
	if !bytes.Equal(back, data) {
		t.Fatalf("forced format did not round trip")
	}
}

func TestGeometry(t *testing.T) {
	if STD_DISK_BYTES != 143360 {
		t.Errorf("Wrong size got %d", STD_DISK_BYTES)
	}
	if DISK_NIBBLE_LENGTH != 232960 {
		t.Errorf("Wrong nibble size got %d", DISK_NIBBLE_LENGTH)
	}
}
