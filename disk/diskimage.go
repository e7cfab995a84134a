package disk

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

const STD_BYTES_PER_SECTOR = 256
const STD_TRACKS_PER_DISK = 35
const STD_SECTORS_PER_TRACK = 16
const STD_TRACK_BYTES = STD_SECTORS_PER_TRACK * STD_BYTES_PER_SECTOR
const STD_DISK_BYTES = STD_TRACKS_PER_DISK * STD_TRACK_BYTES
const MAX_TRACKS_PER_DISK = 40

const TRACK_NIBBLE_LENGTH = 0x1A00
const DISK_NIBBLE_LENGTH = TRACK_NIBBLE_LENGTH * STD_TRACKS_PER_DISK

const DEFAULT_VOLUME = 254

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrImageSize         = errors.New("incorrect disk bytes")
	ErrBadHeader         = errors.New("bad 2mg header")
	ErrInvalidNibble     = errors.New("invalid nibble")
	ErrDataChecksum      = errors.New("data field checksum mismatch")
	ErrSectorNotFound    = errors.New("sector not found")
)

func Checksum(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Physical sector -> image sector, for each sector ordering.
var DOS_33_SECTOR_ORDER = []int{
	0x00, 0x07, 0x0E, 0x06, 0x0D, 0x05, 0x0C, 0x04,
	0x0B, 0x03, 0x0A, 0x02, 0x09, 0x01, 0x08, 0x0F,
}

var PRODOS_SECTOR_ORDER = []int{
	0x00, 0x08, 0x01, 0x09, 0x02, 0x0a, 0x03, 0x0b,
	0x04, 0x0c, 0x05, 0x0d, 0x06, 0x0e, 0x07, 0x0f,
}

var LINEAR_SECTOR_ORDER = []int{
	0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07,
	0x08, 0x09, 0x0a, 0x0b, 0x0c, 0x0d, 0x0e, 0x0f,
}

// PhysicalSector returns the physical sector holding image sector logical.
func PhysicalSector(order []int, logical int) int {
	for physical, v := range order {
		if v == logical {
			return physical
		}
	}
	return -1
}

// LogicalSector returns the image sector stored in physical sector physical.
func LogicalSector(order []int, physical int) int {
	if physical < 0 || physical >= len(order) {
		return -1
	}
	return order[physical]
}

type Format int

const (
	FormatNone Format = iota
	FormatDOS
	FormatProDOS
	FormatPhysical
	FormatNibble
	Format2MG
)

func (f Format) String() string {
	switch f {
	case FormatDOS:
		return "DOS 3.3 order"
	case FormatProDOS:
		return "ProDOS order"
	case FormatPhysical:
		return "Physical order"
	case FormatNibble:
		return "Nibble"
	case Format2MG:
		return "2MG"
	}
	return "Unrecognized"
}

// Tag is the canonical short name of the format, as accepted by ParseFormat.
func (f Format) Tag() string {
	switch f {
	case FormatDOS:
		return "dsk"
	case FormatProDOS:
		return "po"
	case FormatPhysical:
		return "phys"
	case FormatNibble:
		return "nib"
	case Format2MG:
		return "2mg"
	}
	return ""
}

// SectorOrder returns nil for formats that are not sector ordered.
func (f Format) SectorOrder() []int {
	switch f {
	case FormatDOS:
		return DOS_33_SECTOR_ORDER
	case FormatProDOS:
		return PRODOS_SECTOR_ORDER
	case FormatPhysical:
		return LINEAR_SECTOR_ORDER
	}
	return nil
}

func ParseFormat(tag string) (Format, error) {
	switch strings.ToLower(strings.TrimPrefix(tag, ".")) {
	case "dsk", "do":
		return FormatDOS, nil
	case "po":
		return FormatProDOS, nil
	case "phys":
		return FormatPhysical, nil
	case "nib":
		return FormatNibble, nil
	case "2mg", "2img":
		return Format2MG, nil
	}
	return FormatNone, fmt.Errorf("%w: %q", ErrUnsupportedFormat, tag)
}

func FormatForPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

func Dump(w io.Writer, bytes []byte) {
	perline := 0x10
	ascii := ""
	for i, v := range bytes {
		if i%perline == 0 {
			if i > 0 {
				fmt.Fprintln(w, " "+ascii)
			}
			ascii = ""
			fmt.Fprintf(w, "%.4X:", i)
		}
		c := v & 0x7f
		if c >= 32 && c < 127 {
			ascii += string(rune(c))
		} else {
			ascii += "."
		}
		fmt.Fprintf(w, " %.2X", v)
	}
	fmt.Fprintln(w, " "+ascii)
}
