package disk

import (
	"encoding/binary"
	"fmt"
)

/*
	2MG container: a 64 byte preamble in front of DOS ordered, ProDOS ordered
	or nibble data.
*/

const PREAMBLE_2MG_SIZE = 0x40

var MAGIC_2MG = []byte{byte('2'), byte('I'), byte('M'), byte('G')}

const (
	FORMAT_2MG_DOS    = 0x00
	FORMAT_2MG_PRODOS = 0x01
	FORMAT_2MG_NIB    = 0x02
)

const (
	FLAG_2MG_LOCKED       = 0x80000000
	FLAG_2MG_VOLUME_VALID = 0x00000100
)

type Header2MG struct {
	Data [PREAMBLE_2MG_SIZE]byte
}

func (h *Header2MG) SetData(data []byte) {
	copy(h.Data[:], data)
}

func (h *Header2MG) word(at int) int {
	return int(binary.LittleEndian.Uint16(h.Data[at:]))
}

func (h *Header2MG) long(at int) int {
	return int(binary.LittleEndian.Uint32(h.Data[at:]))
}

func (h *Header2MG) GetID() string {
	return string(h.Data[0x00:0x04])
}

func (h *Header2MG) GetCreatorID() string {
	return string(h.Data[0x04:0x08])
}

func (h *Header2MG) GetHeaderSize() int {
	return h.word(0x08)
}

func (h *Header2MG) GetVersion() int {
	return h.word(0x0A)
}

func (h *Header2MG) GetImageFormat() int {
	return h.long(0x0C)
}

func (h *Header2MG) GetDOSFlags() int {
	return h.long(0x10)
}

func (h *Header2MG) GetProDOSBlocks() int {
	return h.long(0x14)
}

func (h *Header2MG) GetDiskDataStart() int {
	return h.long(0x18)
}

func (h *Header2MG) GetDiskDataLength() int {
	return h.long(0x1C)
}

func (h *Header2MG) IsLocked() bool {
	return h.GetDOSFlags()&FLAG_2MG_LOCKED != 0
}

// GetVolume returns the volume number and whether the header carries one.
func (h *Header2MG) GetVolume() (byte, bool) {
	flags := h.GetDOSFlags()
	return byte(flags & 0xff), flags&FLAG_2MG_VOLUME_VALID != 0
}

func (h *Header2MG) GetFormat() (Format, error) {
	switch h.GetImageFormat() {
	case FORMAT_2MG_DOS:
		return FormatDOS, nil
	case FORMAT_2MG_PRODOS:
		return FormatProDOS, nil
	case FORMAT_2MG_NIB:
		return FormatNibble, nil
	}
	return FormatNone, fmt.Errorf("%w: 2mg format selector %d", ErrUnsupportedFormat, h.GetImageFormat())
}

// Split2MG validates the preamble and returns it with the disk data it
// describes.
func Split2MG(data []byte) (*Header2MG, []byte, error) {
	if len(data) < PREAMBLE_2MG_SIZE {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrBadHeader, len(data))
	}

	h := &Header2MG{}
	h.SetData(data[:PREAMBLE_2MG_SIZE])

	if h.GetID() != string(MAGIC_2MG) {
		return nil, nil, fmt.Errorf("%w: magic %q", ErrBadHeader, h.GetID())
	}

	if hs := h.GetHeaderSize(); hs < PREAMBLE_2MG_SIZE || hs > len(data) {
		return nil, nil, fmt.Errorf("%w: header size %d", ErrBadHeader, hs)
	}

	start := h.GetDiskDataStart()
	size := h.GetDiskDataLength()
	if start < h.GetHeaderSize() || start > len(data) {
		return nil, nil, fmt.Errorf("%w: data offset %d", ErrBadHeader, start)
	}
	if size == 0 || start+size > len(data) {
		return nil, nil, fmt.Errorf("%w: data length %d at %d", ErrBadHeader, size, start)
	}

	return h, data[start : start+size], nil
}

// Build2MG wraps disk data in a 2MG preamble.
func Build2MG(format Format, volume byte, locked bool, payload []byte) ([]byte, error) {
	var selector int
	switch format {
	case FormatDOS:
		selector = FORMAT_2MG_DOS
	case FormatProDOS:
		selector = FORMAT_2MG_PRODOS
	case FormatNibble:
		selector = FORMAT_2MG_NIB
	default:
		return nil, fmt.Errorf("%w: %s in 2mg", ErrUnsupportedFormat, format)
	}

	h := &Header2MG{}
	copy(h.Data[0x00:], MAGIC_2MG)
	copy(h.Data[0x04:], "DSK2")
	binary.LittleEndian.PutUint16(h.Data[0x08:], PREAMBLE_2MG_SIZE)
	binary.LittleEndian.PutUint16(h.Data[0x0A:], 1)
	binary.LittleEndian.PutUint32(h.Data[0x0C:], uint32(selector))

	flags := uint32(FLAG_2MG_VOLUME_VALID) | uint32(volume)
	if locked {
		flags |= FLAG_2MG_LOCKED
	}
	binary.LittleEndian.PutUint32(h.Data[0x10:], flags)

	if format == FormatProDOS {
		binary.LittleEndian.PutUint32(h.Data[0x14:], uint32(len(payload)/512))
	}
	binary.LittleEndian.PutUint32(h.Data[0x18:], PREAMBLE_2MG_SIZE)
	binary.LittleEndian.PutUint32(h.Data[0x1C:], uint32(len(payload)))

	out := make([]byte, 0, PREAMBLE_2MG_SIZE+len(payload))
	out = append(out, h.Data[:]...)
	return append(out, payload...), nil
}
