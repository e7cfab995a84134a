package disk

import (
	"bytes"
	"fmt"
)

// 6-and-2 translate table. Every entry has the high bit set, at most one
// pair of adjacent zero bits and is neither $AA nor $D5.
var NIBBLE_62 = [64]byte{
	0x96, 0x97, 0x9a, 0x9b, 0x9d, 0x9e, 0x9f, 0xa6,
	0xa7, 0xab, 0xac, 0xad, 0xae, 0xaf, 0xb2, 0xb3,
	0xb4, 0xb5, 0xb6, 0xb7, 0xb9, 0xba, 0xbb, 0xbc,
	0xbd, 0xbe, 0xbf, 0xcb, 0xcd, 0xce, 0xcf, 0xd3,
	0xd6, 0xd7, 0xd9, 0xda, 0xdb, 0xdc, 0xdd, 0xde,
	0xdf, 0xe5, 0xe6, 0xe7, 0xe9, 0xea, 0xeb, 0xec,
	0xed, 0xee, 0xef, 0xf2, 0xf3, 0xf4, 0xf5, 0xf6,
	0xf7, 0xf9, 0xfa, 0xfb, 0xfc, 0xfd, 0xfe, 0xff}

const NIBBLE_BASE = 0x96

const invalidNibble = 0xff

var denibble62 [0x100 - NIBBLE_BASE]byte

func init() {
	for i := range denibble62 {
		denibble62[i] = invalidNibble
	}
	for i, v := range NIBBLE_62 {
		denibble62[v-NIBBLE_BASE] = byte(i)
	}
}

// Denibble maps a disk byte back to its 6-bit value. Anything outside the
// translate table is reported as not ok.
func Denibble(b byte) (byte, bool) {
	if b < NIBBLE_BASE {
		return 0, false
	}
	v := denibble62[b-NIBBLE_BASE]
	return v, v != invalidNibble
}

var ADDRESS_PROLOG = []byte{0xd5, 0xaa, 0x96}
var DATA_PROLOG = []byte{0xd5, 0xaa, 0xad}
var EPILOG = []byte{0xde, 0xaa, 0xeb}

const SYNC_BYTE = 0xff

const (
	GAP1_LENGTH        = 0x80
	GAP2_LENGTH        = 0x05
	GAP3_LENGTH        = 0x26
	GAP3_TRACK0_LENGTH = 0x28
)

const (
	SECONDARY_NIBBLES    = 0x56
	DATA_NIBBLES         = 0x156
	PAYLOAD_LENGTH       = DATA_NIBBLES + 1
	ADDRESS_FIELD_LENGTH = 3 + 8 + 3
	DATA_FIELD_LENGTH    = 3 + PAYLOAD_LENGTH + 3
)

func FourAndFour(v byte) (byte, byte) {
	return ((v & 0xaa) >> 1) | 0xaa, (v & 0x55) | 0xaa
}

func DeFourAndFour(hi, lo byte) byte {
	return ((hi << 1) | 1) & lo
}

// GapLength is the run of sync bytes written ahead of the address field of a
// physical sector.
func GapLength(track, sector int) int {
	switch {
	case sector == 0:
		return GAP1_LENGTH
	case track == 0:
		return GAP3_TRACK0_LENGTH
	}
	return GAP3_LENGTH
}

func writeSync(output *bytes.Buffer, count int) {
	for i := 0; i < count; i++ {
		output.WriteByte(SYNC_BYTE)
	}
}

func AddressField(volume, track, sector byte) []byte {
	output := bytes.NewBuffer(make([]byte, 0, ADDRESS_FIELD_LENGTH))
	output.Write(ADDRESS_PROLOG)
	for _, v := range []byte{volume, track, sector, volume ^ track ^ sector} {
		hi, lo := FourAndFour(v)
		output.WriteByte(hi)
		output.WriteByte(lo)
	}
	output.Write(EPILOG)
	return output.Bytes()
}

func swapLow2(b byte) byte {
	return (b&1)<<1 | (b&2)>>1
}

// prenibble splits a sector into 86 secondary values (three bit-swapped low
// pairs each) followed by 256 primary values (the high six bits).
func prenibble(data []byte) [DATA_NIBBLES]byte {
	var sector [STD_BYTES_PER_SECTOR]byte
	copy(sector[:], data)

	var n [DATA_NIBBLES]byte
	for i := 0; i < SECONDARY_NIBBLES; i++ {
		n[i] = swapLow2(sector[i]) |
			swapLow2(sector[i+SECONDARY_NIBBLES])<<2 |
			swapLow2(sector[(i+2*SECONDARY_NIBBLES)&0xff])<<4
	}
	for i := 0; i < STD_BYTES_PER_SECTOR; i++ {
		n[SECONDARY_NIBBLES+i] = sector[i] >> 2
	}
	return n
}

// DataPayload returns the 343 translated nibbles of a data field: the chained
// 6-and-2 values followed by the checksum. Short sectors are zero padded.
func DataPayload(data []byte) []byte {
	out := make([]byte, 0, PAYLOAD_LENGTH)
	var last byte
	for _, v := range prenibble(data) {
		out = append(out, NIBBLE_62[v^last])
		last = v
	}
	return append(out, NIBBLE_62[last])
}

func DataField(data []byte) []byte {
	output := bytes.NewBuffer(make([]byte, 0, DATA_FIELD_LENGTH))
	output.Write(DATA_PROLOG)
	output.Write(DataPayload(data))
	output.Write(EPILOG)
	return output.Bytes()
}

// EncodeSector builds one complete physical sector: leading gap, address
// field, gap 2, data field and a single trailing sync byte.
func EncodeSector(volume, track, sector byte, data []byte) []byte {
	output := bytes.NewBuffer(nil)
	writeSync(output, GapLength(int(track), int(sector)))
	output.Write(AddressField(volume, track, sector))
	writeSync(output, GAP2_LENGTH)
	output.Write(DataField(data))
	output.WriteByte(SYNC_BYTE)
	return output.Bytes()
}

// DecodeDataField reverses DataPayload. nibbles must hold at least
// PAYLOAD_LENGTH bytes starting just after the data prolog.
func DecodeDataField(nibbles []byte) ([]byte, error) {
	if len(nibbles) < PAYLOAD_LENGTH {
		return nil, fmt.Errorf("%w: short data field (%d bytes)", ErrInvalidNibble, len(nibbles))
	}

	var raw [DATA_NIBBLES]byte
	var last byte
	for i := 0; i < DATA_NIBBLES; i++ {
		v, ok := Denibble(nibbles[i])
		if !ok {
			return nil, fmt.Errorf("%w: $%.2X at %d", ErrInvalidNibble, nibbles[i], i)
		}
		last ^= v
		raw[i] = last
	}

	sum, ok := Denibble(nibbles[DATA_NIBBLES])
	if !ok {
		return nil, fmt.Errorf("%w: $%.2X at %d", ErrInvalidNibble, nibbles[DATA_NIBBLES], DATA_NIBBLES)
	}
	if sum != last {
		return nil, fmt.Errorf("%w: got $%.2X want $%.2X", ErrDataChecksum, sum, last)
	}

	data := make([]byte, STD_BYTES_PER_SECTOR)
	for i := range data {
		low := raw[i%SECONDARY_NIBBLES] >> (2 * uint(i/SECONDARY_NIBBLES)) & 3
		data[i] = raw[SECONDARY_NIBBLES+i]<<2 | swapLow2(low)
	}
	return data, nil
}
