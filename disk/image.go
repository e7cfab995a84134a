package disk

import (
	"bytes"
	"fmt"

	"github.com/paleotronic/diskii/loggy"
)

// Image is a disk ready to be inserted into a drive: one nibblized buffer
// per track plus the attributes carried by the image file.
type Image struct {
	Format   Format
	Volume   byte
	ReadOnly bool
	Tracks   [][]byte
}

// NewImage converts the bytes of an image file. Sector ordered images are
// nibblized, nibble images are split into tracks as they are and 2MG
// containers are unwrapped first; their header may override volume and set
// the write protect flag.
func NewImage(format Format, volume byte, data []byte) (*Image, error) {
	this := &Image{Format: format, Volume: volume}

	switch format {
	case Format2MG:
		h, payload, err := Split2MG(data)
		if err != nil {
			return nil, err
		}
		inner, err := h.GetFormat()
		if err != nil {
			return nil, err
		}
		if v, ok := h.GetVolume(); ok {
			volume = v
		}
		img, err := NewImage(inner, volume, payload)
		if err != nil {
			return nil, err
		}
		img.ReadOnly = h.IsLocked()
		loggy.Get(loggy.IMAGE).Debugf("2MG image by %q, version %d, %s inside", h.GetCreatorID(), h.GetVersion(), inner)
		return img, nil
	case FormatNibble:
		tracks, err := splitNibbles(data)
		if err != nil {
			return nil, err
		}
		this.Tracks = tracks
	case FormatDOS, FormatProDOS, FormatPhysical:
		tracks, err := Nibblize(format, volume, data)
		if err != nil {
			return nil, err
		}
		this.Tracks = tracks
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	return this, nil
}

func splitNibbles(data []byte) ([][]byte, error) {
	count := len(data) / TRACK_NIBBLE_LENGTH
	if len(data) == 0 || len(data)%TRACK_NIBBLE_LENGTH != 0 || count > MAX_TRACKS_PER_DISK {
		return nil, fmt.Errorf("%w: %d bytes for nibble image", ErrImageSize, len(data))
	}
	tracks := make([][]byte, count)
	for t := range tracks {
		tracks[t] = append([]byte(nil), data[t*TRACK_NIBBLE_LENGTH:(t+1)*TRACK_NIBBLE_LENGTH]...)
	}
	return tracks, nil
}

// Nibblize builds the raw tracks for a sector ordered image. Sectors are laid
// down in physical order, each one taken from the image sector the format's
// order table assigns to it.
func Nibblize(format Format, volume byte, data []byte) ([][]byte, error) {
	order := format.SectorOrder()
	if order == nil {
		return nil, fmt.Errorf("%w: %s is not sector ordered", ErrUnsupportedFormat, format)
	}

	count := len(data) / STD_TRACK_BYTES
	if len(data) == 0 || len(data)%STD_TRACK_BYTES != 0 || count > MAX_TRACKS_PER_DISK {
		return nil, fmt.Errorf("%w: %d bytes", ErrImageSize, len(data))
	}

	tracks := make([][]byte, count)
	for track := 0; track < count; track++ {
		output := bytes.NewBuffer(make([]byte, 0, TRACK_NIBBLE_LENGTH))
		for physical := 0; physical < STD_SECTORS_PER_TRACK; physical++ {
			offset := track*STD_TRACK_BYTES + order[physical]*STD_BYTES_PER_SECTOR
			output.Write(EncodeSector(volume, byte(track), byte(physical), data[offset:offset+STD_BYTES_PER_SECTOR]))
		}
		tracks[track] = output.Bytes()
	}

	return tracks, nil
}

// Denibblize reads every sector back out of raw tracks into a sector ordered
// image, using the same search as the drive's sector reads.
func Denibblize(format Format, tracks [][]byte) ([]byte, error) {
	order := format.SectorOrder()
	if order == nil {
		return nil, fmt.Errorf("%w: %s is not sector ordered", ErrUnsupportedFormat, format)
	}

	out := make([]byte, len(tracks)*STD_TRACK_BYTES)
	for track, buf := range tracks {
		for logical := 0; logical < STD_SECTORS_PER_TRACK; logical++ {
			data, _ := ScanSector(buf, 0, track, PhysicalSector(order, logical))
			if data == nil {
				return nil, fmt.Errorf("%w: track %d sector %d", ErrSectorNotFound, track, logical)
			}
			copy(out[track*STD_TRACK_BYTES+logical*STD_BYTES_PER_SECTOR:], data)
		}
	}
	return out, nil
}

// Encode renders the image as the bytes of an image file in format.
// Nibble output pads or truncates each track to TRACK_NIBBLE_LENGTH.
func (img *Image) Encode(format Format) ([]byte, error) {
	switch format {
	case Format2MG:
		inner := img.Format
		if inner != FormatProDOS && inner != FormatNibble {
			inner = FormatDOS
		}
		payload, err := img.Encode(inner)
		if err != nil {
			return nil, err
		}
		return Build2MG(inner, img.Volume, img.ReadOnly, payload)
	case FormatNibble:
		out := make([]byte, 0, len(img.Tracks)*TRACK_NIBBLE_LENGTH)
		for _, track := range img.Tracks {
			buf := make([]byte, TRACK_NIBBLE_LENGTH)
			n := copy(buf, track)
			for i := n; i < len(buf); i++ {
				buf[i] = SYNC_BYTE
			}
			out = append(out, buf...)
		}
		return out, nil
	case FormatDOS, FormatProDOS, FormatPhysical:
		return Denibblize(format, img.Tracks)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
}
