package drive

import (
	"fmt"

	"github.com/paleotronic/diskii/disk"
)

// sectorOrder maps logical sectors for this disk. Nibble images carry no
// ordering, so their sectors are addressed physically.
func (d *Drive) sectorOrder() []int {
	if order := d.format.SectorOrder(); order != nil {
		return order
	}
	return disk.LINEAR_SECTOR_ORDER
}

func (d *Drive) checkTrackSector(track, sector int) error {
	if track < 0 || track >= d.trackCount() {
		return fmt.Errorf("%w: track %d of %d", ErrTrackRange, track, d.trackCount())
	}
	if sector < 0 || sector >= disk.STD_SECTORS_PER_TRACK {
		return fmt.Errorf("%w: sector %d", ErrSectorRange, sector)
	}
	return nil
}

// ReadSector searches the raw track for a logical sector and decodes it.
//
// The search starts wherever the head was left by earlier accesses and the
// head is left where the search stopped, so which copy of a duplicated
// sector is found depends on history. A sector that cannot be found is not
// an error: the result is nil, as it would be for the real RWTS.
func (d *Drive) ReadSector(track, sector int) ([]byte, error) {
	if err := d.checkTrackSector(track, sector); err != nil {
		return nil, err
	}

	buf := d.store.tracks
	if track >= len(buf) {
		return nil, nil
	}

	physical := disk.PhysicalSector(d.sectorOrder(), sector)
	data, end := disk.ScanSector(buf[track], d.head, track, physical)
	d.head = d.store.wrap(d.Track(), end)

	return data, nil
}

// WriteSector re-encodes the data field of an existing sector in place.
func (d *Drive) WriteSector(track, sector int, data []byte) error {
	if err := d.checkTrackSector(track, sector); err != nil {
		return err
	}
	if len(data) != disk.STD_BYTES_PER_SECTOR {
		return fmt.Errorf("%w: got %d", ErrSectorSize, len(data))
	}
	if d.readOnly {
		return ErrWriteProtected
	}

	buf, err := d.store.Track(track)
	if err != nil {
		return fmt.Errorf("%w: track %d", disk.ErrSectorNotFound, track)
	}

	physical := disk.PhysicalSector(d.sectorOrder(), sector)
	at, end, ok := disk.LocateSector(buf, d.head, track, physical)
	if !ok {
		return fmt.Errorf("%w: track %d sector %d", disk.ErrSectorNotFound, track, sector)
	}

	for i, v := range disk.DataPayload(data) {
		d.store.Put(track, at+i, v)
	}
	d.head = d.store.wrap(d.Track(), end)
	d.setDirty(true)

	return nil
}
