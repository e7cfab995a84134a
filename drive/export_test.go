package drive

// Tracks exposes the live track buffers to tests.
func (d *Drive) Tracks() *TrackStore { return &d.store }
