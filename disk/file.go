package disk

import (
	"github.com/paleotronic/diskii/loggy"
	"github.com/spf13/afero"
)

// Open reads an image file, picking the format from its extension.
func Open(fs afero.Fs, path string) (*Image, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	return OpenFormat(fs, path, format)
}

// OpenFormat reads an image file as format regardless of its name.
func OpenFormat(fs afero.Fs, path string, format Format) (*Image, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}

	img, err := NewImage(format, DEFAULT_VOLUME, data)
	if err != nil {
		loggy.Get(loggy.IMAGE).Errorf("Loading %s failed: %s", path, err.Error())
		return nil, err
	}

	loggy.Get(loggy.IMAGE).Logf("Loaded %s as %s, volume %d, %d tracks, read only %v",
		path, img.Format, img.Volume, len(img.Tracks), img.ReadOnly)

	return img, nil
}

// Save writes the image in the format implied by path's extension.
func Save(fs afero.Fs, path string, img *Image) error {
	format, err := FormatForPath(path)
	if err != nil {
		return err
	}

	data, err := img.Encode(format)
	if err != nil {
		return err
	}

	if err := afero.WriteFile(fs, path, data, 0644); err != nil {
		return err
	}

	loggy.Get(loggy.IMAGE).Logf("Saved %s as %s (%d bytes)", path, format, len(data))
	return nil
}
