// Package upload handles uploaded pictures: decoding, thumbnailing to a
// 150x150 bounding box, and storing them under a random hex filename so
// concurrent uploads never collide. Files are written before the
// referencing DB row is committed; ReapOrphans sweeps files that lost
// that race.
package upload

import (
	"errors"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfnt/resize"

	"github.com/skywatch/drone-investigations/internal/utils"
)

// Thumbnail bounding box, matching the profile/drone picture slots in
// the dashboard UI.
const (
	MaxWidth  = 150
	MaxHeight = 150
)

// ErrUnsupportedType is returned for uploads that are not jpg/jpeg/png.
var ErrUnsupportedType = errors.New("unsupported picture type")

// Save decodes the uploaded picture, scales it down to fit the 150x150
// bounding box and writes it into dir under a fresh random filename
// keeping the original extension. It returns the generated filename to
// be stored as the picture reference.
func Save(dir, originalName string, src io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	switch ext {
	case ".jpg", ".jpeg", ".png":
	default:
		return "", ErrUnsupportedType
	}

	img, _, err := image.Decode(src)
	if err != nil {
		return "", ErrUnsupportedType
	}
	thumb := resize.Thumbnail(MaxWidth, MaxHeight, img, resize.Lanczos3)

	token, err := utils.RandomHex(8)
	if err != nil {
		return "", err
	}
	name := token + ext

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", err
	}
	defer f.Close()

	switch ext {
	case ".png":
		err = png.Encode(f, thumb)
	default:
		err = jpeg.Encode(f, thumb, &jpeg.Options{Quality: 85})
	}
	if err != nil {
		return "", err
	}
	return name, nil
}

// ReapOrphans removes files in dir that are not referenced by any row.
// The upload flow writes the file first and commits the DB reference
// second, so a failed commit can leave a file behind; this sweep runs
// at startup to clean those up. Sentinel default images are never
// touched. Returns the number of files removed.
func ReapOrphans(dir string, referenced []string) (int, error) {
	live := make(map[string]bool, len(referenced))
	for _, ref := range referenced {
		live[ref] = true
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if live[name] || strings.HasPrefix(name, "default-") {
			continue
		}
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
