package util

import (
	"io"
	"io/fs"
	"os"

	"github.com/pkg/errors"
)

// ErrAssetNotFound is returned when a named asset does not exist.
var ErrAssetNotFound = errors.New("asset not found")

// AssetSource provides read access to model and label assets by name.
type AssetSource interface {
	Open(name string) (io.ReadCloser, error)
}

// FSSource serves assets from an fs.FS (a directory, an embed.FS, or a
// testing/fstest.MapFS).
type FSSource struct {
	fsys fs.FS
}

// NewFSSource wraps fsys as an AssetSource.
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// NewDirSource serves assets from a directory on disk.
//
// Arguments:
//   - dir: The directory holding the model and label files.
//
// Returns:
//   - *FSSource: The asset source.
//
// @example
// src := util.NewDirSource("./assets")
// rc, err := src.Open("labels.txt")
func NewDirSource(dir string) *FSSource {
	return NewFSSource(os.DirFS(dir))
}

// Open opens the named asset. Missing assets yield an error wrapping
// ErrAssetNotFound.
func (s *FSSource) Open(name string) (io.ReadCloser, error) {
	f, err := s.fsys.Open(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(ErrAssetNotFound, "%s", name)
		}
		return nil, errors.Wrapf(err, "opening asset %s", name)
	}
	return f, nil
}

// ReadAsset reads a whole asset into memory.
//
// Arguments:
//   - src: The asset source.
//   - name: The asset name.
//
// Returns:
//   - []byte: The asset contents.
//   - error: An error if the asset is missing or unreadable.
func ReadAsset(src AssetSource, name string) ([]byte, error) {
	rc, err := src.Open(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, errors.Wrapf(err, "reading asset %s", name)
	}
	return data, nil
}
