package model

import (
	"encoding/gob"
	"io"
	"os"
	"path/filepath"

	"github.com/ezoic/tasador/pkg/errors"
)

// SaveModel writes m to path using encoding/gob.
//
// The file is written to a temporary sibling first and renamed into place, so
// readers never observe a partially written artifact.
//
// Example:
//
//	if err := model.SaveModel(artifact, "modelo.gob"); err != nil {
//	    return err
//	}
func SaveModel(m interface{}, path string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrapf(err, "create directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "create temporary file in %s", dir)
	}
	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := SaveModelToWriter(m, tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "close %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "rename to %s", path)
	}
	return nil
}

// SaveModelToWriter gob-encodes m to w.
func SaveModelToWriter(m interface{}, w io.Writer) error {
	if m == nil {
		return errors.NewValueError("SaveModel", "model cannot be nil")
	}
	if err := gob.NewEncoder(w).Encode(m); err != nil {
		return errors.Wrap(err, "encode model")
	}
	return nil
}

// LoadModel decodes the gob file at path into m, which must be a pointer.
// A missing file yields an error matching errors.ErrNotFound.
func LoadModel(m interface{}, path string) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.Wrapf(errors.ErrNotFound, "model file %s", path)
		}
		return errors.Wrapf(err, "open model file %s", path)
	}
	defer func() { _ = f.Close() }()

	return LoadModelFromReader(m, f)
}

// LoadModelFromReader gob-decodes from r into m.
func LoadModelFromReader(m interface{}, r io.Reader) error {
	if m == nil {
		return errors.NewValueError("LoadModel", "target cannot be nil")
	}
	if err := gob.NewDecoder(r).Decode(m); err != nil {
		return errors.Wrap(err, "decode model")
	}
	return nil
}
