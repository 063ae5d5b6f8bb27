// Copyright 2025 The placehold authors.
// SPDX-License-Identifier: Apache-2.0

package placehold

import (
	"fmt"
	"os"

	"github.com/spf13/afero"
)

// Registry provides named access to base image bytes.  Registries are
// read-only during request handling and must be safe for concurrent use.
type Registry interface {
	// Contains reports whether a base image is registered under name.
	Contains(name string) bool

	// Load returns the stored bytes for name.  It returns an error
	// wrapping ErrUnknownImage if name is not registered.
	Load(name string) ([]byte, error)
}

// fsRegistry serves base images from the root of an afero filesystem.
type fsRegistry struct {
	fs afero.Fs
}

// NewDirRegistry returns a Registry serving the image files directly inside
// dir.
func NewDirRegistry(dir string) Registry {
	return &fsRegistry{fs: afero.NewBasePathFs(afero.NewOsFs(), dir)}
}

// NewFsRegistry returns a Registry serving image files from the root of
// fsys.  Handy for tests with an in-memory filesystem.
func NewFsRegistry(fsys afero.Fs) Registry {
	return &fsRegistry{fs: fsys}
}

func (r *fsRegistry) Contains(name string) bool {
	fi, err := r.fs.Stat(name)
	return err == nil && !fi.IsDir()
}

func (r *fsRegistry) Load(name string) ([]byte, error) {
	b, err := afero.ReadFile(r.fs, name)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownImage, name)
		}
		return nil, fmt.Errorf("reading image %q: %w", name, err)
	}
	return b, nil
}
