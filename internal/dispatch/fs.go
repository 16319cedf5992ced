// File: internal/dispatch/fs.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package dispatch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/momentics/hioload-http/api"
)

var errIsDirectory = errors.New("is a directory")

// OSFileSystem opens files from the local disk.
type OSFileSystem struct{}

var _ api.FileSystem = OSFileSystem{}

type osFile struct {
	*os.File
	size int64
}

func (f *osFile) Size() int64 { return f.size }

// Open opens path for reading and records its size. Missing files wrap
// api.ErrNotFound; directories and every other failure are returned as is.
func (OSFileSystem) Open(path string) (api.File, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", api.ErrNotFound, path)
		}
		return nil, err
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if st.IsDir() {
		f.Close()
		return nil, &fs.PathError{Op: "open", Path: path, Err: errIsDirectory}
	}
	return &osFile{File: f, size: st.Size()}, nil
}
