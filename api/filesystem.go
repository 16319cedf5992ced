// File: api/filesystem.go
// Author: momentics <momentics@gmail.com>

package api

import "io"

// File is an opened regular file whose size is known without reading it.
type File interface {
	io.ReadCloser
	Size() int64
}

// FileSystem opens files for the dispatcher. Open returns an error wrapping
// ErrNotFound when the path does not exist.
type FileSystem interface {
	Open(path string) (File, error)
}
