// Author: momentics <momentics@gmail.com>

package fake

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/momentics/hioload-http/api"
)

// FileSystem is an in-memory api.FileSystem.
type FileSystem struct {
	mu     sync.Mutex
	files  map[string][]byte
	errs   map[string]error
	opened []string
}

// NewFileSystem creates an empty filesystem.
func NewFileSystem() *FileSystem {
	return &FileSystem{
		files: make(map[string][]byte),
		errs:  make(map[string]error),
	}
}

// AddFile registers content under an absolute path.
func (f *FileSystem) AddFile(path string, content []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.files[path] = content
}

// AddError makes Open(path) fail with err.
func (f *FileSystem) AddError(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs[path] = err
}

// Open implements api.FileSystem.
func (f *FileSystem) Open(path string) (api.File, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, path)
	if err, ok := f.errs[path]; ok {
		return nil, err
	}
	content, ok := f.files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, api.ErrNotFound)
	}
	return &File{Reader: bytes.NewReader(content)}, nil
}

// Opened lists every path passed to Open, in call order.
func (f *FileSystem) Opened() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.opened...)
}

// File is an in-memory api.File.
type File struct {
	*bytes.Reader
	closed bool
}

func (f *File) Close() error {
	f.closed = true
	return nil
}

// Closed reports whether Close ran.
func (f *File) Closed() bool { return f.closed }
