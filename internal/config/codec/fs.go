package codec

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/dshills/cfgdoc/internal/config/document"
)

// FileSystem is an abstraction for file system operations.
// This allows for easy testing with in-memory file systems.
type FileSystem interface {
	// ReadFile reads the entire file at path.
	ReadFile(path string) ([]byte, error)
	// WriteFile writes data to path, creating or truncating it.
	WriteFile(path string, data []byte) error
	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)
}

// OSFS implements FileSystem using the real OS file system.
type OSFS struct{}

// ReadFile reads the entire file at path.
func (OSFS) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to path, creating parent directories as needed.
func (OSFS) WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}

// Stat returns file info for path.
func (OSFS) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// DefaultFS returns the default file system (OS).
func DefaultFS() FileSystem {
	return OSFS{}
}

// MemFS is an in-memory FileSystem.
type MemFS struct {
	mu    sync.RWMutex
	files map[string]memFile
}

type memFile struct {
	data    []byte
	modTime time.Time
}

// NewMemFS creates an empty in-memory file system.
func NewMemFS() *MemFS {
	return &MemFS{files: make(map[string]memFile)}
}

// AddFile stores content at path.
func (m *MemFS) AddFile(path, content string) {
	m.WriteFile(path, []byte(content))
}

// ReadFile returns a copy of the file at path.
func (m *MemFS) ReadFile(path string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, &fs.PathError{Op: "read", Path: path, Err: fs.ErrNotExist}
	}
	return slices.Clone(f.data), nil
}

// WriteFile stores a copy of data at path.
func (m *MemFS) WriteFile(path string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[filepath.Clean(path)] = memFile{data: slices.Clone(data), modTime: time.Now()}
	return nil
}

// Stat returns file info for path.
func (m *MemFS) Stat(path string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[filepath.Clean(path)]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
	}
	return memFileInfo{name: filepath.Base(path), size: int64(len(f.data)), modTime: f.modTime}, nil
}

// Paths returns the stored paths in sorted order.
func (m *MemFS) Paths() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.files))
	for p := range m.files {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

type memFileInfo struct {
	name    string
	size    int64
	modTime time.Time
}

func (f memFileInfo) Name() string       { return f.name }
func (f memFileInfo) Size() int64        { return f.size }
func (f memFileInfo) Mode() fs.FileMode  { return 0o644 }
func (f memFileInfo) ModTime() time.Time { return f.modTime }
func (f memFileInfo) IsDir() bool        { return false }
func (f memFileInfo) Sys() any           { return nil }

var (
	_ FileSystem = OSFS{}
	_ FileSystem = (*MemFS)(nil)
)

// LoadFile reads path from fsys and decodes it with c.
func LoadFile(fsys FileSystem, path string, c Codec) (*document.Document, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	doc, err := c.Decode(data)
	if err != nil {
		return nil, withPath(err, path)
	}
	return doc, nil
}

// SaveFile encodes doc with c and writes it to path on fsys.
func SaveFile(fsys FileSystem, path string, c Codec, doc *document.Document) error {
	data, err := c.Encode(doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", c.Format(), err)
	}
	if err := fsys.WriteFile(path, data); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Read decodes everything read from r.
func Read(r io.Reader, c Codec) (*document.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading %s input: %w", c.Format(), err)
	}
	return c.Decode(data)
}

// Write encodes doc and writes it to w.
func Write(w io.Writer, c Codec, doc *document.Document) error {
	data, err := c.Encode(doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", c.Format(), err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing %s output: %w", c.Format(), err)
	}
	return nil
}
