package checkpoint

import (
	"io/ioutil"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
)

// fileSystem is the file system abstraction used to persist a checkpoint
// blob, so tests can substitute an in-memory filesystem instead of
// touching disk.
type fileSystem interface {
	WriteFile(name string, data []byte, perm os.FileMode) error
	ReadFile(name string) ([]byte, error)
	Rename(oldname, newname string) error
	Remove(name string) error
	MkdirAll(dir string, perm os.FileMode) error
}

// DefaultFileSystem is a fileSystem implementation backed by the operating system.
var DefaultFileSystem fileSystem = osFileSystem{}

type osFileSystem struct{}

func (osFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return ioutil.WriteFile(name, data, perm)
}

func (osFileSystem) ReadFile(name string) ([]byte, error) {
	return ioutil.ReadFile(name)
}

func (osFileSystem) Rename(oldname, newname string) error {
	return os.Rename(oldname, newname)
}

func (osFileSystem) Remove(name string) error {
	return os.Remove(name)
}

func (osFileSystem) MkdirAll(dir string, perm os.FileMode) error {
	return os.MkdirAll(dir, perm)
}

// Store persists the undo request manager's serialized blob across
// restarts. The blob itself is opaque to this package, exactly as it is
// opaque to the manager: Store's only job is to get it onto disk without
// leaving a half-written file behind after a crash.
type Store struct {
	fs   fileSystem
	path string
}

// NewStore returns a Store that reads and writes the checkpoint at path.
func NewStore(path string) *Store {
	return &Store{fs: DefaultFileSystem, path: path}
}

// Write atomically replaces the checkpoint file's contents with blob: the
// new contents are written to a temporary file in the same directory, then
// renamed into place, so a crash mid-write can never leave a truncated
// checkpoint where the old one used to be.
func (s *Store) Write(blob []byte) error {
	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp := s.path + ".tmp"
	if err := s.fs.WriteFile(tmp, blob, 0644); err != nil {
		return err
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return err
	}

	log.WithFields(log.Fields{"path": s.path, "bytes": len(blob)}).Info("checkpoint: Write")
	return nil
}

// Read returns the checkpoint's current contents, or (nil, nil) if no
// checkpoint has ever been written.
func (s *Store) Read() ([]byte, error) {
	blob, err := s.fs.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return blob, nil
}
