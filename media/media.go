// Package media provides file storage for uploaded video and snapshot assets.
package media

import (
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/videosurvey/backend/svcerr"
)

// Store is the contract the lifecycle and export services depend on. Save
// returns the stable path the asset is reachable under afterwards.
type Store interface {
	Save(data []byte, suggestedName string) (string, error)
	Exists(path string) bool
	Open(path string) (io.ReadCloser, error)
}

// DiskStore keeps assets under a base directory. Each saved file gets a fresh
// UUID prefix so concurrent uploads with the same suggested name never
// overwrite each other.
type DiskStore struct {
	base string
}

func NewDiskStore(base string) (*DiskStore, error) {
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, svcerr.Storage("create media dir", err)
	}
	return &DiskStore{base: base}, nil
}

func (s *DiskStore) Save(data []byte, suggestedName string) (string, error) {
	name := filepath.Base(filepath.Clean(suggestedName))
	if name == "." || name == string(filepath.Separator) {
		name = "upload"
	}
	path := filepath.Join(s.base, uuid.NewString()+"_"+name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", svcerr.Storage("save media file", err)
	}
	return path, nil
}

func (s *DiskStore) Exists(path string) bool {
	info, err := os.Stat(filepath.Clean(path))
	return err == nil && !info.IsDir()
}

func (s *DiskStore) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, svcerr.Storage("open media file", err)
	}
	return f, nil
}
