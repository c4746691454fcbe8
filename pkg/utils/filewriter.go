package utils

import (
	"errors"
	"io/fs"
	"os"
)

type Writer interface {
	Write(p []byte) (n int, err error)
	Close() error
}

// FileManager is the slice of the filesystem the exporters write through.
type FileManager interface {
	Create(name string) (Writer, error)
	MkdirAll(path string, perm os.FileMode) error
	Exists(name string) (bool, error)
}

type OSFileManager struct{}

func (OSFileManager) Create(name string) (Writer, error) {
	return os.Create(name)
}

func (OSFileManager) MkdirAll(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm)
}

func (OSFileManager) Exists(name string) (bool, error) {
	_, err := os.Stat(name)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}
