package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"

	"github.com/dmaytorres/trackvault/internal/constants"
)

func EnsureDir(path string) error {
	return os.MkdirAll(path, constants.DirPermissions)
}

func CreateFile(path string) (*os.File, error) {
	return os.Create(path)
}

// PublishFile atomically moves a finished temp file to its final path.
// Both must live on the same filesystem for the rename to be atomic.
func PublishFile(tmpPath, finalPath string) error {
	return os.Rename(tmpPath, finalPath)
}

func RemoveFile(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func HashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
