package conversation

import (
	"fmt"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// ErrFileAccess matches every *FileAccessError.
var ErrFileAccess = errors.New("file access error")

// FileAccessError is returned when an input file is missing or unreadable.
type FileAccessError struct {
	Path string
	Err  error
}

func (e *FileAccessError) Error() string {
	return fmt.Sprintf("cannot read %s: %v", e.Path, e.Err)
}

func (e *FileAccessError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrFileAccess.
func (e *FileAccessError) Is(target error) bool {
	return target == ErrFileAccess
}

// ReadFile returns the whole file as text, unmodified.
func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &FileAccessError{Path: path, Err: err}
	}
	return string(data), nil
}

// ReadFileTrimmed returns the file as text with surrounding whitespace removed.
func ReadFileTrimmed(path string) (string, error) {
	content, err := ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}
