// Package output writes generated feature files, transcripts and run records
// to disk.
package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/longkey1/bddgen/internal/llm"
	"github.com/pkg/errors"
)

const (
	gherkinFence = "```gherkin"
	closingFence = "```"
)

// StripGherkinFence removes a leading ```gherkin marker and the closing
// fence. Text without the marker is returned unchanged.
func StripGherkinFence(text string) string {
	if !strings.HasPrefix(text, gherkinFence) {
		return text
	}
	text = strings.TrimPrefix(text, gherkinFence)
	if trimmed := strings.TrimRight(text, " \t\r\n"); strings.HasSuffix(trimmed, closingFence) {
		text = strings.TrimSuffix(trimmed, closingFence)
	}
	return text
}

// EnsureDir creates the output directory if it doesn't exist
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create output directory")
	}
	return nil
}

// WriteResult writes content to dir/name and returns the written path
func WriteResult(dir, name, content string) (string, error) {
	if err := EnsureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return "", errors.Wrap(err, "failed to write output file")
	}
	return path, nil
}

// TranscriptFileName returns the file name of the i-th transcript message
func TranscriptFileName(i int) string {
	return fmt.Sprintf("msg%d.txt", i)
}

// WriteTranscript writes every message content to its own msgN.txt file,
// numbered from zero in transcript order.
func WriteTranscript(dir string, messages []llm.Message) ([]string, error) {
	paths := make([]string, 0, len(messages))
	for i, msg := range messages {
		path, err := WriteResult(dir, TranscriptFileName(i), msg.Content)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}
