package output

import (
	"os"
	"path/filepath"
	"time"

	"github.com/longkey1/bddgen/internal/llm"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// RecordFileName is the name of the run metadata file
const RecordFileName = "run.yaml"

// Record describes one generation run
type Record struct {
	RunID       string        `yaml:"run_id"`
	Profile     string        `yaml:"profile,omitempty"`
	Provider    string        `yaml:"provider"`
	Model       string        `yaml:"model"`
	Layout      string        `yaml:"layout"`
	Temperature *float32      `yaml:"temperature,omitempty"`
	Seed        *int          `yaml:"seed,omitempty"`
	Attempts    int           `yaml:"attempts"`
	Usage       llm.Usage     `yaml:"usage"`
	StartedAt   time.Time     `yaml:"started_at"`
	Duration    time.Duration `yaml:"duration"`
	OutputPath  string        `yaml:"output_path,omitempty"`
	Transcript  []string      `yaml:"transcript,omitempty"`
	Error       string        `yaml:"error,omitempty"`
}

// WriteRecord writes rec as dir/run.yaml
func WriteRecord(dir string, rec *Record) (string, error) {
	data, err := yaml.Marshal(rec)
	if err != nil {
		return "", errors.Wrap(err, "failed to encode run record")
	}
	return WriteResult(dir, RecordFileName, string(data))
}

// ReadRecord loads a run record from disk
func ReadRecord(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read run record")
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrapf(err, "failed to parse run record %s", filepath.Base(path))
	}
	return &rec, nil
}
