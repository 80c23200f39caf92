package reporter

import (
	"encoding/json"
	"errors"
	"os"

	"github.com/KushagraWadhwaShorthillsAI/weaviate-pt-v2/internal/metrics"
)

// JSONFile writes the run summary to a JSON file.
type JSONFile struct {
	path string
}

// NewJSONFile creates a JSON file reporter.
func NewJSONFile(path string) (*JSONFile, error) {
	if path == "" {
		return nil, errors.New("json reporter requires a path")
	}
	return &JSONFile{path: path}, nil
}

// Name implements Reporter.
func (j *JSONFile) Name() string { return "json" }

// Report implements Reporter.
func (j *JSONFile) Report(s *metrics.Summary) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(j.path, append(data, '\n'), 0o644)
}
