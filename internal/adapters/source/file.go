package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/selivandex/signal-intel/pkg/models"
)

// FileSource reads a JSON array of signals from a file on every collect.
// It is the minimal implementation for embedding and ops testing; real
// deployments plug in their own feed adapters.
type FileSource struct {
	path string
}

// NewFileSource creates new file-backed signal source
func NewFileSource(path string) *FileSource {
	return &FileSource{path: path}
}

func (f *FileSource) Name() string { return "file" }

// Collect reads and decodes the signal file. A missing file is an empty
// batch, not an error.
func (f *FileSource) Collect(_ context.Context) ([]models.Signal, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read signal file: %w", err)
	}

	var signals []models.Signal
	if err := json.Unmarshal(data, &signals); err != nil {
		return nil, fmt.Errorf("failed to decode signal file: %w", err)
	}
	return signals, nil
}
