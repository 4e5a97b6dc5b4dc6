// Package model defines the trained-model boundary of the redaction engine:
// the opaque artifact handle, the Labeler used by the model-based detector,
// and the Trainer interface the training pipeline feeds. The lexicon trainer
// and labeler in this package are the built-in implementations; an external
// sequence labeler can be plugged in behind the same interfaces.
package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/veil-io/veil/internal/pii"
)

// ErrNoModel is returned by Load when no trained artifact exists at the
// given path. Callers degrade to rule-based detection on it.
var ErrNoModel = errors.New("no trained model artifact found")

const (
	metaFile    = "meta.json"
	lexiconFile = "lexicon.json"

	// trainedSubdir is where a training run leaves its final artifact;
	// Load probes it when the top-level directory has no meta file.
	trainedSubdir = "model-last"
)

// Meta describes a trained artifact.
type Meta struct {
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	Categories   []string  `json:"categories"`
	TrainedAt    time.Time `json:"trained_at"`
	ExampleCount int       `json:"example_count"`
}

// Handle is a validated reference to a trained model artifact on disk.
// It is read-only after Load.
type Handle struct {
	Dir  string
	Meta Meta
}

// Labeler assigns PII spans to text. Implementations must be safe for
// concurrent read-only use; the detector shares one instance across calls.
type Labeler interface {
	Label(text string) []pii.Span
}

// Trainer produces a model artifact from labeled examples. The training
// procedure itself is an external collaborator of the redaction core; this
// interface is its only contract.
type Trainer interface {
	Train(ctx context.Context, examples []pii.TrainingExample) (Handle, error)
}

// Load validates the artifact at path and returns a handle for it. The
// meta file is probed at path and then at path/model-last, mirroring the
// layout a training run produces. A missing artifact yields ErrNoModel; a
// present but unreadable one yields a parse error so the caller can warn
// before falling back to rules.
func Load(path string) (Handle, error) {
	if path == "" {
		return Handle{}, ErrNoModel
	}

	for _, dir := range []string{path, filepath.Join(path, trainedSubdir)} {
		metaPath := filepath.Join(dir, metaFile)
		data, err := os.ReadFile(metaPath)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return Handle{}, fmt.Errorf("reading model meta %s: %w", metaPath, err)
		}

		var meta Meta
		if err := json.Unmarshal(data, &meta); err != nil {
			return Handle{}, fmt.Errorf("parsing model meta %s: %w", metaPath, err)
		}
		if meta.Name == "" || len(meta.Categories) == 0 {
			return Handle{}, fmt.Errorf("model meta %s: missing name or categories", metaPath)
		}
		return Handle{Dir: dir, Meta: meta}, nil
	}

	return Handle{}, fmt.Errorf("%w at %s", ErrNoModel, path)
}
