// Package config holds resolved operator configuration for a veil process.
// Values come from env vars (VEIL_*) or veil.config.yaml via viper; loading
// has no filesystem side effects; directory creation is an explicit call.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Viper keys. Each maps to an env var with the VEIL_ prefix
// (e.g. "model_path" → VEIL_MODEL_PATH) and to a YAML field in
// veil.config.yaml.
const (
	KeyDataDir    = "data_dir"
	KeyModelPath  = "model_path"
	KeyCorpusPath = "corpus_path"
	KeyPort       = "port"
	KeyStripHTML  = "strip_html"
	KeyAPIKeys    = "api_keys"
)

const (
	DefaultPort = 8000
)

// Config is immutable after Load and passed to constructors explicitly.
type Config struct {
	DataDir    string // base directory for all state (~/.veil)
	ModelPath  string // trained model artifact root
	CorpusPath string // training corpus JSON file
	Port       int    // HTTP server port
	StripHTML  bool   // sanitize markup out of corpus records
	APIKeys    string // comma-separated API keys for the server (optional)
}

// Load resolves configuration from viper (env + optional config file) with
// defaults rooted under the data directory.
func Load() (*Config, error) {
	dataDir := viper.GetString(KeyDataDir)
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolving home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".veil")
	}

	modelPath := viper.GetString(KeyModelPath)
	if modelPath == "" {
		modelPath = filepath.Join(dataDir, "models", "pii")
	}
	corpusPath := viper.GetString(KeyCorpusPath)
	if corpusPath == "" {
		corpusPath = filepath.Join(dataDir, "data", "pii_corpus.json")
	}

	port := viper.GetInt(KeyPort)
	if port == 0 {
		port = DefaultPort
	}

	return &Config{
		DataDir:    dataDir,
		ModelPath:  modelPath,
		CorpusPath: corpusPath,
		Port:       port,
		StripHTML:  viper.GetBool(KeyStripHTML),
		APIKeys:    viper.GetString(KeyAPIKeys),
	}, nil
}

// EnsureDataDir creates the data directory tree if missing.
func (c *Config) EnsureDataDir() error {
	for _, dir := range []string{c.DataDir, filepath.Dir(c.CorpusPath), c.ModelPath} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

// DatasetDBPath returns the full path to the training-example SQLite database.
func (c *Config) DatasetDBPath() string {
	return filepath.Join(c.DataDir, "dataset.db")
}
