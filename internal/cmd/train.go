package cmd

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/veil-io/veil/internal/config"
	"github.com/veil-io/veil/internal/dataset"
	"github.com/veil-io/veil/internal/model"
)

var (
	trainCorpus string
	trainOutput string
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Build the training dataset and train a new model",
	Long: `Train reads the corpus of (text, redacted_text) records, recovers exact
span labels by aligning each pair, stores the labeled examples in the
dataset database, and trains a model artifact from them.`,
	RunE: runTrain,
}

func init() {
	trainCmd.Flags().StringVar(&trainCorpus, "corpus", "", "path to training corpus JSON (default: configured corpus path)")
	trainCmd.Flags().StringVar(&trainOutput, "output", "", "directory for the trained model (default: configured model path)")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	corpusPath := trainCorpus
	if corpusPath == "" {
		corpusPath = cfg.CorpusPath
	}
	outputDir := trainOutput
	if outputDir == "" {
		outputDir = cfg.ModelPath
	}

	records, err := dataset.LoadCorpus(corpusPath)
	if err != nil {
		return fmt.Errorf("loading corpus: %w", err)
	}
	if cfg.StripHTML {
		records = dataset.StripHTML(records)
	}
	log.Info().Int("records", len(records)).Str("corpus", corpusPath).Msg("loaded training corpus")

	builder, err := dataset.NewBuilder()
	if err != nil {
		return fmt.Errorf("creating dataset builder: %w", err)
	}
	examples := builder.Build(ctx, records)

	store, err := dataset.NewStore(cfg.DatasetDBPath())
	if err != nil {
		return fmt.Errorf("opening dataset store: %w", err)
	}
	defer store.Close()
	stored, err := store.PutAll(ctx, examples)
	if err != nil {
		return fmt.Errorf("storing examples: %w", err)
	}
	log.Info().Int("examples", stored).Str("db", cfg.DatasetDBPath()).Msg("stored training examples")

	trainer := &model.LexiconTrainer{OutputDir: outputDir}
	handle, err := trainer.Train(ctx, examples)
	if err != nil {
		return fmt.Errorf("training model: %w", err)
	}

	log.Info().Str("model_dir", handle.Dir).Msg("model trained")
	return nil
}
