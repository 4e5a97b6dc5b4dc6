package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/veil-io/veil/internal/config"
	"github.com/veil-io/veil/internal/detect"
	"github.com/veil-io/veil/internal/service"
)

var (
	redactText   string
	redactFile   string
	redactOutput string
	redactModel  string
)

var redactCmd = &cobra.Command{
	Use:   "redact",
	Short: "Redact PII from text or a file",
	RunE:  runRedact,
}

func init() {
	redactCmd.Flags().StringVar(&redactText, "text", "", "text to redact")
	redactCmd.Flags().StringVar(&redactFile, "file", "", "file containing text to redact")
	redactCmd.Flags().StringVar(&redactOutput, "output", "", "output file for redacted text (default: stdout)")
	redactCmd.Flags().StringVar(&redactModel, "model", "", "path to a trained model (default: configured model path)")
	rootCmd.AddCommand(redactCmd)
}

func runRedact(cmd *cobra.Command, args []string) error {
	if redactText == "" && redactFile == "" {
		return fmt.Errorf("either --text or --file must be provided")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	modelPath := redactModel
	if modelPath == "" {
		modelPath = cfg.ModelPath
	}

	detector, err := detect.NewDetector(detect.WithModelPath(modelPath))
	if err != nil {
		return fmt.Errorf("building detector: %w", err)
	}
	svc := service.New(detector)

	text := redactText
	if redactFile != "" {
		data, err := os.ReadFile(redactFile)
		if err != nil {
			return fmt.Errorf("reading input file: %w", err)
		}
		text = string(data)
	}

	redacted, err := svc.Redact(cmd.Context(), text)
	if err != nil {
		return fmt.Errorf("redacting text: %w", err)
	}

	if redactOutput != "" {
		if err := os.WriteFile(redactOutput, []byte(redacted), 0o644); err != nil {
			return fmt.Errorf("writing output file: %w", err)
		}
		log.Info().Str("path", redactOutput).Msg("redacted text written")
		return nil
	}

	fmt.Println(redacted)
	return nil
}
