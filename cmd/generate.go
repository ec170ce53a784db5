package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cheahjs/replicate-image-bundler/internal/archive"
	"github.com/cheahjs/replicate-image-bundler/internal/params"
	"github.com/cheahjs/replicate-image-bundler/internal/pipeline"
)

var (
	input      = params.Defaults()
	outputPath string
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run a single generation and write the archive to disk",
	RunE:  generateCommand,
}

func init() {
	f := generateCmd.Flags()
	f.StringVarP(&input.Prompt, "prompt", "p", input.Prompt, "Prompt text")
	f.StringVarP(&input.NegativePrompt, "negative-prompt", "n", input.NegativePrompt, "Negative prompt text")
	f.IntVar(&input.Width, "width", input.Width, "Image width in pixels")
	f.IntVar(&input.Height, "height", input.Height, "Image height in pixels")
	f.IntVar(&input.NumOutputs, "num-outputs", input.NumOutputs, "Number of images to generate (1-2)")
	f.StringVar(&input.Scheduler, "scheduler", input.Scheduler, "Denoising scheduler")
	f.IntVar(&input.NumInferenceSteps, "steps", input.NumInferenceSteps, "Denoising steps (1-8)")
	f.Float64Var(&input.GuidanceScale, "guidance-scale", input.GuidanceScale, "Classifier-free guidance scale (0-7)")
	f.Float64Var(&input.PromptStrength, "prompt-strength", input.PromptStrength, "Prompt strength (0-1)")
	f.StringVar(&input.Refine, "refine", input.Refine, "Refinement style (None or expert_ensemble_refiner)")
	f.Float64Var(&input.HighNoiseFrac, "high-noise-frac", input.HighNoiseFrac, "High noise fraction for the refiner (0-1)")
	f.StringVarP(&outputPath, "output", "o", archive.FileName, "Path to write the zip archive to")
}

func generateCommand(cmd *cobra.Command, args []string) error {
	orchestrator, err := newOrchestrator(pipeline.WithObserver(func(runID string, state pipeline.State) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", runID, state)
	}))
	if err != nil {
		return err
	}

	result, err := orchestrator.Run(cmd.Context(), input)
	if err != nil {
		return err
	}

	for _, failure := range result.Diagnostics {
		log.Warn().
			Int("image", failure.Index+1).
			Str("locator", failure.Locator).
			Msg(failure.Error())
	}

	if err := os.WriteFile(outputPath, result.Archive.Data, 0644); err != nil {
		return fmt.Errorf("failed to write archive: %w", err)
	}

	log.Info().
		Str("run_id", result.RunID).
		Str("path", outputPath).
		Int("images", len(result.Archive.Entries)).
		Int("failed", len(result.Diagnostics)).
		Dur("duration", result.Duration).
		Msg("Archive written")
	return nil
}
