package pipeline

import (
	"context"
	"fmt"
	"path/filepath"

	"stratos/internal/logging"
	"stratos/internal/services"
	"stratos/internal/services/inference"
	"stratos/internal/staging"
)

// retimePipeline describes a normalize, infer, cleanup pipeline.
type retimePipeline struct {
	name      string
	operation string
	// optionKeys are consulted in order; the first is the canonical key.
	optionKeys   []string
	defaultValue float64
	outputSuffix string
	label        string
}

var (
	slowmotionPipeline = retimePipeline{
		name:         string(CommandSlowmotion),
		operation:    inference.OpSlowmo,
		optionKeys:   []string{"speed"},
		defaultValue: 0.5,
		outputSuffix: "-slowmo",
		label:        "slow motion",
	}
	fpsboostPipeline = retimePipeline{
		name:         string(CommandFPSBoost),
		operation:    inference.OpFPSBoost,
		optionKeys:   []string{"factor", "speed"},
		defaultValue: 2,
		outputSuffix: "-fpsboost",
		label:        "frame rate boost",
	}
)

func (o *Orchestrator) runRetime(ctx context.Context, r *run, p retimePipeline) (string, error) {
	value, err := r.cmd.Float(p.defaultValue, p.optionKeys...)
	if err != nil {
		return "", services.Wrap(services.ErrPreparationFailed, p.name, "options", "invalid option", err)
	}

	normalizedSuffix := ""
	if samePath(staging.ArtifactPath(r.dir, r.baseName, "", "mp4"), r.input.FilePath) {
		normalizedSuffix = "-normalized"
	}
	normalized, err := r.artifact(normalizedSuffix, "mp4")
	if err != nil {
		return "", services.Wrap(services.ErrPreparationFailed, p.name, "artifact_path", "", err)
	}
	expected, err := r.artifact(p.outputSuffix, "mp4")
	if err != nil {
		return "", services.Wrap(services.ErrPreparationFailed, p.name, "artifact_path", "", err)
	}

	r.logger.Info("preparing "+p.label,
		logging.String("input_file", r.input.FilePath),
		logging.Float64(p.optionKeys[0], value),
	)

	r.progress.Emit(ctx, 0.1, "Preparing video for processing...")
	if err := o.transcoder.Normalize(ctx, r.input.FilePath, normalized); err != nil {
		return "", services.Wrap(services.ErrPreparationFailed, p.name, "normalize",
			fmt.Sprintf("failed to prepare video for %s processing", p.label), err)
	}

	r.progress.Emit(ctx, 0.2, fmt.Sprintf("Starting %s...", p.label))
	result, err := o.inference.Run(ctx, inference.Request{
		Operation:      p.operation,
		InputPath:      normalized,
		Params:         []inference.Param{{Key: p.optionKeys[0], Value: formatNumber(value)}},
		ExpectedOutput: expected,
		ScratchDir:     r.dir,
	})
	if err != nil {
		return "", err
	}

	r.progress.Emit(ctx, 0.9, "Saving processed video...")
	_ = o.workspace.Remove(ctx, normalized)

	r.logger.Info(p.label+" video saved",
		logging.String("result_path", result.OutputPath),
		logging.Bool("confirmed", result.Confirmed),
	)
	return result.OutputPath, nil
}

func samePath(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return absA == absB
}
