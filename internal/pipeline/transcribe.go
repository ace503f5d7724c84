package pipeline

import (
	"context"
	"fmt"

	"stratos/internal/fileutil"
	"stratos/internal/logging"
	"stratos/internal/services"
	"stratos/internal/services/inference"
)

// transcriptionCheckpoints are the progress values emitted before audio
// extraction, before the backend call, and after it returns.
type transcriptionCheckpoints struct {
	extract, infer, save float64
}

var (
	standaloneTranscription = transcriptionCheckpoints{extract: 0.1, infer: 0.2, save: 0.9}
	// Nested runs stop below the subtitle pipeline's 0.8 checkpoint.
	nestedTranscription = transcriptionCheckpoints{extract: 0.1, infer: 0.2, save: 0.7}
)

// runTranscription extracts a mono 16 kHz track, sends it to the backend, and
// returns the transcript path. On a backend failure it leaves a placeholder at
// the expected transcript path pointing at the retained audio file.
func (o *Orchestrator) runTranscription(ctx context.Context, r *run, language, format string, cp transcriptionCheckpoints) (string, error) {
	audioPath, err := r.artifact("-audio", "wav")
	if err != nil {
		return "", services.Wrap(services.ErrPreparationFailed, "transcribe", "artifact_path", "", err)
	}
	expected, err := r.artifact("-transcription", format)
	if err != nil {
		return "", services.Wrap(services.ErrPreparationFailed, "transcribe", "artifact_path", "", err)
	}

	r.logger.Info("preparing transcription",
		logging.String("input_file", r.input.FilePath),
		logging.String("language", language),
		logging.String("format", format),
	)

	r.progress.Emit(ctx, cp.extract, "Extracting audio from video...")
	if err := o.transcoder.ExtractAudio(ctx, r.input.FilePath, audioPath); err != nil {
		return "", services.Wrap(services.ErrPreparationFailed, "transcribe", "extract_audio",
			fmt.Sprintf("failed to extract audio from %s", r.input.FilePath), err)
	}

	r.progress.Emit(ctx, cp.infer, "Starting transcription...")
	result, err := o.inference.Run(ctx, inference.Request{
		Operation: inference.OpTranscribe,
		InputPath: audioPath,
		Params: []inference.Param{
			{Key: "language", Value: language},
			{Key: "format", Value: format},
		},
		ExpectedOutput: expected,
		ScratchDir:     r.dir,
	})
	if err != nil {
		o.writePlaceholder(ctx, r, expected, audioPath, err)
		return "", err
	}

	r.progress.Emit(ctx, cp.save, "Saving transcription...")
	_ = o.workspace.Remove(ctx, audioPath)

	r.logger.Info("transcription saved",
		logging.String("result_path", result.OutputPath),
		logging.Bool("confirmed", result.Confirmed),
	)
	return result.OutputPath, nil
}

func (o *Orchestrator) writePlaceholder(ctx context.Context, r *run, path, audioPath string, cause error) {
	name := r.input.FileName
	if name == "" {
		name = r.input.FilePath
	}
	body := fmt.Sprintf("Error transcribing %s: %v\n\nAudio file is available at %s\n", name, cause, audioPath)
	if err := fileutil.WriteFileAtomic(path, []byte(body), 0o644); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "failed to write transcription placeholder", "placeholder_write_failed",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check output_dir permissions"),
			logging.String(logging.FieldImpact, "no diagnostic file for the failed transcription"),
		)
		return
	}
	r.logger.Info("wrote transcription placeholder",
		logging.String("path", path),
		logging.String("audio_path", audioPath),
	)
}
