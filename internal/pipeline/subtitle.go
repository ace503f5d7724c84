package pipeline

import (
	"context"
	"path/filepath"
	"strings"

	"stratos/internal/logging"
	"stratos/internal/services"
)

// runSubtitle transcribes to SRT, converts it to an ASS overlay, and burns the
// overlay into the original input. Transcription failures keep their own kind;
// everything after them is a subtitle application failure.
func (o *Orchestrator) runSubtitle(ctx context.Context, r *run) (string, error) {
	language := r.cmd.String("language", "auto")
	format, err := r.cmd.Format("mp4")
	if err != nil {
		return "", services.Wrap(services.ErrPreparationFailed, "subtitle", "options", "invalid option", err)
	}
	resultPath, err := r.artifact("-subtitled", format)
	if err != nil {
		return "", services.Wrap(services.ErrPreparationFailed, "subtitle", "artifact_path", "", err)
	}

	srtPath, err := o.runTranscription(ctx, r, language, "srt", nestedTranscription)
	if err != nil {
		return "", err
	}

	overlay := strings.TrimSuffix(srtPath, filepath.Ext(srtPath)) + ".ass"

	r.progress.Emit(ctx, 0.8, "Applying subtitles to video...")
	if err := o.transcoder.SubtitleToASS(ctx, srtPath, overlay); err != nil {
		return "", services.Wrap(services.ErrSubtitleApplicationFailed, "subtitle", "convert_overlay",
			"failed to apply subtitles to video", err)
	}
	if err := o.transcoder.BurnSubtitles(ctx, r.input.FilePath, overlay, resultPath); err != nil {
		return "", services.Wrap(services.ErrSubtitleApplicationFailed, "subtitle", "burn_in",
			"failed to apply subtitles to video", err)
	}

	// Each failed removal is already logged by the workspace.
	_ = o.workspace.RemoveAll(ctx, srtPath, overlay)

	r.doneMessage = "Subtitles applied successfully"
	r.logger.Info("subtitles applied", logging.String("result_path", resultPath))
	return resultPath, nil
}
