package deps

import "strings"

const defaultFFmpeg = "ffmpeg"

// CheckFFmpeg reports whether the configured ffmpeg binary can be executed.
func CheckFFmpeg(configured string) Status {
	binary := strings.TrimSpace(configured)
	if binary == "" {
		binary = defaultFFmpeg
	}
	result := Status{
		Name:        "FFmpeg",
		Command:     binary,
		Description: "Required for audio extraction, normalization, and subtitle burn-in",
	}
	resolved, err := resolveBinary(binary)
	if err != nil {
		result.Detail = err.Error()
		return result
	}
	result.Command = resolved
	result.Available = true
	return result
}
