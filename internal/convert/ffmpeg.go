package convert

import (
	"context"
	"fmt"
	"log"
	"os/exec"

	"github.com/codebuildervaibhav/media-relay/internal/types"
)

// FFmpegConverter drives format conversion through an ffmpeg subprocess.
type FFmpegConverter struct {
	binary string
}

// NewFFmpegConverter creates a converter invoking the given ffmpeg binary.
func NewFFmpegConverter(binary string) *FFmpegConverter {
	if binary == "" {
		binary = "ffmpeg"
	}
	return &FFmpegConverter{binary: binary}
}

// Convert transcodes inputPath into outputPath with the target profile. The
// input file must be fully written before this is called.
func (c *FFmpegConverter) Convert(ctx context.Context, inputPath, outputPath string, profile types.Profile) error {
	cmd := exec.CommandContext(ctx, c.binary,
		"-i", inputPath,
		"-vn", // Strip video
		"-f", profile.Format,
		"-b:a", profile.Bitrate,
		"-y", // Overwrite output
		outputPath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg failed: %v\nOutput: %s", err, string(output))
	}

	log.Printf("Converted %s -> %s (%s @ %s)", inputPath, outputPath, profile.Format, profile.Bitrate)
	return nil
}
