package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os/exec"
)

// Info holds the metadata needed to label a job for a known video id.
type Info struct {
	Title string `json:"title"`
}

// YtDlpExtractor streams source media through a yt-dlp subprocess.
// Install: pip install yt-dlp
type YtDlpExtractor struct {
	binary string
}

// NewYtDlpExtractor creates an extractor invoking the given yt-dlp binary.
func NewYtDlpExtractor(binary string) *YtDlpExtractor {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YtDlpExtractor{binary: binary}
}

// Open starts a yt-dlp download for id and returns its stdout as a stream.
// Closing the returned reader waits for the process; a non-zero exit
// (including a mid-stream abort) surfaces as the Close error.
func (e *YtDlpExtractor) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	cmd := exec.CommandContext(ctx, e.binary,
		"-f", "bestaudio", // Audio-only stream
		"-o", "-", // Write to stdout
		"--no-progress",
		"--quiet",
		watchURL(id),
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("yt-dlp stdout pipe: %v", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("yt-dlp start: %v", err)
	}

	log.Printf("yt-dlp streaming started for %s", id)
	return &processStream{reader: stdout, cmd: cmd}, nil
}

// Info fetches the video title without downloading anything.
func (e *YtDlpExtractor) Info(ctx context.Context, id string) (Info, error) {
	cmd := exec.CommandContext(ctx, e.binary,
		"--dump-json",
		"--skip-download",
		watchURL(id),
	)

	output, err := cmd.Output()
	if err != nil {
		return Info{}, fmt.Errorf("yt-dlp info failed: %v", err)
	}

	var info Info
	if err := json.Unmarshal(output, &info); err != nil {
		return Info{}, fmt.Errorf("yt-dlp info parse: %v", err)
	}
	return info, nil
}

func watchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// processStream couples a subprocess stdout with the process itself so the
// exit status is not lost. Close drains nothing; callers must read to EOF
// before closing to get the full stream.
type processStream struct {
	reader io.ReadCloser
	cmd    *exec.Cmd
}

func (p *processStream) Read(b []byte) (int, error) {
	return p.reader.Read(b)
}

func (p *processStream) Close() error {
	p.reader.Close()
	if err := p.cmd.Wait(); err != nil {
		return fmt.Errorf("yt-dlp exited with error: %v", err)
	}
	return nil
}
