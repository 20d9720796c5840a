package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// Layout fixes where artifacts for a job live on disk and how the final one
// is addressed over HTTP. Paths are keyed by job id so concurrent pipelines
// never collide.
type Layout struct {
	stagingDir string
	publicDir  string
	outputExt  string
}

// NewLayout creates the staging and public directories if needed.
func NewLayout(stagingDir, publicDir, outputFormat string) (*Layout, error) {
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %v", err)
	}
	if err := os.MkdirAll(publicDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create public directory: %v", err)
	}
	return &Layout{
		stagingDir: stagingDir,
		publicDir:  publicDir,
		outputExt:  "." + outputFormat,
	}, nil
}

// StagingPath is where the raw source stream for id is written.
func (l *Layout) StagingPath(id string) string {
	return filepath.Join(l.stagingDir, id+".source")
}

// OutputPath is where the converted artifact for id is written.
func (l *Layout) OutputPath(id string) string {
	return filepath.Join(l.publicDir, id+l.outputExt)
}

// Link is the public URL path of the converted artifact for id.
func (l *Layout) Link(id string) string {
	return "/site/" + id + l.outputExt
}

// StagingDir exposes the staging directory for the cleanup scheduler.
func (l *Layout) StagingDir() string {
	return l.stagingDir
}

// PublicDir exposes the directory served as /site.
func (l *Layout) PublicDir() string {
	return l.publicDir
}
