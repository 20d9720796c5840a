package pipeline

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/codebuildervaibhav/media-relay/internal/registry"
	"github.com/codebuildervaibhav/media-relay/internal/storage"
	"github.com/codebuildervaibhav/media-relay/internal/types"
)

// Extractor opens a byte stream for a source media id.
type Extractor interface {
	Open(ctx context.Context, id string) (io.ReadCloser, error)
}

// Converter transcodes a fully written input file into the target profile.
type Converter interface {
	Convert(ctx context.Context, inputPath, outputPath string, profile types.Profile) error
}

// History records completed conversions.
type History interface {
	RecordConversion(jobID, title, link string, elapsed time.Duration) error
}

// Pipeline drives one claimed job from Pending to Ready or Failed: source
// stream -> staging file -> conversion -> public artifact.
type Pipeline struct {
	registry  *registry.Registry
	extractor Extractor
	converter Converter
	layout    *storage.Layout
	history   History
	profile   types.Profile

	downloadTimeout time.Duration
	convertTimeout  time.Duration
}

// New wires a pipeline. history may be nil to skip the durable trail.
func New(
	reg *registry.Registry,
	extractor Extractor,
	converter Converter,
	layout *storage.Layout,
	history History,
	profile types.Profile,
	downloadTimeout, convertTimeout time.Duration,
) *Pipeline {
	return &Pipeline{
		registry:        reg,
		extractor:       extractor,
		converter:       converter,
		layout:          layout,
		history:         history,
		profile:         profile,
		downloadTimeout: downloadTimeout,
		convertTimeout:  convertTimeout,
	}
}

// Run executes the fetch-transcode pipeline for a job. It must be called
// exactly once per id, by the caller that received created == true from
// ClaimOrJoin. Failures land on the job; Run never returns an error.
func (p *Pipeline) Run(ctx context.Context, id string) {
	start := time.Now()
	stagingPath := p.layout.StagingPath(id)
	outputPath := p.layout.OutputPath(id)

	if err := p.registry.MarkDownloading(id); err != nil {
		log.Printf("INVARIANT VIOLATION: job %s cannot enter downloading: %v", id, err)
		return
	}

	if err := p.download(ctx, id, stagingPath); err != nil {
		log.Printf("Job %s: download failed: %v", id, err)
		p.fail(id, &types.FetchError{Err: err})
		p.discard(stagingPath)
		return
	}

	// The staging file is flushed and closed at this point; conversion never
	// sees a file still being written.
	if err := p.registry.MarkConverting(id); err != nil {
		log.Printf("INVARIANT VIOLATION: job %s cannot enter converting: %v", id, err)
		p.discard(stagingPath)
		return
	}

	if err := p.convert(ctx, stagingPath, outputPath); err != nil {
		log.Printf("Job %s: conversion failed: %v", id, err)
		p.fail(id, &types.ConversionError{Err: err})
		p.discard(stagingPath)
		p.discard(outputPath)
		return
	}

	link := p.layout.Link(id)
	if err := p.registry.Complete(id, link); err != nil {
		log.Printf("INVARIANT VIOLATION: job %s cannot complete: %v", id, err)
		return
	}
	p.discard(stagingPath)

	if p.history != nil {
		if snap, ok := p.registry.Lookup(id); ok {
			if err := p.history.RecordConversion(id, snap.Title, link, time.Since(start)); err != nil {
				log.Printf("Job %s: history record failed: %v", id, err)
			}
		}
	}

	log.Printf("Job %s ready after %s (%s)", id, time.Since(start).Round(time.Millisecond), link)
}

// download streams the source into the staging file and guarantees the file
// is flushed and closed before returning nil.
func (p *Pipeline) download(ctx context.Context, id, stagingPath string) error {
	if p.downloadTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.downloadTimeout)
		defer cancel()
	}

	stream, err := p.extractor.Open(ctx, id)
	if err != nil {
		return fmt.Errorf("open source stream: %v", err)
	}

	file, err := os.Create(stagingPath)
	if err != nil {
		stream.Close()
		return fmt.Errorf("create staging file: %v", err)
	}

	_, copyErr := io.Copy(file, stream)
	streamErr := stream.Close()
	var syncErr error
	if copyErr == nil && streamErr == nil {
		syncErr = file.Sync()
	}
	closeErr := file.Close()

	switch {
	case copyErr != nil:
		return fmt.Errorf("copy source stream: %v", copyErr)
	case streamErr != nil:
		return streamErr
	case syncErr != nil:
		return fmt.Errorf("sync staging file: %v", syncErr)
	case closeErr != nil:
		return fmt.Errorf("close staging file: %v", closeErr)
	}
	return nil
}

func (p *Pipeline) convert(ctx context.Context, stagingPath, outputPath string) error {
	if p.convertTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.convertTimeout)
		defer cancel()
	}
	return p.converter.Convert(ctx, stagingPath, outputPath, p.profile)
}

func (p *Pipeline) fail(id string, cause error) {
	if err := p.registry.Fail(id, cause); err != nil {
		log.Printf("INVARIANT VIOLATION: job %s cannot fail: %v", id, err)
	}
}

// discard removes a staging or partial output artifact. A truncated staging
// file must never survive to be mistaken for valid input.
func (p *Pipeline) discard(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Failed to remove artifact %s: %v", path, err)
	}
}
