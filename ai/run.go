package ai

import (
	"Painter/core"
	"context"
	"fmt"
)

type Result struct {
	ModelId string
	JobId   string
	Paths   []string
}

// Run performs one generation: ResolveModel, Submit, Poll, Persist.
// Nothing is retried; the first failing step ends the run.
func Run(ctx context.Context, gen core.Generator, req core.GenerationRequest, dir string) (*Result, error) {
	modelId, err := gen.ResolveModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving model: %w", err)
	}

	jobId, err := gen.Submit(ctx, req, modelId)
	if err != nil {
		return nil, fmt.Errorf("submitting job: %w", err)
	}

	images, err := gen.Poll(ctx, jobId)
	if err != nil {
		return nil, fmt.Errorf("polling job %s: %w", jobId, err)
	}

	paths, err := gen.Persist(images, dir)
	if err != nil {
		return nil, fmt.Errorf("persisting job %s: %w", jobId, err)
	}
	if len(paths) == 0 {
		return nil, &Error{Kind: KindEmptyResult, Op: "persist"}
	}

	return &Result{ModelId: modelId, JobId: jobId, Paths: paths}, nil
}
