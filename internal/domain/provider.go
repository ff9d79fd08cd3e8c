package domain

import (
	"context"
	"time"
)

// PipelineAPI is the port for the request/response half of the pipeline server.
// The real-time half lives in the channel package.
type PipelineAPI interface {
	FetchSteps(ctx context.Context) ([]PipelineStep, error)
	StartPipeline(ctx context.Context, repo Repository) error
	SendChatMessage(ctx context.Context, message string, at time.Time) (string, error)
}
