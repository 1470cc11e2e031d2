// Package ports define contratos que conectam o domínio a implementações externas.
package ports

import (
	"context"

	"github.com/l4yercom/picknbrain/internal/core/domain"
)

// SceneProvider is the external AI collaborator. Both calls may be slow or
// fail; implementations wrap failures in domain.ErrUpstreamFailure and the
// core propagates them without retrying.
type SceneProvider interface {
	// GenerateScene renders an image for the prompt and returns it as
	// base64-encoded PNG data.
	GenerateScene(ctx context.Context, prompt string) (string, error)

	// AnalyzeScene inspects base64-encoded PNG data and produces a
	// question about the scene together with its canonical answer.
	AnalyzeScene(ctx context.Context, sceneData string) (domain.SceneReading, error)
}
