package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/ju4n97/storyreel/internal/backend"
	"github.com/ju4n97/storyreel/internal/model"
)

// Error definitions for the service package.
var (
	ErrWrongModelType   = errors.New("model has the wrong type for this service")
	ErrBackendMismatch  = errors.New("model is not served by the requested backend")
	ErrNoModelAvailable = errors.New("no model assigned to this service")
)

// runner resolves a backend and a cached model and runs one inference.
type runner struct {
	backends *backend.Registry
	models   *model.Manager
}

// infer runs req on the backend serving modelID. provider may be empty, in
// which case the model's configured backend is used.
func (r *runner) infer(
	ctx context.Context,
	modelType model.ModelType,
	provider backend.BackendProvider,
	modelID string,
	input io.Reader,
	params map[string]any,
) (*backend.Response, error) {
	if modelID == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoModelAvailable, modelType)
	}

	m, err := r.models.Acquire(ctx, modelID)
	if err != nil {
		return nil, err
	}

	if m.Config.Type != string(modelType) {
		return nil, fmt.Errorf("%w: %s is %q, want %q", ErrWrongModelType, modelID, m.Config.Type, modelType)
	}

	configured := backend.BackendProvider(m.Config.Backend)
	if provider == "" {
		provider = configured
	}
	if provider != configured {
		return nil, fmt.Errorf("%w: %s uses %s, not %s", ErrBackendMismatch, modelID, configured, provider)
	}

	b, ok := r.backends.Get(provider)
	if !ok {
		return nil, fmt.Errorf("%w: %s", backend.ErrBackendNotFound, provider)
	}

	path := m.ResolvedPath()
	if locator, ok := b.(backend.ModelLocator); ok {
		path, err = locator.ResolveModelPath(path)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve model path for %s: %w", modelID, err)
		}
	}

	return b.Infer(ctx, &backend.Request{
		ModelPath:  path,
		Input:      input,
		Parameters: params,
	})
}

func readOutput(resp *backend.Response) ([]byte, error) {
	if resp == nil || resp.Output == nil {
		return nil, fmt.Errorf("backend returned no output")
	}

	data, err := io.ReadAll(resp.Output)
	if err != nil {
		return nil, fmt.Errorf("failed to read backend output: %w", err)
	}

	return data, nil
}
