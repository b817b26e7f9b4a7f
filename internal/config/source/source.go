package source

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/ju4n97/storyreel/internal/config"
)

// ErrUnsupportedSource is returned when no downloader exists for a source type.
var ErrUnsupportedSource = errors.New("unsupported model source")

// Downloader fetches a model into the models directory. It returns the
// resolved model path and whether it was already present.
type Downloader interface {
	Download(ctx context.Context, modelConfig *config.ModelConfig, targetDir string) (string, bool, error)
}

// GetDownloader returns the downloader for the given source type.
func GetDownloader(_ context.Context, sourceType config.SourceType) (Downloader, error) {
	switch sourceType {
	case config.SourceTypeHuggingFace:
		return &HuggingFaceDownloader{}, nil
	case config.SourceTypeLocal:
		return &LocalDownloader{}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSource, sourceType)
	}
}

// EnsureModelsDirectory creates the models directory if it does not exist.
func EnsureModelsDirectory(path string) error {
	if path == "" {
		return errors.New("models directory is empty")
	}

	return os.MkdirAll(path, 0o755)
}
