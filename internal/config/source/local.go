package source

import (
	"context"
	"fmt"
	"os"

	"github.com/ju4n97/storyreel/internal/config"
	"github.com/ju4n97/storyreel/internal/xfs"
)

// LocalDownloader resolves models that already live on disk. Paths that do
// not exist are passed through unchanged so that remote backends can use
// the value as a model name.
type LocalDownloader struct{}

// Download implements Downloader.
func (d *LocalDownloader) Download(_ context.Context, modelConfig *config.ModelConfig, _ string) (string, bool, error) {
	source, err := modelConfig.GetSource()
	if err != nil {
		return "", false, fmt.Errorf("failed to get model source: %w", err)
	}

	local, ok := source.(config.LocalSource)
	if !ok {
		return "", false, fmt.Errorf("invalid source type: %T", source)
	}

	path := xfs.ExpandTilde(local.Path)
	if _, err := os.Stat(path); err != nil {
		return path, false, nil
	}

	return path, true, nil
}
