package model

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"reflect"
	"sync"

	"github.com/ju4n97/storyreel/internal/config"
	"github.com/ju4n97/storyreel/internal/config/source"
	"github.com/ju4n97/storyreel/internal/envvar"
	"github.com/ju4n97/storyreel/internal/xfs"
)

// DownloaderFunc resolves the downloader for a model source type.
type DownloaderFunc func(ctx context.Context, sourceType config.SourceType) (source.Downloader, error)

// Manager is the process-wide model cache. Models are registered from the
// config and fetched lazily on first Acquire.
type Manager struct {
	registry   *Registry
	downloader DownloaderFunc
	modelsPath string
	mu         sync.RWMutex
	closed     bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDownloaderFunc replaces the source downloader lookup.
func WithDownloaderFunc(fn DownloaderFunc) ManagerOption {
	return func(m *Manager) {
		m.downloader = fn
	}
}

// NewManager creates a new Manager.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		registry:   NewRegistry(),
		downloader: source.GetDownloader,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Registry returns the model registry.
func (m *Manager) Registry() *Registry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.registry
}

// LoadModelsFromConfig registers every assigned model. Instances whose
// config did not change keep their loaded state; models that are no longer
// assigned are removed.
func (m *Manager) LoadModelsFromConfig(_ context.Context, cfg *config.Config) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}

	modelsPath := resolveModelsPath(cfg)
	if err := source.EnsureModelsDirectory(modelsPath); err != nil {
		return fmt.Errorf("failed to prepare models directory %s: %w", modelsPath, err)
	}
	m.modelsPath = modelsPath

	assigned := cfg.AssignedModels()
	for modelID := range assigned {
		modelConfig, ok := cfg.Models[modelID]
		if !ok {
			slog.Warn("Model not found in config", "model_id", modelID)
			continue
		}

		if existing, ok := m.registry.Get(modelID); ok && reflect.DeepEqual(existing.Config, &modelConfig) {
			continue
		}

		m.registry.Set(NewModelInstance(&modelConfig, modelID, ""))
		slog.Info("Model registered", "model_id", modelID, "backend", modelConfig.Backend)
	}

	for _, instance := range m.registry.List() {
		if !assigned[instance.ID] {
			m.registry.Delete(instance.ID)
			slog.Info("Model unregistered", "model_id", instance.ID)
		}
	}

	return nil
}

// Acquire returns the model with the given ID, fetching it on first use.
// Concurrent callers for the same model wait for a single fetch.
func (m *Manager) Acquire(ctx context.Context, id string) (*ModelInstance, error) {
	m.mu.RLock()
	closed := m.closed
	modelsPath := m.modelsPath
	instance, ok := m.registry.Get(id)
	m.mu.RUnlock()

	if closed {
		return nil, ErrManagerClosed
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, id)
	}

	instance.load.Lock()
	defer instance.load.Unlock()

	if instance.CurrentStatus() == ModelStatusLoaded {
		return instance, nil
	}

	instance.SetStatus(ModelStatusLoading)

	path, err := m.fetch(ctx, instance, modelsPath)
	if err != nil {
		instance.SetError(err)
		slog.Error("Failed to load model", "model_id", id, "error", err)
		return nil, fmt.Errorf("%w: %s: %w", ErrModelLoadFailed, id, err)
	}

	instance.SetPath(path)
	instance.SetStatus(ModelStatusLoaded)
	slog.Info("Model loaded into cache", "model_id", id, "path", path)

	return instance, nil
}

func (m *Manager) fetch(ctx context.Context, instance *ModelInstance, modelsPath string) (string, error) {
	modelSource, err := instance.Config.GetSource()
	if err != nil {
		return "", fmt.Errorf("failed to get model source: %w", err)
	}

	downloader, err := m.downloader(ctx, modelSource.Type())
	if err != nil {
		return "", fmt.Errorf("failed to get downloader: %w", err)
	}

	path, _, err := downloader.Download(ctx, instance.Config, modelsPath)
	if err != nil {
		return "", fmt.Errorf("failed to download model into %s: %w", modelsPath, err)
	}

	return path, nil
}

// Close tears the cache down. Further Acquire calls fail with ErrManagerClosed.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	for _, instance := range m.registry.List() {
		instance.SetStatus(ModelStatusUnloaded)
		m.registry.Delete(instance.ID)
	}

	slog.Info("Model cache closed")
	return nil
}

// resolveModelsPath returns the path to the models directory.
// Precedence:
// 1. STORYREEL_MODELS_PATH environment variable.
// 2. ModelsDir field in the config.
// 3. Default models path.
func resolveModelsPath(cfg *config.Config) string {
	if p := os.Getenv(envvar.StoryreelModelsPath); p != "" {
		return xfs.ExpandTilde(p)
	}
	if cfg.Storage.ModelsDir != "" {
		return xfs.ExpandTilde(cfg.Storage.ModelsDir)
	}
	return xfs.ExpandTilde(config.DefaultModelsPath())
}
