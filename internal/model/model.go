package model

import (
	"sync"
	"time"

	"github.com/ju4n97/storyreel/internal/config"
)

// ModelType is the type of a model.
type ModelType string

const (
	// ModelTypeLLM is the type of a large language model.
	ModelTypeLLM ModelType = "llm"

	// ModelTypeSTT is the type of a speech-to-text model.
	ModelTypeSTT ModelType = "stt"

	// ModelTypeTTS is the type of a text-to-speech model.
	ModelTypeTTS ModelType = "tts"
)

// ModelStatus is the current loading status of a model.
type ModelStatus string

const (
	// ModelStatusUnloaded indicates that the model is not loaded.
	ModelStatusUnloaded ModelStatus = "unloaded"

	// ModelStatusLoading indicates that the model is being loaded.
	ModelStatusLoading ModelStatus = "loading"

	// ModelStatusLoaded indicates that the model is loaded.
	ModelStatusLoaded ModelStatus = "loaded"

	// ModelStatusFailed indicates that the model failed to load.
	ModelStatusFailed ModelStatus = "failed"
)

// ModelInstance represents a model profile in the cache.
type ModelInstance struct {
	Config   *config.ModelConfig
	LoadedAt *time.Time
	ID       string
	Path     string
	Status   ModelStatus
	Error    string

	mu   sync.RWMutex
	load sync.Mutex
}

// Info is a point-in-time copy of a model instance, safe to serialize.
type Info struct {
	LoadedAt *time.Time  `json:"loaded_at,omitempty"`
	ID       string      `json:"id"`
	Type     string      `json:"type"`
	Backend  string      `json:"backend"`
	Status   ModelStatus `json:"status"`
	Error    string      `json:"error,omitempty"`
}

// NewModelInstance creates a new model instance.
func NewModelInstance(cfg *config.ModelConfig, id, path string) *ModelInstance {
	return &ModelInstance{
		ID:     id,
		Path:   path,
		Config: cfg,
		Status: ModelStatusUnloaded,
	}
}

// SetStatus sets the status of the model instance.
func (mi *ModelInstance) SetStatus(status ModelStatus) {
	mi.mu.Lock()
	defer mi.mu.Unlock()

	mi.Status = status
	if status == ModelStatusLoaded {
		now := time.Now()
		mi.LoadedAt = &now
		mi.Error = ""
	}
	if status == ModelStatusUnloaded {
		mi.LoadedAt = nil
	}
}

// SetError marks the model instance as failed with err.
func (mi *ModelInstance) SetError(err error) {
	mi.mu.Lock()
	defer mi.mu.Unlock()

	mi.Status = ModelStatusFailed
	mi.Error = err.Error()
}

// SetPath records the resolved on-disk model path.
func (mi *ModelInstance) SetPath(path string) {
	mi.mu.Lock()
	defer mi.mu.Unlock()

	mi.Path = path
}

// ResolvedPath returns the model path.
func (mi *ModelInstance) ResolvedPath() string {
	mi.mu.RLock()
	defer mi.mu.RUnlock()

	return mi.Path
}

// CurrentStatus returns the current status.
func (mi *ModelInstance) CurrentStatus() ModelStatus {
	mi.mu.RLock()
	defer mi.mu.RUnlock()

	return mi.Status
}

// Info returns a snapshot of the instance.
func (mi *ModelInstance) Info() Info {
	mi.mu.RLock()
	defer mi.mu.RUnlock()

	info := Info{
		ID:       mi.ID,
		Status:   mi.Status,
		Error:    mi.Error,
		LoadedAt: mi.LoadedAt,
	}
	if mi.Config != nil {
		info.Type = mi.Config.Type
		info.Backend = mi.Config.Backend
	}

	return info
}
