package model

import "errors"

// Error definitions for the model package.
var (
	ErrModelNotFound   = errors.New("model not found in registry")
	ErrModelLoadFailed = errors.New("model failed to load")
	ErrManagerClosed   = errors.New("model manager is closed")
)
