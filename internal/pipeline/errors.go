package pipeline

import (
	"errors"
	"fmt"
)

// Error definitions for the pipeline package.
var (
	ErrEmptyInput           = errors.New("empty input")
	ErrSynthesis            = errors.New("speech synthesis failed")
	ErrInvalidConfiguration = errors.New("invalid encoder configuration")
	ErrEncoding             = errors.New("encoding failed")
	ErrAssemblerSealed      = errors.New("assembler no longer accepts segments")
)

// EmptyInputError is returned when a request yields no narration units.
type EmptyInputError struct {
	Reason string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s: %s", ErrEmptyInput, e.Reason)
}

func (e *EmptyInputError) Is(target error) bool {
	return target == ErrEmptyInput
}

// SynthesisError is a per-unit capability failure.
type SynthesisError struct {
	Err   error
	Text  string
	Index int
	Line  int
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("unit %d (line %d): %s: %v", e.Index+1, e.Line, ErrSynthesis, e.Err)
}

func (e *SynthesisError) Unwrap() error {
	return e.Err
}

func (e *SynthesisError) Is(target error) bool {
	return target == ErrSynthesis
}

// InvalidConfigurationError rejects encoder parameters.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConfiguration, e.Field, e.Reason)
}

func (e *InvalidConfigurationError) Is(target error) bool {
	return target == ErrInvalidConfiguration
}

// EncodingError wraps an encoder failure. No artifact accompanies it.
type EncodingError struct {
	Err    error
	Format string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("%s (%s): %v", ErrEncoding, e.Format, e.Err)
}

func (e *EncodingError) Unwrap() error {
	return e.Err
}

func (e *EncodingError) Is(target error) bool {
	return target == ErrEncoding
}
