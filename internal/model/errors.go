package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies load failures.
type ErrorKind int

const (
	FetchFailure ErrorKind = iota
	ParseFailure
	CompileFailure
	// UnsupportedFeature is never terminal; the feature is skipped.
	UnsupportedFeature
)

func (k ErrorKind) String() string {
	switch k {
	case FetchFailure:
		return "fetch failure"
	case ParseFailure:
		return "parse failure"
	case CompileFailure:
		return "compile failure"
	case UnsupportedFeature:
		return "unsupported feature"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Sentinels matched by LoadError.Is.
var (
	ErrFetch       = errors.New("model: fetch failed")
	ErrParse       = errors.New("model: parse failed")
	ErrCompile     = errors.New("model: compile failed")
	ErrUnsupported = errors.New("model: unsupported feature")

	// ErrDestroyed is returned by Update after Destroy.
	ErrDestroyed = errors.New("model: destroyed")
)

// LoadError is the error a failed model reports.
type LoadError struct {
	Kind ErrorKind
	// Resource names what failed: a URI, "technique 2", "texture 0".
	Resource string
	Err      error
}

func (e *LoadError) Error() string {
	if e.Resource == "" {
		return fmt.Sprintf("model: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("model: %s: %s: %v", e.Kind, e.Resource, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Is matches the sentinel of the error's kind.
func (e *LoadError) Is(target error) bool {
	switch target {
	case ErrFetch:
		return e.Kind == FetchFailure
	case ErrParse:
		return e.Kind == ParseFailure
	case ErrCompile:
		return e.Kind == CompileFailure
	case ErrUnsupported:
		return e.Kind == UnsupportedFeature
	}
	return false
}

func loadError(kind ErrorKind, resource string, err error) *LoadError {
	return &LoadError{Kind: kind, Resource: resource, Err: err}
}
