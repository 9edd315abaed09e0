// Package builder validates templates, materializes them into a live
// workspace and extracts templates back out of one.
package builder

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Use errors.Is to tell them apart.
var (
	ErrTemplateInvalid     = errors.New("template invalid")
	ErrUnresolvedReference = errors.New("unresolved role reference")
	ErrResourceCreation    = errors.New("resource creation failed")
)

// InvalidError reports a template rejected by Validate.
type InvalidError struct {
	Reason string
}

func (e *InvalidError) Error() string {
	return fmt.Sprintf("template invalid: %s", e.Reason)
}

func (e *InvalidError) Is(target error) bool { return target == ErrTemplateInvalid }

// UnresolvedReferenceError reports an overwrite whose role reference
// matches no role in the template.
type UnresolvedReferenceError struct {
	RoleRef  string
	Category string
	Channel  string
}

func (e *UnresolvedReferenceError) Error() string {
	return fmt.Sprintf("channel %s/%s: unresolved role reference %q", e.Category, e.Channel, e.RoleRef)
}

func (e *UnresolvedReferenceError) Is(target error) bool { return target == ErrUnresolvedReference }

// CreationError reports a create call the workspace rejected.
type CreationError struct {
	Kind string // role, category, text or voice
	Name string
	Err  error
}

func (e *CreationError) Error() string {
	return fmt.Sprintf("create %s %q: %v", e.Kind, e.Name, e.Err)
}

func (e *CreationError) Unwrap() error { return e.Err }

func (e *CreationError) Is(target error) bool { return target == ErrResourceCreation }
