package engine

import "errors"

// Sentinel errors returned by the model registry's commit_* and create_*
// operations (spec §4.1). Every error wraps one of these via %w so callers
// can branch with errors.Is regardless of the specific message.
var (
	// ErrDuplicateTemplate indicates commit_* was called with a name
	// already registered.
	ErrDuplicateTemplate = errors.New("engine: duplicate template name")
	// ErrUnknownTemplate indicates a commit_* or create_* operation
	// referenced a name that has not been committed.
	ErrUnknownTemplate = errors.New("engine: unknown template")
	// ErrValidation indicates a committed template failed an internal
	// consistency check (e.g. a plan with no body, or a resource count
	// outside [min, max]).
	ErrValidation = errors.New("engine: validation error")
	// ErrNoRecipient indicates Engine.Pursue or Engine.Drop named an agent
	// id no agent or team is currently registered under.
	ErrNoRecipient = errors.New("engine: no recipient")
)
