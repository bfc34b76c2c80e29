package gitsync

import "errors"

var (
	// ErrUninitialized means the configured path is not a git working copy.
	ErrUninitialized = errors.New("not a git repository")

	// ErrManualInterventionRequired means neither rebase nor merge could reconcile
	// the branches. The working copy is left clean; conflicts are never resolved
	// automatically.
	ErrManualInterventionRequired = errors.New("manual intervention required")

	// ErrRemoteRejected wraps fetch and push failures, e.g. authentication or network errors.
	ErrRemoteRejected = errors.New("remote rejected operation")

	// ErrForceNotConfirmed is returned when a force push was not confirmed by the operator.
	ErrForceNotConfirmed = errors.New("force push not confirmed")

	// ErrUnknownStrategy is returned by ParseStrategy.
	ErrUnknownStrategy = errors.New("unknown sync strategy")
)
