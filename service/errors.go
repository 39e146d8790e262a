package service

import "errors"

// Precondition failures. Commands that ran are never reported as errors;
// these mean the action was not attempted.
var (
	ErrUnknownAction = errors.New("unknown action")
	ErrNoDevice      = errors.New("no device selected")
	ErrMissingParam  = errors.New("missing parameter")
)
