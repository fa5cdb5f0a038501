// Package services defines the business logic for identity resolution and
// the paged history/stats views. This file centralizes common service-level
// error values so that they can be consistently returned by service methods
// and checked by callers.
//
// These errors are intended for internal use by the service layer; turning
// them into user-facing notices is the bot layer's job.
package services

import "errors"

var (
	// ErrUserNotFound indicates that the acting user is missing from the
	// store mid-flow. It should not normally occur since users are created
	// on first contact.
	ErrUserNotFound = errors.New("user not found")
)
