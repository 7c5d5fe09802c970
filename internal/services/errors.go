package services

import "errors"

var (
	// ErrUnknownUser marks operations referencing a chat that never set a
	// goal. Benign in scheduler context, a "register first" prompt in
	// command context.
	ErrUnknownUser = errors.New("unknown user")

	// ErrAmountOutOfRange and ErrGoalOutOfRange are validation failures
	// surfaced back to the triggering interaction; they never reach the
	// scheduler.
	ErrAmountOutOfRange = errors.New("amount out of range")
	ErrGoalOutOfRange   = errors.New("goal out of range")
	ErrInvalidCategory  = errors.New("invalid intake category")

	// ErrRecipientUnreachable is wrapped by the transport when the chat
	// platform reports the recipient is permanently gone (blocked or
	// deleted). The scheduler reacts by deleting the profile.
	ErrRecipientUnreachable = errors.New("recipient unreachable")
)
