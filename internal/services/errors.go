// Package services implements the request lifecycle, chat sessions, the
// skillpoints settlement, and user accounts. This file centralizes the
// service-level error values so that they can be returned consistently by
// service methods and checked by callers with errors.Is.
//
// Translation into HTTP status codes happens in the handler layer.
package services

import (
	"errors"
	"fmt"
)

// Validation errors.
var (
	// ErrInvalidInput reports missing or malformed fields (blank title,
	// subject, sender, text, unknown request type, empty actor id).
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidSkillpoints is returned when a request asks for a negative stake.
	ErrInvalidSkillpoints = errors.New("skillpoints must be a non-negative integer")

	// ErrSelfAccept is returned when the creator tries to accept their own request.
	ErrSelfAccept = errors.New("cannot accept your own request")
)

// Lookup errors.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrRequestNotFound = errors.New("request not found")
	ErrChatNotFound    = errors.New("chat not found")
)

// Transition errors.
var (
	// ErrAlreadyAccepted is returned by Accept when the request is no longer open.
	ErrAlreadyAccepted = errors.New("request already accepted")

	// ErrInvalidStatus is returned when a transition is not allowed from the
	// entity's current status.
	ErrInvalidStatus = errors.New("invalid status for this operation")

	// ErrForbidden is returned when the actor may not perform the transition.
	ErrForbidden = errors.New("forbidden")

	// ErrNotParticipant is returned when participant checks are enabled and
	// the sender is neither side of the chat.
	ErrNotParticipant = errors.New("sender is not a chat participant")
)

// Ledger errors.
var (
	// ErrInsufficientBalance is the sentinel matched by *InsufficientBalanceError.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrMissingParties is returned by settlement when a paid request lacks a
	// creator or accepter.
	ErrMissingParties = errors.New("missing creator or accepter for transfer")

	// ErrSameUser is returned by settlement when creator and accepter coincide.
	ErrSameUser = errors.New("creator and accepter are the same user")

	// ErrCreatorInsufficientFunds is returned when the guarded debit of the
	// creator fails at confirmation time.
	ErrCreatorInsufficientFunds = errors.New("creator has insufficient skillpoints")
)

// Account errors.
var (
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// InsufficientBalanceError carries the amounts behind a rejected request
// creation. It matches ErrInsufficientBalance via errors.Is.
type InsufficientBalanceError struct {
	Balance   int64
	Reserved  int64
	Available int64
	Requested int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: available %d (balance %d, reserved %d), requested %d",
		e.Available, e.Balance, e.Reserved, e.Requested)
}

// Is makes errors.Is(err, ErrInsufficientBalance) succeed.
func (e *InsufficientBalanceError) Is(target error) bool { return target == ErrInsufficientBalance }
