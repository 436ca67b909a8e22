// Package handlers defines HTTP-layer error codes used across all API endpoints.
//
// Codes are lowercase snake_case and stable; clients branch on them instead
// of on messages. Generic codes mirror HTTP status semantics, the rest name a
// lifecycle or ledger rule that rejected the call.
//
// Example response:
//
//	{
//	  "request_id": "e1b9be03-4999-4289-9f03-999b042d65d6",
//	  "code": "already_accepted",
//	  "message": "request already accepted"
//	}
package handlers

const (
	ErrCodeBadRequest       = "bad_request"
	ErrCodeUnauthorized     = "unauthorized"
	ErrCodeForbidden        = "forbidden"
	ErrCodeNotFound         = "not_found"
	ErrCodeConflict         = "conflict"
	ErrCodeRateLimited      = "too_many_requests"
	ErrCodeInternal         = "internal_error"
	ErrCodeMethodNotAllowed = "method_not_allowed"

	// Request lifecycle:
	ErrCodeInvalidSkillpoints  = "invalid_skillpoints"
	ErrCodeSelfAccept          = "self_accept"
	ErrCodeAlreadyAccepted     = "already_accepted"
	ErrCodeInvalidStatus       = "invalid_status"
	ErrCodeInsufficientBalance = "insufficient_balance"
	ErrCodeNotParticipant      = "not_participant"

	// Settlement:
	ErrCodeMissingParties           = "missing_parties"
	ErrCodeSameUser                 = "same_user"
	ErrCodeCreatorInsufficientFunds = "creator_insufficient_funds"

	// Accounts:
	ErrCodeEmailExists        = "email_exists"
	ErrCodeInvalidCredentials = "invalid_credentials"
)
