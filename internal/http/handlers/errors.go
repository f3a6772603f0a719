// Package handlers defines HTTP-layer error codes and messages used across
// all API endpoints and by the gatekeeping pipeline.
//
// Codes are lowercase snake_case and stable; clients branch on them. Messages
// for gate rejections are fixed strings so that no stage leaks why a
// credential or role check failed.
package handlers

const (
	ErrCodeBadRequest        = "bad_request"
	ErrCodeUnauthorized      = "invalid_credential"
	ErrCodeForbidden         = "forbidden"
	ErrCodeNotFound          = "not_found"
	ErrCodeRateLimited       = "rate_limited"
	ErrCodeInternal          = "internal_error"
	ErrCodeMethodNotAllowed  = "method_not_allowed"
	ErrCodeUnknownCollection = "unknown_collection"
	ErrCodeInvalidRole       = "invalid_role"
	ErrCodePayloadTooLarge   = "payload_too_large"
)

// Fixed messages of the gatekeeping envelopes.
const (
	MsgForbidden         = "forbidden"
	MsgInvalidCredential = "invalid credential"
	MsgRateLimited       = "rate limited"
	MsgInternal          = "internal"
)
