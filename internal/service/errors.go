package service

import "errors"

// Claim flow failures. Each is a distinct, user-actionable condition.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyClaimed   = errors.New("listing is already claimed")
	ErrNoInvite         = errors.New("listing has no chat invite configured")
	ErrUnconfigured     = errors.New("chat integration is not configured")
	ErrResolutionFailed = errors.New("invite or webhook could not be resolved")
	ErrGuildMismatch    = errors.New("webhook does not belong to the listing's community")
	ErrDeliveryFailed   = errors.New("PIN could not be delivered to the webhook")
	ErrInvalidPin       = errors.New("PIN must be exactly 4 digits")
	ErrWrongPin         = errors.New("PIN does not match")
	ErrWrongRequester   = errors.New("PIN was requested by a different user")
	ErrExpired          = errors.New("PIN has expired")
)

// General request failures
var (
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("not allowed")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCoordinates = errors.New("invalid coordinates")
	ErrUnsupportedMedia   = errors.New("unsupported image type")
	ErrTooLarge           = errors.New("upload too large")
	ErrUpstream           = errors.New("upstream service unavailable")
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrNotFound, "not_found"},
	{ErrAlreadyClaimed, "already_claimed"},
	{ErrNoInvite, "no_invite"},
	{ErrUnconfigured, "unconfigured"},
	{ErrResolutionFailed, "resolution_failed"},
	{ErrGuildMismatch, "guild_mismatch"},
	{ErrDeliveryFailed, "delivery_failed"},
	{ErrInvalidPin, "invalid_pin"},
	{ErrWrongPin, "wrong_pin"},
	{ErrWrongRequester, "wrong_requester"},
	{ErrExpired, "expired"},
	{ErrUnauthenticated, "unauthenticated"},
	{ErrForbidden, "forbidden"},
	{ErrInvalidInput, "invalid_input"},
	{ErrInvalidCoordinates, "invalid_coordinates"},
	{ErrUnsupportedMedia, "unsupported_media"},
	{ErrTooLarge, "too_large"},
	{ErrUpstream, "upstream_unavailable"},
}

// ErrorCode returns the stable machine code for err: "ok" for nil and
// "internal" for anything that is not a known service error.
func ErrorCode(err error) string {
	if err == nil {
		return "ok"
	}
	for _, e := range errorCodes {
		if errors.Is(err, e.err) {
			return e.code
		}
	}
	return "internal"
}

func errorsIsAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}
