package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/Maldo155/gta-mlo-map-sub001/internal/service"
	"github.com/Maldo155/gta-mlo-map-sub001/pkg/response"
)

var errorStatus = map[string]int{
	"not_found":            http.StatusNotFound,
	"already_claimed":      http.StatusConflict,
	"no_invite":            http.StatusUnprocessableEntity,
	"unconfigured":         http.StatusServiceUnavailable,
	"resolution_failed":    http.StatusBadGateway,
	"guild_mismatch":       http.StatusUnprocessableEntity,
	"delivery_failed":      http.StatusBadGateway,
	"invalid_pin":          http.StatusBadRequest,
	"wrong_pin":            http.StatusUnprocessableEntity,
	"wrong_requester":      http.StatusForbidden,
	"expired":              http.StatusGone,
	"unauthenticated":      http.StatusUnauthorized,
	"forbidden":            http.StatusForbidden,
	"invalid_input":        http.StatusBadRequest,
	"invalid_coordinates":  http.StatusBadRequest,
	"unsupported_media":    http.StatusUnsupportedMediaType,
	"too_large":            http.StatusRequestEntityTooLarge,
	"upstream_unavailable": http.StatusBadGateway,
}

// StatusFor returns the HTTP status used for a service error code
func StatusFor(code string) int {
	if status, ok := errorStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// writeError maps a service error onto the response envelope. Known
// failures carry their own message; anything else is logged and hidden.
func writeError(c *gin.Context, err error) {
	code := service.ErrorCode(err)
	if code == "internal" {
		response.InternalError(c, "Internal server error", err)
		return
	}

	status := StatusFor(code)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	response.Fail(c, status, code, err.Error())
}

// bindError reports a request body or query that failed binding
func bindError(c *gin.Context, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		response.Fail(c, http.StatusRequestEntityTooLarge, "too_large", "Request body too large")
		return
	}
	response.BadRequest(c, "Invalid request: "+validationMessage(err), err)
}

func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "malformed body"
	}
	fe := verrs[0]
	return fe.Field() + " failed " + fe.Tag() + " validation"
}

