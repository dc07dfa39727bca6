package httpadapter

import (
	"net/http"

	"github.com/campushq/regulations-assistant/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrSynthesis):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
