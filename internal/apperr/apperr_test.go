package apperr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", Validation("cart_empty", "cart is empty"), http.StatusBadRequest},
		{"structural", Structural("bad header", nil), http.StatusBadRequest},
		{"auth", Auth("not_authenticated", "login"), http.StatusUnauthorized},
		{"forbidden", Forbidden("nope"), http.StatusForbidden},
		{"not found", NotFound("order not found"), http.StatusNotFound},
		{"conflict", Conflict("dup", "dup"), http.StatusConflict},
		{"storage", Storage("db", errors.New("boom")), http.StatusInternalServerError},
		{"plain error", errors.New("boom"), http.StatusInternalServerError},
		{"wrapped", fmt.Errorf("place: %w", NotFound("x")), http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Status(tt.err))
		})
	}
}

func TestAs_HidesCause(t *testing.T) {
	cause := errors.New("pq: connection refused")
	e := As(cause)

	assert.Equal(t, KindStorage, e.Kind)
	assert.Equal(t, "internal error", e.Msg)
	assert.ErrorIs(t, e, cause)
}

func TestIsKind(t *testing.T) {
	err := fmt.Errorf("wrap: %w", Validation("x", "y"))
	assert.True(t, IsKind(err, KindValidation))
	assert.False(t, IsKind(err, KindConflict))
	assert.False(t, IsKind(errors.New("plain"), KindValidation))
}
