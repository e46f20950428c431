package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("dn uni/tn-x: %w", ErrObjectNotFound), http.StatusNotFound},
		{ErrInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("loading: %w", ErrSourceUnavailable), http.StatusServiceUnavailable},
		{ErrIndexNotReady, http.StatusServiceUnavailable},
		{ErrTimeout, http.StatusServiceUnavailable},
		{ErrInvalidSnapshot, http.StatusUnprocessableEntity},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
		{New(ErrInternal, http.StatusTeapot, "custom"), http.StatusTeapot},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatusCode(tt.err), tt.err.Error())
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrObjectNotFound, http.StatusNotFound, "no object %q", "uni/tn-x")
	assert.ErrorIs(t, err, ErrObjectNotFound)
	assert.Equal(t, `object not found: no object "uni/tn-x"`, err.Error())
}
