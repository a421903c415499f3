package controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/address-converter/app/services"
	"github.com/address-converter/internal/address"
	"github.com/address-converter/internal/conversion"
	"github.com/address-converter/internal/registry"
	"github.com/address-converter/internal/store"
)

func TestStatusOf(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"invalid key", &conversion.KeyError{Field: "ward_id", Message: "phải > 0"}, http.StatusBadRequest, CodeInvalidRequest},
		{"validation", &address.ValidationError{Code: address.CodeMissingField, Field: "ward_id"}, http.StatusBadRequest, CodeInvalidRequest},
		{"batch too large", fmt.Errorf("%w: 2000", services.ErrBatchTooLarge), http.StatusBadRequest, CodeInvalidRequest},
		{"correction", fmt.Errorf("%w: thiếu mặc định", registry.ErrInvalidCorrection), http.StatusBadRequest, CodeInvalidRequest},
		{"conversion not found", conversion.ErrConversionNotFound, http.StatusNotFound, CodeConversionNotFound},
		{"unit not found", fmt.Errorf("lỗi: %w", registry.ErrUnitNotFound), http.StatusNotFound, CodeNotFound},
		{"stale", store.ErrStaleCorrection, http.StatusConflict, CodeConflict},
		{"indexer", services.ErrIndexerDisabled, http.StatusServiceUnavailable, CodeUnavailable},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, CodeTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError, CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code := statusOf(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}
