package http

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/artpar/installpay/app"
	"github.com/artpar/installpay/ports"
)

func TestToError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"flow busy", fmt.Errorf("%w: flow-1", ports.ErrFlowBusy), http.StatusConflict, "flow_busy"},
		{"pending", app.ErrPaymentPending, http.StatusConflict, "payment_pending"},
		{"mismatch", fmt.Errorf("%w: paid 10.00", app.ErrPaymentMismatch), http.StatusConflict, "payment_mismatch"},
		{"provider lookup", fmt.Errorf("%w: %w", app.ErrGateway, ports.ErrNotFound), http.StatusBadGateway, "provider_error"},
		{"not found", ports.ErrNotFound, http.StatusNotFound, "not_found"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := toError(tt.err, "flow")
			if e.StatusCode() != tt.status || e.Code != tt.code {
				t.Errorf("toError() = %d %s, want %d %s", e.StatusCode(), e.Code, tt.status, tt.code)
			}
		})
	}
}
