package http

import (
	"errors"
	"net/http"

	"github.com/artpar/installpay/adapters/payment"
	"github.com/artpar/installpay/adapters/remote"
	"github.com/artpar/installpay/app"
	"github.com/artpar/installpay/domain/anticipation"
	"github.com/artpar/installpay/domain/payflow"
	"github.com/artpar/installpay/domain/settlement"
	"github.com/artpar/installpay/pkg/jsonapi"
	"github.com/artpar/installpay/ports"
	"github.com/rs/zerolog"
)

// toError maps a service error to a JSON:API error object.
func toError(err error, resource string) jsonapi.Error {
	var (
		verr    *app.ValidationError
		partial *settlement.PartialError
		load    *app.LoadError
	)

	switch {
	case errors.Is(err, payflow.ErrInvalidTransition), errors.Is(err, anticipation.ErrSelectionFrozen):
		return jsonapi.ErrConflict("invalid_transition", err.Error())
	case errors.Is(err, ports.ErrFlowBusy):
		return jsonapi.NewError(http.StatusConflict, "flow_busy", "Conflict").
			Detail("another request is updating this flow, retry shortly").
			Build()
	case errors.Is(err, app.ErrPaymentPending):
		return jsonapi.NewError(http.StatusConflict, "payment_pending", "Conflict").
			Detail(err.Error()).
			Build()
	case errors.Is(err, app.ErrPaymentMismatch):
		return jsonapi.ErrConflict("payment_mismatch", err.Error())
	case errors.Is(err, app.ErrGateway):
		return jsonapi.ErrBadGateway(app.ErrGateway.Error())
	case errors.As(err, &verr):
		return jsonapi.ErrValidation(verr.Field, verr.Reason)
	case errors.Is(err, app.ErrValidation):
		return jsonapi.ErrValidation("", err.Error())
	case errors.Is(err, app.ErrForbidden):
		return jsonapi.ErrForbidden(err.Error())
	case errors.Is(err, ports.ErrNotFound):
		return jsonapi.ErrNotFound(resource)
	case errors.As(err, &partial):
		return jsonapi.ErrPartialSettlement(partial.PaymentID, partial.Confirmed, partial.Missing)
	case errors.As(err, &load):
		return jsonapi.NewError(http.StatusServiceUnavailable, "load_failed", "Service Unavailable").
			Detailf("could not load %s", load.Op).
			Build()
	case errors.Is(err, payment.ErrPaymentsDisabled):
		return jsonapi.ErrServiceUnavailable(err.Error())
	default:
		return jsonapi.ErrInternal("")
	}
}

// writeServiceError writes err and logs it when it is a server fault.
func writeServiceError(w http.ResponseWriter, logger zerolog.Logger, err error, resource string) {
	e := toError(err, resource)
	if e.StatusCode() >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("resource", resource).Msg("request failed")
	}
	jsonapi.WriteError(w, e)
}

// webhookError maps gateway parsing failures. A bad signature is 401, any
// other parse failure is the sender's fault.
func webhookError(err error) jsonapi.Error {
	if errors.Is(err, payment.ErrInvalidSignature) || errors.Is(err, remote.ErrInvalidSignature) {
		return jsonapi.ErrUnauthorized("")
	}
	return jsonapi.ErrBadRequest(err.Error())
}
