package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/artpar/installpay/app"
	"github.com/artpar/installpay/domain/payflow"
	"github.com/artpar/installpay/pkg/jsonapi"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

const maxBodyBytes = 1 << 20

// API serves the billing view, quotes and payment flows.
type API struct {
	billing  *app.BillingService
	payments *app.PaymentService
	logger   zerolog.Logger
}

// NewAPI creates the API handlers.
func NewAPI(billing *app.BillingService, payments *app.PaymentService, logger zerolog.Logger) *API {
	return &API{billing: billing, payments: payments, logger: logger}
}

// Mount registers the API routes on r.
func (a *API) Mount(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/billing", a.GetBilling)
			r.Post("/renegotiation/quote", a.QuoteRenegotiation)
			r.Post("/anticipation/quote", a.QuoteAnticipation)
			r.Post("/flows", a.StartFlow)
		})
		r.Route("/flows/{flowID}", func(r chi.Router) {
			r.Get("/", a.GetFlow)
			r.Post("/toggle", a.Toggle)
			r.Post("/open", a.Open)
			r.Post("/method", a.ChooseMethod)
			r.Post("/card", a.PayCard)
			r.Post("/pix", a.CreatePix)
			r.Post("/boleto", a.IssueBoleto)
			r.Post("/confirm", a.ConfirmPix)
			r.Post("/back", a.Back)
		})
	})
	r.Post("/payment-webhooks/{provider}", a.Webhook)
}

// decode reads an optional JSON body into v. An empty body leaves v zeroed.
func decode(r *http.Request, v any) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// RenegotiationQuoteRequest selects overdue invoices to renegotiate.
type RenegotiationQuoteRequest struct {
	InvoiceIDs   []string `json:"invoice_ids,omitempty"`
	Installments int      `json:"installments,omitempty" example:"3"`
}

// AnticipationQuoteRequest selects future invoices to pay early.
type AnticipationQuoteRequest struct {
	InvoiceIDs []string `json:"invoice_ids"`
}

// ToggleRequest adds or removes an invoice from the anticipation selection.
type ToggleRequest struct {
	InvoiceID string `json:"invoice_id"`
}

// OpenRequest picks the obligation a flow will pay.
type OpenRequest struct {
	Kind         string   `json:"kind" example:"invoice" enums:"invoice,renegotiation,anticipation"`
	InvoiceID    string   `json:"invoice_id,omitempty"`
	InvoiceIDs   []string `json:"invoice_ids,omitempty"`
	Installments int      `json:"installments,omitempty"`
}

// MethodRequest chooses a payment method.
type MethodRequest struct {
	Method string `json:"method" example:"pix" enums:"card,pix,boleto"`
}

// CardRequest charges a tokenized card.
type CardRequest struct {
	Token        string `json:"token"`
	Installments int    `json:"installments" example:"1"`
}

// GetBilling returns the grouped billing view of a user.
//
//	@Summary		Get billing view
//	@Description	Purchase groups sorted by urgency, with invoices included and a late/open summary in meta
//	@Tags			Billing
//	@Produce		json
//	@Param			userID	path		string	true	"User ID"
//	@Success		200		{object}	jsonapi.Document
//	@Failure		503		{object}	jsonapi.Document	"Invoices, profile or settings could not be loaded"
//	@Router			/api/users/{userID}/billing [get]
func (a *API) GetBilling(w http.ResponseWriter, r *http.Request) {
	view, err := a.billing.Load(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, a.logger, err, TypeInvoice)
		return
	}
	jsonapi.WriteDocument(w, http.StatusOK, billingDocument(view))
}

// QuoteRenegotiation prices renegotiation deals for overdue invoices.
//
//	@Summary		Quote renegotiation
//	@Description	Without installments, returns the deal for every option from 1 to 7. Without invoice_ids, all overdue invoices are used.
//	@Tags			Billing
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		string						true	"User ID"
//	@Param			request	body		RenegotiationQuoteRequest	false	"Selection"
//	@Success		200		{object}	jsonapi.Document
//	@Failure		422		{object}	jsonapi.Document
//	@Router			/api/users/{userID}/renegotiation/quote [post]
func (a *API) QuoteRenegotiation(w http.ResponseWriter, r *http.Request) {
	var req RenegotiationQuoteRequest
	if err := decode(r, &req); err != nil {
		jsonapi.WriteBadRequest(w, "invalid JSON body")
		return
	}

	deals, err := a.billing.QuoteRenegotiation(r.Context(), chi.URLParam(r, "userID"), req.InvoiceIDs, req.Installments)
	if err != nil {
		writeServiceError(w, a.logger, err, TypeInvoice)
		return
	}

	resources := make([]jsonapi.Resource, 0, len(deals))
	for _, d := range deals {
		resources = append(resources, dealResource(d))
	}
	jsonapi.WriteCollection(w, http.StatusOK, resources, jsonapi.Meta{"count": len(deals)})
}

// QuoteAnticipation prices paying future invoices early.
//
//	@Summary		Quote anticipation
//	@Tags			Billing
//	@Accept			json
//	@Produce		json
//	@Param			userID	path		string						true	"User ID"
//	@Param			request	body		AnticipationQuoteRequest	true	"Selection"
//	@Success		200		{object}	jsonapi.Document
//	@Failure		422		{object}	jsonapi.Document
//	@Router			/api/users/{userID}/anticipation/quote [post]
func (a *API) QuoteAnticipation(w http.ResponseWriter, r *http.Request) {
	var req AnticipationQuoteRequest
	if err := decode(r, &req); err != nil {
		jsonapi.WriteBadRequest(w, "invalid JSON body")
		return
	}

	quote, err := a.billing.QuoteAnticipation(r.Context(), chi.URLParam(r, "userID"), req.InvoiceIDs)
	if err != nil {
		writeServiceError(w, a.logger, err, TypeInvoice)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, anticipationResource(quote))
}

// StartFlow opens a payment session for a user.
//
//	@Summary		Start payment flow
//	@Tags			Flows
//	@Produce		json
//	@Param			userID	path		string	true	"User ID"
//	@Success		201		{object}	jsonapi.Document
//	@Router			/api/users/{userID}/flows [post]
func (a *API) StartFlow(w http.ResponseWriter, r *http.Request) {
	f, err := a.payments.StartFlow(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeServiceError(w, a.logger, err, TypeFlow)
		return
	}
	jsonapi.WriteCreated(w, flowResource(f), "/api/flows/"+f.ID)
}

// GetFlow returns a payment flow.
//
//	@Summary		Get payment flow
//	@Tags			Flows
//	@Produce		json
//	@Param			flowID	path		string	true	"Flow ID"
//	@Success		200		{object}	jsonapi.Document
//	@Failure		404		{object}	jsonapi.Document
//	@Router			/api/flows/{flowID} [get]
func (a *API) GetFlow(w http.ResponseWriter, r *http.Request) {
	f, err := a.payments.GetFlow(r.Context(), chi.URLParam(r, "flowID"))
	a.writeFlow(w, f, err)
}

// Toggle adds or removes an invoice from the anticipation selection.
//
//	@Summary		Toggle selection
//	@Tags			Flows
//	@Accept			json
//	@Produce		json
//	@Param			flowID	path		string			true	"Flow ID"
//	@Param			request	body		ToggleRequest	true	"Invoice"
//	@Success		200		{object}	jsonapi.Document
//	@Failure		409		{object}	jsonapi.Document	"Selection is frozen"
//	@Router			/api/flows/{flowID}/toggle [post]
func (a *API) Toggle(w http.ResponseWriter, r *http.Request) {
	var req ToggleRequest
	if err := decode(r, &req); err != nil {
		jsonapi.WriteBadRequest(w, "invalid JSON body")
		return
	}
	f, err := a.payments.Toggle(r.Context(), chi.URLParam(r, "flowID"), req.InvoiceID)
	a.writeFlow(w, f, err)
}

// Open selects the obligation to pay and moves the flow to method selection.
//
//	@Summary		Open payment target
//	@Tags			Flows
//	@Accept			json
//	@Produce		json
//	@Param			flowID	path		string		true	"Flow ID"
//	@Param			request	body		OpenRequest	true	"Target"
//	@Success		200		{object}	jsonapi.Document
//	@Failure		409		{object}	jsonapi.Document
//	@Failure		422		{object}	jsonapi.Document
//	@Router			/api/flows/{flowID}/open [post]
func (a *API) Open(w http.ResponseWriter, r *http.Request) {
	var req OpenRequest
	if err := decode(r, &req); err != nil {
		jsonapi.WriteBadRequest(w, "invalid JSON body")
		return
	}
	f, err := a.payments.Open(r.Context(), chi.URLParam(r, "flowID"), app.OpenRequest{
		Kind:         payflow.Kind(req.Kind),
		InvoiceID:    req.InvoiceID,
		InvoiceIDs:   req.InvoiceIDs,
		Installments: req.Installments,
	})
	a.writeFlow(w, f, err)
}

// ChooseMethod picks card, pix or boleto.
//
//	@Summary		Choose payment method
//	@Tags			Flows
//	@Accept			json
//	@Produce		json
//	@Param			flowID	path		string			true	"Flow ID"
//	@Param			request	body		MethodRequest	true	"Method"
//	@Success		200		{object}	jsonapi.Document
//	@Failure		422		{object}	jsonapi.Document	"Method not allowed for this target"
//	@Router			/api/flows/{flowID}/method [post]
func (a *API) ChooseMethod(w http.ResponseWriter, r *http.Request) {
	var req MethodRequest
	if err := decode(r, &req); err != nil {
		jsonapi.WriteBadRequest(w, "invalid JSON body")
		return
	}
	f, err := a.payments.ChooseMethod(r.Context(), chi.URLParam(r, "flowID"), payflow.Method(req.Method))
	a.writeFlow(w, f, err)
}

// PayCard charges a card. Declines are reported in the flow's error attribute.
//
//	@Summary		Pay by card
//	@Tags			Flows
//	@Accept			json
//	@Produce		json
//	@Param			flowID	path		string		true	"Flow ID"
//	@Param			request	body		CardRequest	true	"Card"
//	@Success		200		{object}	jsonapi.Document
//	@Failure		422		{object}	jsonapi.Document
//	@Failure		500		{object}	jsonapi.Document	"Partial settlement"
//	@Router			/api/flows/{flowID}/card [post]
func (a *API) PayCard(w http.ResponseWriter, r *http.Request) {
	var req CardRequest
	if err := decode(r, &req); err != nil {
		jsonapi.WriteBadRequest(w, "invalid JSON body")
		return
	}
	f, err := a.payments.PayCard(r.Context(), chi.URLParam(r, "flowID"), req.Token, req.Installments)
	a.writeFlow(w, f, err)
}

// CreatePix creates a PIX charge.
//
//	@Summary		Create PIX charge
//	@Tags			Flows
//	@Produce		json
//	@Param			flowID	path		string	true	"Flow ID"
//	@Success		200		{object}	jsonapi.Document
//	@Router			/api/flows/{flowID}/pix [post]
func (a *API) CreatePix(w http.ResponseWriter, r *http.Request) {
	f, err := a.payments.CreatePix(r.Context(), chi.URLParam(r, "flowID"))
	a.writeFlow(w, f, err)
}

// ConfirmPix asks the provider whether the flow's PIX charge was paid and
// settles the target when it was.
//
//	@Summary		Confirm PIX payment
//	@Description	Checks the pending PIX charge with the provider. Returns 409 while it is unpaid.
//	@Tags			Flows
//	@Produce		json
//	@Param			flowID	path		string	true	"Flow ID"
//	@Success		200		{object}	jsonapi.Document
//	@Failure		409		{object}	jsonapi.Document	"Payment pending or mismatched"
//	@Failure		500		{object}	jsonapi.Document	"Partial settlement"
//	@Failure		502		{object}	jsonapi.Document	"Provider unavailable"
//	@Router			/api/flows/{flowID}/confirm [post]
func (a *API) ConfirmPix(w http.ResponseWriter, r *http.Request) {
	f, err := a.payments.ConfirmPix(r.Context(), chi.URLParam(r, "flowID"))
	a.writeFlow(w, f, err)
}

// IssueBoleto issues a bank slip.
//
//	@Summary		Issue boleto
//	@Tags			Flows
//	@Produce		json
//	@Param			flowID	path		string	true	"Flow ID"
//	@Success		200		{object}	jsonapi.Document
//	@Failure		422		{object}	jsonapi.Document	"Payer profile incomplete"
//	@Router			/api/flows/{flowID}/boleto [post]
func (a *API) IssueBoleto(w http.ResponseWriter, r *http.Request) {
	f, err := a.payments.IssueBoleto(r.Context(), chi.URLParam(r, "flowID"))
	a.writeFlow(w, f, err)
}

// Back returns the flow to the invoice list.
//
//	@Summary		Back to list
//	@Tags			Flows
//	@Produce		json
//	@Param			flowID	path		string	true	"Flow ID"
//	@Success		200		{object}	jsonapi.Document
//	@Router			/api/flows/{flowID}/back [post]
func (a *API) Back(w http.ResponseWriter, r *http.Request) {
	f, err := a.payments.Back(r.Context(), chi.URLParam(r, "flowID"))
	a.writeFlow(w, f, err)
}

// Webhook receives provider notifications.
//
//	@Summary		Payment provider webhook
//	@Tags			Webhooks
//	@Accept			json
//	@Produce		json
//	@Param			provider	path	string	true	"Provider name"
//	@Success		204
//	@Failure		401	{object}	jsonapi.Document	"Invalid signature"
//	@Failure		404	{object}	jsonapi.Document	"Provider not configured"
//	@Router			/payment-webhooks/{provider} [post]
func (a *API) Webhook(w http.ResponseWriter, r *http.Request) {
	if chi.URLParam(r, "provider") != a.payments.Gateway().Name() {
		jsonapi.WriteNotFound(w, "provider")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		jsonapi.WriteBadRequest(w, "could not read body")
		return
	}
	signature := r.Header.Get("Stripe-Signature")
	if signature == "" {
		signature = r.Header.Get("X-Signature")
	}

	if err := a.payments.HandleWebhook(r.Context(), payload, signature); err != nil {
		if errors.Is(err, app.ErrInvalidWebhook) {
			a.logger.Warn().Err(err).Str("provider", chi.URLParam(r, "provider")).Msg("webhook rejected")
			jsonapi.WriteError(w, webhookError(err))
			return
		}
		writeServiceError(w, a.logger, err, "payment")
		return
	}
	jsonapi.WriteNoContent(w)
}

// writeFlow writes the flow, or the error when one occurred. A partial
// settlement is an error even though the flow advanced.
func (a *API) writeFlow(w http.ResponseWriter, f payflow.Flow, err error) {
	if err != nil {
		writeServiceError(w, a.logger, err, TypeFlow)
		return
	}
	jsonapi.WriteResource(w, http.StatusOK, flowResource(f))
}
