package controllers

import (
	"io"
	"net/http"

	"github.com/wearedev-studio/skillgame-app-sub001/internal/dtos"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/services"
	"github.com/wearedev-studio/skillgame-app-sub001/internal/utils"
)

const WebhookSignatureHeader = "X-Webhook-Signature"

// WebhookController receives payment-gateway callbacks. The route bypasses
// CSRF and authenticates solely via the shared-secret HMAC over the raw
// body, so the body must be read before any parsing.
type WebhookController struct {
	verifier services.WebhookVerifier
}

func NewWebhookController(verifier services.WebhookVerifier) *WebhookController {
	return &WebhookController{verifier: verifier}
}

func (c *WebhookController) PaymentWebhook(w http.ResponseWriter, r *http.Request) {
	rawBody, err := io.ReadAll(r.Body)
	if err != nil {
		utils.RespondErrorWithCode(
			w, http.StatusBadRequest, utils.ErrCodeInvalidPayload, "Unreadable body", nil, err,
		)
		return
	}

	if !c.verifier.VerifySignature(rawBody, r.Header.Get(WebhookSignatureHeader)) {
		utils.RespondErrorWithCode(
			w, http.StatusUnauthorized, utils.ErrCodeForbidden, "Invalid webhook signature", nil,
		)
		return
	}

	// Payment processing itself lives with the payments service; the
	// security core only authenticates and acknowledges the delivery.
	utils.Logger.WithField("bytes", len(rawBody)).Info("Payment webhook accepted")
	utils.RespondWithJSON(w, http.StatusOK, dtos.WebhookAckResponse{Received: true})
}
