package services

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// WebhookVerifier authenticates payment-provider callbacks. The webhook
// route bypasses CSRF entirely and relies solely on this shared-secret
// HMAC over the raw request body.
type WebhookVerifier interface {
	VerifySignature(rawBody []byte, signatureHeader string) bool
	Sign(rawBody []byte) string
}

type webhookVerifier struct {
	secret []byte
}

func NewWebhookVerifier(secret []byte) WebhookVerifier {
	return &webhookVerifier{secret: secret}
}

func (v *webhookVerifier) Sign(rawBody []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(rawBody)
	return hex.EncodeToString(mac.Sum(nil))
}

func (v *webhookVerifier) VerifySignature(rawBody []byte, signatureHeader string) bool {
	if signatureHeader == "" {
		return false
	}
	expected := v.Sign(rawBody)
	return hmac.Equal([]byte(expected), []byte(signatureHeader))
}
