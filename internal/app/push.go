package app

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/rs/zerolog/log"

	"hotel_reconciler/internal/adapters/observability"
	"hotel_reconciler/internal/domain"
)

// PushIngress validates signed gateway notifications and feeds them to the
// reconciler using the two-state PAID/else shortcut.
type PushIngress struct {
	rec *Reconciler
	key []byte
}

func NewPushIngress(rec *Reconciler, hmacKey string) *PushIngress {
	return &PushIngress{rec: rec, key: []byte(hmacKey)}
}

// Handle verifies hash over the raw answer body before anything is parsed.
func (p *PushIngress) Handle(ctx context.Context, answer, hash string) (Outcome, error) {
	if answer == "" || hash == "" {
		return Outcome{}, fmt.Errorf("%w: kr-answer and kr-hash are required", domain.ErrInvalidInput)
	}
	if !VerifySignature(p.key, []byte(answer), hash) {
		observability.ObserveSignatureRejected()
		log.Warn().Str("event", "security").Msg("push notification signature mismatch")
		return Outcome{}, domain.ErrSignatureInvalid
	}

	a, err := mapPushAnswer(answer)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: answer is not JSON: %v", domain.ErrInvalidInput, err)
	}
	if a.OrderID == "" {
		return Outcome{}, fmt.Errorf("%w: answer has no orderId", domain.ErrInvalidInput)
	}
	log.Info().Str("order_id", a.OrderID).Str("order_status", a.OrderStatus).Msg("push notification received")

	return p.rec.Apply(ctx, SourcePush, a.OrderID, ResolvePush(a.OrderStatus), []byte(answer))
}

// Sign returns the lowercase hex HMAC-SHA256 of body.
func Sign(key, body []byte) string {
	mac := hmac.New(sha256.New, key)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares sig with the lowercase hex digest, byte for byte,
// in constant time.
func VerifySignature(key, body []byte, sig string) bool {
	return hmac.Equal([]byte(Sign(key, body)), []byte(sig))
}
