package app

import (
	"strings"

	"hotel_reconciler/internal/domain"
)

// Gateway status code sets, including the Spanish variants the gateway
// back office emits for manual operations.
var (
	pendingCodes = codeSet("RUNNING", "WAITING_FOR_PAYMENT", "PENDING", "INITIAL",
		"AUTHORISED", "AUTHORIZED", "WAITING_FOR_CAPTURE", "AUTORIZADO", "ESPERA", "PENDIENTE")
	successCodes = codeSet("PAID", "CAPTURED")
	cancelCodes  = codeSet("CANCELLED", "EXPIRED", "ABANDONED", "VOIDED", "REFUNDED",
		"UNPAID", "REFUSED", "CANCELADO", "ANULADO")
	failCodes = codeSet("ERROR", "FAILED")
)

func codeSet(codes ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		m[c] = struct{}{}
	}
	return m
}

// Resolve maps a raw gateway observation to one canonical status.
// Precedence is pending > successful > cancelled > failed, and anything
// unrecognised stays pending: an authorised-but-uncaptured payment must
// never be treated as final.
func Resolve(orderStatus string, subStatuses []string) domain.TxStatus {
	codes := make([]string, 0, len(subStatuses)+1)
	codes = append(codes, strings.ToUpper(strings.TrimSpace(orderStatus)))
	for _, s := range subStatuses {
		codes = append(codes, strings.ToUpper(strings.TrimSpace(s)))
	}

	switch {
	case anyIn(codes, pendingCodes):
		return domain.TxPending
	case anyIn(codes, successCodes):
		return domain.TxSuccessful
	case anyIn(codes, cancelCodes):
		return domain.TxCancelled
	case anyIn(codes, failCodes):
		return domain.TxFailed
	}
	return domain.TxPending
}

func anyIn(codes []string, set map[string]struct{}) bool {
	for _, c := range codes {
		if _, ok := set[c]; ok {
			return true
		}
	}
	return false
}

// ResolvePush is the two-state shortcut used for signed push notifications.
// Only the literal "PAID" counts; the push contract is case-sensitive.
func ResolvePush(orderStatus string) domain.TxStatus {
	if orderStatus == "PAID" {
		return domain.TxSuccessful
	}
	return domain.TxFailed
}
