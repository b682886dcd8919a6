package app

import (
	"encoding/json"
	"strings"
)

/********** tiny helpers for loosely shaped gateway payloads **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmpty returns the first non-empty string found among paths.
func firstNonEmpty(m map[string]any, paths ...string) string {
	for _, p := range paths {
		if s := strings.TrimSpace(lookupStr(m, p)); s != "" {
			return s
		}
	}
	return ""
}

// pushAnswer is the part of a signed push answer the ingress needs.
type pushAnswer struct {
	OrderID     string
	OrderStatus string
}

func mapPushAnswer(raw string) (pushAnswer, error) {
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return pushAnswer{}, err
	}
	return pushAnswer{
		OrderID:     firstNonEmpty(m, "orderDetails.orderId", "orderId"),
		OrderStatus: lookupStr(m, "orderStatus"),
	}, nil
}

// customerPayload is the opaque JSON stored on manual reservations.
func customerPayload(r ManualReservationRequest) json.RawMessage {
	b, _ := json.Marshal(map[string]any{
		"firstName":     strings.TrimSpace(r.FirstName),
		"lastName":      strings.TrimSpace(r.LastName),
		"email":         strings.TrimSpace(r.Email),
		"dni":           strings.TrimSpace(r.DocumentID),
		"phone":         strings.TrimSpace(r.Phone),
		"checkin":       r.CheckIn,
		"checkout":      r.CheckOut,
		"nights":        r.Nights,
		"paymentMethod": "QR_DIRECTO",
	})
	return b
}
