package httpserver

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// SessionCookie carries the operator session issued by the login flow.
const SessionCookie = "admin_session"

// Session is the signed payload of an admin_session token. Exp is unix millis.
type Session struct {
	User string `json:"user"`
	Exp  int64  `json:"exp"`
}

// SignSession builds `<base64url(payload)>.<base64url(hmac)>`.
func SignSession(secret string, s Session) string {
	b, _ := json.Marshal(s)
	data := base64.RawURLEncoding.EncodeToString(b)
	return data + "." + sessionMAC(secret, data)
}

// VerifySession checks the signature and expiry of token.
func VerifySession(secret, token string, now time.Time) (Session, bool) {
	if secret == "" || token == "" {
		return Session{}, false
	}
	data, sig, ok := strings.Cut(token, ".")
	if !ok || data == "" || sig == "" {
		return Session{}, false
	}
	if !hmac.Equal([]byte(sig), []byte(sessionMAC(secret, data))) {
		return Session{}, false
	}
	raw, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return Session{}, false
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, false
	}
	if now.UnixMilli() > s.Exp {
		return Session{}, false
	}
	return s, true
}

func sessionMAC(secret, data string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// RequireAdmin rejects requests without a valid admin_session cookie.
func RequireAdmin(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(SessionCookie)
			if err != nil {
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "admin session required")
				return
			}
			s, ok := VerifySession(secret, c.Value, time.Now())
			if !ok {
				log.Warn().Str("event", "security").Str("route", r.URL.Path).Str("remote", remoteIP(r)).
					Msg("admin session rejected")
				writeProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid or expired session")
				return
			}
			log.Debug().Str("user", s.User).Str("route", r.URL.Path).Msg("admin request")
			next.ServeHTTP(w, r)
		})
	}
}
