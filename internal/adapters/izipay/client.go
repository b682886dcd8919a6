// internal/adapters/izipay/client.go
package izipay

import (
	"bytes"
	"context"
	crand "crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"hotel_reconciler/internal/adapters/observability"
	"hotel_reconciler/internal/domain"
)

const (
	orderGetPath      = "/api-payment/V4/Order/Get"
	createPaymentPath = "/api-payment/V4/Charge/CreatePayment"
	maxAttempts       = 4
)

type Client struct {
	base string
	hc   *http.Client
	user string
	pass string
	mode string
	rl   *rate.Limiter
}

func New(base, user, pass, mode string, rps int) (*Client, error) {
	if user == "" || pass == "" {
		return nil, fmt.Errorf("gateway user and password are required")
	}
	if rps <= 0 {
		rps = 5
	}
	return &Client{
		base: strings.TrimRight(base, "/"),
		hc:   &http.Client{Timeout: 20 * time.Second},
		user: user,
		pass: pass,
		mode: mode,
		rl:   rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// ---- wire shapes ----

type envelope struct {
	Status     string          `json:"status"`
	Answer     json.RawMessage `json:"answer"`
	WebService string          `json:"webService"`
}

type errorAnswer struct {
	ErrorCode    string `json:"errorCode"`
	ErrorMessage string `json:"errorMessage"`
}

type orderAnswer struct {
	OrderStatus  string `json:"orderStatus"`
	OrderDetails *struct {
		OrderID string `json:"orderId"`
	} `json:"orderDetails"`
	Transactions []json.RawMessage `json:"transactions"`
}

type txAnswer struct {
	UUID   string `json:"uuid"`
	Status string `json:"status"`
}

type paymentAnswer struct {
	FormToken string `json:"formToken"`
	ShopURL   string `json:"shopUrl"`
}

// ---- Public API ----

// GetOrder fetches the current state of an order with its sub-transactions.
func (c *Client) GetOrder(ctx context.Context, orderID string) (domain.GatewayOrder, error) {
	ctx, span := otel.Tracer("hotel_reconciler/izipay").Start(ctx, "gateway.get_order")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", orderID))

	raw, err := c.call(ctx, orderGetPath, map[string]any{"orderId": orderID})
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.GatewayOrder{}, err
	}
	o, err := decodeOrder(raw)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return o, err
}

// CreatePayment opens an embedded-form payment and returns its token.
func (c *Client) CreatePayment(ctx context.Context, req domain.CreatePaymentRequest) (domain.PaymentForm, error) {
	ctx, span := otel.Tracer("hotel_reconciler/izipay").Start(ctx, "gateway.create_payment")
	defer span.End()
	span.SetAttributes(attribute.String("order_id", req.OrderID))

	body := map[string]any{
		"amount":        req.Amount,
		"currency":      req.Currency,
		"orderId":       req.OrderID,
		"formAction":    "PAYMENT",
		"paymentConfig": "SINGLE",
		"captureMode":   "AUTOMATIC",
		"mode":          c.mode,
	}
	if req.Email != "" {
		body["customer"] = map[string]any{"email": req.Email}
	}
	raw, err := c.call(ctx, createPaymentPath, body)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return domain.PaymentForm{}, err
	}
	var pa paymentAnswer
	if err := json.Unmarshal(raw, &pa); err != nil || pa.FormToken == "" {
		span.SetStatus(codes.Error, "no form token")
		return domain.PaymentForm{}, fmt.Errorf("%w: payment answer without formToken", domain.ErrGatewayMalformed)
	}
	return domain.PaymentForm{FormToken: pa.FormToken, PaymentURL: pa.ShopURL}, nil
}

// ---- Internals ----

func decodeOrder(answer json.RawMessage) (domain.GatewayOrder, error) {
	var oa orderAnswer
	if err := json.Unmarshal(answer, &oa); err != nil {
		return domain.GatewayOrder{}, fmt.Errorf("%w: order answer: %v", domain.ErrGatewayMalformed, err)
	}
	o := domain.GatewayOrder{OrderStatus: strings.ToUpper(oa.OrderStatus), Raw: answer}
	if oa.OrderDetails != nil {
		o.OrderID = oa.OrderDetails.OrderID
	}
	for _, rt := range oa.Transactions {
		var t txAnswer
		if err := json.Unmarshal(rt, &t); err != nil {
			return domain.GatewayOrder{}, fmt.Errorf("%w: transaction entry: %v", domain.ErrGatewayMalformed, err)
		}
		o.Transactions = append(o.Transactions, domain.GatewayTransaction{
			UUID:   t.UUID,
			Status: strings.ToUpper(t.Status),
			Raw:    rt,
		})
	}
	return o, nil
}

// call POSTs body to path and returns the envelope's answer once the gateway
// reports SUCCESS.
func (c *Client) call(ctx context.Context, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	var env envelope
	if err := c.post(ctx, path, payload, &env); err != nil {
		return nil, err
	}
	if len(env.Answer) == 0 || string(env.Answer) == "null" {
		return nil, fmt.Errorf("%w: response without answer", domain.ErrGatewayMalformed)
	}
	if env.Status != "SUCCESS" {
		var ea errorAnswer
		_ = json.Unmarshal(env.Answer, &ea)
		msg := ea.ErrorMessage
		if msg == "" {
			msg = env.WebService
		}
		if ea.ErrorCode == "" {
			ea.ErrorCode = "no code"
		}
		return nil, fmt.Errorf("%w: %s (%s)", domain.ErrGatewayMalformed, msg, ea.ErrorCode)
	}
	return env.Answer, nil
}

// post performs a POST with client-side rate limiting, retries, and JSON decode into out.
// Retries on 429 and transient 5xx, honoring Retry-After when provided.
func (c *Client) post(ctx context.Context, path string, payload []byte, out any) error {
	if err := c.rl.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrGatewayUnreachable, err)
	}

	var lastErr error
	for i := 0; i < maxAttempts; i++ {
		// build a fresh request each attempt
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.SetBasicAuth(c.user, c.pass)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", "hotel-reconciler/1.0")

		start := time.Now()
		resp, err := c.hc.Do(req)
		if err != nil {
			observability.ObserveExternal("izipay", path, 0, time.Since(start))
			// network error, client timeout or context canceled
			lastErr = fmt.Errorf("%w: %v", domain.ErrGatewayUnreachable, err)
			if ctx.Err() != nil {
				return lastErr
			}
			if i < maxAttempts-1 && sleepCtx(ctx, backoff(i)) {
				continue
			}
			return lastErr
		}
		observability.ObserveExternal("izipay", path, resp.StatusCode, time.Since(start))

		switch resp.StatusCode {
		case http.StatusOK:
			err := json.NewDecoder(resp.Body).Decode(out)
			resp.Body.Close()
			if err != nil {
				return fmt.Errorf("%w: %v", domain.ErrGatewayMalformed, err)
			}
			return nil

		case http.StatusTooManyRequests, http.StatusInternalServerError,
			http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			// Prefer server-provided Retry-After; otherwise exponential backoff.
			wait := retryAfter(resp)
			resp.Body.Close()
			if wait == 0 {
				wait = backoff(i)
			}
			lastErr = fmt.Errorf("%w: remote %d", domain.ErrGatewayUnreachable, resp.StatusCode)
			if i < maxAttempts-1 && sleepCtx(ctx, wait) {
				continue
			}
			return lastErr

		default:
			// read a small error body for diagnostics
			b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return fmt.Errorf("%w: bad status %d: %s", domain.ErrGatewayMalformed, resp.StatusCode, strings.TrimSpace(string(b)))
		}
	}
	if lastErr == nil {
		lastErr = errors.New("no attempt made")
	}
	return lastErr
}

// sleepCtx waits for d or returns early if ctx is done.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// retryAfter parses Retry-After header (seconds or HTTP-date). Returns 0 if absent/invalid.
func retryAfter(resp *http.Response) time.Duration {
	h := resp.Header.Get("Retry-After")
	if h == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(h)); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(h); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

// backoff returns 200ms, 400ms, 800ms... plus up to 50% jitter.
func backoff(i int) time.Duration {
	base := time.Duration(1<<i) * 200 * time.Millisecond
	var b [1]byte
	if _, err := crand.Read(b[:]); err != nil {
		return base
	}
	f := float64(b[0]) / 255.0
	return base + time.Duration(0.5*f*float64(base))
}
