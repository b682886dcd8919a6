package httpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotel_reconciler/internal/app"
	"hotel_reconciler/internal/domain"
	"hotel_reconciler/internal/storage/memory"
)

const (
	testSecret = "admin-secret"
	testHMAC   = "push-key"
	suite      = "Suite Deluxe"
)

type stubGateway struct {
	order domain.GatewayOrder
	err   error
}

func (g *stubGateway) GetOrder(ctx context.Context, orderID string) (domain.GatewayOrder, error) {
	return g.order, g.err
}

func (g *stubGateway) CreatePayment(ctx context.Context, req domain.CreatePaymentRequest) (domain.PaymentForm, error) {
	if g.err != nil {
		return domain.PaymentForm{}, g.err
	}
	return domain.PaymentForm{FormToken: "tok", PaymentURL: "https://pay.example/" + req.OrderID}, nil
}

type env struct {
	srv   http.Handler
	store *memory.Store
	gw    *stubGateway
}

func newEnv(t *testing.T, units int) *env {
	t.Helper()
	st := memory.New()
	st.Seed(domain.Category{ID: "suite", Title: "Suite", Subtitle: suite, Price: 300}, units)
	gw := &stubGateway{}
	inv := app.NewInventoryService(st, nil, 0)
	rec := app.NewReconciler(st, inv)

	s := New()
	s.MountHandlers(&Handlers{
		Inventory:   inv,
		Booking:     app.NewBookingService(gw, st, inv, "PEN"),
		Reconciler:  rec,
		Push:        app.NewPushIngress(rec, testHMAC),
		Sync:        app.NewSyncService(gw, st, rec),
		Complaints:  app.NewComplaintService(st),
		AdminSecret: testSecret,
	})
	return &env{srv: s.Mux(), store: st, gw: gw}
}

func (e *env) do(t *testing.T, method, path, body string, admin bool) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if admin {
		tok := SignSession(testSecret, Session{User: "ops", Exp: time.Now().Add(time.Hour).UnixMilli()})
		req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tok})
	}
	rec := httptest.NewRecorder()
	e.srv.ServeHTTP(rec, req)
	return rec
}

func (e *env) addTx(t *testing.T, orderID string, st domain.TxStatus) {
	t.Helper()
	require.NoError(t, e.store.CreateTransaction(context.Background(), domain.Transaction{
		ID: "tx-" + orderID, OrderID: orderID, CategoryLabel: suite, Amount: 300, Status: st, CreatedAt: time.Now(),
	}))
}

func (e *env) status(t *testing.T, orderID string) domain.TxStatus {
	t.Helper()
	tx, err := e.store.GetTransaction(context.Background(), orderID)
	require.NoError(t, err)
	return tx.Status
}

func (e *env) reserved() int {
	us, _ := e.store.ListUnits(context.Background())
	n := 0
	for _, u := range us {
		if u.Status == domain.UnitReserved {
			n++
		}
	}
	return n
}

func postForm(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	e := newEnv(t, 0)
	rec := e.do(t, http.MethodGet, "/healthz", "", false)
	assert.Equal(t, 200, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestWebhook_SignedPaidBindsUnit(t *testing.T) {
	e := newEnv(t, 2)
	e.addTx(t, "reserva_1", domain.TxPending)

	answer := `{"orderStatus":"PAID","orderDetails":{"orderId":"reserva_1"}}`
	form := url.Values{"kr-answer": {answer}, "kr-hash": {app.Sign([]byte(testHMAC), []byte(answer))}}
	rec := postForm(e.srv, "/api/webhook/izipay", form)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, domain.TxSuccessful, e.status(t, "reserva_1"))
	assert.Equal(t, 1, e.reserved())

	// duplicate delivery
	rec = postForm(e.srv, "/api/webhook/izipay", form)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, e.reserved())
}

func TestWebhook_TamperedIsUnauthorized(t *testing.T) {
	e := newEnv(t, 1)
	e.addTx(t, "reserva_1", domain.TxPending)

	signed := `{"orderStatus":"UNPAID","orderDetails":{"orderId":"reserva_1"}}`
	form := url.Values{
		"kr-answer": {strings.Replace(signed, "UNPAID", "PAID", 1)},
		"kr-hash":   {app.Sign([]byte(testHMAC), []byte(signed))},
	}
	rec := postForm(e.srv, "/api/webhook/izipay", form)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, domain.TxPending, e.status(t, "reserva_1"))
	assert.Zero(t, e.reserved())
}

func TestWebhook_MissingFieldsAndUnknownOrder(t *testing.T) {
	e := newEnv(t, 1)

	rec := postForm(e.srv, "/api/webhook/izipay", url.Values{"kr-answer": {"{}"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	answer := `{"orderStatus":"PAID","orderDetails":{"orderId":"ghost"}}`
	rec = postForm(e.srv, "/api/webhook/izipay", url.Values{
		"kr-answer": {answer}, "kr-hash": {app.Sign([]byte(testHMAC), []byte(answer))},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ignored":true`)
	assert.Zero(t, e.reserved())
}

func TestAdmin_RequiresValidSession(t *testing.T) {
	e := newEnv(t, 1)

	rec := e.do(t, http.MethodGet, "/admin/transactions", "", false)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	for name, tok := range map[string]string{
		"expired":    SignSession(testSecret, Session{User: "ops", Exp: time.Now().Add(-time.Minute).UnixMilli()}),
		"wrong key":  SignSession("other", Session{User: "ops", Exp: time.Now().Add(time.Hour).UnixMilli()}),
		"no dot":     "abc",
		"bad base64": "!!!." + sessionMAC(testSecret, "!!!"),
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/admin/transactions", nil)
			req.AddCookie(&http.Cookie{Name: SessionCookie, Value: tok})
			rec := httptest.NewRecorder()
			e.srv.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}

	rec = e.do(t, http.MethodGet, "/admin/transactions", "", true)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVerifySession_RoundTrip(t *testing.T) {
	now := time.Now()
	tok := SignSession(testSecret, Session{User: "ops", Exp: now.Add(time.Minute).UnixMilli()})
	s, ok := VerifySession(testSecret, tok, now)
	require.True(t, ok)
	assert.Equal(t, "ops", s.User)

	_, ok = VerifySession("", tok, now)
	assert.False(t, ok, "empty secret never verifies")
	_, ok = VerifySession(testSecret, tok, now.Add(2*time.Minute))
	assert.False(t, ok)
}

func TestSyncStatus_ErrorMapping(t *testing.T) {
	e := newEnv(t, 1)
	e.addTx(t, "o1", domain.TxPending)

	e.gw.err = domain.ErrGatewayUnreachable
	rec := e.do(t, http.MethodPost, "/admin/sync-status", `{"orderId":"o1"}`, true)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	e.gw.err = domain.ErrGatewayMalformed
	rec = e.do(t, http.MethodPost, "/admin/sync-status", `{"orderId":"o1"}`, true)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, domain.TxPending, e.status(t, "o1"))

	rec = e.do(t, http.MethodPost, "/admin/sync-status", `{"orderId":"ghost"}`, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPost, "/admin/sync-status", `{}`, true)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSyncStatus_Paid(t *testing.T) {
	e := newEnv(t, 1)
	e.addTx(t, "o1", domain.TxPending)
	e.gw.order = domain.GatewayOrder{
		OrderID:      "o1",
		OrderStatus:  "PAID",
		Transactions: []domain.GatewayTransaction{{Status: "CAPTURED", Raw: json.RawMessage(`{"status":"CAPTURED"}`)}},
	}

	rec := e.do(t, http.MethodPost, "/admin/sync-status", `{"orderId":"o1"}`, true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var body struct {
		NewStatus string `json:"newStatus"`
		IziStatus string `json:"iziStatus"`
		UnitBound bool   `json:"unitBound"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "successful", body.NewStatus)
	assert.Equal(t, "PAID", body.IziStatus)
	assert.True(t, body.UnitBound)
}

func TestManualReservation_ConfirmAndReject(t *testing.T) {
	e := newEnv(t, 2)

	rec := e.do(t, http.MethodPost, "/api/manual-reservation",
		`{"room":"Suite Deluxe","price":600,"firstName":"Ana","email":"a@example.com","nights":2}`, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created struct {
		OrderID string `json:"orderId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, domain.TxStarted, e.status(t, created.OrderID))

	rec = e.do(t, http.MethodPost, "/admin/transactions/"+created.OrderID+"/confirm", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.TxSuccessful, e.status(t, created.OrderID))
	assert.Equal(t, 1, e.reserved())

	// a late reject never undoes a confirmed payment
	rec = e.do(t, http.MethodPost, "/admin/transactions/"+created.OrderID+"/reject", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.TxSuccessful, e.status(t, created.OrderID))
	assert.Equal(t, 1, e.reserved())

	rec = e.do(t, http.MethodPost, "/admin/transactions/ghost/confirm", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAdminRooms(t *testing.T) {
	e := newEnv(t, 1)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"unit override", `{"id":1,"status":"cleaning"}`, 200},
		{"invalid status", `{"id":1,"status":"flooded"}`, 400},
		{"transition", `{"category":"suite","fromStatus":"cleaning","toStatus":"free"}`, 200},
		{"transition none in from", `{"category":"suite","fromStatus":"cleaning","toStatus":"free"}`, 404},
		{"add unit", `{"category":"suite","action":"add_unit"}`, 200},
		{"remove unit", `{"category":"suite","action":"remove_unit"}`, 200},
		{"bad action", `{"category":"suite","action":"explode"}`, 400},
		{"price via unit", `{"id":1,"price":450}`, 200},
		{"negative price", `{"category":"suite","price":-1}`, 400},
		{"unknown category price", `{"category":"nope","price":10}`, 404},
		{"nothing", `{}`, 400},
		{"not json", `{`, 400},
	}
	for _, tc := range cases {
		rec := e.do(t, http.MethodPost, "/admin/rooms", tc.body, true)
		assert.Equal(t, tc.code, rec.Code, "%s: %s", tc.name, rec.Body.String())
	}

	rec := e.do(t, http.MethodGet, "/api/categories", "", false)
	require.Equal(t, http.StatusOK, rec.Code)
	var views []domain.CategoryView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, 450.0, views[0].Price)
	assert.Equal(t, 1, views[0].Total)
	assert.Equal(t, domain.UnitFree, views[0].Status)
}

func TestPaymentAndTransactions(t *testing.T) {
	e := newEnv(t, 1)

	rec := e.do(t, http.MethodPost, "/api/payment", `{"room":"Suite Deluxe","price":300}`, false)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"formToken":"tok"`)

	rec = e.do(t, http.MethodPost, "/api/payment", `{"room":"Penthouse","price":300}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodGet, "/admin/transactions", "", true)
	require.Equal(t, http.StatusOK, rec.Code)
	var txs []domain.Transaction
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &txs))
	require.Len(t, txs, 1)
	assert.Equal(t, domain.TxPending, txs[0].Status)

	rec = e.do(t, http.MethodPost, "/admin/transactions/delete", `{"orderId":"`+txs[0].OrderID+`"}`, true)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = e.do(t, http.MethodPost, "/admin/transactions/delete", `{"orderId":"`+txs[0].OrderID+`"}`, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestComplaints(t *testing.T) {
	e := newEnv(t, 0)

	rec := e.do(t, http.MethodPost, "/api/complaints", `{"fullName":"Luis"}`, false)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/api/complaints",
		`{"fullName":"Luis","documentNumber":"1","email":"l@example.com","description":"noise"}`, false)
	require.Equal(t, http.StatusOK, rec.Code)
	var created struct {
		ComplaintID string `json:"complaintId"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = e.do(t, http.MethodPost, "/admin/complaints", `{"id":"`+created.ComplaintID+`","status":"resolved"}`, true)
	assert.Equal(t, http.StatusOK, rec.Code)
	c, ok := e.store.Complaint(created.ComplaintID)
	require.True(t, ok)
	assert.Equal(t, "resolved", c.Status)

	rec = e.do(t, http.MethodPost, "/admin/complaints", `{"id":"REC-x","status":"resolved"}`, true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
