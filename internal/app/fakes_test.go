package app_test

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"hotel_reconciler/internal/app"
	"hotel_reconciler/internal/domain"
	"hotel_reconciler/internal/storage/memory"
)

const suiteLabel = "Suite Deluxe"

type harness struct {
	store *memory.Store
	inv   *app.InventoryService
	rec   *app.Reconciler
}

// newHarness seeds one category with n free units.
func newHarness(n int) *harness {
	s := memory.New()
	s.Seed(domain.Category{ID: "suite", Title: "Suite", Subtitle: suiteLabel, Price: 320}, n)
	inv := app.NewInventoryService(s, nil, 0)
	return &harness{store: s, inv: inv, rec: app.NewReconciler(s, inv)}
}

func (h *harness) addTx(orderID string, status domain.TxStatus) {
	err := h.store.CreateTransaction(context.Background(), domain.Transaction{
		ID: "tx-" + orderID, OrderID: orderID, CategoryLabel: suiteLabel,
		Amount: 320, Status: status, CreatedAt: time.Now(),
	})
	if err != nil {
		panic(err)
	}
}

func (h *harness) countUnits(status domain.UnitStatus) int {
	us, _ := h.store.ListUnits(context.Background())
	n := 0
	for _, u := range us {
		if u.Status == status {
			n++
		}
	}
	return n
}

func (h *harness) tx(orderID string) domain.Transaction {
	tx, err := h.store.GetTransaction(context.Background(), orderID)
	if err != nil {
		panic(err)
	}
	return tx
}

/********** gateway **********/

type fakeGateway struct {
	mu      sync.Mutex
	orders  map[string]domain.GatewayOrder
	err     error
	calls   int
	created []domain.CreatePaymentRequest
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{orders: map[string]domain.GatewayOrder{}}
}

func (g *fakeGateway) put(orderID, status string, subs ...string) {
	o := domain.GatewayOrder{OrderID: orderID, OrderStatus: status}
	for _, s := range subs {
		raw, _ := json.Marshal(map[string]string{"status": s})
		o.Transactions = append(o.Transactions, domain.GatewayTransaction{Status: s, Raw: raw})
	}
	o.Raw, _ = json.Marshal(map[string]string{"orderId": orderID, "orderStatus": status})
	g.mu.Lock()
	g.orders[orderID] = o
	g.mu.Unlock()
}

func (g *fakeGateway) GetOrder(ctx context.Context, orderID string) (domain.GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.err != nil {
		return domain.GatewayOrder{}, g.err
	}
	o, ok := g.orders[orderID]
	if !ok {
		return domain.GatewayOrder{}, domain.ErrGatewayMalformed
	}
	return o, nil
}

func (g *fakeGateway) CreatePayment(ctx context.Context, req domain.CreatePaymentRequest) (domain.PaymentForm, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return domain.PaymentForm{}, g.err
	}
	g.created = append(g.created, req)
	return domain.PaymentForm{FormToken: "tok-" + req.OrderID, PaymentURL: "https://pay.example/" + req.OrderID}, nil
}

/********** cache **********/

type fakeCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gets int
	hits int
}

func newFakeCache() *fakeCache { return &fakeCache{data: map[string][]byte{}} }

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	b, ok := c.data[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(b, dst)
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.data[key] = b
	c.mu.Unlock()
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	delete(c.data, key)
	c.mu.Unlock()
	return nil
}
