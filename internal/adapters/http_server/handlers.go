package httpserver

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"hotel_reconciler/internal/app"
	"hotel_reconciler/internal/domain"
)

const maxBody = 1 << 20

type Handlers struct {
	Inventory   *app.InventoryService
	Booking     *app.BookingService
	Reconciler  *app.Reconciler
	Push        *app.PushIngress
	Sync        *app.SyncService
	Complaints  *app.ComplaintService
	AdminSecret string
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/api", func(r chi.Router) {
		r.Get("/categories", h.listCategories)
		r.Post("/payment", h.startPayment)
		r.Post("/manual-reservation", h.manualReservation)
		r.Post("/complaints", h.submitComplaint)
		r.Post("/webhook/izipay", h.izipayWebhook)
		r.Post("/logout", logout)
	})

	s.mux.Route("/admin", func(r chi.Router) {
		r.Use(RequireAdmin(h.AdminSecret))
		r.Get("/units", h.listUnits)
		r.Post("/rooms", h.updateRooms)
		r.Get("/transactions", h.listTransactions)
		r.Post("/transactions/delete", h.deleteTransaction)
		r.Post("/transactions/{orderId}/confirm", h.settleManual(domain.TxSuccessful))
		r.Post("/transactions/{orderId}/reject", h.settleManual(domain.TxCancelled))
		r.Post("/sync-status", h.syncStatus)
		r.Post("/complaints", h.updateComplaint)
	})
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, domain.ErrSignatureInvalid):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "invalid signature")
	case errors.Is(err, domain.ErrUnknownOrder), errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrStatusConflict):
		writeProblem(w, http.StatusConflict, "Conflict", "transaction changed concurrently; retry")
	case errors.Is(err, domain.ErrGatewayUnreachable):
		writeProblem(w, http.StatusServiceUnavailable, "Gateway Unreachable", err.Error())
	case errors.Is(err, domain.ErrGatewayMalformed):
		writeProblem(w, http.StatusBadGateway, "Bad Gateway", err.Error())
	default:
		log.Error().Err(err).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "body must be valid JSON")
		return false
	}
	return true
}

func writeOK(w http.ResponseWriter) { writeJSON(w, http.StatusOK, map[string]any{"success": true}) }

/********** public **********/

func (h *Handlers) listCategories(w http.ResponseWriter, r *http.Request) {
	views, err := h.Inventory.Categories(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, views)
}

type paymentBody struct {
	Room     string          `json:"room"`
	Price    float64         `json:"price"`
	Email    string          `json:"email"`
	Customer json.RawMessage `json:"customer"`
}

func (h *Handlers) startPayment(w http.ResponseWriter, r *http.Request) {
	var b paymentBody
	if !decodeJSON(w, r, &b) {
		return
	}
	res, err := h.Booking.StartPayment(r.Context(), app.StartPaymentRequest{
		CategoryLabel: b.Room,
		Amount:        b.Price,
		Email:         b.Email,
		Customer:      b.Customer,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"orderId":    res.OrderID,
		"formToken":  res.FormToken,
		"paymentUrl": res.PaymentURL,
	})
}

type manualBody struct {
	Room      string  `json:"room"`
	Price     float64 `json:"price"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Email     string  `json:"email"`
	DNI       string  `json:"dni"`
	Phone     string  `json:"phone"`
	CheckIn   string  `json:"checkin"`
	CheckOut  string  `json:"checkout"`
	Nights    int     `json:"nights"`
}

func (h *Handlers) manualReservation(w http.ResponseWriter, r *http.Request) {
	var b manualBody
	if !decodeJSON(w, r, &b) {
		return
	}
	orderID, err := h.Booking.ManualReservation(r.Context(), app.ManualReservationRequest{
		CategoryLabel: b.Room, Amount: b.Price,
		FirstName: b.FirstName, LastName: b.LastName, Email: b.Email,
		DocumentID: b.DNI, Phone: b.Phone,
		CheckIn: b.CheckIn, CheckOut: b.CheckOut, Nights: b.Nights,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "orderId": orderID})
}

func (h *Handlers) submitComplaint(w http.ResponseWriter, r *http.Request) {
	var c domain.Complaint
	if !decodeJSON(w, r, &c) {
		return
	}
	id, err := h.Complaints.Submit(r.Context(), c)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "complaintId": id})
}

// izipayWebhook is the push ingress. The gateway retries on non-2xx, so an
// order we never issued is acknowledged rather than bounced.
func (h *Handlers) izipayWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	if err := r.ParseForm(); err != nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "form body expected")
		return
	}
	out, err := h.Push.Handle(r.Context(), r.PostForm.Get("kr-answer"), r.PostForm.Get("kr-hash"))
	if errors.Is(err, domain.ErrUnknownOrder) {
		log.Warn().Str("order_id", out.OrderID).Msg("push for unknown order acknowledged")
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "ignored": true})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": out.Stored})
}

func logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true, SameSite: http.SameSiteStrictMode})
	writeOK(w)
}

/********** admin **********/

func (h *Handlers) listUnits(w http.ResponseWriter, r *http.Request) {
	us, err := h.Inventory.Units(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, us)
}

type roomsBody struct {
	ID         int64             `json:"id"`
	Status     domain.UnitStatus `json:"status"`
	Category   string            `json:"category"`
	FromStatus domain.UnitStatus `json:"fromStatus"`
	ToStatus   domain.UnitStatus `json:"toStatus"`
	Action     string            `json:"action"`
	Price      *float64          `json:"price"`
}

// updateRooms is the single operator endpoint for inventory: a per-unit
// override, a category transition, unit add/remove, and an optional
// category-wide price change, in that precedence.
func (h *Handlers) updateRooms(w http.ResponseWriter, r *http.Request) {
	var b roomsBody
	if !decodeJSON(w, r, &b) {
		return
	}
	ctx := r.Context()
	success := true
	acted := true
	var err error

	switch {
	case b.Category != "" && b.Action != "":
		switch b.Action {
		case "add_unit":
			success, err = h.Inventory.AddUnit(ctx, b.Category)
		case "remove_unit":
			success, err = h.Inventory.RemoveUnit(ctx, b.Category)
		default:
			writeProblem(w, http.StatusBadRequest, "Bad Request", "action must be add_unit or remove_unit")
			return
		}
	case b.Category != "" && b.FromStatus != "" && b.ToStatus != "":
		success, err = h.Inventory.TransitionUnit(ctx, b.Category, b.FromStatus, b.ToStatus)
	case b.ID != 0 && b.Status != "":
		success, err = h.Inventory.SetUnitStatus(ctx, b.ID, b.Status)
	default:
		acted = false
	}
	if !acted && b.Price == nil {
		writeProblem(w, http.StatusBadRequest, "Bad Request", "nothing to update")
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	if b.Price != nil {
		cat := b.Category
		if cat == "" && b.ID != 0 {
			if cat, err = h.Inventory.CategoryOfUnit(ctx, b.ID); err != nil {
				writeError(w, err)
				return
			}
		}
		if cat != "" {
			priced, err := h.Inventory.SetCategoryPrice(ctx, cat, *b.Price)
			if err != nil {
				writeError(w, err)
				return
			}
			success = priced && success
		}
	}

	if !success {
		writeProblem(w, http.StatusNotFound, "Not Found", "no matching room to update")
		return
	}
	writeOK(w)
}

func (h *Handlers) listTransactions(w http.ResponseWriter, r *http.Request) {
	txs, err := h.Booking.Transactions(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, txs)
}

type orderBody struct {
	OrderID string `json:"orderId"`
}

func (h *Handlers) deleteTransaction(w http.ResponseWriter, r *http.Request) {
	var b orderBody
	if !decodeJSON(w, r, &b) {
		return
	}
	deleted, err := h.Booking.DeleteTransaction(r.Context(), strings.TrimSpace(b.OrderID))
	if err != nil {
		writeError(w, err)
		return
	}
	if !deleted {
		writeProblem(w, http.StatusNotFound, "Not Found", "transaction not found")
		return
	}
	writeOK(w)
}

func (h *Handlers) syncStatus(w http.ResponseWriter, r *http.Request) {
	var b orderBody
	if !decodeJSON(w, r, &b) {
		return
	}
	res, err := h.Sync.SyncOrder(r.Context(), strings.TrimSpace(b.OrderID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":   true,
		"newStatus": res.Outcome.Stored,
		"iziStatus": res.GatewayStatus,
		"unitBound": res.Outcome.UnitBound,
		"debug": map[string]any{
			"txStatuses": res.SubStatuses,
		},
	})
}

// settleManual confirms or rejects an offline reservation through the same
// guard and binding path gateway observations take.
func (h *Handlers) settleManual(status domain.TxStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")
		detail, _ := json.Marshal(map[string]string{"source": app.SourceManual, "status": string(status)})
		out, err := h.Reconciler.Apply(r.Context(), app.SourceManual, orderID, status, detail)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"status":     out.Stored,
			"unitBound":  out.UnitBound,
			"noFreeUnit": out.NoFreeUnit,
		})
	}
}

type complaintStatusBody struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func (h *Handlers) updateComplaint(w http.ResponseWriter, r *http.Request) {
	var b complaintStatusBody
	if !decodeJSON(w, r, &b) {
		return
	}
	updated, err := h.Complaints.UpdateStatus(r.Context(), b.ID, b.Status)
	if err != nil {
		writeError(w, err)
		return
	}
	if !updated {
		writeProblem(w, http.StatusNotFound, "Not Found", "complaint not found")
		return
	}
	writeOK(w)
}
