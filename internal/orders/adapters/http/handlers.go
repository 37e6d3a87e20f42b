package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/dejobratic/storefront/internal/orders/app"
	"github.com/dejobratic/storefront/internal/orders/app/commands"
	"github.com/dejobratic/storefront/internal/orders/app/queries"
	"github.com/dejobratic/storefront/internal/orders/domain"
	"github.com/dejobratic/storefront/internal/orders/ports"
	promodomain "github.com/dejobratic/storefront/internal/promotions/domain"
	"github.com/shopspring/decimal"
)

// Handler exposes HTTP endpoints for checkout and order operations.
type Handler struct {
	service *app.Service
}

// NewHandler constructs a Handler.
func NewHandler(service *app.Service) *Handler {
	return &Handler{service: service}
}

// Register binds the order handlers to the provided ServeMux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/v1/checkout", h.handleCheckout)
	mux.HandleFunc("/v1/orders", h.handleOrders)
	mux.HandleFunc("/v1/orders/stats/revenue", h.handleRevenueSummary)
	mux.HandleFunc("/v1/orders/stats/top-customers", h.handleTopCustomers)
	mux.HandleFunc("/v1/orders/stats/categories", h.handleCategorySales)
	mux.HandleFunc("/v1/orders/", h.handleOrderByID)
}

// actorFrom reads the caller identity headers. Authentication itself happens
// upstream; these headers are trusted here.
func actorFrom(r *http.Request) ports.Actor {
	return ports.Actor{
		UserID: strings.TrimSpace(r.Header.Get("X-Actor-ID")),
		Admin:  strings.EqualFold(r.Header.Get("X-Actor-Role"), "admin"),
	}
}

type checkoutItem struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type checkoutPayload struct {
	Items []checkoutItem `json:"items"`

	GuestName  string `json:"guest_name,omitempty"`
	GuestEmail string `json:"guest_email,omitempty"`
	GuestPhone string `json:"guest_phone,omitempty"`

	AddressID   string                  `json:"address_id,omitempty"`
	Address     *commands.AddressFields `json:"address,omitempty"`
	SaveAddress bool                    `json:"save_address,omitempty"`
	LockerID    string                  `json:"locker_id,omitempty"`

	DeliveryMethod string `json:"delivery_method"`
	PaymentMethod  string `json:"payment_method"`
	VoucherCode    string `json:"voucher_code,omitempty"`
}

// requestCart adapts the cart snapshot carried in the checkout payload to the
// CartProvider contract. The client owns the cart, so Clear is a no-op.
type requestCart struct {
	lines []ports.CartLine
}

func (c *requestCart) Lines(_ context.Context) ([]ports.CartLine, error) {
	return c.lines, nil
}

func (c *requestCart) Total(_ context.Context) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

func (c *requestCart) Clear(_ context.Context) error {
	return nil
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	ctx := r.Context()
	idemKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idemKey == "" {
		writeError(w, http.StatusBadRequest, "Idempotency-Key header required")
		return
	}

	if stored, err := h.service.GetIdempotentResponse(ctx, idemKey); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	} else if stored != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(stored.StatusCode)
		_, _ = w.Write(stored.Body)
		return
	}

	var payload checkoutPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	cart := &requestCart{}
	for _, item := range payload.Items {
		cart.lines = append(cart.lines, ports.CartLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	cmd := commands.CheckoutCommand{
		GuestName:      payload.GuestName,
		GuestEmail:     payload.GuestEmail,
		GuestPhone:     payload.GuestPhone,
		AddressID:      payload.AddressID,
		Address:        payload.Address,
		SaveAddress:    payload.SaveAddress,
		LockerID:       payload.LockerID,
		DeliveryMethod: payload.DeliveryMethod,
		PaymentMethod:  payload.PaymentMethod,
		VoucherCode:    payload.VoucherCode,
	}

	order, err := h.service.Checkout(ctx, cmd, cart, actorFrom(r))
	if err != nil {
		writeCheckoutError(w, err)
		return
	}

	body, err := json.Marshal(map[string]any{"order": order})
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	stored := ports.StoredResponse{
		StatusCode:  http.StatusCreated,
		Body:        body,
		OrderID:     order.ID,
		OrderNumber: order.Number,
	}

	if err := h.service.SaveIdempotentResponse(ctx, idemKey, stored); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(body)
}

func (h *Handler) handleOrders(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := queries.ListOrdersQuery{
		Status:     r.URL.Query().Get("status"),
		SearchTerm: r.URL.Query().Get("q"),
		Actor:      actorFrom(r),
	}
	if pageParam := r.URL.Query().Get("page"); pageParam != "" {
		if page, err := strconv.Atoi(pageParam); err == nil {
			query.Page = page
		}
	}
	if pageSizeParam := r.URL.Query().Get("page_size"); pageSizeParam != "" {
		if pageSize, err := strconv.Atoi(pageSizeParam); err == nil {
			query.PageSize = pageSize
		}
	}

	orders, err := h.service.ListOrders(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handler) handleOrderByID(w http.ResponseWriter, r *http.Request) {
	trimmed := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/v1/orders/"), "/")
	if trimmed == "" {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	id, action, _ := strings.Cut(trimmed, "/")
	if id == "" {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		h.getOrder(w, r, id)
	case "cancel":
		h.postAction(w, r, id, h.cancelOrder)
	case "status":
		h.postAction(w, r, id, h.updateStatus)
	case "tracking":
		h.postAction(w, r, id, h.assignTracking)
	case "notes":
		h.postAction(w, r, id, h.addNote)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *Handler) postAction(w http.ResponseWriter, r *http.Request, id string, fn func(http.ResponseWriter, *http.Request, string)) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	fn(w, r, id)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request, id string) {
	order, err := h.service.GetOrder(r.Context(), id, actorFrom(r))
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request, id string) {
	var payload struct {
		Reason string `json:"reason"`
	}
	_ = json.NewDecoder(r.Body).Decode(&payload)

	order, err := h.service.CancelOrder(r.Context(), id, payload.Reason, actorFrom(r))
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request, id string) {
	var payload struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	status, err := domain.ParseOrderStatus(payload.Status)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), id, status, actorFrom(r))
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) assignTracking(w http.ResponseWriter, r *http.Request, id string) {
	var payload struct {
		TrackingNumber string `json:"tracking_number"`
	}
	_ = json.NewDecoder(r.Body).Decode(&payload)

	var (
		order *domain.Order
		err   error
	)
	if strings.TrimSpace(payload.TrackingNumber) == "" {
		order, err = h.service.GenerateTracking(r.Context(), id, actorFrom(r))
	} else {
		order, err = h.service.AssignTracking(r.Context(), id, payload.TrackingNumber, actorFrom(r))
	}
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) addNote(w http.ResponseWriter, r *http.Request, id string) {
	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	order, err := h.service.AddNote(r.Context(), id, payload.Text, actorFrom(r))
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"order": order})
}

func (h *Handler) handleRevenueSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	from, err := parseDate(r.URL.Query().Get("from"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date")
		return
	}
	to, err := parseDate(r.URL.Query().Get("to"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date")
		return
	}
	if to.IsZero() {
		to = time.Now().UTC()
	}

	summary, err := h.service.RevenueSummary(r.Context(), from, to, actorFrom(r))
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"summary": summary})
}

func (h *Handler) handleTopCustomers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := 0
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil {
			limit = parsed
		}
	}

	customers, err := h.service.TopCustomers(r.Context(), limit, actorFrom(r))
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"customers": customers})
}

func (h *Handler) handleCategorySales(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	sales, err := h.service.CategorySales(r.Context(), actorFrom(r))
	if err != nil {
		writeOrderError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": sales})
}

func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", value)
}

func writeOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ports.ErrNotFound):
		writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, ports.ErrNotAuthorized):
		writeError(w, http.StatusForbidden, "not authorized")
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrAlreadyCancelled),
		errors.Is(err, domain.ErrCancellationWindowClosed),
		errors.Is(err, domain.ErrNotCancellable),
		errors.Is(err, domain.ErrTrackingAlreadySet),
		errors.Is(err, commands.ErrCancelViaStatusChange):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func writeCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, promodomain.ErrVoucherNotFound),
		errors.Is(err, promodomain.ErrVoucherExpired),
		errors.Is(err, promodomain.ErrVoucherMinimumNotMet),
		errors.Is(err, promodomain.ErrUsageLimitReached):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ports.ErrAddressNotFound),
		errors.Is(err, ports.ErrAddressNotOwned):
		writeError(w, http.StatusForbidden, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
