// Package api — HTTP-интерфейс приёма заказов и запросов на изменение.
// Запросы на изменение принимаются без ожидания результата: клиент получает
// request_id, а обработкой занимается последовательный воркер.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/kitchenops/internal/domain"
	"github.com/vladislavdragonenkov/kitchenops/internal/metrics"
	"github.com/vladislavdragonenkov/kitchenops/internal/queue"
)

const defaultListLimit = 50

// Handler маршрутизирует HTTP-запросы сервиса.
type Handler struct {
	repo    domain.OrderRepository
	queue   *queue.Queue
	metrics *metrics.ModMetrics
	logger  *log.Entry
}

// NewHandler создаёт HTTP-обработчик поверх хранилища и очереди изменений.
func NewHandler(repo domain.OrderRepository, q *queue.Queue, m *metrics.ModMetrics, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.New().WithField("component", "api")
	}
	return &Handler{repo: repo, queue: q, metrics: m, logger: logger}
}

// Router собирает маршруты API.
func (h *Handler) Router() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/orders", h.createOrder)
	mux.HandleFunc("GET /v1/orders", h.listOrders)
	mux.HandleFunc("GET /v1/orders/{id}", h.getOrder)
	mux.HandleFunc("POST /v1/orders/{id}/confirm", h.confirmOrder)
	mux.HandleFunc("POST /v1/modifications", h.enqueueModification)
	mux.HandleFunc("GET /v1/stats", h.stats)
	return mux
}

type orderPayload struct {
	ClientName    string `json:"client_name"`
	Product       string `json:"product"`
	Size          string `json:"size"`
	Qty           int    `json:"qty"`
	PaymentMethod string `json:"payment_method"`
}

type orderResponse struct {
	ID            int64  `json:"id"`
	ClientName    string `json:"client_name"`
	Product       string `json:"product"`
	Size          string `json:"size"`
	Qty           int    `json:"qty"`
	PaymentMethod string `json:"payment_method"`
	State         string `json:"state"`
	CreatedAt     string `json:"created_at"`
	ConfirmedAt   string `json:"confirmed_at,omitempty"`
}

func toOrderResponse(o domain.Order) orderResponse {
	resp := orderResponse{
		ID:            o.ID,
		ClientName:    o.ClientName,
		Product:       o.Product,
		Size:          o.Size,
		Qty:           o.Qty,
		PaymentMethod: o.PaymentMethod,
		State:         string(o.State),
		CreatedAt:     o.CreatedAt.Format(time.RFC3339),
	}
	if o.ConfirmedAt != nil {
		resp.ConfirmedAt = o.ConfirmedAt.Format(time.RFC3339)
	}
	return resp
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var payload orderPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	order := domain.Order{
		ClientName:    payload.ClientName,
		Product:       payload.Product,
		Size:          payload.Size,
		Qty:           payload.Qty,
		PaymentMethod: payload.PaymentMethod,
	}
	if err := validateOrder(order); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.repo.Create(order)
	if err != nil {
		h.logger.WithError(err).Error("Не удалось создать заказ")
		writeError(w, http.StatusInternalServerError, "failed to create order")
		return
	}

	h.logger.WithField("order_id", created.ID).Info("Заказ создан")
	writeJSON(w, http.StatusCreated, toOrderResponse(created))
}

func validateOrder(o domain.Order) error {
	switch {
	case o.ClientName == "":
		return errors.New("client_name is required")
	case !domain.IsValidProduct(o.Product):
		return domain.ErrInvalidProduct
	case !domain.IsValidSize(o.Size):
		return domain.ErrInvalidSize
	case o.Qty <= 0:
		return domain.ErrInvalidQty
	case !domain.IsValidPaymentMethod(o.PaymentMethod):
		return domain.ErrInvalidPaymentMethod
	}
	return nil
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	orders, err := h.repo.ListRecent(limit)
	if err != nil {
		h.logger.WithError(err).Error("Не удалось получить список заказов")
		writeError(w, http.StatusInternalServerError, "failed to list orders")
		return
	}

	out := make([]orderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, toOrderResponse(order))
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": out})
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.repo.Get(id)
	if err != nil {
		if errors.Is(err, domain.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		h.logger.WithError(err).Error("Не удалось получить заказ")
		writeError(w, http.StatusInternalServerError, "failed to get order")
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

func (h *Handler) confirmOrder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.repo.Confirm(id)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "order not found")
		case errors.Is(err, domain.ErrAlreadyConfirmed):
			writeError(w, http.StatusConflict, "order already confirmed")
		case errors.Is(err, domain.ErrOrderLocked):
			writeError(w, http.StatusConflict, "order state does not allow confirmation")
		default:
			h.logger.WithError(err).Error("Не удалось подтвердить заказ")
			writeError(w, http.StatusInternalServerError, "failed to confirm order")
		}
		return
	}

	h.logger.WithField("order_id", order.ID).Info("Заказ подтверждён")
	writeJSON(w, http.StatusOK, toOrderResponse(order))
}

type modificationPayload struct {
	OrderID int64 `json:"order_id"`
	Urgent  bool  `json:"urgent"`
	Changes struct {
		ClientName    *string `json:"client_name"`
		Product       *string `json:"product"`
		Size          *string `json:"size"`
		Qty           *int    `json:"qty"`
		PaymentMethod *string `json:"payment_method"`
	} `json:"changes"`
}

// enqueueModification принимает запрос на изменение и сразу отвечает 202.
// Итог обработки виден в журнале, метриках и состоянии заказа.
func (h *Handler) enqueueModification(w http.ResponseWriter, r *http.Request) {
	var payload modificationPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if payload.OrderID <= 0 {
		writeError(w, http.StatusBadRequest, "order_id is required")
		return
	}

	changes := domain.ChangeSet{
		ClientName:    payload.Changes.ClientName,
		Product:       payload.Changes.Product,
		Size:          payload.Changes.Size,
		Qty:           payload.Changes.Qty,
		PaymentMethod: payload.Changes.PaymentMethod,
	}
	if changes.IsEmpty() {
		writeError(w, http.StatusBadRequest, "changes must list at least one field")
		return
	}

	req := domain.NewModRequest(payload.OrderID, payload.Urgent, changes)
	h.queue.Push(req)

	h.logger.WithFields(log.Fields{
		"request_id": req.ID,
		"order_id":   req.OrderID,
		"urgent":     req.Urgent,
	}).Info("Запрос на изменение принят в очередь")

	writeJSON(w, http.StatusAccepted, map[string]any{
		"request_id": req.ID,
		"status":     "queued",
	})
}

func (h *Handler) stats(w http.ResponseWriter, _ *http.Request) {
	snapshot := h.metrics.Snapshot()

	byOutcome := make(map[string]int64, len(snapshot.ByOutcome))
	for outcome, count := range snapshot.ByOutcome {
		byOutcome[string(outcome)] = count
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"processed":      snapshot.Processed,
		"by_outcome":     byOutcome,
		"avg_latency_ms": snapshot.AvgLatencyMs,
		"queue_depth":    h.queue.Len(),
	})
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(r.PathValue("id"), 10, 64)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
