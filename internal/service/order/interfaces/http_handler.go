package interfaces

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"partsmarket/internal/pkg/logger"
	"partsmarket/internal/service/order/application"
	"partsmarket/internal/service/order/domain"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Handler 暴露市场的 REST 接口
type Handler struct {
	orders       *application.OrderApplicationService
	transactions *application.TransactionApplicationService
	settlement   *application.SettlementApplicationService
	catalog      *application.CatalogApplicationService
	now          func() time.Time
}

func NewHandler(
	orders *application.OrderApplicationService,
	transactions *application.TransactionApplicationService,
	settlement *application.SettlementApplicationService,
	catalog *application.CatalogApplicationService,
) *Handler {
	return &Handler{orders: orders, transactions: transactions, settlement: settlement, catalog: catalog, now: time.Now}
}

// RegisterRoutes 在 chi 路由上注册所有接口
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(extractTraceContext)

		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.registerAccount)
			r.Get("/{id}", h.getAccount)
		})

		r.Route("/parts", func(r chi.Router) {
			r.Post("/", h.createPart)
			r.Get("/", h.listParts)
			r.Get("/{id}", h.getPart)
			r.Post("/{id}/restock", h.restockPart)
			r.Post("/{id}/disable", h.disablePart)
			r.Post("/{id}/enable", h.enablePart)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.createOrder)
			r.Get("/", h.listOrders)
			r.Get("/{id}", h.getOrder)
			r.Get("/{id}/status", h.getOrderStatus)
			r.Get("/{id}/total", h.getOrderTotal)
			r.Patch("/{id}/address", h.updateDeliveryAddress)
			r.Patch("/{id}/status", h.updateOrderStatus)
			r.Post("/{id}/items", h.addItem)
			r.Delete("/{id}/parts/{partId}", h.removeItem)
			r.Post("/{id}/confirm-payment", h.confirmPayment)
			r.Post("/{id}/cancel", h.cancelOrder)
			r.Post("/{id}/deliver", h.markDelivered)
			r.Get("/{id}/transaction", h.getTransactionByOrder)
		})

		r.Route("/items", func(r chi.Router) {
			r.Patch("/{itemId}", h.updateItemQuantity)
			r.Delete("/{itemId}", h.deleteItem)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", h.createTransaction)
			r.Get("/", h.listTransactions)
			r.Get("/{id}", h.getTransaction)
			r.Get("/{id}/can-reverse", h.canReverse)
			r.Post("/{id}/process", h.processTransaction)
			r.Post("/{id}/confirm", h.confirmTransaction)
			r.Post("/{id}/refuse", h.refuseTransaction)
			r.Post("/{id}/reverse", h.reverseTransaction)
			r.Post("/{id}/cancel", h.cancelTransaction)
		})

		r.Route("/resellers/{id}", func(r chi.Router) {
			r.Get("/fees", h.getFeeBalance)
			r.Post("/fees/settle", h.settleFees)
			r.Post("/premium", h.activatePremium)
			r.Delete("/premium", h.deactivatePremium)
		})
	})
}

func extractTraceContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ---- accounts / parts ----

func (h *Handler) registerAccount(w http.ResponseWriter, r *http.Request) {
	var req application.RegisterAccountRequest
	if !decode(w, r, &req) {
		return
	}
	account, err := h.catalog.RegisterAccount(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, application.ToAccountResponse(account, h.now()))
}

func (h *Handler) getAccount(w http.ResponseWriter, r *http.Request) {
	account, err := h.catalog.GetAccount(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, application.ToAccountResponse(account, h.now()))
}

func (h *Handler) createPart(w http.ResponseWriter, r *http.Request) {
	var req application.CreatePartRequest
	if !decode(w, r, &req) {
		return
	}
	part, err := h.catalog.CreatePart(r.Context(), &req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, application.ToPartResponse(part))
}

func (h *Handler) listParts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	parts, err := h.catalog.ListParts(r.Context(), domain.PartFilter{
		ResellerID:    q.Get("resellerId"),
		Category:      q.Get("category"),
		AvailableOnly: q.Get("available") == "true",
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]*application.PartResponse, 0, len(parts))
	for _, p := range parts {
		resp = append(resp, application.ToPartResponse(p))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getPart(w http.ResponseWriter, r *http.Request) {
	part, err := h.catalog.GetPart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, application.ToPartResponse(part))
}

func (h *Handler) restockPart(w http.ResponseWriter, r *http.Request) {
	var req application.RestockRequest
	if !decode(w, r, &req) {
		return
	}
	part, err := h.catalog.RestockPart(r.Context(), chi.URLParam(r, "id"), req.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, application.ToPartResponse(part))
}

func (h *Handler) disablePart(w http.ResponseWriter, r *http.Request) {
	part, err := h.catalog.DisablePart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, application.ToPartResponse(part))
}

func (h *Handler) enablePart(w http.ResponseWriter, r *http.Request) {
	part, err := h.catalog.EnablePart(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, application.ToPartResponse(part))
}

// ---- orders ----

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req application.CreateOrderRequest
	if !decode(w, r, &req) {
		return
	}
	order, err := h.orders.CreateOrder(r.Context(), &req)
	h.respondOrder(w, r, http.StatusCreated, order, err)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orders, err := h.orders.ListOrders(r.Context(), domain.OrderFilter{
		BuyerID:  q.Get("buyerId"),
		SellerID: q.Get("sellerId"),
		State:    domain.State(q.Get("status")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]*application.OrderResponse, 0, len(orders))
	for _, o := range orders {
		resp = append(resp, application.ToOrderResponse(o))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	h.respondOrder(w, r, http.StatusOK, order, err)
}

func (h *Handler) getOrderStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, err := h.orders.GetOrderStatus(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"orderId": id, "status": string(status)})
}

func (h *Handler) getOrderTotal(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.GetOrder(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"orderId": order.ID, "total": order.Total.StringFixed(2)})
}

func (h *Handler) updateDeliveryAddress(w http.ResponseWriter, r *http.Request) {
	var patch domain.Address
	if !decode(w, r, &patch) {
		return
	}
	order, err := h.orders.UpdateDeliveryAddress(r.Context(), chi.URLParam(r, "id"), patch)
	h.respondOrder(w, r, http.StatusOK, order, err)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req application.UpdateStatusRequest
	if !decode(w, r, &req) {
		return
	}
	order, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	h.respondOrder(w, r, http.StatusOK, order, err)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req application.AddItemRequest
	if !decode(w, r, &req) {
		return
	}
	order, err := h.orders.AddItem(r.Context(), chi.URLParam(r, "id"), req.PartID, req.Quantity)
	h.respondOrder(w, r, http.StatusOK, order, err)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.RemoveItem(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "partId"))
	h.respondOrder(w, r, http.StatusOK, order, err)
}

func (h *Handler) updateItemQuantity(w http.ResponseWriter, r *http.Request) {
	var req application.UpdateQuantityRequest
	if !decode(w, r, &req) {
		return
	}
	order, err := h.orders.UpdateItemQuantity(r.Context(), chi.URLParam(r, "itemId"), req.Quantity)
	h.respondOrder(w, r, http.StatusOK, order, err)
}

func (h *Handler) deleteItem(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.DeleteItem(r.Context(), chi.URLParam(r, "itemId"))
	h.respondOrder(w, r, http.StatusOK, order, err)
}

func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.ConfirmPayment(r.Context(), chi.URLParam(r, "id"))
	h.respondOrder(w, r, http.StatusOK, order, err)
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.CancelOrder(r.Context(), chi.URLParam(r, "id"))
	h.respondOrder(w, r, http.StatusOK, order, err)
}

func (h *Handler) markDelivered(w http.ResponseWriter, r *http.Request) {
	order, err := h.orders.MarkDelivered(r.Context(), chi.URLParam(r, "id"))
	h.respondOrder(w, r, http.StatusOK, order, err)
}

func (h *Handler) respondOrder(w http.ResponseWriter, r *http.Request, status int, order *domain.Order, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, application.ToOrderResponse(order))
}

// ---- transactions ----

func (h *Handler) createTransaction(w http.ResponseWriter, r *http.Request) {
	var req application.CreateTransactionRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.transactions.CreateTransaction(r.Context(), &req)
	h.respondTransaction(w, r, http.StatusCreated, t, err)
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	txs, err := h.transactions.List(r.Context(), domain.TransactionFilter{
		Status: domain.TransactionStatus(q.Get("status")),
		Method: domain.PaymentMethod(q.Get("method")),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	resp := make([]*application.TransactionResponse, 0, len(txs))
	for _, t := range txs {
		resp = append(resp, application.ToTransactionResponse(t))
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) getTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.transactions.GetTransaction(r.Context(), chi.URLParam(r, "id"))
	h.respondTransaction(w, r, http.StatusOK, t, err)
}

func (h *Handler) getTransactionByOrder(w http.ResponseWriter, r *http.Request) {
	t, err := h.transactions.GetByOrder(r.Context(), chi.URLParam(r, "id"))
	h.respondTransaction(w, r, http.StatusOK, t, err)
}

func (h *Handler) canReverse(w http.ResponseWriter, r *http.Request) {
	ok, err := h.transactions.CanReverse(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"canReverse": ok})
}

func (h *Handler) processTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.transactions.Process(r.Context(), chi.URLParam(r, "id"))
	h.respondTransaction(w, r, http.StatusOK, t, err)
}

func (h *Handler) confirmTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.transactions.Confirm(r.Context(), chi.URLParam(r, "id"))
	h.respondTransaction(w, r, http.StatusOK, t, err)
}

func (h *Handler) refuseTransaction(w http.ResponseWriter, r *http.Request) {
	var req application.RefuseRequest
	if !decode(w, r, &req) {
		return
	}
	t, err := h.transactions.Refuse(r.Context(), chi.URLParam(r, "id"), req.Reason)
	h.respondTransaction(w, r, http.StatusOK, t, err)
}

func (h *Handler) reverseTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.transactions.Reverse(r.Context(), chi.URLParam(r, "id"))
	h.respondTransaction(w, r, http.StatusOK, t, err)
}

func (h *Handler) cancelTransaction(w http.ResponseWriter, r *http.Request) {
	t, err := h.transactions.Cancel(r.Context(), chi.URLParam(r, "id"))
	h.respondTransaction(w, r, http.StatusOK, t, err)
}

func (h *Handler) respondTransaction(w http.ResponseWriter, r *http.Request, status int, t *domain.Transaction, err error) {
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, application.ToTransactionResponse(t))
}

// ---- resellers ----

func (h *Handler) getFeeBalance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	balance, err := h.settlement.GetFeeBalance(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"resellerId": id, "feeBalance": balance.StringFixed(2)})
}

func (h *Handler) settleFees(w http.ResponseWriter, r *http.Request) {
	var req application.SettleFeesRequest
	if !decode(w, r, &req) {
		return
	}
	account, err := h.settlement.SettleFees(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, application.ToAccountResponse(account, h.now()))
}

func (h *Handler) activatePremium(w http.ResponseWriter, r *http.Request) {
	var req application.PremiumRequest
	if !decode(w, r, &req) {
		return
	}
	account, err := h.settlement.ActivatePremium(r.Context(), chi.URLParam(r, "id"), req.Days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, application.ToAccountResponse(account, h.now()))
}

func (h *Handler) deactivatePremium(w http.ResponseWriter, r *http.Request) {
	account, err := h.settlement.DeactivatePremium(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, application.ToAccountResponse(account, h.now()))
}

// ---- helpers ----

// decode 允许空请求体
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor 把领域错误映射为 HTTP 状态码
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInsufficientStock),
		errors.Is(err, domain.ErrInvalidOrderState),
		errors.Is(err, domain.ErrInvalidTransactionState):
		return http.StatusConflict
	case errors.Is(err, domain.ErrPayment):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		writeJSON(w, status, errorResponse{Error: "internal error"})
		return
	}
	logger.Ctx(r.Context()).Info().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("request rejected")
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
