package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/minhvu-dev/sakura-store/internal/common"
)

// SessionHeader carries the anonymous cart session identifier. The storefront
// persists it client-side the way the original kept its cart in localStorage.
const SessionHeader = "X-Cart-Session"

// SessionMiddleware ensures every request carries a cart session id, minting
// one when absent, and echoes it on the response.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := strings.TrimSpace(r.Header.Get(SessionHeader))
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		w.Header().Set(SessionHeader, sessionID)
		next.ServeHTTP(w, r.WithContext(common.WithSessionID(r.Context(), sessionID)))
	})
}

// Handler exposes cart endpoints over the session-scoped store.
type Handler struct {
	Svc *Service
}

type addReq struct {
	ProductID int64 `json:"productId"`
	Qty       int   `json:"qty"`
}

// Get returns the resolved cart.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := common.SessionID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "missing cart session", nil)
		return
	}
	view, err := h.Svc.Get(r.Context(), sessionID)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "load cart", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": view})
}

// Add inserts or increments a cart entry.
func (h *Handler) Add(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := common.SessionID(r.Context())
	var req addReq
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	if req.Qty == 0 {
		req.Qty = 1
	}
	if err := h.Svc.Add(r.Context(), sessionID, req.ProductID, req.Qty); err != nil {
		h.writeError(w, err)
		return
	}
	h.Get(w, r)
}

// Increase bumps an entry's quantity by one.
func (h *Handler) Increase(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.Svc.Increase)
}

// Decrease lowers an entry's quantity by one, removing it at zero.
func (h *Handler) Decrease(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.Svc.Decrease)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request, op func(context.Context, string, int64) error) {
	sessionID, _ := common.SessionID(r.Context())
	productID, err := productIDParam(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	if err := op(r.Context(), sessionID, productID); err != nil {
		h.writeError(w, err)
		return
	}
	h.Get(w, r)
}

// Remove deletes an entry entirely.
func (h *Handler) Remove(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := common.SessionID(r.Context())
	productID, err := productIDParam(r)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	if err := h.Svc.Remove(r.Context(), sessionID, productID); err != nil {
		h.writeError(w, err)
		return
	}
	h.Get(w, r)
}

// Clear empties the cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	sessionID, _ := common.SessionID(r.Context())
	if err := h.Svc.Clear(r.Context(), sessionID); err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "clear cart", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": View{SessionID: sessionID, Items: []Line{}}})
}

func productIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "productId"), 10, 64)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "CART_ITEM_NOT_FOUND", "item not in cart", nil)
	case errors.Is(err, ErrInvalidInput):
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "cart operation failed", nil)
	}
}
