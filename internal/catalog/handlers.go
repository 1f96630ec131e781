package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/minhvu-dev/sakura-store/internal/common"
)

// Handler exposes read-only catalog endpoints.
type Handler struct {
	Svc *Service
}

// Products lists the assortment with optional category, q, tag and price filters.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "catalog service not configured", nil)
		return
	}
	query := r.URL.Query()
	q := Query{
		Category: strings.TrimSpace(query.Get("category")),
		Search:   strings.TrimSpace(query.Get("q")),
		Tag:      Tag(strings.TrimSpace(query.Get("tag"))),
		MinPrice: int64(common.AtoiDefault(query.Get("minPrice"), 0)),
		MaxPrice: int64(common.AtoiDefault(query.Get("maxPrice"), 0)),
	}
	products, err := h.Svc.List(r.Context(), q)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "list products", nil)
		return
	}
	total := len(products)
	page, perPage := common.ParsePagination(r, 20)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": products[start:end],
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: total},
	})
}

// Featured lists the storefront's highlighted products.
func (h *Handler) Featured(w http.ResponseWriter, r *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Svc.Featured(r.Context())})
}

// Categories lists distinct product categories.
func (h *Handler) Categories(w http.ResponseWriter, r *http.Request) {
	common.JSON(w, http.StatusOK, map[string]any{"data": h.Svc.Categories(r.Context())})
}

// ProductDetail returns a single product by id.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", nil)
		return
	}
	product, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", "product not found", nil)
			return
		}
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "get product", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}
