package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/ad-checkout/internal/common"
	"github.com/noah-isme/ad-checkout/internal/pricing"
)

// Handler exposes read-only catalog endpoints.
type Handler struct {
	catalog Catalog
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Catalog Catalog
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{catalog: cfg.Catalog}
}

type bulkDealView struct {
	pricing.BulkDeal
	Description string `json:"description"`
}

// CustomerDeals is the payload of GET /api/v1/customers/{id}/deals.
type CustomerDeals struct {
	Customer   Customer                    `json:"customer"`
	PriceDeals []pricing.PriceOverrideDeal `json:"priceDeals"`
	BulkDeals  []bulkDealView              `json:"bulkDeals"`
}

// Product handles GET /api/v1/products/{code}.
func (h *Handler) Product(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog not configured", nil)
		return
	}
	code := strings.TrimSpace(chi.URLParam(r, "code"))
	product, err := h.catalog.Product(r.Context(), code)
	if err != nil {
		common.WriteError(w, lookupError(err, "product not found"))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": product})
}

// CustomerDeals handles GET /api/v1/customers/{id}/deals.
func (h *Handler) CustomerDeals(w http.ResponseWriter, r *http.Request) {
	if h.catalog == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "catalog not configured", nil)
		return
	}
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		common.WriteError(w, common.BadRequest("customer id must be a positive integer", err, map[string]string{"field": "id"}))
		return
	}
	ctx := r.Context()
	customer, err := h.catalog.Customer(ctx, id)
	if err != nil {
		common.WriteError(w, lookupError(err, "customer not found"))
		return
	}
	priceDeals, err := h.catalog.PriceDeals(ctx, id)
	if err != nil {
		common.WriteError(w, common.Internal(err))
		return
	}
	bulkDeals, err := h.catalog.BulkDeals(ctx, id)
	if err != nil {
		common.WriteError(w, common.Internal(err))
		return
	}

	out := CustomerDeals{
		Customer:   customer,
		PriceDeals: priceDeals,
		BulkDeals:  make([]bulkDealView, 0, len(bulkDeals)),
	}
	if out.PriceDeals == nil {
		out.PriceDeals = []pricing.PriceOverrideDeal{}
	}
	for _, d := range bulkDeals {
		out.BulkDeals = append(out.BulkDeals, bulkDealView{BulkDeal: d, Description: d.Description()})
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": out})
}

func lookupError(err error, notFound string) *common.AppError {
	if errors.Is(err, ErrNotFound) {
		return common.NotFound(notFound, err)
	}
	if errors.Is(err, ErrUnavailable) {
		return common.Unavailable("catalog unavailable", err)
	}
	return common.Internal(err)
}
