package checkout

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	validator "github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/ad-checkout/internal/bill"
	"github.com/noah-isme/ad-checkout/internal/catalog"
	"github.com/noah-isme/ad-checkout/internal/common"
)

const maxQuoteBody = 1 << 20

// QuoteRequest is the body of POST /api/v1/checkout/quote.
type QuoteRequest struct {
	CustomerID int64    `json:"customerId" validate:"required,gt=0"`
	Items      []string `json:"items" validate:"required,min=1,max=1000,dive,required,max=64"`
}

type discountResponse struct {
	Kind        bill.Kind       `json:"kind"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

type lineResponse struct {
	ProductCode string            `json:"productCode"`
	ProductName string            `json:"productName"`
	Price       decimal.Decimal   `json:"price"`
	Discount    *discountResponse `json:"discount,omitempty"`
	Total       decimal.Decimal   `json:"total"`
}

// QuoteResponse is the presentation of a Quote. Money is rounded to cents here
// and nowhere else.
type QuoteResponse struct {
	QuoteID      string          `json:"quoteId"`
	CustomerID   int64           `json:"customerId"`
	CustomerName string          `json:"customerName"`
	Lines        []lineResponse  `json:"lines"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
}

type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Handler exposes the quote endpoint.
type Handler struct {
	Svc      *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler with a validator reporting JSON field names.
func NewHandler(svc *Service) *Handler {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{Svc: svc, validate: v}
}

// Quote handles POST /api/v1/checkout/quote.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	if h.Svc == nil {
		common.JSONError(w, http.StatusInternalServerError, common.CodeInternal, "checkout service not configured", nil)
		return
	}
	var req QuoteRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxQuoteBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		common.WriteError(w, common.BadRequest("invalid JSON body", err, nil))
		return
	}
	for i := range req.Items {
		req.Items[i] = strings.TrimSpace(req.Items[i])
	}
	if err := h.validate.Struct(req); err != nil {
		common.WriteError(w, common.BadRequest("request validation failed", err, validationDetails(err)))
		return
	}

	q, err := h.Svc.Quote(r.Context(), req.CustomerID, req.Items)
	if err != nil {
		common.WriteError(w, quoteError(err))
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": NewQuoteResponse(q)})
}

// NewQuoteResponse rounds q for presentation.
func NewQuoteResponse(q Quote) QuoteResponse {
	out := QuoteResponse{
		QuoteID:      q.ID,
		CustomerID:   q.Customer.ID,
		CustomerName: q.Customer.Name,
		Lines:        make([]lineResponse, 0, len(q.Lines)),
		Subtotal:     money(q.Subtotal),
		Total:        money(q.Total),
	}
	out.Discount = out.Subtotal.Sub(out.Total)
	for _, line := range q.Lines {
		lr := lineResponse{
			ProductCode: line.ProductCode,
			ProductName: line.ProductName,
			Price:       money(line.Price),
			Total:       money(line.Total),
		}
		if d := line.Discount; d != nil {
			lr.Discount = &discountResponse{Kind: d.Kind, Description: d.Description, Amount: money(d.Amount)}
		}
		out.Lines = append(out.Lines, lr)
	}
	return out
}

func money(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

func quoteError(err error) *common.AppError {
	switch {
	case errors.Is(err, ErrUnknownCustomer):
		return common.NotFound("customer not found", err)
	case errors.Is(err, ErrUnknownProduct):
		return common.NotFound("product not found", err)
	case errors.Is(err, catalog.ErrNotFound):
		return common.NotFound("not found", err)
	case errors.Is(err, catalog.ErrUnavailable):
		return common.Unavailable("catalog unavailable", err)
	}
	return common.Internal(err)
}

func validationDetails(err error) []fieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	out := make([]fieldError, 0, len(verrs))
	for _, e := range verrs {
		out = append(out, fieldError{Field: e.Field(), Message: validationMessage(e)})
	}
	return out
}

func validationMessage(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "This field is required"
	case "gt":
		return "Must be greater than " + e.Param()
	case "min":
		return "Must contain at least " + e.Param() + " item(s)"
	case "max":
		if e.Kind() == reflect.String {
			return "Must be at most " + e.Param() + " characters"
		}
		return "Must contain at most " + e.Param() + " item(s)"
	default:
		return "Invalid value"
	}
}
