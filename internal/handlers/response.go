package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/eggmart/eggmart/internal/apperr"
	"github.com/eggmart/eggmart/internal/logging"
	"github.com/eggmart/eggmart/internal/models"
	"github.com/eggmart/eggmart/internal/pricing"
	"github.com/eggmart/eggmart/internal/util"
)

var validate = validator.New()

type errorBody struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// respondError maps service errors to the {error, details?} failure body.
// Every handler failure goes through here exactly once.
func respondError(c echo.Context, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he
	}

	var ae *apperr.Error
	if errors.As(err, &ae) {
		body := errorBody{Error: ae.Message}
		if ae.Kind == apperr.Internal {
			logging.FromContext(c.Request().Context()).Error("request failed", "error", err)
			if ae.Err != nil {
				body.Details = ae.Err.Error()
			}
		}
		return c.JSON(apperr.HTTPStatus(ae), body)
	}

	logging.FromContext(c.Request().Context()).Error("request failed", "error", err)
	return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal error", Details: err.Error()})
}

func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return apperr.Validationf("invalid body")
	}
	if err := validate.Struct(req); err != nil {
		return apperr.Wrap(apperr.Validation, "invalid body", err)
	}
	return nil
}

// ProductResponse is the sale-aware product projection served to clients.
type ProductResponse struct {
	ID            uint      `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	CategoryID    uint      `json:"category_id"`
	Price         float64   `json:"price"`
	OriginalPrice *float64  `json:"original_price,omitempty"`
	OnSale        bool      `json:"on_sale"`
	Stock         int       `json:"stock"`
	Status        string    `json:"status"`
	Image         string    `json:"image"`
	CreatedAt     time.Time `json:"created_at"`
}

func productResponse(p *models.Product, q pricing.Quote) ProductResponse {
	resp := ProductResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		CategoryID:  p.CategoryID,
		Price:       util.MoneyFloat(q.Price),
		OnSale:      q.OnSale(),
		Stock:       p.Stock,
		Status:      p.Status,
		Image:       p.Image,
		CreatedAt:   p.CreatedAt,
	}
	if q.OriginalPrice != nil {
		resp.OriginalPrice = util.MoneyPtr(*q.OriginalPrice)
	}
	return resp
}

type SaleResponse struct {
	ID                 uint      `json:"id"`
	ProductID          uint      `json:"product_id"`
	OriginalPrice      float64   `json:"original_price"`
	SalePrice          float64   `json:"sale_price"`
	DiscountPercentage float64   `json:"discount_percentage"`
	QuantityAvailable  int       `json:"quantity_available"`
	QuantitySold       int       `json:"quantity_sold"`
	StartDate          time.Time `json:"start_date"`
	EndDate            time.Time `json:"end_date"`
	Status             string    `json:"status"`
}

func saleResponse(s *models.Sale) SaleResponse {
	return SaleResponse{
		ID:                 s.ID,
		ProductID:          s.ProductID,
		OriginalPrice:      util.MoneyFloat(s.OriginalPrice),
		SalePrice:          util.MoneyFloat(s.SalePrice),
		DiscountPercentage: util.MoneyFloat(s.DiscountPercentage),
		QuantityAvailable:  s.QuantityAvailable,
		QuantitySold:       s.QuantitySold,
		StartDate:          s.StartDate,
		EndDate:            s.EndDate,
		Status:             s.Status,
	}
}
