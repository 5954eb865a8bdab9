package handlers

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eggmart/eggmart/internal/apperr"
	"github.com/eggmart/eggmart/internal/metrics"
	"github.com/eggmart/eggmart/internal/models"
	"github.com/eggmart/eggmart/internal/mykafka"
	"github.com/eggmart/eggmart/internal/pricing"
	"github.com/eggmart/eggmart/internal/sale"
)

type SaleHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *SaleHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "sale_events", fmt.Sprint(event["saleID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

type saleRequest struct {
	ProductID          uint      `json:"product_id"          validate:"required"`
	OriginalPrice      float64   `json:"original_price"      validate:"required,gt=0"`
	SalePrice          float64   `json:"sale_price"          validate:"required,gt=0"`
	DiscountPercentage float64   `json:"discount_percentage" validate:"gte=0,lte=100"`
	QuantityAvailable  int       `json:"quantity_available"  validate:"gte=0"`
	StartDate          time.Time `json:"start_date"          validate:"required"`
	EndDate            time.Time `json:"end_date"            validate:"required"`
}

func (r saleRequest) input() sale.Input {
	return sale.Input{
		ProductID:          r.ProductID,
		OriginalPrice:      decimal.NewFromFloat(r.OriginalPrice),
		SalePrice:          decimal.NewFromFloat(r.SalePrice),
		DiscountPercentage: decimal.NewFromFloat(r.DiscountPercentage),
		QuantityAvailable:  r.QuantityAvailable,
		StartDate:          r.StartDate,
		EndDate:            r.EndDate,
	}
}

func rejectReason(err error) string {
	switch apperr.KindOf(err) {
	case apperr.NotFound:
		return "not_found"
	case apperr.Validation:
		return "validation"
	default:
		return "internal"
	}
}

func (h *SaleHandler) List(c echo.Context) error {
	if err := pricing.SweepExpired(h.DB, time.Now()); err != nil {
		return respondError(c, err)
	}

	var sales []models.Sale
	if err := h.DB.Order("created_at DESC, id DESC").Find(&sales).Error; err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "list sales", err))
	}

	resp := make([]SaleResponse, len(sales))
	for i := range sales {
		resp[i] = saleResponse(&sales[i])
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *SaleHandler) Create(c echo.Context) error {
	var req saleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	created, err := sale.Create(h.DB, req.input(), time.Now())
	if err != nil {
		metrics.SalesRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
		return respondError(c, err)
	}
	metrics.SalesCreatedTotal.Inc()

	h.publish(c, map[string]any{
		"type":      "sale_created",
		"saleID":    created.ID,
		"productID": created.ProductID,
	})

	return c.JSON(http.StatusCreated, saleResponse(created))
}

func (h *SaleHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req saleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	updated, err := sale.Update(h.DB, id, req.input(), time.Now())
	if err != nil {
		metrics.SalesRejectedTotal.WithLabelValues(rejectReason(err)).Inc()
		return respondError(c, err)
	}

	h.publish(c, map[string]any{
		"type":      "sale_updated",
		"saleID":    updated.ID,
		"productID": updated.ProductID,
	})

	return c.JSON(http.StatusOK, saleResponse(updated))
}

func (h *SaleHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := sale.Delete(h.DB, id); err != nil {
		return respondError(c, err)
	}

	h.publish(c, map[string]any{
		"type":   "sale_deleted",
		"saleID": id,
	})

	return c.NoContent(http.StatusNoContent)
}
