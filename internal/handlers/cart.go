package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/eggmart/eggmart/internal/apperr"
	"github.com/eggmart/eggmart/internal/db"
	"github.com/eggmart/eggmart/internal/metrics"
	authmw "github.com/eggmart/eggmart/internal/middleware/auth"
	"github.com/eggmart/eggmart/internal/models"
	"github.com/eggmart/eggmart/internal/mykafka"
	"github.com/eggmart/eggmart/internal/pricing"
	"github.com/eggmart/eggmart/internal/util"
)

type CartHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *CartHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "cart_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func principal(c echo.Context) (authmw.Principal, error) {
	p, ok := authmw.FromContext(c)
	if !ok {
		return authmw.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing principal")
	}
	return p, nil
}

func insufficientStock(stock int) *apperr.Error {
	metrics.CartRejectionsTotal.Inc()
	return apperr.Validationf("Insufficient stock. Only %d items available.", stock)
}

type cartItemResponse struct {
	ID          uint    `json:"id"`
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	OnSale      bool    `json:"on_sale"`
	LineTotal   float64 `json:"line_total"`
}

func (h *CartHandler) GetCart(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	now := time.Now()
	if err := pricing.SweepExpired(h.DB, now); err != nil {
		return respondError(c, err)
	}

	var items []models.CartItem
	if err := h.DB.Where("user_id = ?", p.UserID).Find(&items).Error; err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "load cart", err))
	}

	sales, err := pricing.ActiveSalesByProduct(h.DB, now)
	if err != nil {
		return respondError(c, err)
	}

	resp := make([]cartItemResponse, 0, len(items))
	var total float64
	for _, it := range items {
		var prod models.Product
		if err := h.DB.First(&prod, it.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return respondError(c, apperr.Wrap(apperr.Internal, "load product", err))
		}
		quote := pricing.Effective(&prod, sales[prod.ID], now)
		unit := util.MoneyFloat(quote.Price)
		line := unit * float64(it.Quantity)
		total += line
		resp = append(resp, cartItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: prod.Name,
			Quantity:    it.Quantity,
			UnitPrice:   unit,
			OnSale:      quote.OnSale(),
			LineTotal:   line,
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"items": resp, "total": total})
}

// AddToCart checks the requested total quantity (existing row plus the
// increment) against current stock, not just the increment.
func (h *CartHandler) AddToCart(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID uint `json:"product_id" validate:"required"`
		Quantity  int  `json:"quantity"`
	}
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	if req.Quantity < 1 {
		req.Quantity = 1
	}

	var item models.CartItem
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		// Lock the product row before reading the cart row so concurrent
		// adds serialize and the guard sees committed quantities.
		var prod models.Product
		if err := db.LockForUpdate(tx).First(&prod, req.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("product %d not found", req.ProductID)
			}
			return apperr.Wrap(apperr.Internal, "load product", err)
		}
		if prod.Status != models.ProductStatusActive {
			return apperr.Validationf("product %q is not available", prod.Name)
		}

		err := tx.Where("user_id = ? AND product_id = ?", p.UserID, req.ProductID).First(&item).Error
		switch {
		case err == nil:
			desired := item.Quantity + req.Quantity
			if desired > prod.Stock {
				return insufficientStock(prod.Stock)
			}
			item.Quantity = desired
			if err := tx.Save(&item).Error; err != nil {
				return apperr.Wrap(apperr.Internal, "update cart item", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			if req.Quantity > prod.Stock {
				return insufficientStock(prod.Stock)
			}
			item = models.CartItem{UserID: p.UserID, ProductID: req.ProductID, Quantity: req.Quantity}
			if err := tx.Create(&item).Error; err != nil {
				return apperr.Wrap(apperr.Internal, "create cart item", err)
			}
		default:
			return apperr.Wrap(apperr.Internal, "load cart item", err)
		}
		return nil
	})
	if txErr != nil {
		return respondError(c, txErr)
	}

	h.publish(c, map[string]any{
		"type":      "cart_item_added",
		"userID":    p.UserID,
		"productID": req.ProductID,
		"quantity":  item.Quantity,
	})

	return c.JSON(http.StatusOK, item)
}

// SetQuantity sets the absolute quantity of a cart row. Zero or less deletes
// the row.
func (h *CartHandler) SetQuantity(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := c.Bind(&req); err != nil {
		return respondError(c, apperr.Validationf("invalid body"))
	}

	var item models.CartItem
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", id, p.UserID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("cart item %d not found", id)
			}
			return apperr.Wrap(apperr.Internal, "load cart item", err)
		}

		if req.Quantity <= 0 {
			if err := tx.Delete(&item).Error; err != nil {
				return apperr.Wrap(apperr.Internal, "delete cart item", err)
			}
			item.Quantity = 0
			return nil
		}

		var prod models.Product
		if err := db.LockForUpdate(tx).First(&prod, item.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("product %d not found", item.ProductID)
			}
			return apperr.Wrap(apperr.Internal, "load product", err)
		}
		if req.Quantity > prod.Stock {
			return insufficientStock(prod.Stock)
		}

		item.Quantity = req.Quantity
		if err := tx.Save(&item).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "update cart item", err)
		}
		return nil
	})
	if txErr != nil {
		return respondError(c, txErr)
	}

	h.publish(c, map[string]any{
		"type":     "cart_item_updated",
		"userID":   p.UserID,
		"itemID":   id,
		"quantity": item.Quantity,
	})

	if item.Quantity == 0 {
		return c.JSON(http.StatusOK, echo.Map{"deleted_item": id})
	}
	return c.JSON(http.StatusOK, item)
}

func (h *CartHandler) DeleteFromCart(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	res := h.DB.Where("id = ? AND user_id = ?", id, p.UserID).Delete(&models.CartItem{})
	if res.Error != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "delete cart item", res.Error))
	}
	if res.RowsAffected == 0 {
		return respondError(c, apperr.NotFoundf("cart item %d not found", id))
	}

	h.publish(c, map[string]any{
		"type":   "cart_item_deleted",
		"userID": p.UserID,
		"itemID": id,
	})

	return c.JSON(http.StatusOK, echo.Map{"deleted_item": id})
}
