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
	"github.com/eggmart/eggmart/internal/models"
	"github.com/eggmart/eggmart/internal/mykafka"
	"github.com/eggmart/eggmart/internal/pricing"
)

type FavoriteHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *FavoriteHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "favorite_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *FavoriteHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	now := time.Now()
	if err := pricing.SweepExpired(h.DB, now); err != nil {
		return respondError(c, err)
	}

	var favs []models.Favorite
	if err := h.DB.Where("user_id = ?", p.UserID).Order("created_at DESC").Find(&favs).Error; err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "load favorites", err))
	}

	sales, err := pricing.ActiveSalesByProduct(h.DB, now)
	if err != nil {
		return respondError(c, err)
	}

	resp := make([]ProductResponse, 0, len(favs))
	for _, f := range favs {
		var prod models.Product
		if err := h.DB.First(&prod, f.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return respondError(c, apperr.Wrap(apperr.Internal, "load product", err))
		}
		resp = append(resp, productResponse(&prod, pricing.Effective(&prod, sales[prod.ID], now)))
	}

	return c.JSON(http.StatusOK, resp)
}

func (h *FavoriteHandler) Add(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req struct {
		ProductID uint `json:"product_id" validate:"required"`
	}
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	var prod models.Product
	if err := h.DB.First(&prod, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperr.NotFoundf("product %d not found", req.ProductID))
		}
		return respondError(c, apperr.Wrap(apperr.Internal, "load product", err))
	}

	// The unique (user, product) index is the arbiter: a failed insert that
	// finds the pair present is a duplicate, even when a concurrent request
	// inserted it first.
	fav := models.Favorite{UserID: p.UserID, ProductID: req.ProductID}
	if err := h.DB.Create(&fav).Error; err != nil {
		var existing models.Favorite
		if h.DB.Where("user_id = ? AND product_id = ?", p.UserID, req.ProductID).First(&existing).Error == nil {
			return respondError(c, apperr.Conflictf("product %d is already a favorite", req.ProductID))
		}
		return respondError(c, apperr.Wrap(apperr.Internal, "create favorite", err))
	}

	h.publish(c, map[string]any{
		"type":      "favorite_added",
		"userID":    p.UserID,
		"productID": req.ProductID,
	})

	return c.JSON(http.StatusCreated, fav)
}

// Remove is a no-op success when the pair does not exist.
func (h *FavoriteHandler) Remove(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.DB.
		Where("user_id = ? AND product_id = ?", p.UserID, id).
		Delete(&models.Favorite{}).Error; err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "delete favorite", err))
	}

	h.publish(c, map[string]any{
		"type":      "favorite_removed",
		"userID":    p.UserID,
		"productID": id,
	})

	return c.JSON(http.StatusOK, echo.Map{"removed": id})
}
