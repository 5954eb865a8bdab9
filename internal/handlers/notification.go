package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/eggmart/eggmart/internal/apperr"
	"github.com/eggmart/eggmart/internal/models"
	"github.com/eggmart/eggmart/internal/pricing"
	"github.com/eggmart/eggmart/internal/util"
)

type NotificationHandler struct {
	DB *gorm.DB
}

func (h *NotificationHandler) List(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var notes []models.Notification
	if err := h.DB.Where("user_id = ?", p.UserID).Order("created_at DESC").Find(&notes).Error; err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "list notifications", err))
	}
	return c.JSON(http.StatusOK, notes)
}

func (h *NotificationHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var req struct {
		Type    string `json:"type"    validate:"required"`
		Message string `json:"message" validate:"required"`
	}
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}
	if !models.ValidNotificationType(req.Type) {
		return respondError(c, apperr.Validationf("unknown notification type %q", req.Type))
	}

	note := models.Notification{
		UserID:  p.UserID,
		Type:    req.Type,
		Message: req.Message,
	}
	if err := h.DB.Create(&note).Error; err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "create notification", err))
	}
	return c.JSON(http.StatusCreated, note)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var note models.Notification
	if err := h.DB.Where("id = ? AND user_id = ?", id, p.UserID).First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperr.NotFoundf("notification %d not found", id))
		}
		return respondError(c, apperr.Wrap(apperr.Internal, "load notification", err))
	}

	note.IsRead = true
	if err := h.DB.Save(&note).Error; err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "update notification", err))
	}
	return c.JSON(http.StatusOK, note)
}

func (h *NotificationHandler) Delete(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	res := h.DB.Where("id = ? AND user_id = ?", id, p.UserID).Delete(&models.Notification{})
	if res.Error != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "delete notification", res.Error))
	}
	if res.RowsAffected == 0 {
		return respondError(c, apperr.NotFoundf("notification %d not found", id))
	}
	return c.NoContent(http.StatusNoContent)
}

type saleFeedEntry struct {
	Type               string    `json:"type"`
	SaleID             uint      `json:"sale_id"`
	ProductID          uint      `json:"product_id"`
	ProductName        string    `json:"product_name"`
	SalePrice          float64   `json:"sale_price"`
	OriginalPrice      float64   `json:"original_price"`
	DiscountPercentage float64   `json:"discount_percentage"`
	EndDate            time.Time `json:"end_date"`
	Message            string    `json:"message"`
}

// SaleFeed is synthesized fresh from live sale rows on every request; it is
// never persisted. Top 10 by discount, then recency.
func (h *NotificationHandler) SaleFeed(c echo.Context) error {
	now := time.Now()
	if err := pricing.SweepExpired(h.DB, now); err != nil {
		return respondError(c, err)
	}

	var sales []models.Sale
	err := h.DB.
		Where("status = ? AND start_date <= ? AND end_date >= ? AND quantity_sold < quantity_available",
			models.SaleStatusActive, now, now).
		Order("discount_percentage DESC, start_date DESC").
		Limit(10).
		Find(&sales).Error
	if err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "load sale feed", err))
	}

	feed := make([]saleFeedEntry, 0, len(sales))
	for _, s := range sales {
		var prod models.Product
		if err := h.DB.First(&prod, s.ProductID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return respondError(c, apperr.Wrap(apperr.Internal, "load product", err))
		}
		feed = append(feed, saleFeedEntry{
			Type:               models.NotificationSale,
			SaleID:             s.ID,
			ProductID:          s.ProductID,
			ProductName:        prod.Name,
			SalePrice:          util.MoneyFloat(s.SalePrice),
			OriginalPrice:      util.MoneyFloat(s.OriginalPrice),
			DiscountPercentage: util.MoneyFloat(s.DiscountPercentage),
			EndDate:            s.EndDate,
			Message:            fmt.Sprintf("%s is on sale until %s", prod.Name, s.EndDate.Format("Jan 2")),
		})
	}
	return c.JSON(http.StatusOK, feed)
}
