package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/eggmart/eggmart/internal/apperr"
	"github.com/eggmart/eggmart/internal/models"
)

type RatingHandler struct {
	DB *gorm.DB
}

// Create accepts one rating per (user, order). The order must belong to the
// caller.
func (h *RatingHandler) Create(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	orderID, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Stars  int      `json:"stars"  validate:"required,min=1,max=5"`
		Text   string   `json:"text"`
		Images []string `json:"images"`
	}
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	var order models.Order
	if err := h.DB.Where("id = ? AND user_id = ?", orderID, p.UserID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperr.NotFoundf("order %d not found", orderID))
		}
		return respondError(c, apperr.Wrap(apperr.Internal, "load order", err))
	}

	var existing models.OrderRating
	err = h.DB.Where("order_id = ? AND user_id = ?", orderID, p.UserID).First(&existing).Error
	if err == nil {
		return respondError(c, apperr.Conflictf("order %d is already rated", orderID))
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return respondError(c, apperr.Wrap(apperr.Internal, "check rating", err))
	}

	rating := models.OrderRating{
		OrderID: orderID,
		UserID:  p.UserID,
		Stars:   req.Stars,
		Text:    req.Text,
		Images:  strings.Join(req.Images, ","),
	}
	if err := h.DB.Create(&rating).Error; err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "create rating", err))
	}
	return c.JSON(http.StatusCreated, rating)
}

// ListForProduct joins ratings to a product through the order items that
// snapshot it.
func (h *RatingHandler) ListForProduct(c echo.Context) error {
	productID, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var ratings []models.OrderRating
	err = h.DB.
		Joins("JOIN order_items ON order_items.order_id = order_ratings.order_id").
		Where("order_items.product_id = ?", productID).
		Order("order_ratings.created_at DESC").
		Find(&ratings).Error
	if err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "list ratings", err))
	}
	return c.JSON(http.StatusOK, ratings)
}
