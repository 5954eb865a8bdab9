package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eggmart/eggmart/internal/apperr"
	"github.com/eggmart/eggmart/internal/metrics"
	"github.com/eggmart/eggmart/internal/models"
	"github.com/eggmart/eggmart/internal/mykafka"
	"github.com/eggmart/eggmart/internal/pricing"
	"github.com/eggmart/eggmart/internal/util"
)

type OrderHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
}

func (h *OrderHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "order_events", fmt.Sprint(event["orderID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

type orderItemResponse struct {
	ProductID   uint    `json:"product_id"`
	ProductName string  `json:"product_name"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    int     `json:"quantity"`
}

type orderResponse struct {
	ID        uint                `json:"id"`
	Number    string              `json:"number"`
	Total     float64             `json:"total"`
	Status    string              `json:"status"`
	CreatedAt time.Time           `json:"created_at"`
	Items     []orderItemResponse `json:"items"`
	Rating    *models.OrderRating `json:"rating,omitempty"`
}

func (h *OrderHandler) assemble(order *models.Order, rating *models.OrderRating) (orderResponse, error) {
	var items []models.OrderItem
	if err := h.DB.Where("order_id = ?", order.ID).Find(&items).Error; err != nil {
		return orderResponse{}, apperr.Wrap(apperr.Internal, "load order items", err)
	}

	resp := orderResponse{
		ID:        order.ID,
		Number:    order.Number,
		Total:     util.MoneyFloat(order.Total),
		Status:    order.Status,
		CreatedAt: order.CreatedAt,
		Rating:    rating,
	}
	for _, it := range items {
		resp.Items = append(resp.Items, orderItemResponse{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			UnitPrice:   util.MoneyFloat(it.UnitPrice),
			Quantity:    it.Quantity,
		})
	}
	return resp, nil
}

// Checkout turns the caller's cart into an immutable order snapshot. Stock
// is decremented with a conditional update so concurrent checkouts cannot
// oversell.
func (h *OrderHandler) Checkout(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	now := time.Now()
	var order models.Order

	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := pricing.SweepExpired(tx, now); err != nil {
			return err
		}

		var items []models.CartItem
		if err := tx.Where("user_id = ?", p.UserID).Find(&items).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "load cart", err)
		}
		if len(items) == 0 {
			return apperr.Validationf("no items in cart")
		}

		total := decimal.Zero
		orderItems := make([]models.OrderItem, 0, len(items))
		for _, it := range items {
			var prod models.Product
			if err := tx.First(&prod, it.ProductID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperr.NotFoundf("product %d not found", it.ProductID)
				}
				return apperr.Wrap(apperr.Internal, "load product", err)
			}

			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", prod.ID, it.Quantity).
				Update("stock", gorm.Expr("stock - ?", it.Quantity))
			if res.Error != nil {
				return apperr.Wrap(apperr.Internal, "decrement stock", res.Error)
			}
			if res.RowsAffected == 0 {
				return insufficientStock(prod.Stock)
			}

			unit := prod.Price
			s, err := pricing.ActiveSale(tx, prod.ID, now)
			if err != nil {
				return err
			}
			// A sale covers the line only while its own inventory lasts;
			// otherwise the line reverts to list price.
			if s != nil {
				res := tx.Model(&models.Sale{}).
					Where("id = ? AND quantity_sold + ? <= quantity_available", s.ID, it.Quantity).
					Update("quantity_sold", gorm.Expr("quantity_sold + ?", it.Quantity))
				if res.Error != nil {
					return apperr.Wrap(apperr.Internal, "update sale inventory", res.Error)
				}
				if res.RowsAffected > 0 {
					unit = s.SalePrice
				}
			}

			total = total.Add(unit.Mul(decimal.NewFromInt(int64(it.Quantity))))
			orderItems = append(orderItems, models.OrderItem{
				ProductID:   prod.ID,
				ProductName: prod.Name,
				UnitPrice:   unit,
				Quantity:    it.Quantity,
			})
		}

		order = models.Order{
			Number: "EGG-" + uuid.New().String(),
			UserID: p.UserID,
			Total:  total,
			Status: "new",
		}
		if err := tx.Create(&order).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "create order", err)
		}
		for i := range orderItems {
			orderItems[i].OrderID = order.ID
		}
		if err := tx.Create(&orderItems).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "create order items", err)
		}

		if err := tx.Where("user_id = ?", p.UserID).Delete(&models.CartItem{}).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "clear cart", err)
		}

		note := models.Notification{
			UserID:  p.UserID,
			Type:    models.NotificationOrder,
			Message: fmt.Sprintf("Order %s placed", order.Number),
		}
		if err := tx.Create(&note).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "create notification", err)
		}
		return nil
	})
	if txErr != nil {
		return respondError(c, txErr)
	}

	metrics.OrdersCreatedTotal.Inc()
	h.publish(c, map[string]any{
		"type":    "order_created",
		"orderID": order.ID,
		"userID":  p.UserID,
		"number":  order.Number,
	})

	resp, err := h.assemble(&order, nil)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusCreated, resp)
}

func (h *OrderHandler) MyOrders(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	var orders []models.Order
	if err := h.DB.Where("user_id = ?", p.UserID).Order("created_at DESC").Find(&orders).Error; err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "list orders", err))
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		r, err := h.assemble(&orders[i], nil)
		if err != nil {
			return respondError(c, err)
		}
		resp = append(resp, r)
	}
	return c.JSON(http.StatusOK, resp)
}

// OrderDetail serves an order to its owning user only, joined with the
// caller's rating when present.
func (h *OrderHandler) OrderDetail(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var order models.Order
	if err := h.DB.Where("id = ? AND user_id = ?", id, p.UserID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperr.NotFoundf("order %d not found", id))
		}
		return respondError(c, apperr.Wrap(apperr.Internal, "load order", err))
	}

	var rating *models.OrderRating
	var r models.OrderRating
	err = h.DB.Where("order_id = ? AND user_id = ?", order.ID, p.UserID).First(&r).Error
	if err == nil {
		rating = &r
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return respondError(c, apperr.Wrap(apperr.Internal, "load rating", err))
	}

	resp, err := h.assemble(&order, rating)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) AdminList(c echo.Context) error {
	var orders []models.Order
	if err := h.DB.Order("created_at DESC").Find(&orders).Error; err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "list orders", err))
	}

	resp := make([]orderResponse, 0, len(orders))
	for i := range orders {
		r, err := h.assemble(&orders[i], nil)
		if err != nil {
			return respondError(c, err)
		}
		resp = append(resp, r)
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *OrderHandler) AdminSetStatus(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req struct {
		Status string `json:"status" validate:"required"`
	}
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	var order models.Order
	txErr := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&order, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("order %d not found", id)
			}
			return apperr.Wrap(apperr.Internal, "load order", err)
		}

		order.Status = req.Status
		if err := tx.Save(&order).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "update order", err)
		}

		note := models.Notification{
			UserID:  order.UserID,
			Type:    models.NotificationOrderStatus,
			Message: fmt.Sprintf("Order %s is now %s", order.Number, order.Status),
		}
		if err := tx.Create(&note).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "create notification", err)
		}
		return nil
	})
	if txErr != nil {
		return respondError(c, txErr)
	}

	h.publish(c, map[string]any{
		"type":    "order_status_changed",
		"orderID": order.ID,
		"status":  order.Status,
	})

	return c.JSON(http.StatusOK, echo.Map{"id": order.ID, "status": order.Status})
}
