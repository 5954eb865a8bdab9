package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eggmart/eggmart/internal/apperr"
	"github.com/eggmart/eggmart/internal/models"
	"github.com/eggmart/eggmart/internal/mykafka"
	"github.com/eggmart/eggmart/internal/pricing"
	"github.com/eggmart/eggmart/internal/search"
	"github.com/eggmart/eggmart/internal/util"
)

type ProductHandler struct {
	DB       *gorm.DB
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
	ESIndex  string
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return def
}

func pathID(c echo.Context) (uint, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, apperr.Validationf("invalid id")
	}
	return uint(id), nil
}

func (h *ProductHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "product_events", fmt.Sprint(event["productID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *ProductHandler) index(c echo.Context, p *models.Product) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.Index(ctx, h.ES, h.ESIndex, p); err != nil {
		c.Logger().Errorf("ES index error: %v", err)
	}
}

func (h *ProductHandler) GetProduct(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var product models.Product
	if err := h.DB.First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperr.NotFoundf("product %d not found", id))
		}
		return respondError(c, apperr.Wrap(apperr.Internal, "load product", err))
	}

	quote, err := pricing.Resolve(h.DB, &product, time.Now())
	if err != nil {
		return respondError(c, err)
	}

	var images []models.ProductImage
	if err := h.DB.Where("product_id = ?", product.ID).Find(&images).Error; err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "load product images", err))
	}

	return c.JSON(http.StatusOK, echo.Map{
		"product": productResponse(&product, quote),
		"images":  images,
	})
}

func (h *ProductHandler) GetProducts(c echo.Context) error {
	page := parseIntDefault(c.QueryParam("page"), 1)
	size := parseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	offset, limit := util.Calculate(page, size)

	now := time.Now()
	if err := pricing.SweepExpired(h.DB, now); err != nil {
		return respondError(c, err)
	}

	q := h.DB.Model(&models.Product{})
	if cat := c.QueryParam("category_id"); cat != "" {
		q = q.Where("category_id = ?", parseIntDefault(cat, 0))
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "count products", err))
	}

	var items []models.Product
	if err := q.Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "list products", err))
	}

	sales, err := pricing.ActiveSalesByProduct(h.DB, now)
	if err != nil {
		return respondError(c, err)
	}

	data := make([]ProductResponse, len(items))
	for i := range items {
		data[i] = productResponse(&items[i], pricing.Effective(&items[i], sales[items[i].ID], now))
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": data,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

type productRequest struct {
	Name        string   `json:"name"        validate:"required"`
	Description string   `json:"description"`
	CategoryID  uint     `json:"category_id"`
	Price       float64  `json:"price"       validate:"required,gt=0"`
	Stock       int      `json:"stock"       validate:"gte=0"`
	Image       string   `json:"image"`
	Images      []string `json:"images"`
}

// replaceImages swaps the product's gallery rows for the given URLs. An empty
// list leaves existing rows alone so partial payloads don't wipe galleries.
func replaceImages(tx *gorm.DB, productID uint, urls []string) error {
	if len(urls) == 0 {
		return nil
	}
	if err := tx.Where("product_id = ?", productID).Delete(&models.ProductImage{}).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "clear product images", err)
	}
	rows := make([]models.ProductImage, 0, len(urls))
	for _, u := range urls {
		rows = append(rows, models.ProductImage{ProductID: productID, URL: u})
	}
	if err := tx.Create(&rows).Error; err != nil {
		return apperr.Wrap(apperr.Internal, "create product images", err)
	}
	return nil
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	var req productRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	prod := models.Product{
		Name:        req.Name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Price:       decimal.NewFromFloat(req.Price),
		Stock:       req.Stock,
		Status:      models.ProductStatusActive,
		Image:       req.Image,
	}
	err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&prod).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "create product", err)
		}
		return replaceImages(tx, prod.ID, req.Images)
	})
	if err != nil {
		return respondError(c, err)
	}

	h.index(c, &prod)
	h.publish(c, map[string]any{
		"type":      "product_created",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	return c.JSON(http.StatusCreated, productResponse(&prod, pricing.Quote{Price: prod.Price}))
}

func (h *ProductHandler) PatchProduct(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	var req productRequest
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	var prod models.Product
	if err := h.DB.First(&prod, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperr.NotFoundf("product %d not found", id))
		}
		return respondError(c, apperr.Wrap(apperr.Internal, "load product", err))
	}

	prod.Name = req.Name
	prod.Description = req.Description
	prod.CategoryID = req.CategoryID
	prod.Price = decimal.NewFromFloat(req.Price)
	prod.Stock = req.Stock
	prod.Image = req.Image
	// Status is derived from stock on every update.
	if prod.Stock > models.ProductActiveStockThreshold {
		prod.Status = models.ProductStatusActive
	} else {
		prod.Status = models.ProductStatusInactive
	}

	if err := h.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(&prod).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "update product", err)
		}
		return replaceImages(tx, prod.ID, req.Images)
	}); err != nil {
		return respondError(c, err)
	}

	h.index(c, &prod)
	h.publish(c, map[string]any{
		"type":      "product_updated",
		"productID": prod.ID,
		"name":      prod.Name,
	})

	quote, err := pricing.Resolve(h.DB, &prod, time.Now())
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, productResponse(&prod, quote))
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	if err := h.DB.Transaction(func(tx *gorm.DB) error {
		res := tx.Delete(&models.Product{}, id)
		if res.Error != nil {
			return apperr.Wrap(apperr.Internal, "delete product", res.Error)
		}
		if res.RowsAffected == 0 {
			return apperr.NotFoundf("product %d not found", id)
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductImage{}).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "delete product images", err)
		}
		return nil
	}); err != nil {
		return respondError(c, err)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := search.Remove(ctx, h.ES, h.ESIndex, id); err != nil {
		c.Logger().Errorf("ES delete error: %v", err)
	}

	h.publish(c, map[string]any{
		"type":      "product_deleted",
		"productID": id,
	})

	return c.NoContent(http.StatusNoContent)
}
