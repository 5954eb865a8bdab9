package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/eggmart/eggmart/internal/apperr"
	"github.com/eggmart/eggmart/internal/models"
)

type CategoryHandler struct {
	DB *gorm.DB
}

func (h *CategoryHandler) List(c echo.Context) error {
	var cats []models.Category
	if err := h.DB.Order("name ASC").Find(&cats).Error; err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "list categories", err))
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *CategoryHandler) Create(c echo.Context) error {
	var req struct {
		Name string `json:"name" validate:"required"`
	}
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	var existing models.Category
	err := h.DB.Where("name = ?", req.Name).First(&existing).Error
	if err == nil {
		return respondError(c, apperr.Conflictf("category %q already exists", req.Name))
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return respondError(c, apperr.Wrap(apperr.Internal, "check category", err))
	}

	cat := models.Category{Name: req.Name}
	if err := h.DB.Create(&cat).Error; err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "create category", err))
	}
	return c.JSON(http.StatusCreated, cat)
}

func (h *CategoryHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return respondError(c, err)
	}

	res := h.DB.Delete(&models.Category{}, id)
	if res.Error != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "delete category", res.Error))
	}
	if res.RowsAffected == 0 {
		return respondError(c, apperr.NotFoundf("category %d not found", id))
	}
	return c.NoContent(http.StatusNoContent)
}
