package sale

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eggmart/eggmart/internal/apperr"
	"github.com/eggmart/eggmart/internal/db"
	"github.com/eggmart/eggmart/internal/models"
	"github.com/eggmart/eggmart/internal/pricing"
)

// Input is an admission request for a new or updated sale.
type Input struct {
	ProductID          uint
	OriginalPrice      decimal.Decimal
	SalePrice          decimal.Decimal
	DiscountPercentage decimal.Decimal
	QuantityAvailable  int
	StartDate          time.Time
	EndDate            time.Time
}

func (in Input) validateWindow() error {
	if in.EndDate.Before(in.StartDate) {
		return apperr.Validationf("end_date %s is before start_date %s",
			in.EndDate.Format(time.RFC3339), in.StartDate.Format(time.RFC3339))
	}
	if in.QuantityAvailable < 0 {
		return apperr.Validationf("quantity_available must not be negative")
	}
	return nil
}

// admit runs the ordered admission checks inside tx. excludeID skips the
// sale being updated in the overlap check.
func admit(tx *gorm.DB, in Input, now time.Time, excludeID uint) error {
	if err := in.validateWindow(); err != nil {
		return err
	}

	var product models.Product
	if err := db.LockForUpdate(tx).First(&product, in.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFoundf("product %d not found", in.ProductID)
		}
		return apperr.Wrap(apperr.Internal, "load product", err)
	}

	if in.QuantityAvailable > product.Stock {
		return apperr.Validationf(
			"quantity available (%d) exceeds product stock (%d)",
			in.QuantityAvailable, product.Stock)
	}

	if err := pricing.SweepExpired(tx, now); err != nil {
		return err
	}

	// Inclusive interval overlap against other active sales of the product.
	var overlapping int64
	err := tx.Model(&models.Sale{}).
		Where("product_id = ? AND status = ? AND id <> ?",
			in.ProductID, models.SaleStatusActive, excludeID).
		Where(
			"(start_date <= ? AND ? <= end_date) OR (start_date <= ? AND ? <= end_date) OR (? <= start_date AND end_date <= ?)",
			in.StartDate, in.StartDate,
			in.EndDate, in.EndDate,
			in.StartDate, in.EndDate,
		).
		Count(&overlapping).Error
	if err != nil {
		return apperr.Wrap(apperr.Internal, "check overlapping sales", err)
	}
	if overlapping > 0 {
		return apperr.Validationf(
			"product %d already has an active sale overlapping %s - %s",
			in.ProductID,
			in.StartDate.Format("2006-01-02"), in.EndDate.Format("2006-01-02"))
	}

	return nil
}

// Create admits and persists a new sale.
func Create(conn *gorm.DB, in Input, now time.Time) (*models.Sale, error) {
	var created models.Sale
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := admit(tx, in, now, 0); err != nil {
			return err
		}
		created = models.Sale{
			ProductID:          in.ProductID,
			OriginalPrice:      in.OriginalPrice,
			SalePrice:          in.SalePrice,
			DiscountPercentage: in.DiscountPercentage,
			QuantityAvailable:  in.QuantityAvailable,
			StartDate:          in.StartDate,
			EndDate:            in.EndDate,
			Status:             models.SaleStatusActive,
		}
		if err := tx.Create(&created).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "create sale", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &created, nil
}

// Update re-admits an existing sale with new terms, excluding itself from
// the overlap check.
func Update(conn *gorm.DB, id uint, in Input, now time.Time) (*models.Sale, error) {
	var updated models.Sale
	err := conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&updated, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperr.NotFoundf("sale %d not found", id)
			}
			return apperr.Wrap(apperr.Internal, "load sale", err)
		}
		if err := admit(tx, in, now, id); err != nil {
			return err
		}
		updated.ProductID = in.ProductID
		updated.OriginalPrice = in.OriginalPrice
		updated.SalePrice = in.SalePrice
		updated.DiscountPercentage = in.DiscountPercentage
		updated.QuantityAvailable = in.QuantityAvailable
		updated.StartDate = in.StartDate
		updated.EndDate = in.EndDate
		updated.Status = models.SaleStatusActive
		if err := tx.Save(&updated).Error; err != nil {
			return apperr.Wrap(apperr.Internal, "update sale", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a sale. Existence is the only invariant.
func Delete(conn *gorm.DB, id uint) error {
	res := conn.Delete(&models.Sale{}, id)
	if res.Error != nil {
		return apperr.Wrap(apperr.Internal, "delete sale", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperr.NotFoundf("sale %d not found", id)
	}
	return nil
}
