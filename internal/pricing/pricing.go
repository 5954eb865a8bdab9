package pricing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/eggmart/eggmart/internal/apperr"
	"github.com/eggmart/eggmart/internal/models"
)

// Quote is the effective price of a product at a point in time.
type Quote struct {
	Price         decimal.Decimal
	OriginalPrice *decimal.Decimal
	Sale          *models.Sale
}

func (q Quote) OnSale() bool { return q.Sale != nil }

// SweepExpired lazily transitions stale active sales to expired. It must run
// before any sale-aware read so expired sales never leak into responses.
func SweepExpired(db *gorm.DB, now time.Time) error {
	err := db.Model(&models.Sale{}).
		Where("status = ? AND end_date < ?", models.SaleStatusActive, now).
		Update("status", models.SaleStatusExpired).Error
	if err != nil {
		return apperr.Wrap(apperr.Internal, "sweep expired sales", err)
	}
	return nil
}

// ActiveSale returns the product's sale whose window contains now, or nil.
// Admission prevents overlapping active windows; if that invariant is ever
// violated the most recently created sale wins (created_at, then id).
func ActiveSale(db *gorm.DB, productID uint, now time.Time) (*models.Sale, error) {
	var s models.Sale
	err := db.
		Where("product_id = ? AND status = ? AND start_date <= ? AND end_date >= ?",
			productID, models.SaleStatusActive, now, now).
		Order("created_at DESC, id DESC").
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load active sale", err)
	}
	return &s, nil
}

// Effective evaluates the on-sale predicate against an already-loaded sale
// row. The sale may be nil.
func Effective(product *models.Product, sale *models.Sale, now time.Time) Quote {
	if sale != nil &&
		sale.Status == models.SaleStatusActive &&
		!now.Before(sale.StartDate) && !now.After(sale.EndDate) {
		orig := product.Price
		return Quote{Price: sale.SalePrice, OriginalPrice: &orig, Sale: sale}
	}
	return Quote{Price: product.Price}
}

// Resolve sweeps, loads the product's active sale and returns the effective
// price at now.
func Resolve(db *gorm.DB, product *models.Product, now time.Time) (Quote, error) {
	if err := SweepExpired(db, now); err != nil {
		return Quote{}, err
	}
	sale, err := ActiveSale(db, product.ID, now)
	if err != nil {
		return Quote{}, err
	}
	return Effective(product, sale, now), nil
}

// ActiveSalesByProduct batch-loads active sales covering now for a product
// list. Callers sweep first. Later-created rows win per the tie-break above.
func ActiveSalesByProduct(db *gorm.DB, now time.Time) (map[uint]*models.Sale, error) {
	var sales []models.Sale
	err := db.
		Where("status = ? AND start_date <= ? AND end_date >= ?",
			models.SaleStatusActive, now, now).
		Order("created_at ASC, id ASC").
		Find(&sales).Error
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "load active sales", err)
	}
	out := make(map[uint]*models.Sale, len(sales))
	for i := range sales {
		out[sales[i].ProductID] = &sales[i]
	}
	return out, nil
}
