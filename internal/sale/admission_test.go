package sale

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eggmart/eggmart/internal/apperr"
	"github.com/eggmart/eggmart/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.Sale{}))
	return db
}

func makeProduct(t *testing.T, db *gorm.DB, stock int) *models.Product {
	p := models.Product{
		Name:   "baby chick",
		Price:  decimal.NewFromFloat(9.99),
		Stock:  stock,
		Status: models.ProductStatusActive,
	}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

func saleInput(productID uint, qty int, start, end time.Time) Input {
	return Input{
		ProductID:          productID,
		OriginalPrice:      decimal.NewFromFloat(9.99),
		SalePrice:          decimal.NewFromFloat(6.99),
		DiscountPercentage: decimal.NewFromFloat(30),
		QuantityAvailable:  qty,
		StartDate:          start,
		EndDate:            end,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestCreateRejectsMissingProduct(t *testing.T) {
	db := initTestDB(t)
	now := time.Now()

	_, err := Create(db, saleInput(999, 1, now, now.Add(24*time.Hour)), now)
	require.Error(t, err)
	require.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestCreateRejectsQuantityOverStock(t *testing.T) {
	db := initTestDB(t)
	p := makeProduct(t, db, 5)
	now := time.Now()

	_, err := Create(db, saleInput(p.ID, 6, now, now.Add(24*time.Hour)), now)
	require.Error(t, err)
	require.Equal(t, apperr.Validation, apperr.KindOf(err))
	// The rejection message must name both values.
	require.Contains(t, err.Error(), "6")
	require.Contains(t, err.Error(), "5")
}

func TestCreateAcceptsQuantityAtStockBoundary(t *testing.T) {
	db := initTestDB(t)
	p := makeProduct(t, db, 5)
	now := time.Now()

	s, err := Create(db, saleInput(p.ID, 5, now, now.Add(24*time.Hour)), now)
	require.NoError(t, err)
	require.Equal(t, models.SaleStatusActive, s.Status)
	require.Equal(t, 5, s.QuantityAvailable)
}

func TestCreateRejectsOverlappingWindow(t *testing.T) {
	db := initTestDB(t)
	p := makeProduct(t, db, 50)
	now := date(2026, time.January, 1)

	_, err := Create(db, saleInput(p.ID, 10, date(2026, time.January, 1), date(2026, time.January, 10)), now)
	require.NoError(t, err)

	// [Jan 5, Jan 15] overlaps [Jan 1, Jan 10].
	_, err = Create(db, saleInput(p.ID, 10, date(2026, time.January, 5), date(2026, time.January, 15)), now)
	require.Error(t, err)
	require.Equal(t, apperr.Validation, apperr.KindOf(err))
	require.Contains(t, err.Error(), "overlapping")
}

func TestCreateAcceptsDisjointWindow(t *testing.T) {
	db := initTestDB(t)
	p := makeProduct(t, db, 50)
	now := date(2026, time.January, 1)

	_, err := Create(db, saleInput(p.ID, 10, date(2026, time.January, 1), date(2026, time.January, 10)), now)
	require.NoError(t, err)

	// [Jan 11, Jan 20] starts after [Jan 1, Jan 10] ends.
	_, err = Create(db, saleInput(p.ID, 10, date(2026, time.January, 11), date(2026, time.January, 20)), now)
	require.NoError(t, err)
}

// Windows touching at a single day still overlap: both interval ends are
// inclusive.
func TestCreateRejectsWindowSharingEndpoint(t *testing.T) {
	db := initTestDB(t)
	p := makeProduct(t, db, 50)
	now := date(2026, time.January, 1)

	_, err := Create(db, saleInput(p.ID, 10, date(2026, time.January, 1), date(2026, time.January, 10)), now)
	require.NoError(t, err)

	// Starts exactly on the existing end date.
	_, err = Create(db, saleInput(p.ID, 10, date(2026, time.January, 10), date(2026, time.January, 20)), now)
	require.Error(t, err)
	require.Equal(t, apperr.Validation, apperr.KindOf(err))

	// Ends exactly on the existing start date.
	_, err = Create(db, saleInput(p.ID, 10, date(2025, time.December, 20), date(2026, time.January, 1)), now)
	require.Error(t, err)
	require.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestCreateRejectsContainedWindow(t *testing.T) {
	db := initTestDB(t)
	p := makeProduct(t, db, 50)
	now := date(2026, time.January, 1)

	_, err := Create(db, saleInput(p.ID, 10, date(2026, time.January, 5), date(2026, time.January, 8)), now)
	require.NoError(t, err)

	// The new window fully contains the existing one.
	_, err = Create(db, saleInput(p.ID, 10, date(2026, time.January, 1), date(2026, time.January, 10)), now)
	require.Error(t, err)
	require.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestCreateAllowsOverlapWithDifferentProduct(t *testing.T) {
	db := initTestDB(t)
	p1 := makeProduct(t, db, 50)
	p2 := makeProduct(t, db, 50)
	now := date(2026, time.January, 1)

	_, err := Create(db, saleInput(p1.ID, 10, date(2026, time.January, 1), date(2026, time.January, 10)), now)
	require.NoError(t, err)

	_, err = Create(db, saleInput(p2.ID, 10, date(2026, time.January, 5), date(2026, time.January, 15)), now)
	require.NoError(t, err)
}

func TestCreateIgnoresExpiredSales(t *testing.T) {
	db := initTestDB(t)
	p := makeProduct(t, db, 50)
	now := date(2026, time.February, 1)

	expired := models.Sale{
		ProductID:         p.ID,
		SalePrice:         decimal.NewFromFloat(6.99),
		QuantityAvailable: 10,
		StartDate:         date(2026, time.January, 1),
		EndDate:           date(2026, time.January, 10),
		Status:            models.SaleStatusExpired,
	}
	require.NoError(t, db.Create(&expired).Error)

	_, err := Create(db, saleInput(p.ID, 10, date(2026, time.January, 5), date(2026, time.January, 15)), now)
	require.NoError(t, err)
}

func TestUpdateExcludesOwnWindow(t *testing.T) {
	db := initTestDB(t)
	p := makeProduct(t, db, 50)
	now := date(2026, time.January, 1)

	created, err := Create(db, saleInput(p.ID, 10, date(2026, time.January, 1), date(2026, time.January, 10)), now)
	require.NoError(t, err)

	// Shifting the same sale inside its own window must not self-conflict.
	updated, err := Update(db, created.ID, saleInput(p.ID, 20, date(2026, time.January, 2), date(2026, time.January, 12)), now)
	require.NoError(t, err)
	require.Equal(t, created.ID, updated.ID)
	require.Equal(t, 20, updated.QuantityAvailable)
}

func TestUpdateStillChecksOtherSales(t *testing.T) {
	db := initTestDB(t)
	p := makeProduct(t, db, 50)
	now := date(2026, time.January, 1)

	_, err := Create(db, saleInput(p.ID, 10, date(2026, time.January, 1), date(2026, time.January, 10)), now)
	require.NoError(t, err)
	second, err := Create(db, saleInput(p.ID, 10, date(2026, time.January, 11), date(2026, time.January, 20)), now)
	require.NoError(t, err)

	_, err = Update(db, second.ID, saleInput(p.ID, 10, date(2026, time.January, 9), date(2026, time.January, 20)), now)
	require.Error(t, err)
	require.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestUpdateMissingSale(t *testing.T) {
	db := initTestDB(t)
	p := makeProduct(t, db, 50)
	now := time.Now()

	_, err := Update(db, 42, saleInput(p.ID, 1, now, now.Add(time.Hour)), now)
	require.Error(t, err)
	require.Equal(t, apperr.NotFound, apperr.KindOf(err))
}

func TestCreateRejectsInvertedWindow(t *testing.T) {
	db := initTestDB(t)
	p := makeProduct(t, db, 50)
	now := time.Now()

	_, err := Create(db, saleInput(p.ID, 1, now.Add(time.Hour), now), now)
	require.Error(t, err)
	require.Equal(t, apperr.Validation, apperr.KindOf(err))
}

func TestDelete(t *testing.T) {
	db := initTestDB(t)
	p := makeProduct(t, db, 50)
	now := time.Now()

	created, err := Create(db, saleInput(p.ID, 5, now, now.Add(time.Hour)), now)
	require.NoError(t, err)

	require.NoError(t, Delete(db, created.ID))

	err = Delete(db, created.ID)
	require.Error(t, err)
	require.Equal(t, apperr.NotFound, apperr.KindOf(err))
}
