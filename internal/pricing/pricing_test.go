package pricing

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eggmart/eggmart/internal/models"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.Sale{}))
	return db
}

func makeProduct(t *testing.T, db *gorm.DB, price float64, stock int) *models.Product {
	p := models.Product{
		Name:   "dozen eggs",
		Price:  decimal.NewFromFloat(price),
		Stock:  stock,
		Status: models.ProductStatusActive,
	}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

func TestEffectiveListPrice(t *testing.T) {
	p := &models.Product{Price: decimal.NewFromFloat(4.50)}

	q := Effective(p, nil, time.Now())
	require.False(t, q.OnSale())
	require.True(t, q.Price.Equal(decimal.NewFromFloat(4.50)))
	require.Nil(t, q.OriginalPrice)
}

func TestEffectiveSalePriceInsideWindow(t *testing.T) {
	now := time.Now()
	p := &models.Product{Price: decimal.NewFromFloat(4.50)}
	s := &models.Sale{
		SalePrice: decimal.NewFromFloat(2.99),
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(time.Hour),
		Status:    models.SaleStatusActive,
	}

	q := Effective(p, s, now)
	require.True(t, q.OnSale())
	require.True(t, q.Price.Equal(decimal.NewFromFloat(2.99)))
	require.NotNil(t, q.OriginalPrice)
	require.True(t, q.OriginalPrice.Equal(decimal.NewFromFloat(4.50)))
}

func TestEffectiveOutsideWindow(t *testing.T) {
	now := time.Now()
	p := &models.Product{Price: decimal.NewFromFloat(4.50)}
	s := &models.Sale{
		SalePrice: decimal.NewFromFloat(2.99),
		StartDate: now.Add(time.Hour),
		EndDate:   now.Add(2 * time.Hour),
		Status:    models.SaleStatusActive,
	}

	q := Effective(p, s, now)
	require.False(t, q.OnSale())
	require.True(t, q.Price.Equal(p.Price))
}

func TestEffectiveWindowBoundariesInclusive(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	p := &models.Product{Price: decimal.NewFromFloat(4.50)}
	s := &models.Sale{
		SalePrice: decimal.NewFromFloat(2.99),
		StartDate: now,
		EndDate:   now,
		Status:    models.SaleStatusActive,
	}

	require.True(t, Effective(p, s, now).OnSale())
}

func TestSweepExpiresStaleSales(t *testing.T) {
	db := initTestDB(t)
	p := makeProduct(t, db, 4.50, 20)
	now := time.Now()

	stale := models.Sale{
		ProductID: p.ID,
		SalePrice: decimal.NewFromFloat(2.99),
		StartDate: now.Add(-48 * time.Hour),
		EndDate:   now.Add(-24 * time.Hour),
		Status:    models.SaleStatusActive,
	}
	require.NoError(t, db.Create(&stale).Error)

	q, err := Resolve(db, p, now)
	require.NoError(t, err)
	require.False(t, q.OnSale())
	require.True(t, q.Price.Equal(p.Price))

	var swept models.Sale
	require.NoError(t, db.First(&swept, stale.ID).Error)
	require.Equal(t, models.SaleStatusExpired, swept.Status)
}

func TestResolvePicksActiveSale(t *testing.T) {
	db := initTestDB(t)
	p := makeProduct(t, db, 4.50, 20)
	now := time.Now()

	s := models.Sale{
		ProductID: p.ID,
		SalePrice: decimal.NewFromFloat(2.99),
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(time.Hour),
		Status:    models.SaleStatusActive,
	}
	require.NoError(t, db.Create(&s).Error)

	q, err := Resolve(db, p, now)
	require.NoError(t, err)
	require.True(t, q.OnSale())
	require.True(t, q.Price.Equal(decimal.NewFromFloat(2.99)))
}

// If the no-overlap invariant is ever violated, the most recently created
// sale must win deterministically.
func TestResolveTieBreakMostRecentlyCreated(t *testing.T) {
	db := initTestDB(t)
	p := makeProduct(t, db, 4.50, 20)
	now := time.Now()

	older := models.Sale{
		ProductID: p.ID,
		SalePrice: decimal.NewFromFloat(3.99),
		StartDate: now.Add(-2 * time.Hour),
		EndDate:   now.Add(2 * time.Hour),
		Status:    models.SaleStatusActive,
		CreatedAt: now.Add(-time.Hour),
	}
	require.NoError(t, db.Create(&older).Error)

	newer := models.Sale{
		ProductID: p.ID,
		SalePrice: decimal.NewFromFloat(1.99),
		StartDate: now.Add(-time.Hour),
		EndDate:   now.Add(time.Hour),
		Status:    models.SaleStatusActive,
		CreatedAt: now,
	}
	require.NoError(t, db.Create(&newer).Error)

	q, err := Resolve(db, p, now)
	require.NoError(t, err)
	require.NotNil(t, q.Sale)
	require.Equal(t, newer.ID, q.Sale.ID)
	require.True(t, q.Price.Equal(decimal.NewFromFloat(1.99)))
}
