package handlers

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	authmw "github.com/eggmart/eggmart/internal/middleware/auth"
	"github.com/eggmart/eggmart/internal/models"
	"github.com/eggmart/eggmart/internal/mykafka"
)

func initTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Product{},
		&models.ProductImage{},
		&models.Sale{},
		&models.CartItem{},
		&models.Favorite{},
		&models.Order{},
		&models.OrderItem{},
		&models.OrderRating{},
		&models.Notification{},
	)
	require.NoError(t, err)
	return db
}

func jsonContext(t *testing.T, e *echo.Echo, method, path string, body any) (*httptest.ResponseRecorder, echo.Context) {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, e.NewContext(req, rec)
}

func asUser(c echo.Context, userID uint) {
	authmw.SetPrincipal(c, authmw.Principal{UserID: userID, Role: models.RoleUser})
}

func makeProduct(t *testing.T, db *gorm.DB, name string, price float64, stock int) *models.Product {
	p := models.Product{
		Name:   name,
		Price:  decimal.NewFromFloat(price),
		Stock:  stock,
		Status: models.ProductStatusActive,
	}
	require.NoError(t, db.Create(&p).Error)
	return &p
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func errorMessage(t *testing.T, rec *httptest.ResponseRecorder) string {
	var body struct {
		Error string `json:"error"`
	}
	decodeBody(t, rec, &body)
	return body.Error
}

func newCartHandler(db *gorm.DB) *CartHandler {
	return &CartHandler{DB: db, Producer: &mykafka.Producer{}}
}
