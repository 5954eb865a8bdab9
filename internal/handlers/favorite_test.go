package handlers

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eggmart/eggmart/internal/models"
	"github.com/eggmart/eggmart/internal/mykafka"
)

func newFavoriteHandler(db *gorm.DB) *FavoriteHandler {
	return &FavoriteHandler{DB: db, Producer: &mykafka.Producer{}}
}

func TestAddFavorite(t *testing.T) {
	db := initTestDB(t)
	h := newFavoriteHandler(db)
	prod := makeProduct(t, db, "dozen eggs", 4.50, 5)

	e := echo.New()
	rec, c := jsonContext(t, e, http.MethodPost, "/favorites", map[string]any{
		"product_id": prod.ID,
	})
	asUser(c, 1)

	require.NoError(t, h.Add(c))
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestAddFavoriteDuplicateConflicts(t *testing.T) {
	db := initTestDB(t)
	h := newFavoriteHandler(db)
	prod := makeProduct(t, db, "dozen eggs", 4.50, 5)

	e := echo.New()
	for i, want := range []int{http.StatusCreated, http.StatusConflict} {
		rec, c := jsonContext(t, e, http.MethodPost, "/favorites", map[string]any{
			"product_id": prod.ID,
		})
		asUser(c, 1)
		require.NoError(t, h.Add(c))
		require.Equal(t, want, rec.Code, "attempt %d", i+1)
	}

	var count int64
	db.Model(&models.Favorite{}).Count(&count)
	require.EqualValues(t, 1, count)
}

// A pair inserted outside the handler (as by a concurrent request winning
// the race) must still surface as Conflict, not a 500 from the unique index.
func TestAddFavoriteExistingRowConflicts(t *testing.T) {
	db := initTestDB(t)
	h := newFavoriteHandler(db)
	prod := makeProduct(t, db, "dozen eggs", 4.50, 5)

	require.NoError(t, db.Create(&models.Favorite{UserID: 1, ProductID: prod.ID}).Error)

	e := echo.New()
	rec, c := jsonContext(t, e, http.MethodPost, "/favorites", map[string]any{
		"product_id": prod.ID,
	})
	asUser(c, 1)

	require.NoError(t, h.Add(c))
	require.Equal(t, http.StatusConflict, rec.Code)

	var count int64
	db.Model(&models.Favorite{}).Count(&count)
	require.EqualValues(t, 1, count)
}

func TestAddFavoriteMissingProduct(t *testing.T) {
	db := initTestDB(t)
	h := newFavoriteHandler(db)

	e := echo.New()
	rec, c := jsonContext(t, e, http.MethodPost, "/favorites", map[string]any{
		"product_id": 42,
	})
	asUser(c, 1)

	require.NoError(t, h.Add(c))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// Removing a pair that does not exist is a no-op success.
func TestRemoveFavoriteAbsentIsNoOp(t *testing.T) {
	db := initTestDB(t)
	h := newFavoriteHandler(db)

	e := echo.New()
	rec, c := jsonContext(t, e, http.MethodDelete, "/favorites/42", nil)
	c.SetParamNames("id")
	c.SetParamValues("42")
	asUser(c, 1)

	require.NoError(t, h.Remove(c))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRemoveFavorite(t *testing.T) {
	db := initTestDB(t)
	h := newFavoriteHandler(db)
	prod := makeProduct(t, db, "dozen eggs", 4.50, 5)

	fav := models.Favorite{UserID: 1, ProductID: prod.ID}
	require.NoError(t, db.Create(&fav).Error)

	e := echo.New()
	rec, c := jsonContext(t, e, http.MethodDelete, "/favorites/"+strconv.Itoa(int(prod.ID)), nil)
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(int(prod.ID)))
	asUser(c, 1)

	require.NoError(t, h.Remove(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var count int64
	db.Model(&models.Favorite{}).Count(&count)
	require.Zero(t, count)
}
