package handlers

import (
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/eggmart/eggmart/internal/hash"
	authmw "github.com/eggmart/eggmart/internal/middleware/auth"
	"github.com/eggmart/eggmart/internal/models"
	"github.com/eggmart/eggmart/internal/mykafka"
)

var testSecret = []byte("test-secret")

func newAuthHandler(db *gorm.DB) *AuthHandler {
	return &AuthHandler{DB: db, JWTSecret: testSecret, Producer: &mykafka.Producer{}}
}

func TestRegister(t *testing.T) {
	db := initTestDB(t)
	h := newAuthHandler(db)

	e := echo.New()
	rec, c := jsonContext(t, e, http.MethodPost, "/register", map[string]string{
		"email":    "farmer@eggmart.test",
		"password": "password",
		"name":     "Farmer",
	})

	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var user models.User
	require.NoError(t, db.Where("email = ?", "farmer@eggmart.test").First(&user).Error)
	require.Equal(t, models.RoleUser, user.Role)
	require.NotEqual(t, "password", user.PasswordHash)
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	db := initTestDB(t)
	h := newAuthHandler(db)

	e := echo.New()
	body := map[string]string{
		"email":    "farmer@eggmart.test",
		"password": "password",
		"name":     "Farmer",
	}
	rec, c := jsonContext(t, e, http.MethodPost, "/register", body)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, c = jsonContext(t, e, http.MethodPost, "/register", body)
	require.NoError(t, h.Register(c))
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestLoginSetsAuthCookie(t *testing.T) {
	db := initTestDB(t)
	h := newAuthHandler(db)

	pwHash, err := hash.HashPassword("password")
	require.NoError(t, err)
	user := models.User{Email: "farmer@eggmart.test", PasswordHash: pwHash, Name: "Farmer", Role: models.RoleUser}
	require.NoError(t, db.Create(&user).Error)

	e := echo.New()
	rec, c := jsonContext(t, e, http.MethodPost, "/login", map[string]string{
		"email":    "farmer@eggmart.test",
		"password": "password",
	})

	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var cookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == authmw.CookieName {
			cookie = ck
		}
	}
	require.NotNil(t, cookie, "expected %s cookie", authmw.CookieName)
	require.True(t, cookie.HttpOnly)
	require.NotEmpty(t, cookie.Value)
}

func TestLoginWrongPassword(t *testing.T) {
	db := initTestDB(t)
	h := newAuthHandler(db)

	pwHash, err := hash.HashPassword("password")
	require.NoError(t, err)
	user := models.User{Email: "farmer@eggmart.test", PasswordHash: pwHash, Name: "Farmer", Role: models.RoleUser}
	require.NoError(t, db.Create(&user).Error)

	e := echo.New()
	_, c := jsonContext(t, e, http.MethodPost, "/login", map[string]string{
		"email":    "farmer@eggmart.test",
		"password": "wrong",
	})

	err = h.Login(c)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusUnauthorized, he.Code)
}

func TestRequireUserRoundTrip(t *testing.T) {
	db := initTestDB(t)
	h := newAuthHandler(db)

	pwHash, err := hash.HashPassword("password")
	require.NoError(t, err)
	user := models.User{Email: "farmer@eggmart.test", PasswordHash: pwHash, Name: "Farmer", Role: models.RoleUser}
	require.NoError(t, db.Create(&user).Error)

	e := echo.New()
	rec, c := jsonContext(t, e, http.MethodPost, "/login", map[string]string{
		"email":    "farmer@eggmart.test",
		"password": "password",
	})
	require.NoError(t, h.Login(c))

	var token string
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == authmw.CookieName {
			token = ck.Value
		}
	}
	require.NotEmpty(t, token)

	recMe, cMe := jsonContext(t, e, http.MethodGet, "/me", nil)
	cMe.Request().AddCookie(&http.Cookie{Name: authmw.CookieName, Value: token})

	mw := authmw.RequireUser(testSecret)
	handler := mw(func(c echo.Context) error {
		p, ok := authmw.FromContext(c)
		require.True(t, ok)
		require.Equal(t, user.ID, p.UserID)
		require.Equal(t, user.Email, p.Email)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(cMe))
	require.Equal(t, http.StatusOK, recMe.Code)
}

func TestRequireAdminRejectsUserRole(t *testing.T) {
	db := initTestDB(t)
	h := newAuthHandler(db)

	pwHash, err := hash.HashPassword("password")
	require.NoError(t, err)
	user := models.User{Email: "farmer@eggmart.test", PasswordHash: pwHash, Name: "Farmer", Role: models.RoleUser}
	require.NoError(t, db.Create(&user).Error)

	e := echo.New()
	rec, c := jsonContext(t, e, http.MethodPost, "/login", map[string]string{
		"email":    "farmer@eggmart.test",
		"password": "password",
	})
	require.NoError(t, h.Login(c))

	var token string
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == authmw.CookieName {
			token = ck.Value
		}
	}

	_, cAdmin := jsonContext(t, e, http.MethodGet, "/admin/sales", nil)
	cAdmin.Request().AddCookie(&http.Cookie{Name: authmw.CookieName, Value: token})

	mw := authmw.RequireAdmin(testSecret)
	handler := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	err = handler(cAdmin)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok, "expected HTTPError")
	require.Equal(t, http.StatusForbidden, he.Code)
}
