package auth

import (
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/eggmart/eggmart/internal/models"
)

// CookieName is the single auth cookie the API issues and checks.
const CookieName = "auth_token"

const principalKey = "principal"

// Principal is the authenticated caller every guarded handler receives via
// context, replacing per-route token decoding.
type Principal struct {
	UserID uint
	Email  string
	Role   string
	Name   string
}

func (p Principal) IsAdmin() bool { return p.Role == models.RoleAdmin }

func FromContext(c echo.Context) (Principal, bool) {
	p, ok := c.Get(principalKey).(Principal)
	return p, ok
}

func SetPrincipal(c echo.Context, p Principal) {
	c.Set(principalKey, p)
}

func parseCookie(c echo.Context, secret []byte) (Principal, error) {
	cookie, err := c.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "missing auth cookie")
	}

	token, err := jwt.Parse(cookie.Value, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid token claims")
	}
	sub, ok := claims["sub"].(float64)
	if !ok {
		return Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "invalid subject claim")
	}

	p := Principal{UserID: uint(sub)}
	p.Email, _ = claims["email"].(string)
	p.Role, _ = claims["role"].(string)
	p.Name, _ = claims["name"].(string)
	return p, nil
}

// RequireUser authenticates the auth cookie and stores the principal in the
// request context.
func RequireUser(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := parseCookie(c, secret)
			if err != nil {
				return err
			}
			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// RequireAdmin authenticates and additionally gates on the admin role.
func RequireAdmin(secret []byte) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p, err := parseCookie(c, secret)
			if err != nil {
				return err
			}
			if !p.IsAdmin() {
				return echo.NewHTTPError(http.StatusForbidden, "admin role required")
			}
			c.Set(principalKey, p)
			return next(c)
		}
	}
}
