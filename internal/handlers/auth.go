package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/eggmart/eggmart/internal/apperr"
	"github.com/eggmart/eggmart/internal/hash"
	"github.com/eggmart/eggmart/internal/logging"
	authmw "github.com/eggmart/eggmart/internal/middleware/auth"
	"github.com/eggmart/eggmart/internal/models"
	"github.com/eggmart/eggmart/internal/mykafka"
)

const authTokenTTL = 7 * 24 * time.Hour

type AuthHandler struct {
	DB        *gorm.DB
	JWTSecret []byte
	Producer  *mykafka.Producer
}

func CreateCookie(name, value, path string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func DeleteCookie(name, path string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

func signAuthToken(user *models.User, secret []byte, exp time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"role":  user.Role,
		"name":  user.Name,
		"exp":   exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(secret)
}

func (h *AuthHandler) publish(c echo.Context, event map[string]any) {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := h.Producer.PublishEvent(ctx, "user_events", fmt.Sprint(event["userID"]), event); err != nil {
		c.Logger().Errorf("Kafka publish error: %v", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_register")

	var req struct {
		Email    string `json:"email"    validate:"required,email"`
		Password string `json:"password" validate:"required,min=6"`
		Name     string `json:"name"     validate:"required"`
	}
	if err := bindAndValidate(c, &req); err != nil {
		l.Warn("register_failed", "status", 400, "error", err)
		return respondError(c, err)
	}

	var existing models.User
	err := h.DB.Where("email = ?", req.Email).First(&existing).Error
	if err == nil {
		l.Warn("register_failed", "status", 409, "reason", "email_exists")
		return respondError(c, apperr.Conflictf("email already registered"))
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return respondError(c, apperr.Wrap(apperr.Internal, "check email", err))
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "hash password", err))
	}

	user := models.User{
		Email:        req.Email,
		PasswordHash: pwHash,
		Name:         req.Name,
		Role:         models.RoleUser,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "create user", err))
	}

	h.publish(c, map[string]any{
		"type":   "user_registered",
		"userID": user.ID,
		"email":  user.Email,
	})

	l.Info("register_success", "user_id", user.ID)
	return c.JSON(http.StatusCreated, echo.Map{
		"id": user.ID, "email": user.Email, "name": user.Name, "role": user.Role,
	})
}

func (h *AuthHandler) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth_login")

	var req struct {
		Email    string `json:"email"    validate:"required"`
		Password string `json:"password" validate:"required"`
	}
	if err := bindAndValidate(c, &req); err != nil {
		return respondError(c, err)
	}

	var user models.User
	if err := h.DB.Where("email = ?", req.Email).First(&user).Error; err != nil {
		l.Warn("login_failed", "status", 401)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}
	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401)
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid email or password")
	}

	exp := time.Now().Add(authTokenTTL)
	token, err := signAuthToken(&user, h.JWTSecret, exp)
	if err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "sign token", err))
	}
	c.SetCookie(CreateCookie(authmw.CookieName, token, "/", exp))

	h.publish(c, map[string]any{
		"type":   "user_logged_in",
		"userID": user.ID,
	})

	l.Info("login_success", "user_id", user.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"id":       user.ID,
		"email":    user.Email,
		"name":     user.Name,
		"role":     user.Role,
		"is_admin": user.Role == models.RoleAdmin,
	})
}

func (h *AuthHandler) LogOut(c echo.Context) error {
	c.SetCookie(DeleteCookie(authmw.CookieName, "/"))
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHandler) Me(c echo.Context) error {
	p, ok := authmw.FromContext(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing principal")
	}
	var user models.User
	if err := h.DB.First(&user, p.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return respondError(c, apperr.NotFoundf("user %d not found", p.UserID))
		}
		return respondError(c, apperr.Wrap(apperr.Internal, "load user", err))
	}
	return c.JSON(http.StatusOK, user)
}
