package handlers

import (
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/eggmart/eggmart/internal/apperr"
)

type UploadHandler struct {
	Dir string
}

// Upload stores an admin-provided image under a uuid filename and returns
// its serving path.
func (h *UploadHandler) Upload(c echo.Context) error {
	file, err := c.FormFile("image")
	if err != nil {
		return respondError(c, apperr.Validationf("missing image file"))
	}

	src, err := file.Open()
	if err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "open upload", err))
	}
	defer src.Close()

	if err := os.MkdirAll(h.Dir, 0o755); err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "create upload dir", err))
	}

	name := uuid.New().String() + filepath.Ext(file.Filename)
	dst, err := os.Create(filepath.Join(h.Dir, name))
	if err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "create file", err))
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return respondError(c, apperr.Wrap(apperr.Internal, "write file", err))
	}

	return c.JSON(http.StatusCreated, echo.Map{"url": "/uploads/" + name})
}
