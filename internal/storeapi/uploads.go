package storeapi

import (
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/zestcart/zestcart/internal/webserver"
	"github.com/zestcart/zestcart/pkg/common"
)

var allowedImageExts = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// registerUploadRoutes registers the asset upload endpoint
func registerUploadRoutes() {
	webserver.ApiPOST("/uploads", uploadAsset)
}

// uploadAsset stores a multipart image and returns its public URL.
func uploadAsset(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Missing file field", nil)
	}

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	if !common.InSlice(ext, allowedImageExts) {
		return fail(c, http.StatusBadRequest, "UNSUPPORTED_TYPE", "Only image uploads are allowed",
			map[string]interface{}{"allowed": allowedImageExts})
	}

	maxBytes := GetAppContext(c).Config().Storage.MaxSizeMB * 1024 * 1024
	if maxBytes > 0 && fh.Size > maxBytes {
		return fail(c, http.StatusBadRequest, "FILE_TOO_LARGE", "File exceeds the upload size limit",
			map[string]interface{}{"max_bytes": maxBytes})
	}

	src, err := fh.Open()
	if err != nil {
		return failError(c, err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return failError(c, err)
	}

	name := uuid.NewString() + ext
	url, err := GetAppContext(c).Assets().Put(c.Request().Context(), name, data)
	if err != nil {
		return failError(c, err)
	}

	return ok(c, map[string]interface{}{"name": name, "url": url})
}
