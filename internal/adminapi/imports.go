package adminapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/zestcart/zestcart/internal/domain"
	"github.com/zestcart/zestcart/internal/webserver"
	"github.com/zestcart/zestcart/pkg/common"
)

type productImportRow struct {
	Name        string  `csv:"name"`
	Description string  `csv:"description"`
	Price       float64 `csv:"price"`
	Quantity    int     `csv:"quantity"`
	Category    string  `csv:"category"`
	Image       string  `csv:"image"`
}

type importReport struct {
	Imported int                      `json:"imported"`
	Skipped  int                      `json:"skipped"`
	Errors   []map[string]interface{} `json:"errors,omitempty"`
}

// registerImportRoutes registers bulk catalog import routes
func registerImportRoutes() {
	webserver.AdminPOST("/products/import", importProducts)
}

// importProducts loads a csv product sheet, creating missing
// categories on the fly. Rows that fail validation are skipped and
// reported, valid rows still land.
func importProducts(c echo.Context) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Missing file field", nil)
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

	var rows []productImportRow
	if err := gocsv.UnmarshalBytes(data, &rows); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_CSV", "Unable to parse csv", err.Error())
	}

	claims := currentClaims(c)
	db := GetDB(c)
	report := importReport{}
	categoryIDs := map[string]int64{}

	for i, row := range rows {
		line := i + 2 // header occupies line 1
		name := strings.TrimSpace(row.Name)
		category := strings.TrimSpace(row.Category)
		switch {
		case name == "":
			report.Skipped++
			report.Errors = append(report.Errors, map[string]interface{}{"line": line, "reason": "name is required"})
			continue
		case category == "":
			report.Skipped++
			report.Errors = append(report.Errors, map[string]interface{}{"line": line, "reason": "category is required"})
			continue
		case row.Price < 0:
			report.Skipped++
			report.Errors = append(report.Errors, map[string]interface{}{"line": line, "reason": "price must be >= 0"})
			continue
		case row.Quantity < 0:
			report.Skipped++
			report.Errors = append(report.Errors, map[string]interface{}{"line": line, "reason": "quantity must be >= 0"})
			continue
		}

		categoryID, found := categoryIDs[category]
		if !found {
			id, cerr := lookupOrCreateCategory(db, category)
			if cerr != nil {
				report.Skipped++
				report.Errors = append(report.Errors, map[string]interface{}{"line": line, "reason": cerr.Error()})
				continue
			}
			categoryID = id
			categoryIDs[category] = id
		}

		p := domain.Product{
			ID:          common.UUIDint64(),
			Name:        name,
			Description: row.Description,
			Price:       row.Price,
			Quantity:    row.Quantity,
			InStock:     row.Quantity > 0,
			CategoryID:  categoryID,
			OwnerID:     claims.UserID,
			Image:       strings.TrimSpace(row.Image),
			CreatedAt:   time.Now(),
			UpdatedAt:   time.Now(),
		}
		if err := db.Create(&p).Error; err != nil {
			report.Skipped++
			report.Errors = append(report.Errors, map[string]interface{}{"line": line, "reason": err.Error()})
			continue
		}
		report.Imported++
	}

	logOperation(c, "product_import",
		fmt.Sprintf("imported %d products, skipped %d", report.Imported, report.Skipped))
	return ok(c, report)
}

func lookupOrCreateCategory(db *gorm.DB, name string) (int64, error) {
	var cat domain.Category
	err := db.Where("name = ?", name).First(&cat).Error
	if err == nil {
		return cat.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	cat = domain.Category{
		ID:        common.UUIDint64(),
		Name:      name,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := db.Create(&cat).Error; err != nil {
		return 0, err
	}
	return cat.ID, nil
}
