package storeapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/zestcart/zestcart/internal/auth"
	"github.com/zestcart/zestcart/internal/cart"
	"github.com/zestcart/zestcart/internal/domain"
	"github.com/zestcart/zestcart/internal/webserver"
	"github.com/zestcart/zestcart/pkg/common"
)

type productPayload struct {
	Name        string  `json:"name" validate:"required,min=1,max=191"`
	Description string  `json:"description" validate:"omitempty,max=10000"`
	Price       float64 `json:"price" validate:"gte=0"`
	Quantity    int     `json:"quantity" validate:"gte=0"`
	CategoryID  int64   `json:"category_id,string" validate:"required"`
	Image       string  `json:"image" validate:"omitempty,max=1024"`
}

type productUpdatePayload struct {
	Name        *string  `json:"name" validate:"omitempty,min=1,max=191"`
	Description *string  `json:"description" validate:"omitempty,max=10000"`
	Price       *float64 `json:"price" validate:"omitempty,gte=0"`
	Quantity    *int     `json:"quantity" validate:"omitempty,gte=0"`
	CategoryID  *int64   `json:"category_id,string"`
	Image       *string  `json:"image" validate:"omitempty,max=1024"`
	InStock     *bool    `json:"in_stock"`
}

// registerProductRoutes registers catalog browse and vendor listing routes
func registerProductRoutes() {
	webserver.PubGET("/products", listProducts)
	webserver.PubGET("/products/:id", getProduct)
	webserver.ApiPOST("/products", createProduct)
	webserver.ApiPUT("/products/:id", updateProduct)
	webserver.ApiDELETE("/products/:id", deleteProduct)
}

// listProducts retrieves the public catalog
// @Summary browse the product catalog
// @Tags Products
// @Param page query int false "Page number"
// @Param perPage query int false "Items per page"
// @Param q query string false "Name search"
// @Param category_id query string false "Category filter"
// @Param in_stock query bool false "Only sellable products"
// @Param sort query string false "Sort field"
// @Param order query string false "Sort direction"
// @Router /api/v1/products [get]
func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)

	sortField := strings.TrimSpace(c.QueryParam("sort"))
	order := strings.ToUpper(strings.TrimSpace(c.QueryParam("order")))
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	// whitelist allowed sort columns to avoid SQL injection
	allowed := map[string]string{
		"id":         "id",
		"name":       "name",
		"price":      "price",
		"created_at": "created_at",
		"updated_at": "updated_at",
	}
	sortCol, found := allowed[sortField]
	if !found {
		sortCol = "created_at"
	}

	db := GetDB(c).Model(&domain.Product{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		if strings.EqualFold(db.Name(), "postgres") {
			db = db.Where("name ILIKE ?", "%"+q+"%")
		} else {
			db = db.Where("LOWER(name) LIKE ?", "%"+strings.ToLower(q)+"%")
		}
	}
	if categoryID := strings.TrimSpace(c.QueryParam("category_id")); categoryID != "" {
		db = db.Where("category_id = ?", categoryID)
	}
	if inStock := strings.TrimSpace(c.QueryParam("in_stock")); inStock == "true" {
		db = db.Where("in_stock = ?", true)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	var rows []domain.Product
	if err := db.Order(sortCol + " " + order).Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	return paged(c, rows, total, page, pageSize)
}

func getProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}

	return ok(c, p)
}

func createProduct(c echo.Context) error {
	claims := currentClaims(c)
	if !auth.CanListProducts(claims) {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Vendor or admin role required", nil)
	}

	var payload productPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var catCount int64
	GetDB(c).Model(&domain.Category{}).Where("id = ?", payload.CategoryID).Count(&catCount)
	if catCount == 0 {
		return fail(c, http.StatusBadRequest, "CATEGORY_NOT_FOUND", "Category does not exist", nil)
	}

	p := domain.Product{
		ID:          common.UUIDint64(),
		Name:        strings.TrimSpace(payload.Name),
		Description: payload.Description,
		Price:       payload.Price,
		Quantity:    payload.Quantity,
		InStock:     payload.Quantity > 0,
		CategoryID:  payload.CategoryID,
		OwnerID:     claims.UserID,
		Image:       strings.TrimSpace(payload.Image),
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := GetDB(c).Create(&p).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create product", err.Error())
	}

	return webserver.Created(c, p)
}

func updateProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}

	claims := currentClaims(c)
	if !auth.CanManageProduct(claims, &p) {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Not allowed to modify this product", nil)
	}

	var payload productUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse product", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	if payload.Name != nil {
		p.Name = strings.TrimSpace(*payload.Name)
	}
	if payload.Description != nil {
		p.Description = *payload.Description
	}
	if payload.Price != nil {
		p.Price = *payload.Price
	}
	if payload.CategoryID != nil {
		var catCount int64
		GetDB(c).Model(&domain.Category{}).Where("id = ?", *payload.CategoryID).Count(&catCount)
		if catCount == 0 {
			return fail(c, http.StatusBadRequest, "CATEGORY_NOT_FOUND", "Category does not exist", nil)
		}
		p.CategoryID = *payload.CategoryID
	}
	if payload.Image != nil {
		p.Image = strings.TrimSpace(*payload.Image)
	}
	if payload.Quantity != nil {
		p.Quantity = *payload.Quantity
		p.InStock = p.Quantity > 0
	}
	if payload.InStock != nil {
		// cannot flag a zero stock product as sellable
		p.InStock = *payload.InStock && p.Quantity > 0
	}
	p.UpdatedAt = time.Now()

	if err := GetDB(c).Save(&p).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update product", err.Error())
	}

	return ok(c, p)
}

// deleteProduct removes the listing and drops it from every open cart.
func deleteProduct(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	var p domain.Product
	if err := GetDB(c).Where("id = ?", id).First(&p).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}

	claims := currentClaims(c)
	if !auth.CanManageProduct(claims, &p) {
		return fail(c, http.StatusForbidden, "FORBIDDEN", "Not allowed to delete this product", nil)
	}

	ctx := c.Request().Context()
	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Where("id = ?", id).Delete(&domain.Product{}).Error; err != nil {
			return err
		}
		return cart.PruneProduct(ctx, tx, id)
	})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete product", err.Error())
	}

	return ok(c, map[string]interface{}{"id": id})
}
