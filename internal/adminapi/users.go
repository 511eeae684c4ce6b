package adminapi

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/zestcart/zestcart/internal/cart"
	"github.com/zestcart/zestcart/internal/domain"
	"github.com/zestcart/zestcart/internal/webserver"
	"github.com/zestcart/zestcart/pkg/common"
)

type userPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=2,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" validate:"required,oneof=admin vendor customer"`
}

type userUpdatePayload struct {
	Username *string `json:"username" validate:"omitempty,min=2,max=64"`
	Password *string `json:"password" validate:"omitempty,min=8,max=128"`
	Role     *string `json:"role" validate:"omitempty,oneof=admin vendor customer"`
	Status   *string `json:"status" validate:"omitempty,oneof=enabled disabled"`
	Avatar   *string `json:"avatar" validate:"omitempty,max=500"`
}

// registerUserRoutes registers account administration routes
func registerUserRoutes() {
	webserver.AdminGET("/users", listUsers)
	webserver.AdminGET("/users/:id", getUser)
	webserver.AdminPOST("/users", createUser)
	webserver.AdminPUT("/users/:id", updateUser)
	webserver.AdminDELETE("/users/:id", deleteUser)
}

func listUsers(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.User{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		if strings.EqualFold(db.Name(), "postgres") {
			db = db.Where("email ILIKE ? OR username ILIKE ?", "%"+q+"%", "%"+q+"%")
		} else {
			db = db.Where("LOWER(email) LIKE ? OR LOWER(username) LIKE ?",
				"%"+strings.ToLower(q)+"%", "%"+strings.ToLower(q)+"%")
		}
	}
	if role := strings.TrimSpace(c.QueryParam("role")); role != "" {
		db = db.Where("role = ?", role)
	}
	if status := strings.TrimSpace(c.QueryParam("status")); status != "" {
		db = db.Where("status = ?", status)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query users", err.Error())
	}

	var users []domain.User
	if err := db.Order("created_at DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&users).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query users", err.Error())
	}

	return paged(c, users, total, page, pageSize)
}

func getUser(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID", nil)
	}

	var user domain.User
	if err := GetDB(c).Where("id = ?", id).First(&user).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query user", err.Error())
	}

	return ok(c, user)
}

func createUser(c echo.Context) error {
	var payload userPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse user", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	email := common.NormalizeEmail(payload.Email)
	var exists int64
	GetDB(c).Model(&domain.User{}).Where("email = ?", email).Count(&exists)
	if exists > 0 {
		return fail(c, http.StatusConflict, "EMAIL_EXISTS", "Email is already registered", nil)
	}

	hashed, err := common.HashPassword(payload.Password)
	if err != nil {
		return failError(c, err)
	}

	user := domain.User{
		ID:        common.UUIDint64(),
		Email:     email,
		Username:  strings.TrimSpace(payload.Username),
		Password:  hashed,
		Role:      payload.Role,
		Status:    common.ENABLED,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := GetDB(c).Create(&user).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create user", err.Error())
	}

	logOperation(c, "user_create", fmt.Sprintf("created %s account %s", user.Role, user.Email))
	return webserver.Created(c, user)
}

func updateUser(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID", nil)
	}

	var user domain.User
	if err := GetDB(c).Where("id = ?", id).First(&user).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query user", err.Error())
	}

	var payload userUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse user", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	claims := currentClaims(c)
	if payload.Role != nil && user.ID == claims.UserID && *payload.Role != domain.RoleAdmin {
		// an admin cannot demote the account it is logged in with
		return fail(c, http.StatusConflict, "SELF_DEMOTION", "Cannot change the role of your own account", nil)
	}
	if payload.Status != nil && user.ID == claims.UserID && *payload.Status == common.DISABLED {
		return fail(c, http.StatusConflict, "SELF_DISABLE", "Cannot disable your own account", nil)
	}

	if payload.Username != nil {
		user.Username = strings.TrimSpace(*payload.Username)
	}
	if payload.Password != nil {
		hashed, herr := common.HashPassword(*payload.Password)
		if herr != nil {
			return failError(c, herr)
		}
		user.Password = hashed
	}
	if payload.Role != nil {
		user.Role = *payload.Role
	}
	if payload.Status != nil {
		user.Status = *payload.Status
	}
	if payload.Avatar != nil {
		user.Avatar = strings.TrimSpace(*payload.Avatar)
	}
	user.UpdatedAt = time.Now()

	if err := GetDB(c).Save(&user).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update user", err.Error())
	}

	logOperation(c, "user_update", fmt.Sprintf("updated account %s", user.Email))
	return ok(c, user)
}

// deleteUser removes an account and its cart, orders and reviews stay
// as history.
func deleteUser(c echo.Context) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid user ID", nil)
	}

	claims := currentClaims(c)
	if claims != nil && claims.UserID == id {
		return fail(c, http.StatusConflict, "SELF_DELETE", "Cannot delete your own account", nil)
	}

	var user domain.User
	if err := GetDB(c).Where("id = ?", id).First(&user).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusNotFound, "USER_NOT_FOUND", "User not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query user", err.Error())
	}

	ctx := c.Request().Context()
	err = GetDB(c).Transaction(func(tx *gorm.DB) error {
		if err := cart.DeleteCart(ctx, tx, id); err != nil {
			return err
		}
		return tx.WithContext(ctx).Where("id = ?", id).Delete(&domain.User{}).Error
	})
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete user", err.Error())
	}

	logOperation(c, "user_delete", fmt.Sprintf("deleted account %s", user.Email))
	return ok(c, map[string]interface{}{"id": id})
}
