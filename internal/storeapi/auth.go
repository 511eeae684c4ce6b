package storeapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/random"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zestcart/zestcart/internal/domain"
	"github.com/zestcart/zestcart/internal/notify"
	"github.com/zestcart/zestcart/internal/webserver"
	"github.com/zestcart/zestcart/pkg/common"
	"github.com/zestcart/zestcart/pkg/metrics"
)

const resetTokenTTL = 30 * time.Minute

type registerPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=2,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=customer vendor"`
}

type loginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type forgotPasswordPayload struct {
	Email string `json:"email" validate:"required,email"`
}

type resetPasswordPayload struct {
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

type profilePayload struct {
	Username *string `json:"username" validate:"omitempty,min=2,max=64"`
	Avatar   *string `json:"avatar" validate:"omitempty,max=500"`
	Password *string `json:"password" validate:"omitempty,min=8,max=128"`
}

// registerAuthRoutes registers account and session endpoints
func registerAuthRoutes() {
	webserver.PubPOST("/auth/register", registerAccount)
	webserver.PubPOST("/auth/login", login)
	webserver.PubPOST("/auth/password/forgot", forgotPassword)
	webserver.PubPOST("/auth/password/reset", resetPassword)
	webserver.ApiPOST("/auth/logout", logout)
	webserver.ApiGET("/profile", getProfile)
	webserver.ApiPUT("/profile", updateProfile)
}

func registerAccount(c echo.Context) error {
	var payload registerPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse registration", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	email := common.NormalizeEmail(payload.Email)
	role := payload.Role
	if role == "" {
		role = domain.RoleCustomer
	}

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
		Role:      role,
		Status:    common.ENABLED,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := GetDB(c).Create(&user).Error; err != nil {
		return failError(c, err)
	}

	metrics.IncrCounter(metrics.UsersSignup, 1)
	GetAppContext(c).Bus().Publish(notify.TopicUserRegistered, notify.UserRegisteredEvent{
		UserID:   user.ID,
		Email:    user.Email,
		Username: user.Username,
	})

	return webserver.Created(c, user)
}

func login(c echo.Context) error {
	var payload loginPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse login", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var user domain.User
	if err := GetDB(c).Where("email = ?", common.NormalizeEmail(payload.Email)).First(&user).Error; errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	} else if err != nil {
		return failError(c, err)
	}
	if !common.CheckPassword(user.Password, payload.Password) {
		return fail(c, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid email or password", nil)
	}
	if user.Status == common.DISABLED {
		return fail(c, http.StatusForbidden, "ACCOUNT_DISABLED", "Account is disabled", nil)
	}

	token, claims, err := GetAppContext(c).Tokens().Issue(&user)
	if err != nil {
		return failError(c, err)
	}

	GetDB(c).Model(&domain.User{}).Where("id = ?", user.ID).
		UpdateColumn("last_login", time.Now())

	return ok(c, map[string]interface{}{
		"token":      token,
		"expires_at": claims.ExpiresAt.Time,
		"user":       user,
	})
}

func logout(c echo.Context) error {
	claims := currentClaims(c)
	if claims == nil {
		return fail(c, http.StatusUnauthorized, "UNAUTHENTICATED", "Authentication required", nil)
	}
	if err := GetAppContext(c).Tokens().Revoke(c.Request().Context(), claims); err != nil {
		return failError(c, err)
	}
	return ok(c, map[string]interface{}{"message": "logged out"})
}

// forgotPassword always responds with the same message so callers
// cannot probe which emails are registered.
func forgotPassword(c echo.Context) error {
	var payload forgotPasswordPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var user domain.User
	err := GetDB(c).Where("email = ?", common.NormalizeEmail(payload.Email)).First(&user).Error
	if err == nil {
		token := random.String(32)
		expire := time.Now().Add(resetTokenTTL)
		uerr := GetDB(c).Model(&domain.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"reset_token":     token,
			"reset_expire_at": expire,
			"updated_at":      time.Now(),
		}).Error
		if uerr != nil {
			zap.S().Errorf("save reset token error %s", uerr.Error())
		} else {
			GetAppContext(c).Bus().Publish(notify.TopicPasswordReset, notify.PasswordResetEvent{
				UserID:   user.ID,
				Email:    user.Email,
				Username: user.Username,
				Token:    token,
			})
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		zap.S().Errorf("lookup reset account error %s", err.Error())
	}

	return ok(c, map[string]interface{}{
		"message": "If the email is registered, a reset link has been sent",
	})
}

func resetPassword(c echo.Context) error {
	var payload resetPasswordPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse request", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	var user domain.User
	err := GetDB(c).Where("reset_token = ?", payload.Token).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fail(c, http.StatusBadRequest, "INVALID_TOKEN", "Reset token is invalid or expired", nil)
	}
	if err != nil {
		return failError(c, err)
	}
	if user.ResetExpireAt.Before(time.Now()) {
		return fail(c, http.StatusBadRequest, "INVALID_TOKEN", "Reset token is invalid or expired", nil)
	}

	hashed, err := common.HashPassword(payload.Password)
	if err != nil {
		return failError(c, err)
	}

	// Reset tokens are single use.
	err = GetDB(c).Model(&domain.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
		"password":        hashed,
		"reset_token":     "",
		"reset_expire_at": time.Time{},
		"updated_at":      time.Now(),
	}).Error
	if err != nil {
		return failError(c, err)
	}

	return ok(c, map[string]interface{}{"message": "password updated"})
}

func getProfile(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return failError(c, err)
	}
	return ok(c, user)
}

func updateProfile(c echo.Context) error {
	user, err := currentUser(c)
	if err != nil {
		return failError(c, err)
	}

	var payload profilePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse profile", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	if payload.Username != nil {
		user.Username = strings.TrimSpace(*payload.Username)
	}
	if payload.Avatar != nil {
		user.Avatar = strings.TrimSpace(*payload.Avatar)
	}
	if payload.Password != nil {
		hashed, herr := common.HashPassword(*payload.Password)
		if herr != nil {
			return failError(c, herr)
		}
		user.Password = hashed
	}
	user.UpdatedAt = time.Now()

	if err := GetDB(c).Save(user).Error; err != nil {
		return failError(c, err)
	}
	return ok(c, user)
}
