package app

import (
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zestcart/zestcart/internal/domain"
	"github.com/zestcart/zestcart/pkg/common"
)

func (a *Application) checkSuper() {
	const superEmail = "admin@zestcart.com"
	const defaultPassword = "zestcart"

	hashedPassword, err := common.HashPassword(defaultPassword)
	if err != nil {
		zap.L().Error("failed to hash default super admin password", zap.Error(err))
		return
	}

	var admin domain.User
	err = a.gormDB.Where("email = ?", superEmail).First(&admin).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := a.gormDB.Create(&domain.User{
			ID:        common.UUIDint64(),
			Email:     superEmail,
			Username:  "admin",
			Password:  hashedPassword,
			Role:      domain.RoleAdmin,
			Status:    common.ENABLED,
			LastLogin: time.Now(),
		}).Error; err != nil {
			zap.L().Error("failed to create default super admin", zap.Error(err))
		} else {
			zap.L().Info("initialized default super admin account", zap.String("email", superEmail))
		}
		return
	case err != nil:
		zap.L().Error("failed to query super admin", zap.Error(err))
		return
	}

	resetPassword := strings.TrimSpace(admin.Password) == ""
	resetRole := admin.Role != domain.RoleAdmin
	resetStatus := !strings.EqualFold(admin.Status, common.ENABLED)

	if !resetPassword && !resetRole && !resetStatus {
		return
	}

	updates := map[string]interface{}{
		"updated_at": time.Now(),
	}
	if resetPassword {
		updates["password"] = hashedPassword
	}
	if resetRole {
		updates["role"] = domain.RoleAdmin
	}
	if resetStatus {
		updates["status"] = common.ENABLED
	}

	if err := a.gormDB.Model(&domain.User{}).Where("id = ?", admin.ID).Updates(updates).Error; err != nil {
		zap.L().Error("failed to repair super admin account", zap.Error(err))
		return
	}

	zap.L().Warn("repaired default super admin account",
		zap.String("email", superEmail),
		zap.Bool("passwordReset", resetPassword),
		zap.Bool("roleReset", resetRole),
		zap.Bool("statusEnabled", resetStatus))
}

// settingSchema describes one default settings row.
type settingSchema struct {
	Key         string
	Default     string
	Description string
}

var settingSchemas = []settingSchema{
	{Key: "system.site_name", Default: "ZestCart", Description: "Store display name"},
	{Key: "smtp.host", Default: "", Description: "SMTP relay host"},
	{Key: "smtp.port", Default: "25", Description: "SMTP relay port"},
	{Key: "smtp.username", Default: "", Description: "SMTP auth username"},
	{Key: "smtp.password", Default: "", Description: "SMTP auth password"},
	{Key: "smtp.from", Default: "no-reply@zestcart.com", Description: "Mail from address"},
	{Key: "notify.report_to", Default: "", Description: "Recipient of operational reports"},
	{Key: "notify.site_url", Default: "", Description: "Public site URL used in mail links"},
	{Key: "inventory.low_stock_threshold", Default: "5", Description: "Quantity at or below which a product is reported"},
}

func (a *Application) checkSettings() {
	// Iterate over all settings definitions, checking and initializing missing entries
	for sortid, schema := range settingSchemas {
		parts := strings.SplitN(schema.Key, ".", 2)
		if len(parts) != 2 {
			zap.L().Warn("invalid settings key format", zap.String("key", schema.Key))
			continue
		}

		category := parts[0]
		name := parts[1]

		var count int64
		a.gormDB.Model(&domain.SysConfig{}).
			Where("type = ? and name = ?", category, name).
			Count(&count)

		if count == 0 {
			a.gormDB.Create(&domain.SysConfig{
				ID:     common.UUIDint64(),
				Sort:   sortid,
				Type:   category,
				Name:   name,
				Value:  schema.Default,
				Remark: schema.Description,
			})
			zap.L().Info("initialized setting",
				zap.String("key", schema.Key),
				zap.String("default", schema.Default))
		}
	}
}

// checkCategories initializes the default product categories
func (a *Application) checkCategories() {
	defaultCategories := []domain.Category{
		{Name: "Electronics", Description: "Phones, laptops and accessories"},
		{Name: "Books", Description: "Print and digital books"},
		{Name: "Clothing", Description: "Apparel and footwear"},
		{Name: "Home & Garden", Description: "Furniture, decor and outdoor"},
		{Name: "Sports", Description: "Sportswear and equipment"},
	}

	for _, c := range defaultCategories {
		var count int64
		a.gormDB.Model(&domain.Category{}).Where("name = ?", c.Name).Count(&count)
		if count == 0 {
			c.ID = common.UUIDint64()
			c.CreatedAt = time.Now()
			c.UpdatedAt = time.Now()
			if err := a.gormDB.Create(&c).Error; err != nil {
				zap.L().Error("failed to create default category", zap.String("name", c.Name), zap.Error(err))
			} else {
				zap.L().Info("initialized default category", zap.String("name", c.Name))
			}
		}
	}
}
