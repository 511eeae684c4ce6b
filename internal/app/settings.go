package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/cast"
	"gorm.io/gorm"

	"github.com/zestcart/zestcart/internal/domain"
	"github.com/zestcart/zestcart/pkg/common"
)

// SettingsManager reads and writes the sys_config table. Values are
// stored as strings, typed access goes through cast and category
// decoding through mapstructure.
type SettingsManager struct {
	db *gorm.DB
}

func NewSettingsManager(db *gorm.DB) *SettingsManager {
	return &SettingsManager{db: db}
}

// GetString returns a settings value, empty when not present.
func (m *SettingsManager) GetString(category, name string) string {
	var value string
	err := m.db.Model(&domain.SysConfig{}).
		Where("type = ? AND name = ?", category, name).
		Pluck("value", &value).Error
	if err != nil {
		return ""
	}
	return value
}

// GetInt64 returns a settings value as int64, zero when unset.
func (m *SettingsManager) GetInt64(category, name string) int64 {
	return cast.ToInt64(m.GetString(category, name))
}

// GetBool returns a settings value as bool, false when unset.
func (m *SettingsManager) GetBool(category, name string) bool {
	return cast.ToBool(m.GetString(category, name))
}

// Set writes one settings value, creating the row when missing.
func (m *SettingsManager) Set(category, name, value string) error {
	var cfg domain.SysConfig
	err := m.db.Where("type = ? AND name = ?", category, name).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return m.db.Create(&domain.SysConfig{
			ID:    common.UUIDint64(),
			Type:  category,
			Name:  name,
			Value: value,
		}).Error
	}
	if err != nil {
		return err
	}
	return m.db.Model(&domain.SysConfig{}).Where("id = ?", cfg.ID).
		Updates(map[string]interface{}{"value": value, "updated_at": time.Now()}).Error
}

// Save writes a batch of settings. Keys use the form "category.name",
// a key without a category goes to the system category.
func (m *SettingsManager) Save(settings map[string]interface{}) error {
	for key, value := range settings {
		category, name := "system", key
		if idx := strings.Index(key, "."); idx > 0 {
			category, name = key[:idx], key[idx+1:]
		}
		if err := m.Set(category, name, cast.ToString(value)); err != nil {
			return fmt.Errorf("save setting %s: %w", key, err)
		}
	}
	return nil
}

// DecodeSettings loads every row of a category into a typed struct
// using mapstructure with weak typing, so "25" fills an int field.
func (m *SettingsManager) DecodeSettings(category string, out interface{}) error {
	var rows []domain.SysConfig
	err := m.db.Where("type = ?", category).Find(&rows).Error
	if err != nil {
		return err
	}
	values := make(map[string]interface{}, len(rows))
	for _, row := range rows {
		values[row.Name] = row.Value
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(values)
}

// ListSettings returns all settings rows, optionally one category.
func (m *SettingsManager) ListSettings(category string) ([]domain.SysConfig, error) {
	query := m.db.Model(&domain.SysConfig{})
	if category != "" {
		query = query.Where("type = ?", category)
	}
	var rows []domain.SysConfig
	err := query.Order("type ASC, sort ASC, name ASC").Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
