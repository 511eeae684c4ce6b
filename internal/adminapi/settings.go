package adminapi

import (
	"net/http"
	"strings"

	"github.com/araddon/dateparse"
	"github.com/labstack/echo/v4"

	"github.com/zestcart/zestcart/internal/domain"
	"github.com/zestcart/zestcart/internal/webserver"
)

// registerSettingRoutes registers runtime settings and audit log routes
func registerSettingRoutes() {
	webserver.AdminGET("/settings", listSettings)
	webserver.AdminPUT("/settings", saveSettings)
	webserver.AdminGET("/oprlogs", listOprLogs)
}

func listSettings(c echo.Context) error {
	db := GetDB(c).Model(&domain.SysConfig{})
	if category := strings.TrimSpace(c.QueryParam("category")); category != "" {
		db = db.Where("type = ?", category)
	}

	var rows []domain.SysConfig
	if err := db.Order("type, sort, name").Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query settings", err.Error())
	}
	return ok(c, rows)
}

// saveSettings accepts a flat map of "category.name" keys and applies
// them, unknown keys create new rows.
func saveSettings(c echo.Context) error {
	var payload map[string]interface{}
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse settings", nil)
	}
	if len(payload) == 0 {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "No settings provided", nil)
	}

	if err := GetAppContext(c).SaveSettings(payload); err != nil {
		return failError(c, err)
	}

	logOperation(c, "settings_update", strings.Join(settingKeys(payload), ", "))
	return ok(c, map[string]interface{}{"updated": len(payload)})
}

func settingKeys(payload map[string]interface{}) []string {
	keys := make([]string, 0, len(payload))
	for k := range payload {
		keys = append(keys, k)
	}
	return keys
}

func listOprLogs(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.SysOprLog{})
	if action := strings.TrimSpace(c.QueryParam("action")); action != "" {
		db = db.Where("opt_action = ?", action)
	}
	if name := strings.TrimSpace(c.QueryParam("opr_name")); name != "" {
		db = db.Where("opr_name = ?", name)
	}
	if from := strings.TrimSpace(c.QueryParam("from")); from != "" {
		if t, err := dateparse.ParseAny(from); err == nil {
			db = db.Where("opt_time >= ?", t)
		}
	}
	if to := strings.TrimSpace(c.QueryParam("to")); to != "" {
		if t, err := dateparse.ParseAny(to); err == nil {
			db = db.Where("opt_time <= ?", t)
		}
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query operation logs", err.Error())
	}

	var rows []domain.SysOprLog
	if err := db.Order("opt_time DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query operation logs", err.Error())
	}

	return paged(c, rows, total, page, pageSize)
}
