package adminapi

// InitRouter registers all back office routes on the web server.
func InitRouter() {
	registerUserRoutes()
	registerCategoryRoutes()
	registerAdminOrderRoutes()
	registerImportRoutes()
	registerDashboardRoutes()
	registerSettingRoutes()
}
