package storeapi

// InitRouter registers all storefront routes on the web server.
func InitRouter() {
	registerAuthRoutes()
	registerProductRoutes()
	registerCartRoutes()
	registerOrderRoutes()
	registerReviewRoutes()
	registerUploadRoutes()
}
