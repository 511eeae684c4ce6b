package storeapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/zestcart/zestcart/internal/webserver"
)

type reviewPayload struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"required,min=4,max=2000"`
}

type reviewUpdatePayload struct {
	Rating  *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment *string `json:"comment" validate:"omitempty,min=4,max=2000"`
}

// registerReviewRoutes registers product review endpoints
func registerReviewRoutes() {
	webserver.PubGET("/products/:id/reviews", listProductReviews)
	webserver.ApiPOST("/products/:id/reviews", createReview)
	webserver.ApiPUT("/reviews/:id", updateReview)
	webserver.ApiDELETE("/reviews/:id", deleteReview)
}

func listProductReviews(c echo.Context) error {
	productID, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	page, pageSize := parsePagination(c)
	rows, total, err := GetAppContext(c).ReviewService().ListByProduct(
		c.Request().Context(), productID, page, pageSize)
	if err != nil {
		return failError(c, err)
	}
	return paged(c, rows, total, page, pageSize)
}

func createReview(c echo.Context) error {
	productID, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid product ID", nil)
	}

	var payload reviewPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse review", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	user, err := currentUser(c)
	if err != nil {
		return failError(c, err)
	}

	review, err := GetAppContext(c).ReviewService().Create(
		c.Request().Context(), user, productID, payload.Rating, payload.Comment)
	if err != nil {
		return failError(c, err)
	}
	return webserver.Created(c, review)
}

func updateReview(c echo.Context) error {
	reviewID, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid review ID", nil)
	}

	var payload reviewUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse review", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	review, err := GetAppContext(c).ReviewService().Update(
		c.Request().Context(), currentUserID(c), reviewID, payload.Rating, payload.Comment)
	if err != nil {
		return failError(c, err)
	}
	return ok(c, review)
}

func deleteReview(c echo.Context) error {
	reviewID, err := parseIDParam(c, "id")
	if err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid review ID", nil)
	}

	user, err := currentUser(c)
	if err != nil {
		return failError(c, err)
	}

	if err := GetAppContext(c).ReviewService().Delete(c.Request().Context(), user, reviewID); err != nil {
		return failError(c, err)
	}
	return ok(c, map[string]interface{}{"id": reviewID})
}
