package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"payhere_donations/internal/services"
)

// AdminHandler serves the authenticated donation listing
type AdminHandler struct {
	donations *services.DonationService
}

func NewAdminHandler(donations *services.DonationService) *AdminHandler {
	return &AdminHandler{donations: donations}
}

// ListDonations returns donations with filtering, sorting and pagination
func (h *AdminHandler) ListDonations(c echo.Context) error {
	sortBy := c.QueryParam("sort_by")
	if sortBy == "" {
		sortBy = "created_at"
	}
	sortOrder := c.QueryParam("sort_order")
	if sortOrder == "" {
		sortOrder = "desc"
	}

	page := 1
	if pageStr := c.QueryParam("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}

	result, err := h.donations.ListDonations(c.Request().Context(), services.DonationFilter{
		Status:    c.QueryParam("status"),
		Currency:  c.QueryParam("currency"),
		SortBy:    sortBy,
		SortOrder: sortOrder,
		Page:      page,
	})
	if err != nil {
		return toAppError(err)
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":       result,
		"user_email": getStringFromContext(c, "userEmail"),
	})
}

// Helper to safely get string from context
func getStringFromContext(c echo.Context, key string) string {
	val := c.Get(key)
	if val == nil {
		return ""
	}
	strVal, ok := val.(string)
	if !ok {
		return ""
	}
	return strVal
}
