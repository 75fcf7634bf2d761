package handlers

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/nestly/internal/models"
	"github.com/joshua-takyi/nestly/internal/services"
)

func AdminListBookings(as *services.AdminBookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			return
		}
		pr, ok := pageRequest(c)
		if !ok {
			return
		}
		status, ok := statusQuery(c)
		if !ok {
			return
		}

		bookings, pagination, err := as.ListBookings(c.Request.Context(), caller, services.AdminBookingsQuery{
			Status:      status,
			PageRequest: pr,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, models.PaginatedResponse(bookings, pagination, "All bookings fetched successfully"))
	}
}

func AdminUpdateBookingStatus(as *services.AdminBookingService) gin.HandlerFunc {
	return func(c *gin.Context) {
		caller, ok := callerFrom(c)
		if !ok {
			return
		}
		id, ok := objectIDParam(c, "id", "Invalid Booking ID")
		if !ok {
			return
		}

		var req struct {
			Status string `json:"status"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request body")
			return
		}
		status, err := models.ParseBookingStatus(req.Status)
		if err != nil {
			names := make([]string, len(models.BookingStatuses))
			for i, s := range models.BookingStatuses {
				names[i] = string(s)
			}
			badRequest(c, fmt.Sprintf("Invalid status. Must be one of: %s", strings.Join(names, ", ")))
			return
		}

		booking, err := as.UpdateStatus(c.Request.Context(), caller, id, status)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(200, models.SuccessResponse(booking, "Booking has been "+strings.ToLower(string(status))))
	}
}
