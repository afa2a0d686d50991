package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"serverbook/internal/booking"
)

// Dashboard returns the caller's assigned servers with quota stats and the
// upcoming reservations.
func Dashboard(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := currentUser(c)
		if !ok {
			return
		}
		dash, err := svc.Dashboard(c.Request.Context(), cl.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dash)
	}
}

// ListMyServers returns the servers the caller may book.
func ListMyServers(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := currentUser(c)
		if !ok {
			return
		}
		servers, err := svc.AssignedServers(c.Request.Context(), cl.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"servers": servers})
	}
}

// ServerCalendar returns the month grid of a server. year and month default
// to the current month.
func ServerCalendar(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := currentUser(c)
		if !ok {
			return
		}
		serverID, ok := idParam(c, "id")
		if !ok {
			return
		}

		year, month := 0, 0
		if v := c.Query("year"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid year"})
				return
			}
			year = parsed
		}
		if v := c.Query("month"); v != "" {
			parsed, err := strconv.Atoi(v)
			if err != nil || parsed < 1 || parsed > 12 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid month"})
				return
			}
			month = parsed
		}

		cal, err := svc.Calendar(c.Request.Context(), cl.UserID, serverID, year, time.Month(month))
		if err != nil {
			respondError(c, err)
			return
		}
		quota, err := svc.Quota(c.Request.Context(), cl.UserID, serverID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"calendar": cal, "quota": quota})
	}
}

// BookSlot reserves a slot for the caller.
func BookSlot(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := currentUser(c)
		if !ok {
			return
		}
		slotID, ok := idParam(c, "id")
		if !ok {
			return
		}
		slot, err := svc.Book(c.Request.Context(), cl.UserID, slotID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Successfully booked " + slot.StartTime.Format("2006-01-02"),
			"slot":    slot,
		})
	}
}

// CancelSlot releases one of the caller's future reservations.
func CancelSlot(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := currentUser(c)
		if !ok {
			return
		}
		slotID, ok := idParam(c, "id")
		if !ok {
			return
		}
		slot, err := svc.Cancel(c.Request.Context(), cl.UserID, slotID, svc.Now())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"message": "Cancelled reservation for " + slot.StartTime.Format("2006-01-02"),
			"slot":    slot,
		})
	}
}
