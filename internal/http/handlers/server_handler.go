package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"serverbook/internal/admin"
	"serverbook/internal/booking"
)

// ListServers returns every server with its assigned user ids.
func ListServers(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		servers, err := svc.ListServers(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"servers": servers})
	}
}

// CreateServer stores a server and generates its first month of slots.
func CreateServer(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := currentUser(c)
		if !ok {
			return
		}
		var in struct {
			Name      string `json:"name" binding:"required"`
			IPAddress string `json:"ip_address" binding:"required,ip"`
			Location  string `json:"location"`
			HDDSize   int    `json:"hdd_size" binding:"gte=0"`
			SSDSize   int    `json:"ssd_size" binding:"gte=0"`
			RAMSize   int    `json:"ram_size" binding:"gte=0"`
			VRAMSize  int    `json:"vram_size" binding:"gte=0"`
			CPUModel  string `json:"cpu_model"`
			GPUModel  string `json:"gpu_model"`
		}
		if err := c.ShouldBindJSON(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		server, created, err := svc.CreateServer(c.Request.Context(), cl.UserID, admin.NewServer{
			Name:      in.Name,
			IPAddress: in.IPAddress,
			Location:  in.Location,
			HDDSize:   in.HDDSize,
			SSDSize:   in.SSDSize,
			RAMSize:   in.RAMSize,
			VRAMSize:  in.VRAMSize,
			CPUModel:  in.CPUModel,
			GPUModel:  in.GPUModel,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"server": server, "slots_created": created})
	}
}

// DeleteServer removes a server with its slots and assignments.
func DeleteServer(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := currentUser(c)
		if !ok {
			return
		}
		serverID, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := svc.DeleteServer(c.Request.Context(), cl.UserID, serverID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "server deleted"})
	}
}

// AssignServer grants a user access to a server.
func AssignServer(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := currentUser(c)
		if !ok {
			return
		}
		serverID, ok := idParam(c, "id")
		if !ok {
			return
		}
		userID, ok := idParam(c, "user_id")
		if !ok {
			return
		}
		if err := svc.Assign(c.Request.Context(), cl.UserID, userID, serverID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "access granted"})
	}
}

// UnassignServer revokes a user's access to a server.
func UnassignServer(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := currentUser(c)
		if !ok {
			return
		}
		serverID, ok := idParam(c, "id")
		if !ok {
			return
		}
		userID, ok := idParam(c, "user_id")
		if !ok {
			return
		}
		if err := svc.Unassign(c.Request.Context(), cl.UserID, userID, serverID); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "access revoked"})
	}
}

// GenerateServerSlots extends a server's slots. The body may carry
// {"days": n}; it defaults to the standard horizon.
func GenerateServerSlots(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := currentUser(c)
		if !ok {
			return
		}
		serverID, ok := idParam(c, "id")
		if !ok {
			return
		}
		var in struct {
			Days int `json:"days" binding:"gte=0,lte=366"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&in); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
		}
		if in.Days == 0 {
			in.Days = booking.DefaultHorizonDays
		}
		created, err := svc.GenerateSlots(c.Request.Context(), cl.UserID, serverID, in.Days)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"slots_created": created})
	}
}

// OverrideCancelSlot frees any reservation regardless of its date.
func OverrideCancelSlot(svc *booking.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := currentUser(c)
		if !ok {
			return
		}
		slotID, ok := idParam(c, "id")
		if !ok {
			return
		}
		result, err := svc.OverrideCancel(c.Request.Context(), cl.UserID, slotID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": result})
	}
}

// ResetQuotas zeroes the legacy monthly counters.
func ResetQuotas(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		cl, ok := currentUser(c)
		if !ok {
			return
		}
		n, err := svc.ResetMonthlyCounters(c.Request.Context(), cl.UserID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"reset": n})
	}
}

// AdminStats returns the admin dashboard counts.
func AdminStats(svc *admin.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.Stats(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}
