package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"serverbook/internal/admin"
	"serverbook/internal/audit"
	"serverbook/internal/auth"
	"serverbook/internal/booking"
	"serverbook/internal/http/handlers"
	"serverbook/internal/logging"
)

// Deps are the collaborators the router hands to its handlers.
type Deps struct {
	DB        *gorm.DB
	JWTSecret string
	Audit     *audit.Logger
	Booking   *booking.Service
	Admin     *admin.Service
	Now       func() time.Time
}

func NewRouter(d Deps) *gin.Engine {
	if d.Now == nil {
		d.Now = time.Now
	}

	r := gin.New()
	r.Use(logging.GinLogger(), gin.Recovery(), requestInfo())

	r.GET("/healthz", healthz(d.DB))
	// favicon fix
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	// Public routes
	r.POST("/api/v1/auth/login", handlers.LoginHandler(d.DB, d.JWTSecret, d.Now))
	r.POST("/api/v1/auth/logout", handlers.LogoutHandler())

	authMW := auth.JWT(d.DB, d.JWTSecret)

	api := r.Group("/api/v1", authMW)
	{
		// Current user
		api.GET("/me", handlers.MeHandler(d.DB))
		api.POST("/me/password", handlers.ChangePasswordHandler(d.DB, d.Audit))

		// Booking
		api.GET("/dashboard", handlers.Dashboard(d.Booking))
		api.GET("/servers", handlers.ListMyServers(d.Booking))
		api.GET("/servers/:id/calendar", handlers.ServerCalendar(d.Booking))
		api.POST("/slots/:id/book", handlers.BookSlot(d.Booking))
		api.POST("/slots/:id/cancel", handlers.CancelSlot(d.Booking))
	}

	adm := api.Group("/admin", auth.RequireAdmin())
	{
		// Users
		adm.GET("/users", handlers.ListUsers(d.Admin))
		adm.POST("/users", handlers.CreateUser(d.Admin))
		adm.PUT("/users/:id", handlers.UpdateUser(d.Admin))
		adm.DELETE("/users/:id", handlers.DeleteUser(d.Admin))

		// Servers
		adm.GET("/servers", handlers.ListServers(d.Admin))
		adm.POST("/servers", handlers.CreateServer(d.Admin))
		adm.DELETE("/servers/:id", handlers.DeleteServer(d.Admin))
		adm.POST("/servers/:id/users/:user_id", handlers.AssignServer(d.Admin))
		adm.DELETE("/servers/:id/users/:user_id", handlers.UnassignServer(d.Admin))
		adm.POST("/servers/:id/slots", handlers.GenerateServerSlots(d.Admin))

		// Slots and quotas
		adm.POST("/slots/:id/override-cancel", handlers.OverrideCancelSlot(d.Booking))
		adm.POST("/quotas/reset", handlers.ResetQuotas(d.Admin))

		// Audit Trail
		adm.GET("/audit", handlers.ListAudit(d.DB))
		adm.GET("/stats", handlers.AdminStats(d.Admin))
	}

	return r
}

// requestInfo makes the client address and user agent available to the
// audit logger through the request context.
func requestInfo() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := audit.WithRequestInfo(c.Request.Context(), c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func healthz(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
