package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"serverbook/internal/admin"
	"serverbook/internal/auth"
	"serverbook/internal/booking"
	"serverbook/internal/logging"
)

// respondError maps service errors onto HTTP answers. Unexpected errors are
// logged and answered with a generic 500.
func respondError(c *gin.Context, err error) {
	var rej *booking.Rejection
	var verr *admin.ValidationError
	switch {
	case errors.As(err, &rej):
		c.JSON(http.StatusConflict, gin.H{"error": rej.Message, "reason": rej.Reason})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": verr.Msg})
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, admin.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, admin.ErrDuplicateUser),
		errors.Is(err, auth.ErrWeakPassword),
		errors.Is(err, auth.ErrPasswordMismatch):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, admin.ErrAdminProtected):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	default:
		log.WithError(err).WithFields(log.Fields{
			"path":       c.FullPath(),
			"request_id": c.GetString(logging.RequestIDKey),
		}).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// idParam parses the uint64 path parameter name, answering 400 on failure.
func idParam(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// currentUser returns the caller's claims, answering 401 when absent.
func currentUser(c *gin.Context) (*auth.Claims, bool) {
	cl, ok := auth.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil, false
	}
	return cl, true
}
