package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"dietica/services"

	"github.com/gin-gonic/gin"
)

func userIDFromCtx(c *gin.Context) (uint, bool) {
	v, ok := c.Get("userID")
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok && id > 0
}

// requireUser writes 401 and returns false when the request is unauthenticated.
func requireUser(c *gin.Context) (uint, bool) {
	uid, ok := userIDFromCtx(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
	}
	return uid, ok
}

func statusFor(err error) int {
	var pre *services.PreconditionError
	switch {
	case errors.As(err, &pre), errors.Is(err, services.ErrPreconditionMissing):
		return http.StatusPreconditionFailed
	case errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, services.ErrGenerationFormat):
		return http.StatusBadGateway
	case errors.Is(err, services.ErrTransport):
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func respondError(c *gin.Context, err error) {
	body := gin.H{"error": err.Error()}
	var pre *services.PreconditionError
	if errors.As(err, &pre) {
		body["fact"] = pre.Fact
	}
	c.JSON(statusFor(err), body)
}

// locationFromQuery reads the caller's IANA zone from ?tz=.
func locationFromQuery(c *gin.Context) (*time.Location, bool) {
	tz := c.Query("tz")
	if tz == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "tz query parameter is required"})
		return nil, false
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid tz: " + err.Error()})
		return nil, false
	}
	return loc, true
}
