// Package api holds the gin handlers for the user dashboard and the admin
// back office.
package api

import (
	"errors"   // Error matching
	"net/http" // HTTP status codes
	"strconv"  // Query and path parsing

	"ajosave/internal/rpc"     // Procedure errors
	"ajosave/internal/service" // Business errors
	"ajosave/internal/session" // Request session

	"github.com/gin-gonic/gin"   // Gin web framework
	"github.com/sirupsen/logrus" // Logging
)

// Pagination bounds
const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// statusOf maps a service error to its HTTP status. Unknown errors are 500.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, rpc.ErrUnknownProcedure):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrInvalidInput),
		errors.Is(err, service.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrInvalidCredential):
		return http.StatusUnauthorized
	case errors.Is(err, service.ErrForbidden),
		errors.Is(err, service.ErrSuspended),
		errors.Is(err, service.ErrKYCRequired):
		return http.StatusForbidden
	case errors.Is(err, service.ErrConflict),
		errors.Is(err, service.ErrEmailTaken),
		errors.Is(err, service.ErrPlanNotMatured),
		errors.Is(err, service.ErrPlanClosed),
		errors.Is(err, service.ErrPlanEmpty),
		errors.Is(err, service.ErrLoanOpen),
		errors.Is(err, service.ErrLoanNotActive),
		errors.Is(err, service.ErrKYCApproved):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// fail writes err as {"error": ...}. Internal errors are logged and hidden.
func fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"path":       c.FullPath(),
			"request_id": c.GetString("requestID"),
		}).WithError(err).Error("Request failed")
		c.JSON(status, gin.H{"error": "Internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// badRequest replies 400 with msg
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

// caller returns the authenticated user. Routes behind the auth middleware
// always have one.
func caller(c *gin.Context) (session.Session, bool) {
	s, ok := session.From(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
	}
	return s, ok
}

// pageParams reads page and page_size, falling back to defaults on bad input
func pageParams(c *gin.Context) (int, int) {
	page := 1                   // Default page
	pageSize := defaultPageSize // Default page size
	if v, err := strconv.Atoi(c.Query("page")); err == nil && v > 0 {
		page = v
	}
	if v, err := strconv.Atoi(c.Query("page_size")); err == nil && v > 0 && v <= maxPageSize {
		pageSize = v
	}
	return page, pageSize
}

// idParam parses a numeric path parameter
func idParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		badRequest(c, "Invalid "+name)
		return 0, false
	}
	return uint(v), true
}

// optionalUint parses an optional numeric query parameter
func optionalUint(c *gin.Context, name string) (*uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		badRequest(c, "Invalid "+name)
		return nil, false
	}
	id := uint(v)
	return &id, true
}
