package api

import (
	"net/http" // HTTP status codes

	"ajosave/internal/service" // Account service

	"github.com/gin-gonic/gin" // Gin web framework
)

// ProfileRequest is the body of PATCH /me. Empty fields are left unchanged.
type ProfileRequest struct {
	FullName string `json:"full_name"` // Display name
	Phone    string `json:"phone"`     // Contact number
}

// KYCRequest is the body of POST /me/kyc
type KYCRequest struct {
	IDType   string `json:"id_type" binding:"required"`   // e.g. nin, bvn, passport
	IDNumber string `json:"id_number" binding:"required"` // Document number
}

// GetProfileHandler returns the caller's profile
func GetProfileHandler(accounts *service.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		user, err := accounts.Me(c.Request.Context(), s.UserID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// UpdateProfileHandler edits the caller's name and phone
func UpdateProfileHandler(accounts *service.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		var req ProfileRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		user, err := accounts.UpdateProfile(c.Request.Context(), s.UserID, req.FullName, req.Phone)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// SubmitKYCHandler submits identity details for review
func SubmitKYCHandler(accounts *service.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		var req KYCRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		user, err := accounts.SubmitKYC(c.Request.Context(), s.UserID, req.IDType, req.IDNumber)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusAccepted, user)
	}
}

// ListNotificationsHandler returns the caller's latest notifications
func ListNotificationsHandler(accounts *service.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		notes, err := accounts.Notifications(c.Request.Context(), s.UserID)
		if err != nil {
			fail(c, err)
			return
		}
		unread := 0
		for _, n := range notes {
			if !n.Read {
				unread++
			}
		}
		c.JSON(http.StatusOK, gin.H{"notifications": nonNil(notes), "unread": unread})
	}
}

// MarkNotificationReadHandler marks one notification as read
func MarkNotificationReadHandler(accounts *service.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		id, ok := idParam(c, "id")
		if !ok {
			return
		}
		if err := accounts.MarkRead(c.Request.Context(), s.UserID, id); err != nil {
			fail(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
