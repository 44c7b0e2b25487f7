package api

import (
	"net/http" // HTTP status codes

	"ajosave/internal/domain"  // Domain models
	"ajosave/internal/service" // Account service

	"github.com/gin-gonic/gin" // Gin web framework
)

// RegisterRequest is the body of POST /auth/register
type RegisterRequest struct {
	Email    string `json:"email" binding:"required"`    // Login email
	FullName string `json:"full_name"`                   // Display name
	Phone    string `json:"phone"`                       // Contact number
	Password string `json:"password" binding:"required"` // Plain password, hashed before storage
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`    // Login email
	Password string `json:"password" binding:"required"` // Plain password
}

// AuthResponse is returned on a successful login
type AuthResponse struct {
	Token string      `json:"token"` // JWT token
	User  domain.User `json:"user"`  // The logged in user
}

// RegisterHandler creates an account
func RegisterHandler(accounts *service.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req RegisterRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		user, err := accounts.Register(c.Request.Context(), service.Registration{
			Email:    req.Email,
			FullName: req.FullName,
			Phone:    req.Phone,
			Password: req.Password,
		})
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, user)
	}
}

// LoginHandler authenticates a user and returns a JWT token
func LoginHandler(accounts *service.Accounts) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		token, user, err := accounts.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, AuthResponse{Token: token, User: user})
	}
}
