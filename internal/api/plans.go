package api

import (
	"net/http" // HTTP status codes

	"ajosave/internal/ledger"  // Amount coercion
	"ajosave/internal/service" // Plan services

	"github.com/gin-gonic/gin" // Gin web framework
)

// CreatePlanRequest is the body of POST /me/plans
type CreatePlanRequest struct {
	PlanTypeCode string `json:"plan_type_code" binding:"required"` // Catalog code
	Contribution any    `json:"contribution" binding:"required"`   // Per-period contribution
}

// ListPlanTypesHandler returns the active plan catalog
func ListPlanTypesHandler(plans *service.Plans) gin.HandlerFunc {
	return func(c *gin.Context) {
		types, err := plans.Types(c.Request.Context())
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"plan_types": types})
	}
}

// CreatePlanHandler subscribes the user to a plan type
func CreatePlanHandler(plans *service.Plans) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		var req CreatePlanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		inst, err := plans.Create(c.Request.Context(), s.UserID, req.PlanTypeCode, ledger.ParseAmount(req.Contribution))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, inst)
	}
}

// ListMyPlansHandler returns the user's plans with balance and maturity
func ListMyPlansHandler(wallet *service.Wallet) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		snap, _, err := wallet.Snapshot(c.Request.Context(), s.UserID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"plans": snap.Plans})
	}
}
