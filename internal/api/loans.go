package api

import (
	"net/http" // HTTP status codes

	"ajosave/internal/ledger"  // Amount coercion
	"ajosave/internal/service" // Loan service

	"github.com/gin-gonic/gin" // Gin web framework
)

// LoanRequest is the body of POST /me/loans
type LoanRequest struct {
	Amount         any `json:"amount" binding:"required"`          // Principal
	DurationMonths int `json:"duration_months" binding:"required"` // Term
}

// ApplyLoanHandler files a loan application
func ApplyLoanHandler(loans *service.Loans) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		var req LoanRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request")
			return
		}
		loan, err := loans.Apply(c.Request.Context(), s.UserID, ledger.ParseAmount(req.Amount), req.DurationMonths)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusCreated, loan)
	}
}

// ListMyLoansHandler returns the user's loans, newest first
func ListMyLoansHandler(loans *service.Loans) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		list, err := loans.Mine(c.Request.Context(), s.UserID)
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"loans": nonNil(list)})
	}
}

// RepayLoanHandler pays part or all of a disbursed loan from the wallet
func RepayLoanHandler(loans *service.Loans) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, ok := caller(c)
		if !ok {
			return
		}
		loanID, ok := idParam(c, "id")
		if !ok {
			return
		}
		req, ok := bindAmount(c)
		if !ok {
			return
		}
		loan, err := loans.Repay(c.Request.Context(), s.UserID, loanID, ledger.ParseAmount(req.Amount))
		if err != nil {
			fail(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"loan":        loan,               // Updated loan
			"outstanding": loan.Outstanding(), // Still owed
		})
	}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
