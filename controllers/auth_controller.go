package controllers

import (
	"errors"
	"net/http"

	"dietica/services"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	Svc *services.AuthService
}

func NewAuthController(svc *services.AuthService) *AuthController {
	return &AuthController{Svc: svc}
}

type emailInput struct {
	Email string `json:"email" binding:"required,email"`
}

type verifyOTPInput struct {
	Email   string `json:"email" binding:"required,email"`
	OTP     string `json:"otp" binding:"required"`
	Purpose string `json:"purpose"` // "signup" (default) | "reset"
}

type signInInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type googleInput struct {
	IDToken string `json:"id_token" binding:"required"`
}

// POST /auth/signup
func (h *AuthController) Signup(c *gin.Context) {
	var in emailInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.Svc.RequestOTP(c.Request.Context(), in.Email, services.OTPPurposeSignup); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Signup initiated. Please check your email for the OTP."})
}

// POST /auth/verify-otp
func (h *AuthController) VerifyOTP(c *gin.Context) {
	var in verifyOTPInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if in.Purpose == "" {
		in.Purpose = services.OTPPurposeSignup
	}
	err := h.Svc.VerifyOTP(c.Request.Context(), in.Email, in.Purpose, in.OTP)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"valid": true})
	case errors.Is(err, services.ErrTooManyAttempts):
		c.JSON(http.StatusTooManyRequests, gin.H{"valid": false, "error": "Maximum OTP attempts exceeded. Please request a new OTP."})
	case errors.Is(err, services.ErrInvalidInput), errors.Is(err, services.ErrNotFound):
		c.JSON(http.StatusBadRequest, gin.H{"valid": false, "error": err.Error()})
	default:
		respondError(c, err)
	}
}

// POST /auth/finalize-signup
func (h *AuthController) FinalizeSignup(c *gin.Context) {
	var in services.FinalizeSignupReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.Svc.FinalizeSignup(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

// POST /auth/signin
func (h *AuthController) SignIn(c *gin.Context) {
	var in signInInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.Svc.SignIn(c.Request.Context(), in.Email, in.Password)
	if errors.Is(err, services.ErrUnauthorized) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// POST /auth/forgot-password
func (h *AuthController) ForgotPassword(c *gin.Context) {
	var in emailInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}
	if err := h.Svc.RequestOTP(c.Request.Context(), in.Email, services.OTPPurposeReset); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password reset initiated. Please check your email for the OTP."})
}

// POST /auth/reset-password
func (h *AuthController) ResetPassword(c *gin.Context) {
	var in services.ResetPasswordReq
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid input"})
		return
	}
	if err := h.Svc.ResetPassword(c.Request.Context(), in); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

// POST /auth/google
func (h *AuthController) Google(c *gin.Context) {
	var in googleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	res, err := h.Svc.GoogleSignIn(c.Request.Context(), in.IDToken)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
