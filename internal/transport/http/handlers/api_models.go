package handlers

import (
	"time"

	"github.com/gin-gonic/gin"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// CaptchaResponse returns a challenge key and its rendered image.
type CaptchaResponse struct {
	Key   string `json:"key"`
	Image string `json:"image"`
}

// SignUpRequest defines the account sign-up payload.
type SignUpRequest struct {
	ID              string `json:"id" binding:"required"`
	Name            string `json:"name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
	CaptchaKey      string `json:"captcha_key" binding:"required"`
	CaptchaValue    string `json:"captcha_value" binding:"required"`
}

// AccountSummary describes a minimal view of an account returned by the API.
type AccountSummary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Activated bool      `json:"activated"`
	CreatedAt time.Time `json:"created_at"`
}

// SignUpResponse contains sign-up results and next steps.
type SignUpResponse struct {
	Account AccountSummary `json:"account"`
	Message string         `json:"message"`
}

// ActivateRequest holds the activation payload.
type ActivateRequest struct {
	Code string `json:"code" binding:"required"`
}

// LoginRequest defines the payload for the login endpoint.
type LoginRequest struct {
	ID       string `json:"id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// HealthResponse reports liveness information.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadyResponse reports readiness of downstream dependencies.
type ReadyResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}
