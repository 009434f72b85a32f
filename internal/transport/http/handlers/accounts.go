package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/juvenxu/account-service/internal/core/domain"
	applog "github.com/juvenxu/account-service/internal/infra/logger"
	"github.com/juvenxu/account-service/internal/infra/telemetry"
	"github.com/juvenxu/account-service/internal/repository"
	"github.com/juvenxu/account-service/internal/transport/http/middleware"
	"github.com/juvenxu/account-service/internal/usecase"
)

// AccountHandler exposes endpoints for the account lifecycle: captcha
// challenges, sign-up, activation, and login.
type AccountHandler struct {
	accounts      *usecase.AccountService
	activationURL string
	metrics       *telemetry.Provider
}

func NewAccountHandler(accounts *usecase.AccountService, activationURL string, metrics *telemetry.Provider) *AccountHandler {
	return &AccountHandler{
		accounts:      accounts,
		activationURL: activationURL,
		metrics:       metrics,
	}
}

// RegisterRoutes binds account endpoints.
func (h *AccountHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/captcha", h.GenerateCaptcha)
	r.POST("/signup", h.SignUp)
	r.GET("/activate", h.ActivateByLink)
	r.POST("/activate", h.Activate)
	r.POST("/login", h.Login)
	r.GET("/:id", h.Read)
	r.DELETE("/:id", h.Delete)
}

// GenerateCaptcha issues a challenge key with its rendered image.
func (h *AccountHandler) GenerateCaptcha(c *gin.Context) {
	key, image, err := h.accounts.GenerateCaptcha(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "unable to generate captcha"))
		return
	}

	c.JSON(http.StatusOK, CaptchaResponse{
		Key:   key,
		Image: base64.StdEncoding.EncodeToString(image),
	})
}

// SignUp creates a pending account and emails the activation link.
func (h *AccountHandler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid sign up payload"))
		return
	}

	req.ID = strings.TrimSpace(req.ID)
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)

	if req.ID == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "account id is required"))
		return
	}

	signUp := domain.SignUpRequest{
		ID:                   req.ID,
		Name:                 req.Name,
		Email:                req.Email,
		Password:             req.Password,
		ConfirmPassword:      req.ConfirmPassword,
		CaptchaKey:           req.CaptchaKey,
		CaptchaValue:         req.CaptchaValue,
		ActivationServiceURL: h.activationURL,
	}

	if err := h.accounts.SignUp(c.Request.Context(), signUp); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCaptcha, Status: http.StatusBadRequest, Message: "incorrect captcha"},
			{Err: usecase.ErrPasswordMismatch, Status: http.StatusBadRequest, Message: "passwords do not match"},
			{Err: usecase.ErrAccountCreation, Status: http.StatusInternalServerError, Message: "unable to create account"},
		}, http.StatusInternalServerError, "unable to create account")
		return
	}

	account, err := h.accounts.Read(c.Request.Context(), req.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "unable to create account"))
		return
	}

	reqCtx := middleware.GetRequestContext(c)
	applog.WithContext(c.Request.Context()).Info("account signed up",
		zap.String("account_id", req.ID),
		zap.String("email", applog.MaskEmail(req.Email)),
		zap.String("client_ip", applog.MaskIP(reqCtx.IP)),
	)
	h.metrics.SignUpCounter().Inc()

	c.JSON(http.StatusCreated, SignUpResponse{
		Account: newAccountSummary(account),
		Message: "activation email sent",
	})
}

// ActivateByLink redeems an activation code carried in the emailed link.
func (h *AccountHandler) ActivateByLink(c *gin.Context) {
	code := strings.TrimSpace(c.Query("key"))
	if code == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "activation code is required"))
		return
	}

	h.activate(c, code)
}

// Activate redeems an activation code submitted in the request body.
func (h *AccountHandler) Activate(c *gin.Context) {
	var req ActivateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid activation payload"))
		return
	}

	h.activate(c, strings.TrimSpace(req.Code))
}

func (h *AccountHandler) activate(c *gin.Context, code string) {
	if err := h.accounts.Activate(c.Request.Context(), code); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidActivationCode, Status: http.StatusBadRequest, Message: "invalid account activation ID"},
		}, http.StatusInternalServerError, "failed to activate account")
		return
	}

	applog.WithContext(c.Request.Context()).Info("account activated",
		zap.String("code", applog.MaskString(code)),
	)
	h.metrics.ActivationCounter().Inc()

	c.JSON(http.StatusOK, MessageResponse{Message: "account activated"})
}

// Login authorizes an activated account by id and password.
func (h *AccountHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	if err := h.accounts.Login(c.Request.Context(), req.ID, req.Password); err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrAccountNotFound, Status: http.StatusUnauthorized, Message: "account not found"},
			{Err: usecase.ErrAccountDisabled, Status: http.StatusForbidden, Message: "account is disabled"},
			{Err: usecase.ErrIncorrectPassword, Status: http.StatusUnauthorized, Message: "Incorrect password"},
		}, http.StatusInternalServerError, "failed to login")
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "login successful"})
}

// Read returns a summary of one account.
func (h *AccountHandler) Read(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	account, err := h.accounts.Read(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusNotFound, NewErrorResponse(c, "account not found"))
			return
		}
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to read account"))
		return
	}

	c.JSON(http.StatusOK, newAccountSummary(account))
}

// Delete removes an account.
func (h *AccountHandler) Delete(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))

	if err := h.accounts.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "failed to delete account"))
		return
	}

	c.JSON(http.StatusOK, MessageResponse{Message: "account deleted"})
}

func newAccountSummary(account *domain.Account) AccountSummary {
	if account == nil {
		return AccountSummary{}
	}
	return AccountSummary{
		ID:        account.ID,
		Name:      account.Name,
		Email:     account.Email,
		Activated: account.Activated,
		CreatedAt: account.CreatedAt,
	}
}
