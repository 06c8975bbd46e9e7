package rest

import (
	"blockRewards/business/user"
	"blockRewards/domain"
	"blockRewards/internal/middleware"
	"blockRewards/pkg/logger"
	"blockRewards/pkg/utils"
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type UserService interface {
	Signup(ctx context.Context, req user.SignupRequest) (domain.SignupConfirmation, error)
	Login(ctx context.Context, email, password string) (domain.UserProfile, error)
	GetProfile(ctx context.Context, email string) (domain.UserProfile, error)
	UpdateWalletAddress(ctx context.Context, email, address string) (domain.UserProfile, error)
	GetMirroredProfile(ctx context.Context, email string) (domain.MirrorProfile, error)
}

type TokenConfig struct {
	Secret      []byte
	TTL         time.Duration
	AdminEmails []string
}

type UserHandler struct {
	userService UserService
	validator   *validator.Validate
	timeout     time.Duration
	tokens      TokenConfig
}

func NewUserHandler(userService UserService, tokens TokenConfig, timeout time.Duration) *UserHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &UserHandler{
		userService: userService,
		validator:   validator.New(),
		timeout:     timeout,
		tokens:      tokens,
	}
}

type UserSignupRequest struct {
	Email           string `json:"email" validate:"required"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

type UserLoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type WalletRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required"`
}

func (h *UserHandler) Signup(c echo.Context) error {
	var req UserSignupRequest

	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid request body", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validator.Struct(&req); err != nil {
		logger.Error("Failed to validate user signup", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	confirmation, err := h.userService.Signup(ctx, user.SignupRequest{
		Email:               strings.TrimSpace(req.Email),
		Password:            req.Password,
		ConfirmPassword:     req.ConfirmPassword,
		RequireConfirmation: req.ConfirmPassword != "",
		FirstName:           req.FirstName,
		LastName:            req.LastName,
	})
	if err != nil {
		return c.JSON(statusFor(err), errorMessage(err))
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(confirmation))
}

func (h *UserHandler) Login(c echo.Context) error {
	var req UserLoginRequest

	if err := c.Bind(&req); err != nil {
		logger.Error("Failed to bind request", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validator.Struct(&req); err != nil {
		logger.Error("Failed to validate user login", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	profile, err := h.userService.Login(ctx, strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		return c.JSON(statusFor(err), errorMessage(err))
	}

	token, err := utils.GenerateJWT(h.tokens.Secret, profile.ID, profile.Email, h.roleFor(profile.Email), h.tokens.TTL)
	if err != nil {
		logger.Error("Failed to generate token", "email", profile.Email, "error", err)
		return c.JSON(http.StatusInternalServerError, ResponseError{Message: "failed to generate token"})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": "Login successful",
		"token":   token,
		"user":    profile,
	})
}

func (h *UserHandler) Me(c echo.Context) error {
	email, _ := c.Get("email").(string)

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	profile, err := h.userService.GetProfile(ctx, email)
	if err != nil {
		return c.JSON(statusFor(err), errorMessage(err))
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(profile))
}

func (h *UserHandler) UpdateWallet(c echo.Context) error {
	email, _ := c.Get("email").(string)

	var req WalletRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid request body", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	if err := h.validator.Struct(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	profile, err := h.userService.UpdateWalletAddress(ctx, email, req.WalletAddress)
	if err != nil {
		return c.JSON(statusFor(err), errorMessage(err))
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(profile))
}

func (h *UserHandler) Mirror(c echo.Context) error {
	email, _ := c.Get("email").(string)

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	profile, err := h.userService.GetMirroredProfile(ctx, email)
	if err != nil {
		return c.JSON(statusFor(err), errorMessage(err))
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(profile))
}

func (h *UserHandler) roleFor(email string) string {
	for _, admin := range h.tokens.AdminEmails {
		if strings.EqualFold(admin, email) {
			return middleware.RoleAdmin
		}
	}
	return "USER"
}
