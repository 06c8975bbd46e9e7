package user

import (
	"blockRewards/domain"
	"blockRewards/pkg/logger"
	"blockRewards/pkg/metrics"
	"blockRewards/pkg/snowflake"
	"blockRewards/pkg/utils"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

// UserStore contract interface
type UserStore interface {
	Get(email string) (domain.User, error)
	Create(ctx context.Context, user domain.User) error
	Update(ctx context.Context, email string, fn func(u *domain.User) error) (domain.User, error)
}

// MirrorRepository contract interface
type MirrorRepository interface {
	Upload(ctx context.Context, v interface{}) (string, error)
	Fetch(ctx context.Context, cid string, out interface{}) error
}

type SignupRequest struct {
	Email               string
	Password            string
	ConfirmPassword     string
	RequireConfirmation bool
	FirstName           string
	LastName            string
}

type userService struct {
	store        UserStore
	validate     *validator.Validate
	mirror       MirrorRepository
	bcryptCost   int
	referralSalt string
}

const SignupSuccessMessage = "Account created successfully"

// NewUserService builds the authenticator. mirror may be nil.
func NewUserService(
	store UserStore,
	validate *validator.Validate,
	mirror MirrorRepository,
	bcryptCost int,
	referralSalt string,
) *userService {
	return &userService{
		store:        store,
		validate:     validate,
		mirror:       mirror,
		bcryptCost:   bcryptCost,
		referralSalt: referralSalt,
	}
}

func (s *userService) Signup(ctx context.Context, req SignupRequest) (domain.SignupConfirmation, error) {
	confirmation, err := s.signup(ctx, req)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("signup", "failure").Inc()
		return domain.SignupConfirmation{}, err
	}
	metrics.AuthAttempts.WithLabelValues("signup", "success").Inc()
	return confirmation, nil
}

func (s *userService) signup(ctx context.Context, req SignupRequest) (domain.SignupConfirmation, error) {
	if err := s.validate.Var(req.Email, "required,contains=@"); err != nil {
		logger.Error("Invalid email format", "email", req.Email, "error", err)
		return domain.SignupConfirmation{}, fmt.Errorf("%w: invalid email format", domain.ErrValidation)
	}

	if err := s.validate.Var(req.Password, "required,min=6,max=72"); err != nil {
		logger.Error("Invalid user password", "error", err)
		return domain.SignupConfirmation{}, fmt.Errorf("%w: password must be between 6 and 72 characters", domain.ErrValidation)
	}

	if req.RequireConfirmation && req.Password != req.ConfirmPassword {
		logger.Error("Password confirmation mismatch", "email", req.Email)
		return domain.SignupConfirmation{}, fmt.Errorf("%w: passwords do not match", domain.ErrValidation)
	}

	// Check if email already exists
	if _, err := s.store.Get(req.Email); err == nil {
		logger.Error("Email already exists", "email", req.Email)
		return domain.SignupConfirmation{}, domain.ErrDuplicateEmail
	}

	passwordHash, err := utils.HashPassword(req.Password, s.bcryptCost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		logger.Error("Password too long to hash", "email", req.Email)
		return domain.SignupConfirmation{}, fmt.Errorf("%w: password must be at most 72 bytes", domain.ErrValidation)
	}
	if err != nil {
		logger.Error("Failed to hash password", "error", err)
		return domain.SignupConfirmation{}, errors.New("failed to hash password")
	}

	newUser := domain.User{
		ID:           utils.GenUserID(),
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		PasswordHash: string(passwordHash),
		CreatedAt:    time.Now().UTC(),
		ReferralCode: utils.GenReferralCode(s.referralSalt, snowflake.GenID()),
	}

	newUser.ExternalRef = s.mirrorProfile(ctx, newUser)

	if err := s.store.Create(ctx, newUser); err != nil {
		logger.Error("Failed to create new user", "email", req.Email, "error", err)
		return domain.SignupConfirmation{}, err
	}

	logger.Info("User created successfully", "email", newUser.Email, "user_id", newUser.ID)

	return domain.SignupConfirmation{
		UserID:  newUser.ID,
		Message: SignupSuccessMessage,
	}, nil
}

// mirrorProfile is best-effort: any failure is logged and yields an empty ref.
func (s *userService) mirrorProfile(ctx context.Context, u domain.User) string {
	if s.mirror == nil {
		return ""
	}

	cid, err := s.mirror.Upload(ctx, u.Mirror())
	if err != nil {
		metrics.MirrorFailures.Inc()
		logger.Warn("Profile mirror failed, continuing without it", "email", u.Email, "error", err)
		return ""
	}

	return cid
}

func (s *userService) Login(ctx context.Context, email, password string) (domain.UserProfile, error) {
	user, err := s.store.Get(email)
	if err != nil {
		metrics.AuthAttempts.WithLabelValues("login", "failure").Inc()
		logger.Error("Invalid user credentials", "email", email, "error", err)
		return domain.UserProfile{}, err
	}

	if !utils.CheckPassword(password, user.PasswordHash) {
		metrics.AuthAttempts.WithLabelValues("login", "failure").Inc()
		logger.Error("User password incorrect", "email", email)
		return domain.UserProfile{}, domain.ErrInvalidPassword
	}

	metrics.AuthAttempts.WithLabelValues("login", "success").Inc()
	logger.Info("User logged in successfully", "email", email)

	return user.Profile(), nil
}

func (s *userService) GetProfile(ctx context.Context, email string) (domain.UserProfile, error) {
	user, err := s.store.Get(email)
	if err != nil {
		logger.Error("Failed to get user by email", "email", email, "error", err)
		return domain.UserProfile{}, err
	}

	return user.Profile(), nil
}

// UpdateWalletAddress stores the address in EIP-55 checksum form.
func (s *userService) UpdateWalletAddress(ctx context.Context, email, address string) (domain.UserProfile, error) {
	if !common.IsHexAddress(address) {
		logger.Error("Invalid wallet address", "email", email, "address", address)
		return domain.UserProfile{}, fmt.Errorf("%w: invalid wallet address", domain.ErrValidation)
	}

	checksummed := common.HexToAddress(address).Hex()
	user, err := s.store.Update(ctx, email, func(u *domain.User) error {
		u.WalletAddress = checksummed
		return nil
	})
	if err != nil {
		logger.Error("Failed to update wallet address", "email", email, "error", err)
		return domain.UserProfile{}, err
	}

	return user.Profile(), nil
}

// GetMirroredProfile reads back the profile last uploaded for the user.
func (s *userService) GetMirroredProfile(ctx context.Context, email string) (domain.MirrorProfile, error) {
	user, err := s.store.Get(email)
	if err != nil {
		logger.Error("Failed to get user by email", "email", email, "error", err)
		return domain.MirrorProfile{}, err
	}

	if s.mirror == nil || user.ExternalRef == "" {
		return domain.MirrorProfile{}, fmt.Errorf("%w: profile is not mirrored", domain.ErrNotFound)
	}

	var profile domain.MirrorProfile
	if err := s.mirror.Fetch(ctx, user.ExternalRef, &profile); err != nil {
		metrics.MirrorFailures.Inc()
		logger.Warn("Failed to fetch mirrored profile", "email", email, "cid", user.ExternalRef, "error", err)
		if !errors.Is(err, domain.ErrExternalServiceUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrExternalServiceUnavailable, err)
		}
		return domain.MirrorProfile{}, err
	}

	return profile, nil
}
