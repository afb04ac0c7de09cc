package services

import (
	"context"
	"time"

	"github.com/maikekai/surf-house-backend/internal/database"
	"github.com/maikekai/surf-house-backend/internal/models"
	"github.com/maikekai/surf-house-backend/pkg/jwt"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuthService authenticates staff accounts for the admin surface.
type AdminAuthService struct {
	userRepo *database.UserRepository
	jwtSvc   *jwt.Service
	logger   *logrus.Logger
}

// NewAdminAuthService creates a new AdminAuthService.
func NewAdminAuthService(userRepo *database.UserRepository, jwtSvc *jwt.Service, logger *logrus.Logger) *AdminAuthService {
	return &AdminAuthService{
		userRepo: userRepo,
		jwtSvc:   jwtSvc,
		logger:   logger,
	}
}

// Login verifies staff credentials and issues a session token. The same
// generic error covers unknown emails and bad passwords.
func (s *AdminAuthService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.userRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		return nil, NewDataAccessError("look up account", err)
	}
	if user == nil || !user.IsActive || !user.IsStaff() || user.PasswordHash == nil {
		return nil, NewValidationError("credentials", "invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.WithField("email", req.Email).Warn("Failed staff login attempt")
		return nil, NewValidationError("credentials", "invalid email or password")
	}

	token, expiresAt, err := s.jwtSvc.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		return nil, NewDataAccessError("issue token", err)
	}

	if err := s.userRepo.RecordLogin(ctx, user.ID, time.Now()); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Warn("Failed to record login time")
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.ID,
		"role":    user.Role,
	}).Info("Staff login")

	return &models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      *user,
	}, nil
}

// HashPassword produces a bcrypt hash for seeding staff accounts.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
