package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/fixdesk/repair-service/internal/domain"
	"github.com/fixdesk/repair-service/internal/repository"
	apperrors "github.com/fixdesk/repair-service/pkg/util"
)

// Service authenticates staff members.
type Service struct {
	staff  repository.StaffRepository
	tokens *TokenManager
	hasher *PasswordHasher
	logger *zap.Logger
}

// NewService builds the auth service.
func NewService(staff repository.StaffRepository, tokens *TokenManager, hasher *PasswordHasher, logger *zap.Logger) *Service {
	return &Service{staff: staff, tokens: tokens, hasher: hasher, logger: logger}
}

// Session is the result of a successful login.
type Session struct {
	Token     string
	ExpiresAt time.Time
	Staff     *domain.StaffMember
}

// Login verifies credentials and issues an access token. Unknown email, bad
// password and deactivated account all collapse into the same unauthorized
// error so the response does not leak which one failed.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	staff, err := s.staff.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, err
	}
	if !staff.Active || !s.hasher.Compare(staff.PasswordHash, password) {
		return nil, apperrors.NewUnauthorized("invalid credentials")
	}

	token, expires, err := s.tokens.Issue(staff)
	if err != nil {
		return nil, err
	}
	s.logger.Info("staff login", zap.String("staff_id", staff.ID))
	return &Session{Token: token, ExpiresAt: expires, Staff: staff}, nil
}
