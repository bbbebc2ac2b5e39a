package service

import (
	"context"

	"github.com/finledger/billable-api/internal/domain/entity"
	"github.com/finledger/billable-api/internal/domain/repository"
	"github.com/finledger/billable-api/pkg/apperror"
	"github.com/finledger/billable-api/pkg/utils"
	"golang.org/x/crypto/bcrypt"
)

// AuthService issues tenant-scoped access tokens
type AuthService struct {
	userRepo   repository.UserRepository
	tenantRepo repository.TenantRepository
	jwtManager *utils.JWTManager
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repository.UserRepository,
	tenantRepo repository.TenantRepository,
	jwtManager *utils.JWTManager,
) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		tenantRepo: tenantRepo,
		jwtManager: jwtManager,
	}
}

// LoginInput represents the login input. TenantSlug selects which of the
// user's tenants the session is scoped to; empty picks the oldest
// membership.
type LoginInput struct {
	Email      string
	Password   string
	TenantSlug string
}

// LoginResult carries the issued token pair
type LoginResult struct {
	User         *entity.User   `json:"user"`
	Tenant       *entity.Tenant `json:"tenant"`
	Role         string         `json:"role"`
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
}

// Login authenticates a user and scopes the session to one tenant
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.NewAppError(401, "Invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		return nil, apperror.NewAppError(401, "Invalid email or password")
	}

	tenant, role, err := s.resolveTenant(ctx, user, input.TenantSlug)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, tenant.ID, user.Email, role)
	if err != nil {
		return nil, err
	}
	refreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:         user,
		Tenant:       tenant,
		Role:         role,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// Refresh exchanges a valid refresh token for a new token pair
func (s *AuthService) Refresh(ctx context.Context, refreshToken, tenantSlug string) (*LoginResult, error) {
	userID, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperror.ErrInvalidToken
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, apperror.ErrUnauthorized
	}

	tenant, role, err := s.resolveTenant(ctx, user, tenantSlug)
	if err != nil {
		return nil, err
	}

	accessToken, err := s.jwtManager.GenerateAccessToken(user.ID, tenant.ID, user.Email, role)
	if err != nil {
		return nil, err
	}
	newRefreshToken, err := s.jwtManager.GenerateRefreshToken(user.ID)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		User:         user,
		Tenant:       tenant,
		Role:         role,
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
	}, nil
}

func (s *AuthService) resolveTenant(ctx context.Context, user *entity.User, slug string) (*entity.Tenant, string, error) {
	memberships, err := s.tenantRepo.ListMemberships(ctx, user.ID)
	if err != nil {
		return nil, "", err
	}
	if len(memberships) == 0 {
		return nil, "", apperror.NewAppError(403, "User does not belong to any tenant")
	}

	if slug == "" {
		tenant, err := s.tenantRepo.GetByID(ctx, memberships[0].TenantID)
		if err != nil {
			return nil, "", err
		}
		if tenant == nil {
			return nil, "", apperror.NewNotFoundError("Tenant")
		}
		return tenant, memberships[0].Role, nil
	}

	tenant, err := s.tenantRepo.GetBySlug(ctx, slug)
	if err != nil {
		return nil, "", err
	}
	if tenant == nil {
		return nil, "", apperror.NewNotFoundError("Tenant")
	}
	for _, m := range memberships {
		if m.TenantID == tenant.ID {
			return tenant, m.Role, nil
		}
	}
	return nil, "", apperror.NewAppError(403, "User is not a member of this tenant")
}
