package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adityamehra-dev/orderbook-backend/internal/users"
	"github.com/adityamehra-dev/orderbook-backend/pkg/config"
	"github.com/adityamehra-dev/orderbook-backend/pkg/db"
	"github.com/adityamehra-dev/orderbook-backend/pkg/db/models"
	"github.com/adityamehra-dev/orderbook-backend/pkg/enums"
	pkgerrors "github.com/adityamehra-dev/orderbook-backend/pkg/errors"
	"github.com/adityamehra-dev/orderbook-backend/pkg/security"
	"gorm.io/gorm"
)

// RegisterService handles the onboarding transaction.
type RegisterService interface {
	Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error)
}

// RegisterUserRepository is the slice of the user store the onboarding
// transaction needs, bound to the transaction via the factory.
type RegisterUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CountByOrg(ctx context.Context, org string) (int64, error)
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// RegisterServiceParams packages the dependencies for the registration flow.
type RegisterServiceParams struct {
	TxRunner        txRunner
	UserRepoFactory func(tx *gorm.DB) RegisterUserRepository
	PasswordConfig  config.PasswordConfig
}

type registerService struct {
	tx          txRunner
	userRepo    func(tx *gorm.DB) RegisterUserRepository
	passwordCfg config.PasswordConfig
}

// NewRegisterService builds a registration service with the provided dependencies.
func NewRegisterService(params RegisterServiceParams) (RegisterService, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("transaction runner is required")
	}
	if params.UserRepoFactory == nil {
		return nil, fmt.Errorf("user repository factory is required")
	}
	return &registerService{
		tx:          params.TxRunner,
		userRepo:    params.UserRepoFactory,
		passwordCfg: params.PasswordConfig,
	}, nil
}

// Register creates the account. The first user in an org becomes its admin;
// everyone who joins afterwards is a member.
func (s *registerService) Register(ctx context.Context, req RegisterRequest) (*users.UserDTO, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	org := NormalizeOrg(req.Org)
	if org == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "org is required")
	}
	if _, ok := security.CheckPasswordPolicy(req.Password); !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, security.PolicyDescription())
	}

	passwordHash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	var created *models.User
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.userRepo(tx)

		if _, err := repo.FindByEmail(ctx, email); err == nil {
			return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check user email")
		}

		existing, err := repo.CountByOrg(ctx, org)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count org users")
		}
		role := enums.UserRoleMember
		if existing == 0 {
			role = enums.UserRoleAdmin
		}

		created, err = repo.Create(ctx, users.CreateUserDTO{
			Email:        email,
			PasswordHash: passwordHash,
			Name:         name,
			Org:          org,
			Role:         role,
		})
		if err != nil {
			// Concurrent signup can slip past the email pre-check and land
			// on the unique index instead.
			if db.IsUniqueViolation(err, "users_email_key") {
				return pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create user")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return users.FromModel(created), nil
}

// NormalizeOrg canonicalizes a tenant identifier so lookups and scoping
// never depend on the caller's casing or padding.
func NormalizeOrg(org string) string {
	return strings.ToLower(strings.TrimSpace(org))
}
