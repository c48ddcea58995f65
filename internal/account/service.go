package account

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/adityamehra-dev/orderbook-backend/internal/users"
	"github.com/adityamehra-dev/orderbook-backend/pkg/db/models"
	pkgerrors "github.com/adityamehra-dev/orderbook-backend/pkg/errors"
	"github.com/adityamehra-dev/orderbook-backend/pkg/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Service handles account removal and the admin user directory.
// Deleting any account tears down the whole tenant: every order the org
// holds goes with it, deliveries and attachments included.
type Service interface {
	DeleteOwn(ctx context.Context, userID uuid.UUID, accessID string) error
	ListUsers(ctx context.Context) ([]users.UserDTO, error)
	DeleteUser(ctx context.Context, adminID, targetID uuid.UUID) error
}

type userRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type orderPurger interface {
	PurgeOrg(ctx context.Context, org string) error
}

type sessionRevoker interface {
	Revoke(ctx context.Context, accessID string) error
}

type service struct {
	users   userRepository
	orders  orderPurger
	session sessionRevoker
	logg    *logger.Logger
}

// ServiceParams bundles the dependencies required to build an account service.
type ServiceParams struct {
	UserRepo       userRepository
	OrderPurger    orderPurger
	SessionRevoker sessionRevoker
	Logger         *logger.Logger
}

// NewService constructs an account service with the provided dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.OrderPurger == nil {
		return nil, fmt.Errorf("order purger is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		users:   params.UserRepo,
		orders:  params.OrderPurger,
		session: params.SessionRevoker,
		logg:    params.Logger,
	}, nil
}

// DeleteOwn removes the caller's account and cascades their tenant's
// entire order book. The active session is revoked last, so a failure
// halfway through still leaves the caller able to retry.
func (s *service) DeleteOwn(ctx context.Context, userID uuid.UUID, accessID string) error {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.deleteUserAndTenant(ctx, user); err != nil {
		return err
	}

	if s.session != nil && strings.TrimSpace(accessID) != "" {
		if err := s.session.Revoke(ctx, accessID); err != nil {
			s.logg.Error(s.logg.WithField(ctx, "access_id", accessID), "revoke session after account deletion", err)
		}
	}
	return nil
}

// ListUsers returns the full user directory for the admin panel.
func (s *service) ListUsers(ctx context.Context) ([]users.UserDTO, error) {
	records, err := s.users.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list users")
	}
	out := make([]users.UserDTO, 0, len(records))
	for i := range records {
		out = append(out, *users.FromModel(&records[i]))
	}
	return out, nil
}

// DeleteUser removes another user's account on behalf of an admin.
// Admins cannot remove themselves here; that path goes through DeleteOwn.
func (s *service) DeleteUser(ctx context.Context, adminID, targetID uuid.UUID) error {
	if adminID == targetID {
		return pkgerrors.New(pkgerrors.CodeValidation, "cannot delete your own account from the admin panel")
	}
	user, err := s.findUser(ctx, targetID)
	if err != nil {
		return err
	}
	return s.deleteUserAndTenant(ctx, user)
}

func (s *service) findUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
	}
	return user, nil
}

func (s *service) deleteUserAndTenant(ctx context.Context, user *models.User) error {
	if err := s.orders.PurgeOrg(ctx, user.Org); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, user.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete user")
	}
	return nil
}
