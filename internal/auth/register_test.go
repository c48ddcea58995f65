package auth

import (
	"context"
	"testing"

	"github.com/adityamehra-dev/orderbook-backend/internal/users"
	"github.com/adityamehra-dev/orderbook-backend/pkg/config"
	pkgmodels "github.com/adityamehra-dev/orderbook-backend/pkg/db/models"
	"github.com/adityamehra-dev/orderbook-backend/pkg/enums"
	pkgerrors "github.com/adityamehra-dev/orderbook-backend/pkg/errors"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type stubTxRunner struct{}

func (s stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type stubRegisterRepo struct {
	byEmail   map[string]*pkgmodels.User
	created   []*pkgmodels.User
	createErr error
}

func newStubRegisterRepo() *stubRegisterRepo {
	return &stubRegisterRepo{byEmail: map[string]*pkgmodels.User{}}
}

func (s *stubRegisterRepo) FindByEmail(ctx context.Context, email string) (*pkgmodels.User, error) {
	if user, ok := s.byEmail[email]; ok {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (s *stubRegisterRepo) CountByOrg(ctx context.Context, org string) (int64, error) {
	var count int64
	for _, user := range s.byEmail {
		if user.Org == org {
			count++
		}
	}
	return count, nil
}

func (s *stubRegisterRepo) Create(ctx context.Context, dto users.CreateUserDTO) (*pkgmodels.User, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	user := dto.ToModel()
	user.ID = uuid.New()
	s.byEmail[dto.Email] = user
	s.created = append(s.created, user)
	return user, nil
}

func newRegisterTestService(t *testing.T) (RegisterService, *stubRegisterRepo) {
	t.Helper()
	repo := newStubRegisterRepo()
	svc, err := NewRegisterService(RegisterServiceParams{
		TxRunner: stubTxRunner{},
		UserRepoFactory: func(tx *gorm.DB) RegisterUserRepository {
			return repo
		},
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new register service: %v", err)
	}
	return svc, repo
}

func sampleRegisterRequest(email, org string) RegisterRequest {
	return RegisterRequest{
		Name:     "Priya Sharma",
		Email:    email,
		Password: "Secret123!",
		Org:      org,
	}
}

func TestRegisterFirstUserBecomesAdmin(t *testing.T) {
	svc, repo := newRegisterTestService(t)

	dto, err := svc.Register(context.Background(), sampleRegisterRequest("priya@example.com", "sharma-traders"))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if dto.Role != enums.UserRoleAdmin {
		t.Fatalf("expected first org user to be admin, got %s", dto.Role)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected one user created, got %d", len(repo.created))
	}
	if repo.created[0].PasswordHash == "" || repo.created[0].PasswordHash == "Secret123!" {
		t.Fatalf("expected password to be hashed")
	}
}

func TestRegisterLaterUsersAreMembers(t *testing.T) {
	svc, _ := newRegisterTestService(t)

	if _, err := svc.Register(context.Background(), sampleRegisterRequest("first@example.com", "sharma-traders")); err != nil {
		t.Fatalf("register first: %v", err)
	}
	dto, err := svc.Register(context.Background(), sampleRegisterRequest("second@example.com", "sharma-traders"))
	if err != nil {
		t.Fatalf("register second: %v", err)
	}

	if dto.Role != enums.UserRoleMember {
		t.Fatalf("expected later org user to be member, got %s", dto.Role)
	}
}

func TestRegisterAdminPerOrg(t *testing.T) {
	svc, _ := newRegisterTestService(t)

	if _, err := svc.Register(context.Background(), sampleRegisterRequest("first@example.com", "sharma-traders")); err != nil {
		t.Fatalf("register first org: %v", err)
	}
	dto, err := svc.Register(context.Background(), sampleRegisterRequest("other@example.com", "gupta-mills"))
	if err != nil {
		t.Fatalf("register second org: %v", err)
	}

	if dto.Role != enums.UserRoleAdmin {
		t.Fatalf("expected first user of a new org to be admin, got %s", dto.Role)
	}
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc, _ := newRegisterTestService(t)

	if _, err := svc.Register(context.Background(), sampleRegisterRequest("dup@example.com", "sharma-traders")); err != nil {
		t.Fatalf("register: %v", err)
	}
	_, err := svc.Register(context.Background(), sampleRegisterRequest("dup@example.com", "gupta-mills"))
	if err == nil {
		t.Fatalf("expected conflict for duplicate email")
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}
}

func TestRegisterRejectsWeakPassword(t *testing.T) {
	svc, repo := newRegisterTestService(t)

	req := sampleRegisterRequest("weak@example.com", "sharma-traders")
	req.Password = "letters-only"

	_, err := svc.Register(context.Background(), req)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(repo.created) != 0 {
		t.Fatalf("expected no user to be created")
	}
}

func TestRegisterNormalizesEmailAndOrg(t *testing.T) {
	svc, repo := newRegisterTestService(t)

	dto, err := svc.Register(context.Background(), sampleRegisterRequest(" Priya@Example.COM ", "  Sharma-Traders "))
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	if dto.Email != "priya@example.com" {
		t.Fatalf("expected normalized email, got %q", dto.Email)
	}
	if dto.Org != "sharma-traders" {
		t.Fatalf("expected normalized org, got %q", dto.Org)
	}
	if _, ok := repo.byEmail["priya@example.com"]; !ok {
		t.Fatalf("expected user stored under normalized email")
	}
}
