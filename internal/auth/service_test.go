package auth

import (
	"context"
	"testing"
	"time"

	pkgAuth "github.com/adityamehra-dev/orderbook-backend/pkg/auth"
	"github.com/adityamehra-dev/orderbook-backend/pkg/auth/session"
	"github.com/adityamehra-dev/orderbook-backend/pkg/config"
	"github.com/adityamehra-dev/orderbook-backend/pkg/db/models"
	"github.com/adityamehra-dev/orderbook-backend/pkg/enums"
	pkgerrors "github.com/adityamehra-dev/orderbook-backend/pkg/errors"
	"github.com/adityamehra-dev/orderbook-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "orderbook",
		ExpirationMinutes: 30,
	}
}

func newTestUser(t *testing.T, password string) *models.User {
	t.Helper()
	return &models.User{
		ID:           uuid.New(),
		Email:        "priya@sharma-traders.example",
		PasswordHash: mustHashPassword(t, password),
		Name:         "Priya Sharma",
		Org:          "sharma-traders",
		Role:         enums.UserRoleAdmin,
		IsActive:     true,
	}
}

func buildTestService(t *testing.T, user *models.User) (Service, *stubUserRepo, *stubSessionManager) {
	t.Helper()
	userRepo := &stubUserRepo{user: user}
	sessionMgr := &stubSessionManager{refreshToken: "refresh-token"}
	svc, err := NewService(ServiceParams{
		UserRepo:       userRepo,
		SessionManager: sessionMgr,
		JWTConfig:      testJWTConfig(),
		PasswordConfig: config.PasswordConfig{},
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, userRepo, sessionMgr
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

func assertAuthCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with code %s, got nil", code)
	}
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != code {
		t.Fatalf("expected code %s, got %v", code, err)
	}
}

func TestLoginMintsOrgScopedToken(t *testing.T) {
	password := "Secret123!"
	user := newTestUser(t, password)
	svc, userRepo, _ := buildTestService(t, user)

	resp, err := svc.Login(context.Background(), LoginRequest{
		Email:    " Priya@Sharma-Traders.Example ",
		Password: password,
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("expected user id %s, got %s", user.ID, claims.UserID)
	}
	if claims.Org != "sharma-traders" {
		t.Fatalf("expected org claim, got %q", claims.Org)
	}
	if claims.Role != enums.UserRoleAdmin {
		t.Fatalf("expected admin role claim, got %s", claims.Role)
	}
	if resp.RefreshToken == "" {
		t.Fatalf("expected refresh token to be set")
	}
	if resp.User == nil || resp.User.Email != user.Email {
		t.Fatalf("expected user dto in response")
	}
	if userRepo.lastLoginID != user.ID {
		t.Fatalf("expected last login to be recorded")
	}
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	user := newTestUser(t, "Secret123!")
	svc, _, _ := buildTestService(t, user)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    user.Email,
		Password: "Wrong456!",
	})
	assertAuthCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLoginRejectsInactiveUser(t *testing.T) {
	password := "Secret123!"
	user := newTestUser(t, password)
	user.IsActive = false
	svc, _, _ := buildTestService(t, user)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    user.Email,
		Password: password,
	})
	assertAuthCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLoginRejectsUnknownEmail(t *testing.T) {
	svc, _, _ := buildTestService(t, nil)

	_, err := svc.Login(context.Background(), LoginRequest{
		Email:    "nobody@example.com",
		Password: "Secret123!",
	})
	assertAuthCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestRefreshRotatesSession(t *testing.T) {
	user := newTestUser(t, "Secret123!")
	svc, _, sessionMgr := buildTestService(t, user)

	accessID := session.NewAccessID()
	accessToken, err := pkgAuth.MintAccessToken(testJWTConfig(), time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Org:    user.Org,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	sessionMgr.rotatedAccessID = "rotated-access-id"
	sessionMgr.rotatedToken = "rotated-refresh"

	resp, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  accessToken,
		RefreshToken: "refresh-token",
	})
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}

	if sessionMgr.rotateCalledWith != accessID {
		t.Fatalf("expected rotation keyed by old jti %s, got %s", accessID, sessionMgr.rotateCalledWith)
	}
	if resp.RefreshToken != "rotated-refresh" {
		t.Fatalf("expected rotated refresh token, got %q", resp.RefreshToken)
	}
	claims, err := pkgAuth.ParseAccessToken(testJWTConfig(), resp.AccessToken)
	if err != nil {
		t.Fatalf("parse rotated token: %v", err)
	}
	if claims.ID != "rotated-access-id" {
		t.Fatalf("expected new jti, got %s", claims.ID)
	}
	if claims.Org != user.Org || claims.UserID != user.ID {
		t.Fatalf("rotated token lost identity claims")
	}
}

func TestRefreshRejectsInvalidRefreshToken(t *testing.T) {
	user := newTestUser(t, "Secret123!")
	svc, _, sessionMgr := buildTestService(t, user)
	sessionMgr.rotateErr = session.ErrInvalidRefreshToken

	accessToken, err := pkgAuth.MintAccessToken(testJWTConfig(), time.Now().UTC(), pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Org:    user.Org,
		Role:   user.Role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	_, err = svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  accessToken,
		RefreshToken: "stale",
	})
	assertAuthCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestRefreshRejectsGarbageAccessToken(t *testing.T) {
	user := newTestUser(t, "Secret123!")
	svc, _, _ := buildTestService(t, user)

	_, err := svc.Refresh(context.Background(), RefreshRequest{
		AccessToken:  "not-a-jwt",
		RefreshToken: "refresh-token",
	})
	assertAuthCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestLogoutRevokesSession(t *testing.T) {
	user := newTestUser(t, "Secret123!")
	svc, _, sessionMgr := buildTestService(t, user)

	if err := svc.Logout(context.Background(), "some-access-id"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if sessionMgr.revokedAccessID != "some-access-id" {
		t.Fatalf("expected session revocation, got %q", sessionMgr.revokedAccessID)
	}

	err := svc.Logout(context.Background(), "  ")
	assertAuthCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestChangePasswordUpdatesHash(t *testing.T) {
	current := "Secret123!"
	user := newTestUser(t, current)
	svc, userRepo, _ := buildTestService(t, user)

	err := svc.ChangePassword(context.Background(), user.ID, ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     "Fresh456!",
	})
	if err != nil {
		t.Fatalf("change password: %v", err)
	}

	if userRepo.updatedHash == "" {
		t.Fatalf("expected a new hash to be stored")
	}
	ok, err := security.VerifyPassword("Fresh456!", userRepo.updatedHash)
	if err != nil || !ok {
		t.Fatalf("stored hash does not verify against the new password")
	}
}

func TestChangePasswordRejectsWrongCurrent(t *testing.T) {
	user := newTestUser(t, "Secret123!")
	svc, _, _ := buildTestService(t, user)

	err := svc.ChangePassword(context.Background(), user.ID, ChangePasswordRequest{
		CurrentPassword: "Wrong456!",
		NewPassword:     "Fresh456!",
	})
	assertAuthCode(t, err, pkgerrors.CodeUnauthorized)
}

func TestChangePasswordEnforcesPolicy(t *testing.T) {
	current := "Secret123!"
	user := newTestUser(t, current)
	svc, userRepo, _ := buildTestService(t, user)

	err := svc.ChangePassword(context.Background(), user.ID, ChangePasswordRequest{
		CurrentPassword: current,
		NewPassword:     "short",
	})
	assertAuthCode(t, err, pkgerrors.CodeValidation)
	if userRepo.updatedHash != "" {
		t.Fatalf("expected hash to stay untouched")
	}
}

type stubUserRepo struct {
	user        *models.User
	lastLoginID uuid.UUID
	updatedHash string
}

func (s *stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s *stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	s.lastLoginID = id
	if s.user != nil && s.user.ID == id {
		s.user.LastLoginAt = &at
	}
	return nil
}

func (s *stubUserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	s.updatedHash = hash
	return nil
}

type stubSessionManager struct {
	refreshToken     string
	rotatedAccessID  string
	rotatedToken     string
	rotateCalledWith string
	rotateErr        error
	revokedAccessID  string
}

func (s *stubSessionManager) Generate(ctx context.Context, accessID string) (string, error) {
	return s.refreshToken, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	s.rotateCalledWith = oldAccessID
	if s.rotateErr != nil {
		return "", "", s.rotateErr
	}
	return s.rotatedAccessID, s.rotatedToken, nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revokedAccessID = accessID
	return nil
}
