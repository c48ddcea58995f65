package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/adityamehra-dev/orderbook-backend/api/middleware"
	"github.com/adityamehra-dev/orderbook-backend/internal/auth"
	"github.com/adityamehra-dev/orderbook-backend/internal/users"
	pkgerrors "github.com/adityamehra-dev/orderbook-backend/pkg/errors"
)

type stubAuthService struct {
	login          func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error)
	refresh        func(ctx context.Context, req auth.RefreshRequest) (*auth.RefreshResponse, error)
	logout         func(ctx context.Context, accessID string) error
	changePassword func(ctx context.Context, userID uuid.UUID, req auth.ChangePasswordRequest) error
}

func (s *stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	if s.login != nil {
		return s.login(ctx, req)
	}
	panic("not implemented")
}

func (s *stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.RefreshResponse, error) {
	if s.refresh != nil {
		return s.refresh(ctx, req)
	}
	panic("not implemented")
}

func (s *stubAuthService) Logout(ctx context.Context, accessID string) error {
	if s.logout != nil {
		return s.logout(ctx, accessID)
	}
	panic("not implemented")
}

func (s *stubAuthService) ChangePassword(ctx context.Context, userID uuid.UUID, req auth.ChangePasswordRequest) error {
	if s.changePassword != nil {
		return s.changePassword(ctx, userID, req)
	}
	panic("not implemented")
}

type stubRegisterService struct {
	register func(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error)
}

func (s *stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	if s.register != nil {
		return s.register(ctx, req)
	}
	panic("not implemented")
}

func TestAuthLoginReturnsTokenPair(t *testing.T) {
	svc := &stubAuthService{
		login: func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
			if req.Email != "priya@sharma-traders.example" {
				t.Fatalf("unexpected email %q", req.Email)
			}
			return &auth.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
		},
	}

	handler := AuthLogin(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":"priya@sharma-traders.example","password":"Secret123!"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var payload struct {
		Data auth.LoginResponse `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.Data.AccessToken != "access" || payload.Data.RefreshToken != "refresh" {
		t.Fatalf("unexpected payload %+v", payload.Data)
	}
}

func TestAuthLoginRejectsMalformedBody(t *testing.T) {
	handler := AuthLogin(&stubAuthService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", strings.NewReader(`{"email":`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestAuthRegisterLogsInAfterCreate(t *testing.T) {
	registered := false
	reg := &stubRegisterService{
		register: func(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
			registered = true
			if req.Org != "sharma-traders" {
				t.Fatalf("unexpected org %q", req.Org)
			}
			return &users.UserDTO{Email: req.Email}, nil
		},
	}
	svc := &stubAuthService{
		login: func(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
			return &auth.LoginResponse{AccessToken: "access", RefreshToken: "refresh"}, nil
		},
	}

	body := `{"name":"Priya","email":"priya@sharma-traders.example","password":"Secret123!","org":"sharma-traders"}`
	handler := AuthRegister(reg, svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if !registered {
		t.Fatal("register was not invoked")
	}
}

func TestAuthRegisterSurfacesConflict(t *testing.T) {
	reg := &stubRegisterService{
		register: func(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		},
	}

	body := `{"name":"Priya","email":"priya@sharma-traders.example","password":"Secret123!","org":"sharma-traders"}`
	handler := AuthRegister(reg, &stubAuthService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader(body))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestAuthLogoutRevokesContextSession(t *testing.T) {
	var revoked string
	svc := &stubAuthService{
		logout: func(ctx context.Context, accessID string) error {
			revoked = accessID
			return nil
		},
	}

	handler := AuthLogout(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/logout", nil)
	req = req.WithContext(middleware.WithAccessID(req.Context(), "session-123"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if revoked != "session-123" {
		t.Fatalf("unexpected access id %q", revoked)
	}
}

func TestAuthChangePasswordRequiresIdentity(t *testing.T) {
	handler := AuthChangePassword(&stubAuthService{}, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/change-password", strings.NewReader(`{"current_password":"a","new_password":"b"}`))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthChangePasswordDelegatesToService(t *testing.T) {
	userID := uuid.New()
	var got uuid.UUID
	svc := &stubAuthService{
		changePassword: func(ctx context.Context, id uuid.UUID, req auth.ChangePasswordRequest) error {
			got = id
			return nil
		},
	}

	handler := AuthChangePassword(svc, nil)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/change-password", strings.NewReader(`{"current_password":"Secret123!","new_password":"Fresh456!"}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), userID.String()))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if got != userID {
		t.Fatalf("unexpected user id %s", got)
	}
}
