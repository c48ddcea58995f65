package routes

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/xuri/excelize/v2"

	"github.com/adityamehra-dev/orderbook-backend/internal/auth"
	"github.com/adityamehra-dev/orderbook-backend/internal/ewaybills"
	"github.com/adityamehra-dev/orderbook-backend/internal/fulfillment"
	"github.com/adityamehra-dev/orderbook-backend/internal/ledger"
	"github.com/adityamehra-dev/orderbook-backend/internal/reports"
	"github.com/adityamehra-dev/orderbook-backend/internal/users"
	pkgAuth "github.com/adityamehra-dev/orderbook-backend/pkg/auth"
	"github.com/adityamehra-dev/orderbook-backend/pkg/auth/session"
	"github.com/adityamehra-dev/orderbook-backend/pkg/config"
	"github.com/adityamehra-dev/orderbook-backend/pkg/enums"
	"github.com/adityamehra-dev/orderbook-backend/pkg/logger"
	"github.com/adityamehra-dev/orderbook-backend/pkg/metrics"
	"github.com/adityamehra-dev/orderbook-backend/pkg/pagination"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error { return nil }

type stubSessionManager struct{}

func (stubSessionManager) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

func (stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (string, string, error) {
	return "", "", nil
}

func (stubSessionManager) Revoke(ctx context.Context, accessID string) error { return nil }

type stubAuthService struct{}

func (stubAuthService) Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResponse, error) {
	return &auth.LoginResponse{AccessToken: "a", RefreshToken: "r"}, nil
}

func (stubAuthService) Refresh(ctx context.Context, req auth.RefreshRequest) (*auth.RefreshResponse, error) {
	return &auth.RefreshResponse{AccessToken: "a", RefreshToken: "r"}, nil
}

func (stubAuthService) Logout(ctx context.Context, accessID string) error { return nil }

func (stubAuthService) ChangePassword(ctx context.Context, userID uuid.UUID, req auth.ChangePasswordRequest) error {
	return nil
}

type stubRegisterService struct{}

func (stubRegisterService) Register(ctx context.Context, req auth.RegisterRequest) (*users.UserDTO, error) {
	return &users.UserDTO{Email: req.Email}, nil
}

type stubFulfillmentService struct{}

func (stubFulfillmentService) CreateOrder(ctx context.Context, org string, req fulfillment.CreateOrderRequest) (*fulfillment.OrderDTO, error) {
	return &fulfillment.OrderDTO{OrderID: 1}, nil
}

func (stubFulfillmentService) GetOrder(ctx context.Context, org string, orderID int64) (*fulfillment.OrderDTO, error) {
	return &fulfillment.OrderDTO{OrderID: orderID}, nil
}

func (stubFulfillmentService) ListOrders(ctx context.Context, org string, filters ledger.OrderFilters, params pagination.Params) ([]fulfillment.OrderDTO, int64, error) {
	return []fulfillment.OrderDTO{{OrderID: 1}}, 1, nil
}

func (stubFulfillmentService) EditOrder(ctx context.Context, org string, orderID int64, req fulfillment.EditOrderRequest) (*fulfillment.OrderDTO, error) {
	return &fulfillment.OrderDTO{OrderID: orderID}, nil
}

func (stubFulfillmentService) UpdateStatus(ctx context.Context, org string, orderID int64, status enums.OrderStatus) (*fulfillment.OrderDTO, error) {
	return &fulfillment.OrderDTO{OrderID: orderID, Status: status}, nil
}

func (stubFulfillmentService) DeleteOrder(ctx context.Context, org string, orderID int64) error {
	return nil
}

func (stubFulfillmentService) AddDelivery(ctx context.Context, org string, orderID int64, req fulfillment.AddDeliveryRequest) (*fulfillment.OrderDTO, error) {
	return &fulfillment.OrderDTO{OrderID: orderID}, nil
}

func (stubFulfillmentService) DeleteDelivery(ctx context.Context, org string, orderID, deliveryID int64) (*fulfillment.OrderDTO, error) {
	return &fulfillment.OrderDTO{OrderID: orderID}, nil
}

func (stubFulfillmentService) PurgeOrg(ctx context.Context, org string) error { return nil }

type stubBillsService struct{}

func (stubBillsService) Upload(ctx context.Context, org string, orderID int64, input ewaybills.UploadInput) (*ewaybills.BillDTO, error) {
	return &ewaybills.BillDTO{OrderID: orderID}, nil
}

func (stubBillsService) Replace(ctx context.Context, org string, orderID int64, publicID string, input ewaybills.UploadInput) (*ewaybills.BillDTO, error) {
	return &ewaybills.BillDTO{OrderID: orderID, PublicID: publicID}, nil
}

func (stubBillsService) Get(ctx context.Context, org, publicID string) (*ewaybills.BillDTO, error) {
	return &ewaybills.BillDTO{PublicID: publicID, URL: "https://blobs.example/bill"}, nil
}

func (stubBillsService) List(ctx context.Context, org string, orderID int64) ([]ewaybills.BillDTO, error) {
	return nil, nil
}

func (stubBillsService) Delete(ctx context.Context, org string, orderID int64, publicID string) error {
	return nil
}

type stubReportsService struct{}

func (stubReportsService) Summary(ctx context.Context, org string) (*reports.Summary, error) {
	return &reports.Summary{}, nil
}

func (stubReportsService) MonthlyRevenue(ctx context.Context, org string) ([]reports.MonthlyRevenuePoint, error) {
	return nil, nil
}

func (stubReportsService) RFM(ctx context.Context, org string) (*reports.RFMReport, error) {
	return &reports.RFMReport{}, nil
}

func (stubReportsService) SalesForecast(ctx context.Context, org string, days int) (*reports.Forecast, error) {
	return &reports.Forecast{Days: days}, nil
}

func (stubReportsService) OrderSizes(ctx context.Context, org string) (*reports.OrderSizes, error) {
	return &reports.OrderSizes{}, nil
}

func (stubReportsService) ExportOrders(ctx context.Context, org string, filters ledger.OrderFilters) (*excelize.File, error) {
	return excelize.NewFile(), nil
}

func (stubReportsService) ExportRevenue(ctx context.Context, org string) (*excelize.File, error) {
	return excelize.NewFile(), nil
}

type stubAccountService struct{}

func (stubAccountService) DeleteOwn(ctx context.Context, userID uuid.UUID, accessID string) error {
	return nil
}

func (stubAccountService) ListUsers(ctx context.Context) ([]users.UserDTO, error) {
	return nil, nil
}

func (stubAccountService) DeleteUser(ctx context.Context, adminID, targetID uuid.UUID) error {
	return nil
}

func testRouterConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "8080"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "orderbook", ExpirationMinutes: 30},
	}
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "router-test", Output: io.Discard})
	return NewRouter(
		testRouterConfig(),
		logg,
		stubPinger{},
		nil,
		stubPinger{},
		prometheus.NewRegistry(),
		&metrics.HTTPMetrics{},
		stubSessionManager{},
		stubAuthService{},
		stubRegisterService{},
		stubFulfillmentService{},
		stubBillsService{},
		stubReportsService{},
		stubAccountService{},
	)
}

func mintRouterToken(t *testing.T, role enums.UserRole) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(testRouterConfig().JWT, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Org:    "sharma-traders",
		Role:   role,
		JTI:    session.NewAccessID(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestRouterHealthLive(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterOrdersRequireAuth(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRouterOrdersWithToken(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	req.Header.Set("Authorization", "Bearer "+mintRouterToken(t, enums.UserRoleMember))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}

	var payload struct {
		Data []json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Data) != 1 {
		t.Fatalf("expected one order, got %d", len(payload.Data))
	}
}

func TestRouterAdminBlocksMembers(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+mintRouterToken(t, enums.UserRoleMember))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", resp.Code)
	}
}

func TestRouterAdminAllowsAdmins(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/api/admin/v1/users", nil)
	req.Header.Set("Authorization", "Bearer "+mintRouterToken(t, enums.UserRoleAdmin))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestRouterMetricsExposed(t *testing.T) {
	router := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
