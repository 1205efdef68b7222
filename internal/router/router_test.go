package router_test

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/OnpreeyaMi/project-sa-sub000/internal/auth"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/config"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/database"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/router"
	"github.com/OnpreeyaMi/project-sa-sub000/internal/ws"
	"github.com/google/uuid"
)

func testConfig() *config.Config {
	return &config.Config{
		Port:                  "8081",
		JWTSecret:             "router-test-secret",
		PromptPayMobilePrefix: "0066",
		AllowedOrigins:        []string{"http://localhost:5173"},
	}
}

// Routes under test never touch the database, so nil pool/queries are fine.
func newTestRouter() http.Handler {
	return router.New(testConfig(), database.New(nil), nil, ws.NewHub())
}

func TestHealth(t *testing.T) {
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, httptest.NewRequest("GET", "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Errorf("body: got %s", rr.Body.String())
	}
}

func TestPromptPayRequiresAuth(t *testing.T) {
	req := httptest.NewRequest("POST", "/promptpay/payloads", strings.NewReader(`{"target":"0812345678"}`))
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestPromptPayRoleCheck(t *testing.T) {
	tests := []struct {
		role       string
		wantStatus int
	}{
		{"EMPLOYEE", http.StatusOK},
		{"ADMIN", http.StatusOK},
		{"CUSTOMER", http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			token, err := auth.GenerateToken("router-test-secret", uuid.New(), uuid.New(), tt.role, time.Minute)
			if err != nil {
				t.Fatalf("generate token: %v", err)
			}
			req := httptest.NewRequest("POST", "/promptpay/payloads", bytes.NewReader([]byte(`{"target":"0812345678","amount":"55"}`)))
			req.Header.Set("Authorization", "Bearer "+token)
			rr := httptest.NewRecorder()
			newTestRouter().ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status: got %d, want %d; body: %s", rr.Code, tt.wantStatus, rr.Body.String())
			}
		})
	}
}

func TestBranchScopeEnforced(t *testing.T) {
	token, err := auth.GenerateToken("router-test-secret", uuid.New(), uuid.New(), "EMPLOYEE", time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	path := "/branches/" + uuid.New().String() + "/orders/" + uuid.New().String() + "/payments/promptpay"
	req := httptest.NewRequest("POST", path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d; body: %s", rr.Code, http.StatusForbidden, rr.Body.String())
	}
}

func TestCustomerDeniedOnBranchRoutes(t *testing.T) {
	branchID := uuid.New()
	token, err := auth.GenerateToken("router-test-secret", uuid.New(), branchID, "CUSTOMER", time.Minute)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	base := "/branches/" + branchID.String() + "/orders/" + uuid.New().String() + "/payments"
	tests := []struct {
		method string
		path   string
	}{
		{"GET", base},
		{"POST", base},
		{"POST", base + "/promptpay"},
		{"POST", base + "/" + uuid.New().String() + "/confirm"},
		{"GET", "/ws/branches/" + branchID.String() + "/payments"},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rr := httptest.NewRecorder()
			newTestRouter().ServeHTTP(rr, req)

			if rr.Code != http.StatusForbidden {
				t.Errorf("status: got %d, want %d; body: %s", rr.Code, http.StatusForbidden, rr.Body.String())
			}
		})
	}
}

func TestPaymentStreamRequiresAuth(t *testing.T) {
	req := httptest.NewRequest("GET", "/ws/branches/"+uuid.New().String()+"/payments", nil)
	rr := httptest.NewRecorder()
	newTestRouter().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}
