package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bannedemails/internal/delivery/http/controllers"
	"bannedemails/internal/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type stubVerifier struct{}

func (stubVerifier) Verify(token string) (*domain.Session, error) {
	switch token {
	case "admin":
		return &domain.Session{UserID: "1", Roles: []string{domain.RoleAdmin}}, nil
	case "customer":
		return &domain.Session{UserID: "2", Roles: []string{"customer"}}, nil
	}
	return nil, domain.ErrInvalidToken
}

type stubBanService struct{}

func (stubBanService) BannedEmails(context.Context) ([]string, error) {
	return []string{"banned@example.com"}, nil
}

func (stubBanService) SaveBannedEmails(context.Context, string, string, string) error { return nil }

func (stubBanService) NewSaveToken(userID string) string { return "tok" }

func (stubBanService) CheckPurchase(_ context.Context, a domain.CheckoutAttempt, errs domain.ValidationErrors) (bool, error) {
	if a.Email == "banned@example.com" {
		errs.Add(domain.ErrCodeEmailBanned, domain.EmailBannedMessage)
		return true, nil
	}
	return false, nil
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	svc := stubBanService{}
	h, err := NewRouter(RouterDeps{
		Logger:             testLogger,
		BanController:      controllers.NewBanController(testLogger, svc),
		CheckoutController: controllers.NewCheckoutController(testLogger, svc),
		HealthController:   controllers.NewHealthController(testLogger, nil),
		Verifier:           stubVerifier{},
		AllowedOrigins:     []string{"https://shop.example.com"},
		Registry:           prometheus.NewRegistry(),
	})
	require.NoError(t, err)
	return h
}

func TestNewRouter_routes(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		token      string
		wantStatus int
		wantBody   string
	}{
		{"health", http.MethodGet, "/healthz", "", "", http.StatusOK, `"status":"ok"`},
		{"admin form requires token", http.MethodGet, "/admin/banned-emails", "", "", http.StatusUnauthorized, "unauthorized"},
		{"admin form requires role", http.MethodGet, "/admin/banned-emails", "", "customer", http.StatusForbidden, "forbidden"},
		{"admin form", http.MethodGet, "/admin/banned-emails", "", "admin", http.StatusOK, "banned@example.com"},
		{"admin list", http.MethodGet, "/api/banned-emails", "", "admin", http.StatusOK, `"count":1`},
		{"checkout as guest", http.MethodPost, "/checkout/validate", `{"posted":{"edd_email":"banned@example.com"}}`, "", http.StatusOK, "email_banned"},
		{"checkout with bad token", http.MethodPost, "/checkout/validate", `{"posted":{}}`, "nope", http.StatusUnauthorized, "unauthorized"},
		{"checkout wrong method", http.MethodGet, "/checkout/validate", "", "", http.StatusMethodNotAllowed, ""},
		{"metrics", http.MethodGet, "/metrics", "", "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(tt.body))
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))
			if tt.wantBody != "" {
				assert.Contains(t, rr.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestNewRouter_saveRedirects(t *testing.T) {
	router := newTestRouter(t)
	form := "edd_action=save_banned_emails&banned_emails=a%40example.com&edd_banned_emails_nonce=tok"
	req := httptest.NewRequest(http.MethodPost, "/admin/banned-emails", strings.NewReader(form))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer admin")
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/admin/banned-emails", rr.Header().Get("Location"))
}

func TestNewRouter_metricsRecordRoutePattern(t *testing.T) {
	reg := prometheus.NewRegistry()
	svc := stubBanService{}
	router, err := NewRouter(RouterDeps{
		Logger:             testLogger,
		BanController:      controllers.NewBanController(testLogger, svc),
		CheckoutController: controllers.NewCheckoutController(testLogger, svc),
		HealthController:   controllers.NewHealthController(testLogger, nil),
		Verifier:           stubVerifier{},
		Registry:           reg,
	})
	require.NoError(t, err)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `bannedemails_http_requests_total{method="GET",route="GET /healthz",status="200"} 1`)
}
