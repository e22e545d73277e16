package rest

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"account-service/app/domain"
	mock_port "account-service/app/mocks"
	"account-service/app/utils/validator"
)

func newTestRouter(t *testing.T, enableMetrics bool) (http.Handler, *mock_port.MockAccountUsecase, *mock_port.MockSessionReader) {
	t.Helper()
	ctrl := gomock.NewController(t)
	accounts := mock_port.NewMockAccountUsecase(ctrl)
	sessions := mock_port.NewMockSessionReader(ctrl)
	forms, err := validator.New()
	require.NoError(t, err)

	e, stop := NewRouter(RouterConfig{
		Logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
		AccountUsecase: accounts,
		Sessions:       sessions,
		CountryCodes:   domain.DefaultCountryCodes,
		Forms:          forms,
		AllowedOrigins: []string{"http://localhost:5173"},
		ResetPerMinute: 5,
		ResetBurst:     3,
		Version:        "test",
		EnableMetrics:  enableMetrics,
	})
	t.Cleanup(stop)

	return e, accounts, sessions
}

func serve(h http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestRouter_UnknownRouteAnswersJSON(t *testing.T) {
	router, _, _ := newTestRouter(t, false)

	rec := serve(router, http.MethodGet, "/v1/nope")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "NOT_FOUND", body.Error.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRouter_ProfileWaitsForSession(t *testing.T) {
	router, _, sessions := newTestRouter(t, false)
	sessions.EXPECT().Snapshot().Return(domain.SessionSnapshot{Loading: true})

	rec := serve(router, http.MethodGet, "/v1/profile")

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "SESSION_LOADING")
}

func TestRouter_ProfileAfterSessionResolved(t *testing.T) {
	router, accounts, sessions := newTestRouter(t, false)
	sessions.EXPECT().Snapshot().Return(domain.SessionSnapshot{Version: 1})
	accounts.EXPECT().GetProfile(gomock.Any()).Return(nil,
		domain.NewAccountError(domain.KindUnauthorized, "Please sign in to continue", domain.ErrNoActiveSession).
			WithRedirect(domain.RouteLogin))

	rec := serve(router, http.MethodGet, "/v1/profile")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), `"redirect_to":"/login"`)
}

func TestRouter_Metrics(t *testing.T) {
	tests := []struct {
		name           string
		enableMetrics  bool
		expectedStatus int
	}{
		{"enabled", true, http.StatusOK},
		{"disabled", false, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _, _ := newTestRouter(t, tt.enableMetrics)
			assert.Equal(t, tt.expectedStatus, serve(router, http.MethodGet, "/metrics").Code)
		})
	}
}

func TestRouter_PublicEndpoints(t *testing.T) {
	router, accounts, _ := newTestRouter(t, false)
	accounts.EXPECT().State().Return(domain.StateAnonymous)
	accounts.EXPECT().RecoveryCompleted().Return(false)

	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/v1/health").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/v1/ready").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/v1/forms/country-codes").Code)
	assert.Equal(t, http.StatusOK, serve(router, http.MethodGet, "/v1/account/state").Code)
}

func TestRouter_FormCheck(t *testing.T) {
	router, _, _ := newTestRouter(t, false)

	body := `{"values": {"email": "a@b.com", "password": "x"}, "errors": {"email": "Please enter a valid email"}, "submit": true}`
	req := httptest.NewRequest(http.MethodPost, "/v1/forms/sign_in/check", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"values": {"email": "a@b.com", "password": "x"}, "errors": {}, "valid": true}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPost, "/v1/forms/checkout/check", strings.NewReader(`{}`))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "NOT_FOUND")
}
