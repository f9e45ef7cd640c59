package v1

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/medvault/medvault/internal/config"
	"github.com/medvault/medvault/internal/domain"
	"github.com/medvault/medvault/internal/ledger"
	"github.com/medvault/medvault/internal/service"
	"github.com/medvault/medvault/pkg/auth"
	"github.com/medvault/medvault/pkg/metrics"
)

// Prometheus collectors register globally, so the test binary shares one.
var testCollector = metrics.NewCollector("medvault_test")

const (
	adminAddr    = "0xadmin"
	patientAddr  = "0xpatient1"
	patient2Addr = "0xpatient2"
	providerAddr = "0xprovider1"
	strangerAddr = "0xstranger"

	registrarSecret = "registrar-secret"
)

type testEnv struct {
	router *gin.Engine
	jwt    *auth.JWTManager
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	jwtManager := auth.NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-at-least-32-characters-long",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "medvault-test",
	})

	led, err := ledger.New(adminAddr, nil, zap.NewNop())
	require.NoError(t, err)

	hash, err := bcrypt.GenerateFromPassword([]byte(registrarSecret), bcrypt.MinCost)
	require.NoError(t, err)
	tokenSvc := service.NewTokenService(string(hash), jwtManager, zap.NewNop())

	h := NewHandler(led, tokenSvc, nil, testCollector, zap.NewNop())
	cfg := &config.Config{
		App:     config.AppConfig{Name: "medvault-api", Environment: "test"},
		Tracing: config.TracingConfig{ServiceName: "medvault-test"},
		CORS: config.CORSConfig{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
			MaxAge:         time.Hour,
		},
		RateLimit: config.RateLimitConfig{RequestsPerSecond: 1000, BurstSize: 1000},
	}

	return &testEnv{router: h.NewRouter(cfg, jwtManager), jwt: jwtManager}
}

func (e *testEnv) token(t *testing.T, addr string, role domain.Role) string {
	t.Helper()
	pair, err := e.jwt.GenerateTokenPair(&domain.Claims{Address: domain.Address(addr), Role: role})
	require.NoError(t, err)
	return pair.AccessToken
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// seed registers the provider and patient and grants access, the common
// precondition for record operations.
func (e *testEnv) seed(t *testing.T) {
	t.Helper()
	w := e.do(t, http.MethodPost, "/v1/providers", e.token(t, adminAddr, domain.RoleAdmin),
		gin.H{"address": providerAddr})
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodPost, "/v1/patients", e.token(t, patientAddr, domain.RolePatient),
		gin.H{"name": "Alice", "date_of_birth": 791510400, "contact_info": "c1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = e.do(t, http.MethodPost, "/v1/access/grants", e.token(t, patientAddr, domain.RolePatient),
		gin.H{"provider": providerAddr})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/patients/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/v1/patients/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTokenEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/auth/token", "",
		gin.H{"address": patientAddr, "role": "patient", "secret": registrarSecret})
	require.Equal(t, http.StatusOK, w.Code)

	data := decode(t, w)["data"].(map[string]any)
	access := data["access_token"].(string)
	require.NotEmpty(t, access)

	w = env.do(t, http.MethodGet, "/v1/patients/me", access, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPost, "/v1/auth/token", "",
		gin.H{"address": patientAddr, "role": "patient", "secret": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestPatientRegistration(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, patientAddr, domain.RolePatient)

	w := env.do(t, http.MethodPost, "/v1/patients", token,
		gin.H{"name": "Alice", "date_of_birth": 791510400, "contact_info": "c1"})
	require.Equal(t, http.StatusCreated, w.Code)

	w = env.do(t, http.MethodGet, "/v1/patients/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "Alice", data["name"])
	assert.Equal(t, true, data["is_registered"])

	w = env.do(t, http.MethodPost, "/v1/patients", token, gin.H{"name": "Alice"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/v1/patients", env.token(t, patient2Addr, domain.RolePatient), gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// Never-registered callers get the sentinel snapshot, not an error.
	w = env.do(t, http.MethodGet, "/v1/patients/me", env.token(t, strangerAddr, domain.RolePatient), nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = decode(t, w)["data"].(map[string]any)
	assert.Equal(t, false, data["is_registered"])
}

func TestProviderRegistration(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/v1/providers", env.token(t, strangerAddr, domain.RolePatient),
		gin.H{"address": providerAddr})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/v1/providers", env.token(t, adminAddr, domain.RoleAdmin),
		gin.H{"address": "0x0000000000000000000000000000000000000000"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPost, "/v1/providers", env.token(t, adminAddr, domain.RoleAdmin),
		gin.H{"address": providerAddr})
	require.Equal(t, http.StatusCreated, w.Code)

	// Provider registration state is a public lookup.
	w = env.do(t, http.MethodGet, "/v1/providers/"+providerAddr, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, true, data["is_registered"])

	w = env.do(t, http.MethodGet, "/v1/providers/"+strangerAddr, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data = decode(t, w)["data"].(map[string]any)
	assert.Equal(t, false, data["is_registered"])
}

func TestAccessFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	w := env.do(t, http.MethodGet, "/v1/access/"+patientAddr+"/"+providerAddr, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["data"].(map[string]any)["granted"])

	w = env.do(t, http.MethodDelete, "/v1/access/grants/"+providerAddr,
		env.token(t, patientAddr, domain.RolePatient), nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/v1/access/"+patientAddr+"/"+providerAddr, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["data"].(map[string]any)["granted"])

	// Granting to an unregistered provider is rejected.
	w = env.do(t, http.MethodPost, "/v1/access/grants",
		env.token(t, patientAddr, domain.RolePatient), gin.H{"provider": strangerAddr})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRecordFlow(t *testing.T) {
	env := newTestEnv(t)
	env.seed(t)

	providerToken := env.token(t, providerAddr, domain.RoleProvider)
	patientToken := env.token(t, patientAddr, domain.RolePatient)

	w := env.do(t, http.MethodPost, "/v1/patients/"+patientAddr+"/records", providerToken,
		gin.H{"record_type": "LabResult", "description": "ok", "external_ref": "hash1"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, float64(1), created["id"])

	w = env.do(t, http.MethodGet, "/v1/records/total", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), decode(t, w)["data"].(map[string]any)["total_records"])

	w = env.do(t, http.MethodGet, "/v1/patients/"+patientAddr+"/records", patientToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	ids := decode(t, w)["data"].(map[string]any)["record_ids"].([]any)
	assert.Equal(t, []any{float64(1)}, ids)

	w = env.do(t, http.MethodGet, "/v1/patients/"+patientAddr+"/records/1", providerToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "LabResult", got["record_type"])
	assert.Equal(t, "hash1", got["external_ref"])

	w = env.do(t, http.MethodPost, "/v1/patients/"+patientAddr+"/records/1/access", providerToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	// A third party can neither list nor read.
	strangerToken := env.token(t, strangerAddr, domain.RolePatient)
	w = env.do(t, http.MethodGet, "/v1/patients/"+patientAddr+"/records", strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(t, http.MethodGet, "/v1/patients/"+patientAddr+"/records/1", strangerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// Unknown or cross-patient ids are not found.
	w = env.do(t, http.MethodGet, "/v1/patients/"+patientAddr+"/records/999", patientToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// Revocation cuts the provider off from records it added itself.
	w = env.do(t, http.MethodDelete, "/v1/access/grants/"+providerAddr, patientToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodGet, "/v1/patients/"+patientAddr+"/records/1", providerToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = env.do(t, http.MethodPost, "/v1/patients/"+patientAddr+"/records", providerToken,
		gin.H{"record_type": "LabResult"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The owner still reads.
	w = env.do(t, http.MethodGet, "/v1/patients/"+patientAddr+"/records/1", patientToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAuditEndpointWithoutStore(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/v1/audit/events", env.token(t, adminAddr, domain.RoleAdmin), nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
