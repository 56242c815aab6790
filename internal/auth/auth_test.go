package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coreos/go-oidc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"blogflow/backend/internal/config"
	"blogflow/backend/internal/logging"
)

const testIssuer = "https://test-issuer.com"

// MockKeySet satisfies oidc.KeySet to bypass signature verification
type MockKeySet struct{}

func (m *MockKeySet) VerifySignature(ctx context.Context, jwtToken string) ([]byte, error) {
	parts := strings.Split(jwtToken, ".")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed jwt")
	}
	return base64.RawURLEncoding.DecodeString(parts[1])
}

func fakeToken(t *testing.T, email string) string {
	t.Helper()
	claims := map[string]interface{}{
		"iss":   testIssuer,
		"aud":   "test-client",
		"sub":   "test-user",
		"exp":   time.Now().Add(time.Hour).Unix(),
		"iat":   time.Now().Add(-1 * time.Minute).Unix(),
		"email": email,
	}
	header, err := json.Marshal(map[string]interface{}{"alg": "RS256", "typ": "JWT", "kid": "test-key"})
	require.NoError(t, err)
	payload, err := json.Marshal(claims)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(header) + "." +
		base64.RawURLEncoding.EncodeToString(payload) + "." +
		base64.RawURLEncoding.EncodeToString([]byte("fakesignature"))
}

func bearerAuth(domains ...string) *Auth {
	verifier := oidc.NewVerifier(testIssuer, &MockKeySet{}, &oidc.Config{SkipClientIDCheck: true})
	a := &Auth{apiVerifier: verifier, allowedDomains: map[string]bool{}, logger: logging.Nop()}
	for _, d := range domains {
		a.allowedDomains[d] = true
	}
	return a
}

func serve(a *Auth, req *http.Request) (*httptest.ResponseRecorder, string) {
	var editor string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		editor = EditorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	rec := httptest.NewRecorder()
	a.RequireAuth(next).ServeHTTP(rec, req)
	return rec, editor
}

func TestRequireAuth_BearerToken_SetsEditor(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/workflow", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, "writer@acme.com"))

	rec, editor := serve(bearerAuth(), req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "writer@acme.com", editor)
}

func TestRequireAuth_AllowedDomains(t *testing.T) {
	a := bearerAuth("acme.com")

	req := httptest.NewRequest("GET", "/api/v1/workflow", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, "writer@ACME.com"))
	rec, editor := serve(a, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "writer@ACME.com", editor)

	req = httptest.NewRequest("GET", "/api/v1/workflow", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, "someone@elsewhere.io"))
	rec, editor = serve(a, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, editor)
}

func TestRequireAuth_RejectsTokenWithoutEmail(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/workflow", nil)
	req.Header.Set("Authorization", "Bearer "+fakeToken(t, "not-an-email"))

	rec, _ := serve(bearerAuth(), req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_InvalidBearer(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/v1/workflow", nil)
	req.Header.Set("Authorization", "Bearer garbage")

	rec, _ := serve(bearerAuth(), req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_NoSessionRedirects(t *testing.T) {
	a := bearerAuth()
	a.verifier = a.apiVerifier

	rec, _ := serve(a, httptest.NewRequest("GET", "/api/v1/workflow", nil))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))
}

func TestRequireAuth_BypassMode(t *testing.T) {
	cfg := &config.Config{Environment: "DEV", DevModeBypass: true}
	a, err := New(context.Background(), cfg, logging.Nop())
	require.NoError(t, err)

	rec, editor := serve(a, httptest.NewRequest("GET", "/api/v1/workflow", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, DevEditor, editor)
}

func TestNew_IncompleteConfig(t *testing.T) {
	cfg := &config.Config{Environment: "PROD", DevModeBypass: true}
	_, err := New(context.Background(), cfg, nil)
	assert.EqualError(t, err, "auth configuration is incomplete")
}

func TestEditorFromContext_Empty(t *testing.T) {
	assert.Equal(t, "", EditorFromContext(context.Background()))
	assert.Equal(t, "a@b.c", EditorFromContext(WithEditor(context.Background(), "a@b.c")))
}
