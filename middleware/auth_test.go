package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"storefront-backend/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

func newTestKeys(t *testing.T) *auth.Keys {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate rsa key: %v", err)
	}
	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
	publicDER, err := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if err != nil {
		t.Fatalf("failed to marshal public key: %v", err)
	}
	publicPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: publicDER})

	keys, err := auth.NewKeys(privatePEM, publicPEM)
	if err != nil {
		t.Fatalf("NewKeys failed: %v", err)
	}
	return keys
}

func newTestRouter(t *testing.T, keys *auth.Keys) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	m, err := NewMid(keys)
	if err != nil {
		t.Fatalf("NewMid failed: %v", err)
	}

	r := gin.New()
	protected := r.Group("/")
	protected.Use(m.Authentication())
	protected.GET("/me", func(c *gin.Context) {
		claims := c.Request.Context().Value(auth.ClaimsKey).(auth.Claims)
		c.JSON(http.StatusOK, gin.H{"user_id": claims.Subject})
	})
	protected.GET("/admin", m.Authorize(func(c *gin.Context) {
		c.Status(http.StatusOK)
	}, auth.RoleAdmin))
	return r
}

func tokenWithRoles(t *testing.T, keys *auth.Keys, roles ...string) string {
	t.Helper()
	token, err := keys.GenerateToken(auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "9",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Roles: roles,
	})
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	return token
}

func TestAuthenticationRejectsMissingHeader(t *testing.T) {
	r := newTestRouter(t, newTestKeys(t))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestAuthenticationAcceptsValidToken(t *testing.T) {
	keys := newTestKeys(t)
	r := newTestRouter(t, keys)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+tokenWithRoles(t, keys, auth.RoleUser))
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d, body %s", w.Code, http.StatusOK, w.Body.String())
	}
}

func TestAuthorizeEnforcesRole(t *testing.T) {
	keys := newTestKeys(t)
	r := newTestRouter(t, keys)

	tests := []struct {
		name  string
		roles []string
		want  int
	}{
		{name: "user role is rejected", roles: []string{auth.RoleUser}, want: http.StatusForbidden},
		{name: "admin role is allowed", roles: []string{auth.RoleUser, auth.RoleAdmin}, want: http.StatusOK},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+tokenWithRoles(t, keys, tc.roles...))
			r.ServeHTTP(w, req)

			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}
