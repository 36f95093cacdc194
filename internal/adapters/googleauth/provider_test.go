package googleauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/veduta/accounts-api/internal/ports"
)

// newDiscoveryServer serves a minimal OIDC discovery document whose issuer
// matches the server's own URL, which is what go-oidc validates.
func newDiscoveryServer(t *testing.T) *httptest.Server {
	t.Helper()

	issuer := ""
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		doc := map[string]any{
			"issuer":                 issuer,
			"authorization_endpoint": issuer + "/auth",
			"token_endpoint":         issuer + "/token",
			"userinfo_endpoint":      issuer + "/userinfo",
			"jwks_uri":               issuer + "/jwks",
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(doc)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	issuer = server.URL
	return server
}

func newTestProvider(t *testing.T) *Provider {
	t.Helper()

	server := newDiscoveryServer(t)
	provider, err := NewProvider(context.Background(), ProviderConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost:8080/api/auth/google/callback",
		Issuer:       server.URL,
		HTTPClient:   server.Client(),
	})
	require.NoError(t, err)
	return provider
}

func TestNewProvider_Success(t *testing.T) {
	server := newDiscoveryServer(t)

	provider, err := NewProvider(context.Background(), ProviderConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost:8080/api/auth/google/callback",
		Issuer:       server.URL,
		HTTPClient:   server.Client(),
	})
	require.NoError(t, err)
	assert.NotNil(t, provider)
	assert.Equal(t, server.URL+"/auth", provider.config.Endpoint.AuthURL)
	assert.Equal(t, server.URL+"/token", provider.config.Endpoint.TokenURL)
}

func TestNewProvider_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		config ProviderConfig
		errMsg string
	}{
		{
			name: "missing client ID",
			config: ProviderConfig{
				ClientSecret: "secret",
				RedirectURL:  "http://localhost/callback",
			},
			errMsg: "client ID is required",
		},
		{
			name: "missing client secret",
			config: ProviderConfig{
				ClientID:    "client",
				RedirectURL: "http://localhost/callback",
			},
			errMsg: "client secret is required",
		},
		{
			name:   "missing redirect URL",
			config: ProviderConfig{ClientID: "client", ClientSecret: "secret"},
			errMsg: "redirect URL is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewProvider(context.Background(), tt.config)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestNewProvider_CustomScope(t *testing.T) {
	server := newDiscoveryServer(t)

	provider, err := NewProvider(context.Background(), ProviderConfig{
		ClientID:     "test-client",
		ClientSecret: "test-secret",
		RedirectURL:  "http://localhost:8080/api/auth/google/callback",
		Scope:        "openid email",
		Issuer:       server.URL,
		HTTPClient:   server.Client(),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"openid", "email"}, provider.config.Scopes)

	authURL, _, _, err := provider.Begin(context.Background(), ports.BeginInput{})
	require.NoError(t, err)
	assert.Contains(t, authURL, "scope=openid+email")
}

func TestNewProvider_DefaultScope(t *testing.T) {
	provider := newTestProvider(t)
	assert.Equal(t, defaultScopes, provider.config.Scopes)
}

func TestNewProvider_DiscoveryFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not here", http.StatusNotFound)
	}))
	t.Cleanup(server.Close)

	_, err := NewProvider(context.Background(), ProviderConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost/callback",
		Issuer:       server.URL,
		HTTPClient:   server.Client(),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oidc new provider")
}

func TestProvider_Begin(t *testing.T) {
	provider := newTestProvider(t)

	authURL, state, nonce, err := provider.Begin(context.Background(), ports.BeginInput{})

	require.NoError(t, err)
	assert.NotEmpty(t, authURL)
	assert.NotEmpty(t, state)
	assert.NotEmpty(t, nonce)
	assert.NotEqual(t, state, nonce)
	assert.Contains(t, authURL, "client_id=test-client")
	assert.Contains(t, authURL, "state="+state)
	assert.Contains(t, authURL, "nonce="+nonce)
	assert.Contains(t, authURL, "prompt=select_account")
	assert.Contains(t, authURL, "access_type=offline")
}

func TestProvider_Begin_RedirectOverride(t *testing.T) {
	provider := newTestProvider(t)

	authURL, _, _, err := provider.Begin(context.Background(), ports.BeginInput{
		RedirectURL: "https://app.example.com/callback",
	})

	require.NoError(t, err)
	assert.Contains(t, authURL, "redirect_uri=https%3A%2F%2Fapp.example.com%2Fcallback")
}

func TestProvider_Begin_UniqueStatePerCall(t *testing.T) {
	provider := newTestProvider(t)

	_, state1, nonce1, err := provider.Begin(context.Background(), ports.BeginInput{})
	require.NoError(t, err)
	_, state2, nonce2, err := provider.Begin(context.Background(), ports.BeginInput{})
	require.NoError(t, err)

	assert.NotEqual(t, state1, state2)
	assert.NotEqual(t, nonce1, nonce2)
}

func TestProvider_Exchange_MissingCode(t *testing.T) {
	provider := newTestProvider(t)

	_, err := provider.Exchange(context.Background(), ports.ExchangeInput{State: "s", Nonce: "n"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "authorization code is required")
}

func TestProvider_Exchange_TokenEndpointError(t *testing.T) {
	provider := newTestProvider(t)

	// The discovery server has no token endpoint handler, so the code
	// exchange itself fails after validation passes.
	_, err := provider.Exchange(context.Background(), ports.ExchangeInput{
		Code:  "test-code",
		State: "test-state",
		Nonce: "test-nonce",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exchange code for token")
}

func TestVerifyIDToken_MissingIDToken(t *testing.T) {
	provider := newTestProvider(t)

	tok := (&oauth2.Token{}).WithExtra(map[string]any{"not_id": "x"})
	_, err := provider.verifyIDToken(context.Background(), tok, "nonce")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no id_token")
}

func TestGenerateRandomString(t *testing.T) {
	str1, err := generateRandomString(32)
	require.NoError(t, err)
	assert.Len(t, str1, 43) // base64url of 32 bytes, no padding

	str2, err := generateRandomString(32)
	require.NoError(t, err)
	assert.NotEqual(t, str1, str2)

	str3, err := generateRandomString(16)
	require.NoError(t, err)
	assert.Len(t, str3, 22)
}

func TestProvider_ImplementsInterface(t *testing.T) {
	provider := newTestProvider(t)
	var _ ports.FederatedProvider = provider
}
