package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc"
	"golang.org/x/oauth2"

	"blogflow/backend/internal/config"
	"blogflow/backend/internal/logging"
)

// DevEditor is the identity used when authentication is bypassed.
const DevEditor = "dev@localhost"

type editorKey struct{}

// WithEditor returns a context carrying the authenticated editor's email.
func WithEditor(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, editorKey{}, email)
}

// EditorFromContext returns the editor set by RequireAuth, or "" outside an
// authenticated request.
func EditorFromContext(ctx context.Context) string {
	email, _ := ctx.Value(editorKey{}).(string)
	return email
}

// Auth contains configuration and helpers for performing OpenID Connect
// authentication with an Okta tenant.
type Auth struct {
	oauth2Config   *oauth2.Config
	verifier       *oidc.IDTokenVerifier
	apiVerifier    *oidc.IDTokenVerifier
	allowedDomains map[string]bool
	logger         *logging.Logger
	devMode        bool
	authBypass     bool
}

// New creates a new Auth object using values from the application
// configuration. It establishes a connection to the provider and prepares an
// ID token verifier.
func New(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*Auth, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	isDev := cfg.IsDev()
	shouldBypass := isDev && cfg.DevModeBypass

	a := &Auth{
		allowedDomains: make(map[string]bool, len(cfg.Auth.AllowedDomains)),
		logger:         logger,
		devMode:        isDev,
		authBypass:     shouldBypass,
	}
	for _, d := range cfg.Auth.AllowedDomains {
		a.allowedDomains[strings.ToLower(strings.TrimSpace(d))] = true
	}
	if shouldBypass {
		logger.Warn("authentication bypassed", "editor", DevEditor)
		return a, nil
	}

	if cfg.Auth.OktaDomain == "" || cfg.Auth.ClientID == "" ||
		cfg.Auth.ClientSecret == "" || cfg.Auth.RedirectURL == "" {
		return nil, errors.New("auth configuration is incomplete")
	}

	provider, err := oidc.NewProvider(ctx, cfg.Auth.OktaDomain)
	if err != nil {
		return nil, err
	}

	a.oauth2Config = &oauth2.Config{
		ClientID:     cfg.Auth.ClientID,
		ClientSecret: cfg.Auth.ClientSecret,
		Endpoint:     provider.Endpoint(),
		RedirectURL:  cfg.Auth.RedirectURL,
		Scopes:       []string{ScopeOpenID, ScopeProfile, ScopeEmail},
	}
	a.verifier = provider.Verifier(&oidc.Config{ClientID: cfg.Auth.ClientID})
	// Access tokens carry the authorization server audience, not the client id.
	a.apiVerifier = provider.Verifier(&oidc.Config{SkipClientIDCheck: true})
	return a, nil
}

// LoginHandler initiates the OAuth2 authorization code flow by redirecting the
// user to the Okta authorization endpoint. A random state value is stored in a
// cookie to mitigate CSRF attacks.
func (a *Auth) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if a.authBypass {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	state, err := generateState()
	if err != nil {
		http.Error(w, "failed to generate state", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "oauthstate",
		Value:    state,
		HttpOnly: true,
		Secure:   !a.devMode,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})

	http.Redirect(w, r, a.oauth2Config.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// CallbackHandler handles the redirect back from Okta. It verifies the state
// parameter, exchanges the code for tokens, validates the ID token, and sets a
// session cookie containing the raw ID token.
func (a *Auth) CallbackHandler(w http.ResponseWriter, r *http.Request) {
	if a.authBypass {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	cookie, err := r.Cookie("oauthstate")
	if err != nil || r.URL.Query().Get("state") != cookie.Value {
		http.Error(w, "invalid state", http.StatusBadRequest)
		return
	}

	token, err := a.oauth2Config.Exchange(r.Context(), r.URL.Query().Get("code"))
	if err != nil {
		a.logger.Error("token exchange failed", "error", err)
		http.Error(w, "token exchange failed", http.StatusInternalServerError)
		return
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		http.Error(w, "no id_token in token response", http.StatusInternalServerError)
		return
	}

	idToken, err := a.verifier.Verify(r.Context(), rawIDToken)
	if err != nil {
		http.Error(w, "failed to verify id token", http.StatusUnauthorized)
		return
	}
	email, err := emailClaim(idToken)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}
	if !a.domainAllowed(email) {
		http.Error(w, "editor domain not allowed", http.StatusForbidden)
		return
	}
	a.logger.Info("editor signed in", "editor", email)

	http.SetCookie(w, &http.Cookie{
		Name:     "id_token",
		Value:    rawIDToken,
		HttpOnly: true,
		Secure:   !a.devMode,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RequireAuth is middleware that resolves the editor from a bearer token or
// the session cookie and stores it in the request context. Browsers without a
// session are redirected to the login page.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if a.authBypass {
			next.ServeHTTP(w, r.WithContext(WithEditor(r.Context(), DevEditor)))
			return
		}

		var (
			token *oidc.IDToken
			err   error
		)
		if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
			token, err = a.apiVerifier.Verify(r.Context(), strings.TrimPrefix(authHeader, "Bearer "))
		} else {
			cookie, cookieErr := r.Cookie("id_token")
			if cookieErr != nil {
				http.Redirect(w, r, "/login", http.StatusSeeOther)
				return
			}
			token, err = a.verifier.Verify(r.Context(), cookie.Value)
		}
		if err != nil {
			http.Error(w, "invalid token: "+err.Error(), http.StatusUnauthorized)
			return
		}

		email, err := emailClaim(token)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}
		if !a.domainAllowed(email) {
			a.logger.Warn("editor domain rejected", "editor", email)
			http.Error(w, "editor domain not allowed", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithEditor(r.Context(), email)))
	})
}

// LogoutHandler clears the session cookie and redirects to the home page.
func (a *Auth) LogoutHandler(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:   "id_token",
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func emailClaim(token *oidc.IDToken) (string, error) {
	var claims struct {
		Email string `json:"email"`
	}
	if err := token.Claims(&claims); err != nil {
		return "", errors.New("failed to parse token claims")
	}
	if _, domain, ok := strings.Cut(claims.Email, "@"); !ok || domain == "" {
		return "", errors.New("invalid email format in token")
	}
	return claims.Email, nil
}

// domainAllowed reports whether the editor's email domain is permitted. An
// empty allow list admits every domain.
func (a *Auth) domainAllowed(email string) bool {
	if len(a.allowedDomains) == 0 {
		return true
	}
	_, domain, _ := strings.Cut(email, "@")
	return a.allowedDomains[strings.ToLower(domain)]
}

func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
