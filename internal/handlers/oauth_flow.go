package handlers

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	log "github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	"airjump/internal/security"
)

const (
	oauthCookieTTL = 10 * time.Minute
	appleIssuer    = "https://appleid.apple.com"
)

// appleKeysURL serves Apple's id_token signing keys as a JWK set
var appleKeysURL = "https://appleid.apple.com/auth/keys"

// OAuthProvider defines provider configuration and metadata
type OAuthProvider struct {
	Name        string
	Label       string
	Config      *oauth2.Config
	UserInfoURL string
	AuthParams  map[string]string
}

func (p OAuthProvider) configured() bool {
	return p.Config != nil && p.Config.ClientID != "" && p.Config.ClientSecret != ""
}

type oauthUserInfo struct {
	Subject string
	Email   string
	Name    string
}

// OAuthProviders lists the providers the apps can offer as sign-in buttons
func (h *AuthHandler) OAuthProviders(w http.ResponseWriter, r *http.Request) {
	type providerView struct {
		Name     string `json:"name"`
		Label    string `json:"label"`
		StartURL string `json:"start_url"`
	}

	views := []providerView{}
	for key, provider := range h.oauthProviders {
		if !provider.configured() {
			continue
		}
		views = append(views, providerView{Name: key, Label: provider.Label, StartURL: "/auth/" + key + "/start"})
	}
	slices.SortFunc(views, func(a, b providerView) int { return strings.Compare(a.Name, b.Name) })
	respondJSON(w, http.StatusOK, views)
}

// StartOAuth initiates the OAuth flow for a provider
func (h *AuthHandler) StartOAuth(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		respondWithError(w, http.StatusNotFound, "OAuth provider not configured", "", nil)
		return
	}

	state := security.GenerateSessionID()
	nonce := security.GenerateSessionID()

	setTempCookie(w, r, "oauth_state", state)
	setTempCookie(w, r, "oauth_provider", providerKey)
	setTempCookie(w, r, "oauth_nonce", nonce)

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	options := []oauth2.AuthCodeOption{oauth2.AccessTypeOnline}
	for key, value := range provider.AuthParams {
		options = append(options, oauth2.SetAuthURLParam(key, value))
	}
	if providerKey == "apple" {
		options = append(options, oauth2.SetAuthURLParam("nonce", nonce))
	}

	http.Redirect(w, r, config.AuthCodeURL(state, options...), http.StatusFound)
}

// OAuthCallback finishes the flow, signs the user in and sends the browser back to the app
func (h *AuthHandler) OAuthCallback(w http.ResponseWriter, r *http.Request) {
	providerKey := r.PathValue("provider")
	provider, ok := h.oauthProviders[providerKey]
	if !ok || !provider.configured() {
		respondWithError(w, http.StatusNotFound, "OAuth provider not configured", "", nil)
		return
	}

	if providerErr := r.URL.Query().Get("error"); providerErr != "" {
		h.oauthFailed(w, r, "Sign in was cancelled", fmt.Errorf("provider returned %s", providerErr))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.oauthFailed(w, r, "Missing authorization code", nil)
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		h.oauthFailed(w, r, "Invalid OAuth state", nil)
		return
	}
	if providerCookie, err := r.Cookie("oauth_provider"); err == nil && providerCookie.Value != providerKey {
		h.oauthFailed(w, r, "OAuth provider mismatch", nil)
		return
	}
	nonce := ""
	if cookie, err := r.Cookie("oauth_nonce"); err == nil {
		nonce = cookie.Value
	}

	clearTempCookie(w, r, "oauth_state")
	clearTempCookie(w, r, "oauth_provider")
	clearTempCookie(w, r, "oauth_nonce")

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	config := *provider.Config
	config.RedirectURL = h.oauthRedirectURL(r, providerKey)

	token, err := config.Exchange(ctx, code)
	if err != nil {
		h.oauthFailed(w, r, "Failed to exchange OAuth code", err)
		return
	}

	var info oauthUserInfo
	switch providerKey {
	case "google":
		info, err = fetchGoogleUser(ctx, provider, token)
	case "apple":
		info, err = fetchAppleUser(ctx, provider, token, nonce)
	default:
		err = errors.New("unsupported OAuth provider")
	}
	if err != nil {
		h.oauthFailed(w, r, "Could not read your account details", err)
		return
	}

	session, user, err := h.authService.OAuthLogin(providerKey, info.Subject, info.Email, info.Name)
	if err != nil {
		h.oauthFailed(w, r, err.Error(), err)
		return
	}

	log.WithFields(log.Fields{"provider": providerKey, "user_id": user.ID}).Info("OAuth sign in")
	http.SetCookie(w, security.CreateSessionCookie(r, session.ID, session.ExpiresAt))
	http.Redirect(w, r, h.appURL("/"), http.StatusSeeOther)
}

// oauthFailed sends the browser back to the app's login screen with a readable reason
func (h *AuthHandler) oauthFailed(w http.ResponseWriter, r *http.Request, message string, err error) {
	if err != nil {
		log.Warnf("OAuth callback failed: %s: %v", message, err)
	}
	http.Redirect(w, r, h.appURL("/login?"+url.Values{"error": {message}}.Encode()), http.StatusSeeOther)
}

func (h *AuthHandler) appURL(path string) string {
	return strings.TrimRight(h.appBaseURL, "/") + path
}

func fetchGoogleUser(ctx context.Context, provider OAuthProvider, token *oauth2.Token) (oauthUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
	resp, err := client.Get(provider.UserInfoURL)
	if err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch Google user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return oauthUserInfo{}, fmt.Errorf("failed to fetch Google user info: status %d", resp.StatusCode)
	}

	var payload struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return oauthUserInfo{}, fmt.Errorf("failed to parse Google user info: %w", err)
	}

	return oauthUserInfo{Subject: payload.ID, Email: payload.Email, Name: payload.Name}, nil
}

func fetchAppleUser(ctx context.Context, provider OAuthProvider, token *oauth2.Token, nonce string) (oauthUserInfo, error) {
	idToken, _ := token.Extra("id_token").(string)
	if idToken == "" {
		return oauthUserInfo{}, errors.New("missing Apple id_token")
	}

	claims, err := parseAppleIDToken(ctx, idToken, provider.Config.ClientID, nonce, fetchApplePublicKey)
	if err != nil {
		return oauthUserInfo{}, err
	}
	// Apple only shares the name on the first consent; the account falls back to the email local part
	return oauthUserInfo{Subject: claims.Subject, Email: claims.Email}, nil
}

func (h *AuthHandler) oauthRedirectURL(r *http.Request, providerKey string) string {
	baseURL := strings.TrimSpace(h.oauthRedirectBaseURL)
	if baseURL == "" {
		scheme := "http"
		if security.IsSecureRequest(r) {
			scheme = "https"
		}
		baseURL = fmt.Sprintf("%s://%s", scheme, r.Host)
	}
	return fmt.Sprintf("%s/auth/%s/callback", strings.TrimRight(baseURL, "/"), providerKey)
}

func setTempCookie(w http.ResponseWriter, r *http.Request, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   security.IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(oauthCookieTTL),
		MaxAge:   int(oauthCookieTTL.Seconds()),
	})
}

func clearTempCookie(w http.ResponseWriter, r *http.Request, name string) {
	http.SetCookie(w, security.CreateDeleteCookie(r, name))
}

type appleTokenClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Nonce string `json:"nonce"`
}

type appleJWK struct {
	Keys []appleJWKKey `json:"keys"`
}

type appleJWKKey struct {
	Kid string `json:"kid"`
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// appleKeyFunc resolves the RSA key for a key id
type appleKeyFunc func(ctx context.Context, kid string) (*rsa.PublicKey, error)

func parseAppleIDToken(ctx context.Context, idToken, clientID, nonce string, keys appleKeyFunc) (*appleTokenClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithIssuer(appleIssuer),
		jwt.WithAudience(clientID),
		jwt.WithExpirationRequired(),
	)
	claims := &appleTokenClaims{}

	_, err := parser.ParseWithClaims(idToken, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing key id")
		}
		return keys(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid Apple token: %w", err)
	}

	if nonce != "" && claims.Nonce != nonce {
		return nil, errors.New("invalid Apple nonce")
	}
	if claims.Email == "" {
		return nil, errors.New("Apple email not available")
	}
	return claims, nil
}

func fetchApplePublicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, appleKeysURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(request)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch Apple public keys: status %d", resp.StatusCode)
	}

	var jwk appleJWK
	if err := json.NewDecoder(resp.Body).Decode(&jwk); err != nil {
		return nil, err
	}

	for _, key := range jwk.Keys {
		if key.Kid != kid {
			continue
		}
		if key.Kty != "RSA" {
			return nil, errors.New("unexpected key type")
		}
		return rsaKeyFromJWK(key)
	}

	return nil, errors.New("Apple public key not found")
}

func rsaKeyFromJWK(key appleJWKKey) (*rsa.PublicKey, error) {
	modulusBytes, err := base64.RawURLEncoding.DecodeString(key.N)
	if err != nil {
		return nil, err
	}
	exponentBytes, err := base64.RawURLEncoding.DecodeString(key.E)
	if err != nil {
		return nil, err
	}
	exponent := 0
	for _, b := range exponentBytes {
		exponent = exponent*256 + int(b)
	}
	return &rsa.PublicKey{
		N: new(big.Int).SetBytes(modulusBytes),
		E: exponent,
	}, nil
}
