package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Intuit OAuth endpoints. Unlike the API base these do not vary by
// environment.
const (
	authorizeURL = "https://appcenter.intuit.com/connect/oauth2"
	tokenURL     = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"
	revokeURL    = "https://developer.api.intuit.com/v2/oauth2/tokens/revoke"

	sandboxAPIBase    = "https://sandbox-quickbooks.api.intuit.com"
	productionAPIBase = "https://quickbooks.api.intuit.com"
)

// Scopes requested on every authorization.
var Scopes = []string{
	"com.intuit.quickbooks.accounting",
	"openid",
	"profile",
	"email",
}

type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Environment  string // "sandbox" or "production"

	// Endpoint overrides for tests; empty means the Intuit defaults.
	AuthorizeURL string
	TokenURL     string
	RevokeURL    string
}

func (c Config) APIBase() string {
	if c.Environment == "sandbox" {
		return sandboxAPIBase
	}
	return productionAPIBase
}

func (c Config) authorizeEndpoint() string {
	if c.AuthorizeURL != "" {
		return c.AuthorizeURL
	}
	return authorizeURL
}

func (c Config) tokenEndpoint() string {
	if c.TokenURL != "" {
		return c.TokenURL
	}
	return tokenURL
}

func (c Config) revokeEndpoint() string {
	if c.RevokeURL != "" {
		return c.RevokeURL
	}
	return revokeURL
}

func (c Config) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
		Scopes:       Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.authorizeEndpoint(),
			TokenURL:  c.tokenEndpoint(),
			AuthStyle: oauth2.AuthStyleInHeader,
		},
	}
}

// statePayload rides through the authorization redirect so the callback can
// recover tenant context without server-side session state.
type statePayload struct {
	CompanyID string `json:"company_id"`
	UserID    string `json:"user_id,omitempty"`
	Nonce     string `json:"nonce"`
}

// Manager owns the credential lifecycle: expiry checks, the refresh
// protocol, authorization begin/complete and disconnection. It holds no
// per-tenant state of its own, so it is safe to call concurrently for
// different tenants.
type Manager struct {
	cfg        Config
	store      CredentialStore
	httpClient *http.Client
	log        *zap.Logger
	now        func() time.Time
}

func NewManager(cfg Config, store CredentialStore, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		cfg:        cfg,
		store:      store,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
		now:        time.Now,
	}
}

// GetValidCredential returns a usable credential for the tenant, refreshing
// on demand. The common path (token not yet expired) makes no network call.
func (m *Manager) GetValidCredential(ctx context.Context, tenant string) (*Credential, error) {
	cred, err := m.store.Load(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("load credential for %s: %w", tenant, err)
	}
	if cred == nil || cred.AccessToken == "" {
		return nil, ErrNotAuthenticated
	}

	if !cred.Expired(m.now()) {
		return cred, nil
	}

	m.log.Info("access token expired, refreshing", zap.String("tenant", tenant))
	return m.refresh(ctx, tenant, cred)
}

// ForceRefresh refreshes regardless of the recorded expiry. Used by the
// gateway's retry-once path when the remote rejects a bearer the local
// clock still considered valid.
func (m *Manager) ForceRefresh(ctx context.Context, tenant string) (*Credential, error) {
	cred, err := m.store.Load(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("load credential for %s: %w", tenant, err)
	}
	if cred == nil || cred.RefreshToken == "" {
		return nil, ErrNotAuthenticated
	}
	return m.refresh(ctx, tenant, cred)
}

type tokenResponse struct {
	AccessToken          string `json:"access_token"`
	RefreshToken         string `json:"refresh_token"`
	ExpiresIn            int64  `json:"expires_in"`
	XRefreshTokenExpires int64  `json:"x_refresh_token_expires_in"`
	TokenType            string `json:"token_type"`
	Error                string `json:"error"`
}

// refresh runs the refresh-token grant. The stored record is only replaced
// after the full round trip succeeds; any failure leaves it untouched.
func (m *Manager) refresh(ctx context.Context, tenant string, cred *Credential) (*Credential, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", cred.RefreshToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.tokenEndpoint(), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build refresh request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	req.SetBasicAuth(m.cfg.ClientID, m.cfg.ClientSecret)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReauthenticationRequired, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReauthenticationRequired, err)
	}

	var tok tokenResponse
	if resp.StatusCode != http.StatusOK || json.Unmarshal(body, &tok) != nil || tok.AccessToken == "" {
		m.log.Warn("token refresh rejected",
			zap.String("tenant", tenant),
			zap.Int("status", resp.StatusCode))
		return nil, fmt.Errorf("%w: status %d", ErrReauthenticationRequired, resp.StatusCode)
	}

	fresh := &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		RealmID:      cred.RealmID,
		ExpiresAt:    m.now().Add(time.Duration(tok.ExpiresIn) * time.Second),
		UserID:       cred.UserID,
	}

	if err := m.store.Save(ctx, tenant, fresh); err != nil {
		return nil, fmt.Errorf("persist refreshed credential for %s: %w", tenant, err)
	}

	m.log.Info("token refreshed", zap.String("tenant", tenant), zap.Time("expires_at", fresh.ExpiresAt))
	return fresh, nil
}

// AuthorizationURL builds the redirect URL that starts the OAuth flow,
// carrying tenant and user context in the opaque state payload. Pure: no
// I/O, no side effects.
func (m *Manager) AuthorizationURL(tenant, userID string) (string, error) {
	if tenant == "" {
		return "", fmt.Errorf("tenant is required")
	}

	state, err := encodeState(statePayload{
		CompanyID: tenant,
		UserID:    userID,
		Nonce:     uuid.NewString(),
	})
	if err != nil {
		return "", err
	}

	return m.cfg.oauth2Config().AuthCodeURL(state), nil
}

// CompleteAuthorization exchanges the callback's authorization code for
// tokens and persists the resulting credential. Tenant context is recovered
// from state, falling back to query parameters; if neither yields a tenant
// the callback hard-fails, since a credential without a tenant key is
// unusable.
func (m *Manager) CompleteAuthorization(ctx context.Context, callbackURL string) (string, *Credential, error) {
	u, err := url.Parse(callbackURL)
	if err != nil {
		return "", nil, &CallbackError{Reason: "malformed callback url", Err: err}
	}
	q := u.Query()

	if errParam := q.Get("error"); errParam != "" {
		return "", nil, &CallbackError{Reason: "authorization denied: " + errParam}
	}

	code := q.Get("code")
	if code == "" {
		return "", nil, &CallbackError{Reason: "missing authorization code"}
	}
	realmID := q.Get("realmId")

	tenant, userID := "", ""
	if payload, err := decodeState(q.Get("state")); err == nil {
		tenant = payload.CompanyID
		userID = payload.UserID
	} else {
		m.log.Warn("state payload did not round-trip, falling back to query params", zap.Error(err))
	}
	if tenant == "" {
		tenant = q.Get("company_id")
		userID = q.Get("user_id")
	}
	if tenant == "" {
		return "", nil, &CallbackError{Reason: "missing tenant"}
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	tok, err := m.cfg.oauth2Config().Exchange(ctx, code)
	if err != nil {
		return "", nil, &CallbackError{Reason: "code exchange failed", Err: err}
	}

	cred := &Credential{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		RealmID:      realmID,
		ExpiresAt:    tok.Expiry,
		UserID:       userID,
	}
	if err := m.store.Save(ctx, tenant, cred); err != nil {
		return "", nil, fmt.Errorf("persist credential for %s: %w", tenant, err)
	}

	m.log.Info("authorization completed",
		zap.String("tenant", tenant),
		zap.String("realm_id", realmID))
	return tenant, cred, nil
}

// Revoke disconnects the tenant: best-effort remote revocation of the
// refresh token, then unconditional deletion of the local record. Remote
// failure is logged, not fatal: local cleanup must happen regardless,
// otherwise the tenant stays "connected" with dead credentials.
func (m *Manager) Revoke(ctx context.Context, tenant string) error {
	cred, err := m.store.Load(ctx, tenant)
	if err != nil {
		return fmt.Errorf("load credential for %s: %w", tenant, err)
	}

	if cred != nil && cred.RefreshToken != "" {
		if err := m.revokeRemote(ctx, cred.RefreshToken); err != nil {
			m.log.Warn("remote token revocation failed",
				zap.String("tenant", tenant),
				zap.Error(err))
		}
	}

	if err := m.store.Delete(ctx, tenant); err != nil {
		return fmt.Errorf("delete credential for %s: %w", tenant, err)
	}

	m.log.Info("tenant disconnected", zap.String("tenant", tenant))
	return nil
}

func (m *Manager) revokeRemote(ctx context.Context, refreshToken string) error {
	body, err := json.Marshal(map[string]string{"token": refreshToken})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.revokeEndpoint(), strings.NewReader(string(body)))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(m.cfg.ClientID, m.cfg.ClientSecret)

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("revocation rejected with status %d", resp.StatusCode)
	}
	return nil
}

// Connected reports whether the tenant has a stored credential and when it
// expires. No refresh is attempted.
func (m *Manager) Connected(ctx context.Context, tenant string) (bool, *Credential, error) {
	cred, err := m.store.Load(ctx, tenant)
	if err != nil {
		return false, nil, err
	}
	if cred == nil || cred.AccessToken == "" {
		return false, nil, nil
	}
	return true, cred, nil
}

func encodeState(p statePayload) (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("encode state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func decodeState(s string) (*statePayload, error) {
	if s == "" {
		return nil, fmt.Errorf("empty state")
	}

	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		// some intermediaries re-encode state as plain JSON
		data = []byte(s)
	}

	var p statePayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode state: %w", err)
	}
	return &p, nil
}
