package salesforce

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"violet-sync/pkg/httpclient"
)

const apiVersion = "v59.0"

// Credentials is an access token plus the instance it is valid for.
type Credentials struct {
	AccessToken string
	InstanceURL string
}

// Config holds everything the resolver needs to try its four auth modes.
type Config struct {
	// Mode 1: pre-existing token.
	AccessToken string
	InstanceURL string

	// Mode 2: Replit connector.
	ConnectorsHostname string
	ReplIdentity       string
	WebReplRenewal     string

	// Modes 3 and 4: OAuth.
	ClientID      string
	ClientSecret  string
	RefreshToken  string
	Username      string
	Password      string
	SecurityToken string
	LoginURL      string

	RequestTimeout time.Duration
	TokenCacheTTL  time.Duration
}

// Resolver obtains Salesforce credentials, trying auth modes in priority
// order, and caches the result for TokenCacheTTL. Safe for concurrent use.
type Resolver struct {
	cfg  Config
	http *httpclient.Client

	mu        sync.Mutex
	cached    *Credentials
	fetchedAt time.Time
	now       func() time.Time
}

func NewResolver(cfg Config) *Resolver {
	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.TokenCacheTTL == 0 {
		cfg.TokenCacheTTL = 30 * time.Minute
	}
	if cfg.LoginURL == "" {
		cfg.LoginURL = "https://login.salesforce.com"
	}
	return &Resolver{
		cfg:  cfg,
		http: httpclient.New(cfg.RequestTimeout),
		now:  time.Now,
	}
}

// Resolve returns cached credentials when fresh, otherwise walks the auth
// modes:
//
//  1. Token mode (AccessToken + InstanceURL), no network call.
//  2. Replit connector, probe-validated; falls through on any failure.
//  3. Refresh token; must succeed once configured.
//  4. Username-password; must succeed once configured.
func (r *Resolver) Resolve(ctx context.Context) (Credentials, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cached != nil && r.now().Sub(r.fetchedAt) < r.cfg.TokenCacheTTL {
		return *r.cached, nil
	}

	// Mode 1: pre-existing token.
	if r.cfg.AccessToken != "" && r.cfg.InstanceURL != "" {
		return r.cache(Credentials{AccessToken: r.cfg.AccessToken, InstanceURL: r.cfg.InstanceURL}), nil
	}

	// Mode 2: Replit connector.
	if creds, ok := r.tryConnector(ctx); ok {
		log.Printf("[SFAuth] Authenticated via connector: %s", creds.InstanceURL)
		return r.cache(creds), nil
	}

	// Mode 3: refresh token.
	if r.cfg.RefreshToken != "" && r.cfg.ClientID != "" {
		creds, err := r.refreshTokenAuth(ctx)
		if err != nil {
			return Credentials{}, err
		}
		log.Printf("[SFAuth] Authenticated via refresh token: %s", creds.InstanceURL)
		return r.cache(creds), nil
	}

	// Mode 4: username-password.
	if r.cfg.ClientID != "" && r.cfg.Username != "" {
		creds, err := r.passwordAuth(ctx)
		if err != nil {
			return Credentials{}, err
		}
		log.Printf("[SFAuth] Authenticated via username-password: %s", creds.InstanceURL)
		return r.cache(creds), nil
	}

	return Credentials{}, &AuthError{Reason: "no credentials configured; set one of: " +
		"SF_ACCESS_TOKEN + SF_INSTANCE_URL (token mode), " +
		"REPLIT_CONNECTORS_HOSTNAME (connector mode), " +
		"SF_CLIENT_ID + SF_CLIENT_SECRET + SF_REFRESH_TOKEN (refresh token), " +
		"SF_CLIENT_ID + SF_CLIENT_SECRET + SF_USERNAME + SF_PASSWORD + SF_SECURITY_TOKEN (direct OAuth)"}
}

// Invalidate drops the cached credentials so the next Resolve re-runs the
// full mode chain. Called after a 401 from the API.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cached = nil
	r.fetchedAt = time.Time{}
}

// cache stores creds under the already-held lock.
func (r *Resolver) cache(creds Credentials) Credentials {
	r.cached = &creds
	r.fetchedAt = r.now()
	return creds
}

// tryConnector fetches credentials from the Replit connector API and
// validates them with a probe request. Any failure logs and reports not-ok so
// the caller falls through to the next mode.
func (r *Resolver) tryConnector(ctx context.Context) (Credentials, bool) {
	var identity string
	switch {
	case r.cfg.ReplIdentity != "":
		identity = "repl " + r.cfg.ReplIdentity
	case r.cfg.WebReplRenewal != "":
		identity = "depl " + r.cfg.WebReplRenewal
	default:
		return Credentials{}, false
	}
	if r.cfg.ConnectorsHostname == "" {
		return Credentials{}, false
	}

	base := r.cfg.ConnectorsHostname
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}

	resp, err := r.http.Get(ctx, base+"/api/v2/connection?include_secrets=true&connector_names=salesforce", map[string]string{
		"Accept":         "application/json",
		"X-Replit-Token": identity,
	})
	if err != nil {
		log.Printf("[SFAuth] Connector auth failed (%v), falling back to OAuth", err)
		return Credentials{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[SFAuth] Connector auth failed (HTTP %d), falling back to OAuth", resp.StatusCode)
		return Credentials{}, false
	}

	var payload struct {
		Items []struct {
			Settings struct {
				AccessToken string `json:"access_token"`
				InstanceURL string `json:"instance_url"`
				OAuth       struct {
					Credentials struct {
						AccessToken string `json:"access_token"`
					} `json:"credentials"`
				} `json:"oauth"`
			} `json:"settings"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil || len(payload.Items) == 0 {
		log.Printf("[SFAuth] Connector returned no usable connection, falling back to OAuth")
		return Credentials{}, false
	}

	settings := payload.Items[0].Settings
	token := settings.AccessToken
	if token == "" {
		token = settings.OAuth.Credentials.AccessToken
	}
	if token == "" || settings.InstanceURL == "" {
		log.Printf("[SFAuth] Connector returned no usable connection, falling back to OAuth")
		return Credentials{}, false
	}

	// Lightweight probe: the connector can hand back an expired token.
	probe, err := r.http.Get(ctx, settings.InstanceURL+"/services/data/"+apiVersion+"/limits", map[string]string{
		"Authorization": "Bearer " + token,
	})
	if err != nil {
		log.Printf("[SFAuth] Connector probe failed (%v), falling back to OAuth", err)
		return Credentials{}, false
	}
	probe.Body.Close()
	if probe.StatusCode != http.StatusOK {
		log.Printf("[SFAuth] Connector token invalid, falling back to OAuth")
		return Credentials{}, false
	}

	return Credentials{AccessToken: token, InstanceURL: settings.InstanceURL}, true
}

func (r *Resolver) refreshTokenAuth(ctx context.Context) (Credentials, error) {
	if r.cfg.ClientID == "" || r.cfg.ClientSecret == "" || r.cfg.RefreshToken == "" {
		return Credentials{}, &AuthError{Reason: "refresh token mode requires SF_CLIENT_ID, SF_CLIENT_SECRET, SF_REFRESH_TOKEN"}
	}
	return r.tokenRequest(ctx, url.Values{
		"grant_type":    {"refresh_token"},
		"refresh_token": {r.cfg.RefreshToken},
		"client_id":     {r.cfg.ClientID},
		"client_secret": {r.cfg.ClientSecret},
	}, "refresh token auth")
}

func (r *Resolver) passwordAuth(ctx context.Context) (Credentials, error) {
	if r.cfg.ClientID == "" || r.cfg.ClientSecret == "" || r.cfg.Username == "" {
		return Credentials{}, &AuthError{Reason: "direct OAuth requires SF_CLIENT_ID, SF_CLIENT_SECRET, SF_USERNAME, SF_PASSWORD, SF_SECURITY_TOKEN"}
	}
	return r.tokenRequest(ctx, url.Values{
		"grant_type":    {"password"},
		"client_id":     {r.cfg.ClientID},
		"client_secret": {r.cfg.ClientSecret},
		"username":      {r.cfg.Username},
		"password":      {r.cfg.Password + r.cfg.SecurityToken},
	}, "OAuth")
}

func (r *Resolver) tokenRequest(ctx context.Context, form url.Values, mode string) (Credentials, error) {
	resp, err := r.http.PostForm(ctx, r.cfg.LoginURL+"/services/oauth2/token", form)
	if err != nil {
		return Credentials{}, &AuthError{Reason: fmt.Sprintf("%s request failed: %v", mode, err)}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode != http.StatusOK {
		return Credentials{}, &AuthError{Reason: fmt.Sprintf("%s failed (%d): %s", mode, resp.StatusCode, body)}
	}

	var data struct {
		AccessToken string `json:"access_token"`
		InstanceURL string `json:"instance_url"`
	}
	if err := json.Unmarshal(body, &data); err != nil {
		return Credentials{}, &AuthError{Reason: fmt.Sprintf("%s returned invalid JSON: %v", mode, err)}
	}
	return Credentials{AccessToken: data.AccessToken, InstanceURL: data.InstanceURL}, nil
}
