package httpclient

import (
	"encoding/base64"
	"net/http"
	"net/url"

	"github.com/kbukum/streamkit/validation"
)

// AuthScheme names how a stream connection is authenticated.
type AuthScheme string

const (
	// AuthNone sends no credentials.
	AuthNone AuthScheme = ""
	// AuthBearer sends "Authorization: Bearer <token>".
	AuthBearer AuthScheme = "bearer"
	// AuthBasic sends HTTP Basic credentials.
	AuthBasic AuthScheme = "basic"
	// AuthAPIKey sends a key in a header or, with KeyParam, in the query.
	AuthAPIKey AuthScheme = "api_key"
	// AuthCustom hands the header and query to Custom.
	AuthCustom AuthScheme = "custom"
)

const defaultKeyHeader = "X-API-Key"

// AuthConfig holds the credentials of a stream connection.
//
// Credentials only touch the header and the query string. Sign is the one
// signing path for NDJSON and SSE requests and for the WebSocket upgrade.
type AuthConfig struct {
	Scheme AuthScheme

	// Token is the bearer token.
	Token string

	Username string
	Password string

	// Key is the API key. It goes in KeyHeader (default "X-API-Key"), or in
	// the KeyParam query parameter when that is set.
	Key       string
	KeyHeader string
	KeyParam  string

	// Custom edits the outgoing header and query for AuthCustom.
	Custom func(header http.Header, query url.Values)
}

// BearerAuth authenticates with a bearer token.
func BearerAuth(token string) *AuthConfig {
	return &AuthConfig{Scheme: AuthBearer, Token: token}
}

// BasicAuth authenticates with a username and password.
func BasicAuth(username, password string) *AuthConfig {
	return &AuthConfig{Scheme: AuthBasic, Username: username, Password: password}
}

// APIKeyAuth sends key in the X-API-Key header.
func APIKeyAuth(key string) *AuthConfig {
	return &AuthConfig{Scheme: AuthAPIKey, Key: key}
}

// APIKeyHeaderAuth sends key in the named header.
func APIKeyHeaderAuth(key, header string) *AuthConfig {
	return &AuthConfig{Scheme: AuthAPIKey, Key: key, KeyHeader: header}
}

// APIKeyQueryAuth sends key as the named query parameter.
func APIKeyQueryAuth(key, param string) *AuthConfig {
	return &AuthConfig{Scheme: AuthAPIKey, Key: key, KeyParam: param}
}

// CustomAuth hands the outgoing header and query to fn, for signed URLs and
// other schemes the built-in ones do not cover.
func CustomAuth(fn func(header http.Header, query url.Values)) *AuthConfig {
	return &AuthConfig{Scheme: AuthCustom, Custom: fn}
}

// Validate reports missing credentials for the configured scheme.
func (a *AuthConfig) Validate() error {
	if a == nil {
		return nil
	}
	v := validation.New()
	v.OneOf("auth.scheme", string(a.Scheme),
		string(AuthNone), string(AuthBearer), string(AuthBasic), string(AuthAPIKey), string(AuthCustom))
	switch a.Scheme {
	case AuthBearer:
		v.Required("auth.token", a.Token)
	case AuthBasic:
		v.Required("auth.username", a.Username)
	case AuthAPIKey:
		v.Required("auth.key", a.Key)
	case AuthCustom:
		v.Check(a.Custom != nil, "auth.custom", "is required")
	}
	return v.Err()
}

// Sign adds the credentials to header and to the query of u. A nil config
// is a no-op. u.RawQuery is re-encoded only when the query changes.
func (a *AuthConfig) Sign(header http.Header, u *url.URL) {
	if a == nil {
		return
	}
	switch a.Scheme {
	case AuthBearer:
		header.Set("Authorization", "Bearer "+a.Token)
	case AuthBasic:
		raw := a.Username + ":" + a.Password
		header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(raw)))
	case AuthAPIKey:
		if a.KeyParam != "" {
			q := u.Query()
			q.Set(a.KeyParam, a.Key)
			u.RawQuery = q.Encode()
			return
		}
		name := a.KeyHeader
		if name == "" {
			name = defaultKeyHeader
		}
		header.Set(name, a.Key)
	case AuthCustom:
		if a.Custom == nil {
			return
		}
		q := u.Query()
		before := q.Encode()
		a.Custom(header, q)
		if after := q.Encode(); after != before {
			u.RawQuery = after
		}
	}
}

// Apply signs req. It is Sign on the request's header and URL.
func (a *AuthConfig) Apply(req *http.Request) {
	a.Sign(req.Header, req.URL)
}
