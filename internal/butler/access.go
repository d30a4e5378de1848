package butler

import (
	"fmt"
	"strings"
	"time"

	"ripple/internal/config"
	"ripple/internal/services"
)

const defaultFetchTimeout = 30 * time.Second

// AccessConfig holds everything needed to reach the remote Butler service.
// It is immutable after construction and safe to share across pipeline
// workers. Credential resolution happens here, once, so a token problem
// surfaces before any fetch is attempted.
type AccessConfig struct {
	ServerURL   string
	Token       string
	TokenOrigin string
	Collections []string
	Instrument  string
	Timeout     time.Duration
}

// NewAccessConfig resolves credentials and freezes the access parameters.
// The token is taken from the first non-empty source: the explicit config
// value, the configured token file, then the RSP_ACCESS_TOKEN environment
// variable.
func NewAccessConfig(data config.Data, fetch config.Fetch) (*AccessConfig, error) {
	if data.AuthMethod != "token" {
		return nil, services.Wrap(services.ErrConfiguration, "butler", "access",
			fmt.Sprintf("auth_method %q is not served by the remote client", data.AuthMethod), nil)
	}

	token, origin, err := ResolveToken(
		StaticToken(data.Token),
		FileToken(data.TokenFile),
		EnvToken(config.EnvAccessToken),
	)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "butler", "access", "resolve credentials", err)
	}
	if token == "" {
		return nil, services.Wrap(services.ErrConfiguration, "butler", "access",
			fmt.Sprintf("no access token available (set data.token, data.token_file, or %s)", config.EnvAccessToken), nil)
	}

	serverURL := strings.TrimRight(strings.TrimSpace(data.ServerURL), "/")
	if serverURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "butler", "access", "server_url is empty", nil)
	}

	timeout := defaultFetchTimeout
	if fetch.TimeoutSeconds > 0 {
		timeout = time.Duration(fetch.TimeoutSeconds) * time.Second
	}

	collections := make([]string, len(data.Collections))
	copy(collections, data.Collections)

	return &AccessConfig{
		ServerURL:   serverURL,
		Token:       token,
		TokenOrigin: origin,
		Collections: collections,
		Instrument:  strings.TrimSpace(data.Instrument),
		Timeout:     timeout,
	}, nil
}
