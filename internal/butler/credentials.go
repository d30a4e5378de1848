package butler

import (
	"fmt"
	"os"
	"strings"

	"ripple/internal/config"
)

// CredentialSource yields an access token. Resolve returns an empty token
// when the source has nothing to offer; an error means the source exists but
// is unusable (for example an unreadable token file).
type CredentialSource interface {
	Name() string
	Resolve() (string, error)
}

type staticToken struct {
	token string
}

// StaticToken returns a source backed by an explicit token value.
func StaticToken(token string) CredentialSource {
	return staticToken{token: strings.TrimSpace(token)}
}

func (s staticToken) Name() string { return "config" }

func (s staticToken) Resolve() (string, error) {
	return s.token, nil
}

type envToken struct {
	variable string
}

// EnvToken returns a source backed by an environment variable.
func EnvToken(variable string) CredentialSource {
	return envToken{variable: variable}
}

func (e envToken) Name() string { return "env " + e.variable }

func (e envToken) Resolve() (string, error) {
	return strings.TrimSpace(os.Getenv(e.variable)), nil
}

type fileToken struct {
	path string
}

// FileToken returns a source that reads the token from a file. The file must
// be readable when non-empty; a missing path means the source is skipped.
func FileToken(path string) CredentialSource {
	return fileToken{path: strings.TrimSpace(path)}
}

func (f fileToken) Name() string { return "file " + f.path }

func (f fileToken) Resolve() (string, error) {
	if f.path == "" {
		return "", nil
	}
	expanded, err := config.ExpandPath(f.path)
	if err != nil {
		return "", fmt.Errorf("resolve token file path: %w", err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return "", fmt.Errorf("read token file %s: %w", expanded, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// ResolveToken walks the sources in order and returns the first non-empty
// token together with the name of the source that supplied it.
func ResolveToken(sources ...CredentialSource) (string, string, error) {
	for _, source := range sources {
		token, err := source.Resolve()
		if err != nil {
			return "", "", err
		}
		if token != "" {
			return token, source.Name(), nil
		}
	}
	return "", "", nil
}
