package identity

import (
	"fmt"
	"os"
	"strings"
)

// TokenSource yields a short-lived bearer token on demand. Implementations
// are expected to be cheap to call repeatedly (e.g. re-reading a mounted
// file) since the daemon calls Load() on every refresh attempt.
type TokenSource interface {
	Load() ([]byte, error)
}

// FileTokenSource reads a bearer token from a file path on every Load call,
// the typical shape for a projected Kubernetes service-account token or a
// SPIRE-issued bundle. Grounded on the explicit-configuration-only
// discipline used by domain.SocketPath: no implicit default path.
type FileTokenSource struct {
	path string
}

// NewFileTokenSource constructs a FileTokenSource for the given path.
func NewFileTokenSource(path string) (*FileTokenSource, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("identity: token source path must be explicitly configured")
	}
	return &FileTokenSource{path: path}, nil
}

// Load reads and returns the current token contents.
func (f *FileTokenSource) Load() ([]byte, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("identity: failed to read token from %s: %w", f.path, err)
	}
	return data, nil
}

// StaticTokenSource always returns the same token; useful for tests and for
// environments where the token is supplied directly rather than via file.
type StaticTokenSource struct {
	Token []byte
}

// Load returns the configured static token.
func (s StaticTokenSource) Load() ([]byte, error) {
	if len(s.Token) == 0 {
		return nil, fmt.Errorf("identity: static token source has no token configured")
	}
	return s.Token, nil
}
