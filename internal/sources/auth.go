package sources

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"git.home.luguber.info/inful/refbuilder/internal/config"
)

// authMethod creates go-git authentication from config. A nil method means anonymous access.
func authMethod(auth *config.AuthConfig) (transport.AuthMethod, error) {
	if auth.IsZero() {
		return nil, nil
	}
	switch auth.Type {
	case config.AuthTypeSSH:
		keyPath := auth.KeyPath
		if keyPath == "" {
			keyPath = filepath.Join(os.Getenv("HOME"), ".ssh", "id_rsa")
		}
		keys, err := ssh.NewPublicKeysFromFile("git", keyPath, auth.Password)
		if err != nil {
			return nil, fmt.Errorf("failed to load SSH key from %s: %w", keyPath, err)
		}
		return keys, nil
	case config.AuthTypeToken:
		if auth.Token == "" {
			return nil, fmt.Errorf("token authentication requires a token")
		}
		username := auth.Username
		if username == "" {
			username = "token"
		}
		return &http.BasicAuth{Username: username, Password: auth.Token}, nil
	case config.AuthTypeBasic:
		if auth.Username == "" || auth.Password == "" {
			return nil, fmt.Errorf("basic authentication requires username and password")
		}
		return &http.BasicAuth{Username: auth.Username, Password: auth.Password}, nil
	default:
		return nil, fmt.Errorf("unsupported authentication type: %s", auth.Type)
	}
}
