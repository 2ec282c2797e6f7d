package git

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	appcfg "git.home.luguber.info/inful/cortex/internal/config"
)

// getAuthentication returns the go-git AuthMethod for authCfg. A nil config or
// type none means anonymous access and yields a nil method.
func getAuthentication(authCfg *appcfg.AuthConfig) (transport.AuthMethod, error) {
	if authCfg == nil {
		return nil, nil
	}
	switch authCfg.Type {
	case appcfg.AuthTypeNone, "":
		return nil, nil
	case appcfg.AuthTypeToken:
		if authCfg.Token == "" {
			return nil, fmt.Errorf("token authentication requires a token")
		}
		// Hosting providers accept any non-empty username alongside a token.
		return &http.BasicAuth{Username: "token", Password: authCfg.Token}, nil
	case appcfg.AuthTypeBasic:
		if authCfg.Username == "" || authCfg.Password == "" {
			return nil, fmt.Errorf("basic authentication requires username and password")
		}
		return &http.BasicAuth{Username: authCfg.Username, Password: authCfg.Password}, nil
	case appcfg.AuthTypeSSH:
		keyPath := authCfg.KeyPath
		if keyPath == "" {
			keyPath = filepath.Join(os.Getenv("HOME"), ".ssh", "id_rsa")
		}
		keys, err := ssh.NewPublicKeysFromFile("git", keyPath, "")
		if err != nil {
			return nil, fmt.Errorf("failed to load SSH key from %s: %w", keyPath, err)
		}
		return keys, nil
	default:
		return nil, fmt.Errorf("unsupported authentication type: %s", authCfg.Type)
	}
}
