package git

import (
	"sync"
	"time"

	"github.com/go-git/go-git/v5/plumbing/transport"

	appcfg "git.home.luguber.info/inful/cortex/internal/config"
)

const originRemote = "origin"

// MirrorState describes the local working copy's relationship to the remote.
type MirrorState struct {
	LocalPath        string
	RemoteURL        string
	Branch           string
	LastSyncedCommit string // empty until the first clone or pull
	LastSyncedAt     time.Time
}

// Client handles mirror operations for a single remote branch.
type Client struct {
	url     string
	branch  string
	authCfg *appcfg.AuthConfig
	timeout time.Duration

	mu    sync.Mutex
	state MirrorState
}

// NewClient creates a mirror client from the exercises configuration.
func NewClient(cfg appcfg.ExercisesConfig) *Client {
	branch := cfg.Branch
	if branch == "" {
		branch = appcfg.DefaultBranch
	}
	return &Client{
		url:     cfg.RepoURL,
		branch:  branch,
		authCfg: cfg.Auth,
		timeout: cfg.NetworkTimeout(),
		state:   MirrorState{LocalPath: cfg.LocalPath, RemoteURL: cfg.RepoURL, Branch: branch},
	}
}

// WithTimeout overrides the bound applied to each network operation (fluent helper).
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d > 0 {
		c.timeout = d
	}
	return c
}

// URL returns the remote being mirrored.
func (c *Client) URL() string { return c.url }

// Branch returns the tracked branch.
func (c *Client) Branch() string { return c.branch }

// State returns a snapshot of the mirror state.
func (c *Client) State() MirrorState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) recordSynced(localPath, commit string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state.LocalPath = localPath
	c.state.LastSyncedCommit = commit
	c.state.LastSyncedAt = time.Now().UTC()
}

func (c *Client) auth() (transport.AuthMethod, error) {
	return getAuthentication(c.authCfg)
}
