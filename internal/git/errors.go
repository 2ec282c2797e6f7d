package git

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"

	ferrors "git.home.luguber.info/inful/cortex/internal/foundation/errors"
)

// Mirror operation names carried by MirrorError.Op.
const (
	OpClone   = "clone"
	OpOpen    = "open"
	OpRemote  = "remote"
	OpFetch   = "fetch"
	OpTrack   = "track"
	OpResolve = "resolve"
	OpPull    = "pull"
	OpAuth    = "auth"
)

// MirrorError reports a failed clone, fetch, pull or remote configuration step.
// It is fatal to the sync invocation that produced it.
type MirrorError struct {
	Op     string
	URL    string
	Branch string
	Err    error
}

func (e *MirrorError) Error() string {
	if e.Branch != "" {
		return fmt.Sprintf("mirror %s failed for %s@%s: %v", e.Op, e.URL, e.Branch, e.Err)
	}
	return fmt.Sprintf("mirror %s failed for %s: %v", e.Op, e.URL, e.Err)
}

func (e *MirrorError) Unwrap() error { return e.Err }

// Timeout reports whether the operation ran out of its network budget.
func (e *MirrorError) Timeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// Classify translates the mirror failure into a ClassifiedError for routing and exit codes.
func (e *MirrorError) Classify() *ferrors.ClassifiedError {
	b := ferrors.GitError("git "+e.Op+" failed").
		WithCause(e).
		WithContext("op", e.Op).
		WithContext("url", e.URL)
	if e.Branch != "" {
		b.WithContext("branch", e.Branch)
	}

	l := strings.ToLower(e.Err.Error())
	switch {
	case e.Timeout():
		b.WithCategory(ferrors.CategoryNetwork).WithContext("timeout", true)
	case errors.Is(e.Err, transport.ErrAuthenticationRequired),
		errors.Is(e.Err, transport.ErrAuthorizationFailed),
		strings.Contains(l, "authentication"),
		strings.Contains(l, "invalid username or password"):
		b.WithCategory(ferrors.CategoryAuth).UserAction()
	case errors.Is(e.Err, transport.ErrRepositoryNotFound),
		strings.Contains(l, "repository not found"),
		strings.Contains(l, "repository does not exist"):
		b.WithCategory(ferrors.CategoryNotFound).UserAction()
	case strings.Contains(l, "connection reset"),
		strings.Contains(l, "connection refused"),
		strings.Contains(l, "no route to host"),
		strings.Contains(l, "remote hung up"),
		strings.Contains(l, "i/o timeout"):
		b.WithCategory(ferrors.CategoryNetwork)
	case strings.Contains(l, "non-fast-forward"):
		b.WithContext("diverged", true).UserAction()
	}
	return b.Build()
}

// AsMirrorError extracts a *MirrorError from err's chain.
func AsMirrorError(err error) (*MirrorError, bool) {
	var me *MirrorError
	if errors.As(err, &me) {
		return me, true
	}
	return nil, false
}

func (c *Client) mirrorErr(op string, err error) *MirrorError {
	return &MirrorError{Op: op, URL: c.url, Branch: c.branch, Err: err}
}
