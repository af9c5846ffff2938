// Package gate decides whether a working directory belongs to an allowed
// organization.
package gate

import (
	"context"
	stderrors "errors"
	"net/url"
	"strings"
	"sync"

	"branch-tracker/internal/git"
	"branch-tracker/internal/logging"
)

// OrgGate allows tracking only in repositories whose origin is owned by one
// of the configured organizations. An empty allow-list allows everything.
type OrgGate struct {
	remotes git.RemoteReader
	allowed map[string]bool

	mu    sync.Mutex
	cache map[string]bool
}

// NewOrgGate builds a gate over orgs, compared case-insensitively.
func NewOrgGate(remotes git.RemoteReader, orgs []string) *OrgGate {
	allowed := make(map[string]bool, len(orgs))
	for _, org := range orgs {
		org = strings.ToLower(strings.TrimSpace(org))
		if org != "" {
			allowed[org] = true
		}
	}
	return &OrgGate{remotes: remotes, allowed: allowed, cache: make(map[string]bool)}
}

// Allowed reports whether tracking may run in dir. Results are cached per
// directory until Invalidate. A transient read failure closes the gate
// without caching, so the next call asks git again.
func (g *OrgGate) Allowed(ctx context.Context, dir string) bool {
	if len(g.allowed) == 0 {
		return true
	}

	g.mu.Lock()
	if ok, cached := g.cache[dir]; cached {
		g.mu.Unlock()
		return ok
	}
	g.mu.Unlock()

	remote, err := g.remotes.RemoteOriginURL(ctx, dir)
	var ok bool
	switch {
	case err == nil:
		owner := OwnerFromURL(remote)
		ok = g.allowed[strings.ToLower(owner)]
		logging.Debugf("origin owner %q allowed=%t", owner, ok)
	case stderrors.Is(err, git.ErrNoRemote), stderrors.Is(err, git.ErrNoBranch):
		ok = false
	default:
		logging.Warnf("cannot read origin for %s: %v", dir, err)
		return false
	}

	g.mu.Lock()
	g.cache[dir] = ok
	g.mu.Unlock()
	return ok
}

// Invalidate forgets every cached decision.
func (g *OrgGate) Invalidate() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cache = make(map[string]bool)
}

// OwnerFromURL returns the first path segment of a git remote URL, which is
// the organization or user on the common hosting services. Both
// git@host:owner/repo.git and https://host/owner/repo forms are accepted.
func OwnerFromURL(remote string) string {
	remote = strings.TrimSpace(remote)
	if remote == "" {
		return ""
	}

	var path string
	if strings.Contains(remote, "://") {
		u, err := url.Parse(remote)
		if err != nil {
			return ""
		}
		path = u.Path
	} else if i := strings.Index(remote, ":"); i >= 0 {
		path = remote[i+1:]
	} else {
		path = remote
	}

	path = strings.Trim(path, "/")
	if path == "" {
		return ""
	}
	owner, _, _ := strings.Cut(path, "/")
	return owner
}
