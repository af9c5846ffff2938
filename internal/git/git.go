// Package git reads repository state through the git CLI.
package git

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"os/exec"
	"strings"

	"branch-tracker/internal/errors"
)

// ErrNoBranch is returned when the directory is not inside a repository or
// HEAD is detached. It is an expected outcome, not a failure.
var ErrNoBranch = stderrors.New("no branch checked out")

// ErrNoRemote is returned when the repository has no origin remote.
var ErrNoRemote = stderrors.New("no origin remote")

// BranchReader reads the checked-out branch of a working directory.
type BranchReader interface {
	CurrentBranch(ctx context.Context, dir string) (string, error)
}

// RemoteReader reads the origin remote of a working directory.
type RemoteReader interface {
	RemoteOriginURL(ctx context.Context, dir string) (string, error)
}

// Reader implements BranchReader and RemoteReader using the git CLI.
type Reader struct {
	// gitPath is the path to the git executable
	gitPath string
}

// NewReader creates a Reader. It verifies that git is available on the system.
func NewReader(ctx context.Context) (*Reader, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, fmt.Errorf("git not found in PATH: %w", err)
	}

	cmd := exec.CommandContext(ctx, gitPath, "version")
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git command failed: %w", err)
	}

	return &Reader{gitPath: gitPath}, nil
}

// CurrentBranch returns the short name of the branch HEAD points at.
// symbolic-ref is used instead of rev-parse so unborn branches in a fresh
// repository still report their name.
func (r *Reader) CurrentBranch(ctx context.Context, dir string) (string, error) {
	out, stderr, err := r.run(ctx, dir, "symbolic-ref", "--quiet", "--short", "HEAD")
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.NewTimeoutError("read branch", ctx.Err().Error())
		}
		if isExpectedMiss(err, stderr) {
			return "", ErrNoBranch
		}
		return "", fmt.Errorf("git symbolic-ref failed in %s: %s: %w", dir, strings.TrimSpace(stderr), err)
	}

	branch := strings.TrimSpace(out)
	if branch == "" {
		return "", ErrNoBranch
	}
	return branch, nil
}

// RemoteOriginURL returns the fetch URL of the origin remote.
func (r *Reader) RemoteOriginURL(ctx context.Context, dir string) (string, error) {
	out, stderr, err := r.run(ctx, dir, "remote", "get-url", "origin")
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.NewTimeoutError("read origin", ctx.Err().Error())
		}
		if isExpectedMiss(err, stderr) || strings.Contains(stderr, "No such remote") {
			return "", ErrNoRemote
		}
		return "", fmt.Errorf("git remote get-url failed in %s: %s: %w", dir, strings.TrimSpace(stderr), err)
	}
	return strings.TrimSpace(out), nil
}

func (r *Reader) run(ctx context.Context, dir string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, r.gitPath, append([]string{"-C", dir}, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// isExpectedMiss reports whether git exited because there is nothing to read:
// not a repository, a missing directory, or (exit 1 with --quiet) a detached HEAD.
func isExpectedMiss(err error, stderr string) bool {
	var exitErr *exec.ExitError
	if !stderrors.As(err, &exitErr) {
		return false
	}
	if exitErr.ExitCode() == 1 && strings.TrimSpace(stderr) == "" {
		return true
	}
	lower := strings.ToLower(stderr)
	return strings.Contains(lower, "not a git repository") ||
		strings.Contains(lower, "cannot change to") ||
		strings.Contains(lower, "not a symbolic ref")
}
