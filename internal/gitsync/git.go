package gitsync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"devstack/pkg/logging"
)

var execCommand = exec.CommandContext

// Git is the subset of git operations the synchronizer needs.
type Git interface {
	IsRepository(ctx context.Context) bool
	RemoteURL(ctx context.Context, remote string) (url string, found bool, err error)
	AddRemote(ctx context.Context, remote, url string) error
	SetRemoteURL(ctx context.Context, remote, url string) error
	RemoteHeads(ctx context.Context, remote string) ([]string, error)
	CurrentBranch(ctx context.Context) (string, error)
	CommitCount(ctx context.Context) (int, error)
	AheadCount(ctx context.Context, remote, branch string) (int, error)
	Fetch(ctx context.Context, remote string, branches ...string) error
	CheckoutRemote(ctx context.Context, local, remote, branch string) error
	Rebase(ctx context.Context, upstream string) error
	RebaseAbort(ctx context.Context) error
	RebaseInProgress(ctx context.Context) (bool, error)
	Merge(ctx context.Context, upstream string) error
	MergeAbort(ctx context.Context) error
	MergeInProgress(ctx context.Context) (bool, error)
	IsClean(ctx context.Context) (bool, error)
	Push(ctx context.Context, remote, refspec string, opts PushOptions) error
}

// PushOptions modify Push.
type PushOptions struct {
	Force       bool
	SetUpstream bool
}

// CLI runs the git executable in Dir.
type CLI struct {
	Dir      string
	redactor Redactor
}

// NewCLI returns a CLI for the working copy at dir. Any secrets are removed from
// logged command lines and returned errors.
func NewCLI(dir string, secrets ...string) *CLI {
	return &CLI{Dir: dir, redactor: NewRedactor(secrets...)}
}

// gitError carries the exit status and the redacted output of a failed command.
type gitError struct {
	Args   string
	Output string
	Err    error
}

func (e *gitError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("git %s: %v", e.Args, e.Err)
	}
	return fmt.Sprintf("git %s: %v: %s", e.Args, e.Err, e.Output)
}

func (e *gitError) Unwrap() error { return e.Err }

// exitCode returns the exit status of a failed git command, or -1.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

func (g *CLI) run(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"-C", g.Dir}, args...)
	printable := g.redactor.Redact(strings.Join(args, " "))
	logging.Debug("GitSync", "git %s", printable)

	cmd := execCommand(ctx, "git", full...)
	cmd.Env = append(cmd.Environ(), "GIT_TERMINAL_PROMPT=0")
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = strings.TrimSpace(stdout.String())
		}
		return "", &gitError{Args: printable, Output: g.redactor.Redact(msg), Err: err}
	}
	return strings.TrimSpace(stdout.String()), nil
}

// IsRepository implements Git.
func (g *CLI) IsRepository(ctx context.Context) bool {
	out, err := g.run(ctx, "rev-parse", "--is-inside-work-tree")
	return err == nil && out == "true"
}

// RemoteURL implements Git.
func (g *CLI) RemoteURL(ctx context.Context, remote string) (string, bool, error) {
	out, err := g.run(ctx, "remote", "get-url", remote)
	if err != nil {
		// git exits 2 when the remote does not exist.
		if exitCode(err) == 2 {
			return "", false, nil
		}
		return "", false, err
	}
	return out, true, nil
}

// AddRemote implements Git.
func (g *CLI) AddRemote(ctx context.Context, remote, url string) error {
	_, err := g.run(ctx, "remote", "add", remote, url)
	return err
}

// SetRemoteURL implements Git.
func (g *CLI) SetRemoteURL(ctx context.Context, remote, url string) error {
	_, err := g.run(ctx, "remote", "set-url", remote, url)
	return err
}

// RemoteHeads implements Git. It returns the branch names advertised by remote.
func (g *CLI) RemoteHeads(ctx context.Context, remote string) ([]string, error) {
	out, err := g.run(ctx, "ls-remote", "--heads", remote)
	if err != nil {
		return nil, err
	}
	return parseHeads(out), nil
}

func parseHeads(out string) []string {
	var heads []string
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 2 {
			continue
		}
		if name, ok := strings.CutPrefix(fields[1], "refs/heads/"); ok {
			heads = append(heads, name)
		}
	}
	return heads
}

// CurrentBranch implements Git. It works on an unborn branch too.
func (g *CLI) CurrentBranch(ctx context.Context) (string, error) {
	return g.run(ctx, "symbolic-ref", "--short", "HEAD")
}

// CommitCount implements Git. A repository without commits has zero.
func (g *CLI) CommitCount(ctx context.Context) (int, error) {
	if _, err := g.run(ctx, "rev-parse", "--verify", "--quiet", "HEAD"); err != nil {
		if exitCode(err) == 1 {
			return 0, nil
		}
		return 0, err
	}
	out, err := g.run(ctx, "rev-list", "--count", "HEAD")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(out)
}

// AheadCount implements Git: commits on HEAD that remote/branch does not have.
func (g *CLI) AheadCount(ctx context.Context, remote, branch string) (int, error) {
	out, err := g.run(ctx, "rev-list", "--count", remote+"/"+branch+"..HEAD")
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(out)
}

// Fetch implements Git.
func (g *CLI) Fetch(ctx context.Context, remote string, branches ...string) error {
	_, err := g.run(ctx, append([]string{"fetch", remote}, branches...)...)
	return err
}

// CheckoutRemote implements Git: local becomes a tracking branch at remote/branch.
func (g *CLI) CheckoutRemote(ctx context.Context, local, remote, branch string) error {
	_, err := g.run(ctx, "checkout", "-B", local, "--track", remote+"/"+branch)
	return err
}

// Rebase implements Git.
func (g *CLI) Rebase(ctx context.Context, upstream string) error {
	_, err := g.run(ctx, "rebase", upstream)
	return err
}

// RebaseAbort implements Git.
func (g *CLI) RebaseAbort(ctx context.Context) error {
	_, err := g.run(ctx, "rebase", "--abort")
	return err
}

// RebaseInProgress implements Git. A rebase that refused to start leaves no state behind.
func (g *CLI) RebaseInProgress(ctx context.Context) (bool, error) {
	return g.gitPathExists(ctx, "rebase-merge", "rebase-apply")
}

// MergeInProgress implements Git.
func (g *CLI) MergeInProgress(ctx context.Context) (bool, error) {
	return g.gitPathExists(ctx, "MERGE_HEAD")
}

// gitPathExists reports whether any of names exists inside the git directory.
func (g *CLI) gitPathExists(ctx context.Context, names ...string) (bool, error) {
	for _, name := range names {
		out, err := g.run(ctx, "rev-parse", "--git-path", name)
		if err != nil {
			return false, err
		}
		if !filepath.IsAbs(out) {
			out = filepath.Join(g.Dir, out)
		}
		if _, err := os.Stat(out); err == nil {
			return true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return false, err
		}
	}
	return false, nil
}

// Merge implements Git.
func (g *CLI) Merge(ctx context.Context, upstream string) error {
	_, err := g.run(ctx, "merge", "--no-edit", upstream)
	return err
}

// MergeAbort implements Git.
func (g *CLI) MergeAbort(ctx context.Context) error {
	_, err := g.run(ctx, "merge", "--abort")
	return err
}

// IsClean implements Git. Untracked files do not count.
func (g *CLI) IsClean(ctx context.Context) (bool, error) {
	out, err := g.run(ctx, "status", "--porcelain", "--untracked-files=no")
	if err != nil {
		return false, err
	}
	return out == "", nil
}

// Push implements Git.
func (g *CLI) Push(ctx context.Context, remote, refspec string, opts PushOptions) error {
	args := []string{"push"}
	if opts.Force {
		args = append(args, "--force")
	}
	if opts.SetUpstream {
		args = append(args, "-u")
	}
	_, err := g.run(ctx, append(args, remote, refspec)...)
	return err
}
