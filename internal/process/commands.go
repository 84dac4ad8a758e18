package process

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/agentstation/fleetsync/pkg/constants"
)

// Sync runs uv sync in a project directory.
func Sync(ctx context.Context, r Runner, dir string) error {
	_, err := r.Run(ctx, Command{Dir: dir, Name: "uv", Args: []string{"sync"}, Timeout: constants.PackageSyncTimeout})
	return err
}

// IsGitRepo reports whether dir is inside a git work tree.
func IsGitRepo(ctx context.Context, r Runner, dir string) bool {
	_, err := r.Run(ctx, Command{Dir: dir, Name: "git", Args: []string{"rev-parse", "--git-dir"}, Timeout: constants.GitProbeTimeout})
	return err == nil
}

// GitAdd stages files, given as absolute paths or relative to dir.
func GitAdd(ctx context.Context, r Runner, dir string, files []string) ([]string, error) {
	rel := make([]string, 0, len(files))
	for _, f := range files {
		if filepath.IsAbs(f) {
			if p, err := filepath.Rel(dir, f); err == nil {
				f = p
			}
		}
		rel = append(rel, f)
	}
	args := append([]string{"add", "--"}, rel...)
	_, err := r.Run(ctx, Command{Dir: dir, Name: "git", Args: args, Timeout: constants.GitAddTimeout})
	return rel, err
}

// GitCommit records staged changes.
func GitCommit(ctx context.Context, r Runner, dir, message string) error {
	_, err := r.Run(ctx, Command{Dir: dir, Name: "git", Args: []string{"commit", "-m", message}, Timeout: constants.GitCommitTimeout})
	return err
}

// GitPush pushes the current branch to its upstream.
func GitPush(ctx context.Context, r Runner, dir string) error {
	_, err := r.Run(ctx, Command{Dir: dir, Name: "git", Args: []string{"push"}, Timeout: constants.GitPushTimeout})
	return err
}

// LsRemoteHead returns the HEAD revision of a remote repository.
func LsRemoteHead(ctx context.Context, r Runner, repo string) (string, error) {
	out, err := r.Run(ctx, Command{Name: "git", Args: []string{"ls-remote", repo, "HEAD"}, Timeout: constants.RevisionLookupTimeout})
	if err != nil {
		return "", err
	}
	fields := strings.Fields(out.Stdout)
	if len(fields) == 0 || len(fields[0]) != constants.RevisionLength {
		return "", fmt.Errorf("unexpected ls-remote output for %s: %q", repo, strings.TrimSpace(out.Stdout))
	}
	return fields[0], nil
}
