package backend

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"rewind-go/internal/rewind"
)

// GitBackend stores payloads as blobs in a bare shadow repository, separate
// from any repository the project itself may use. Git zlib-compresses loose
// objects, so this backend suits projects on volumes without reflinks.
type GitBackend struct {
	repo string

	mu    sync.Mutex
	ready bool
}

var _ rewind.Backend = (*GitBackend)(nil)

// NewGitBackend creates a git backend whose shadow repository lives at repo.
func NewGitBackend(repo string) *GitBackend {
	return &GitBackend{repo: repo}
}

func (g *GitBackend) Kind() rewind.BackendKind { return rewind.BackendGit }

// Probe checks that git is installed and the shadow repository can be created.
func (g *GitBackend) Probe(ctx context.Context, projectPath string) error {
	if _, err := exec.LookPath("git"); err != nil {
		return fmt.Errorf("git not found: %w", rewind.ErrBackendUnavailable)
	}
	if err := g.ensureRepo(ctx); err != nil {
		return fmt.Errorf("%w: %v", rewind.ErrBackendUnavailable, err)
	}
	return nil
}

func (g *GitBackend) Put(ctx context.Context, hash string, data []byte) (string, error) {
	if err := g.ensureRepo(ctx); err != nil {
		return "", fmt.Errorf("%w: %v", rewind.ErrBackendUnavailable, err)
	}

	oid, err := g.run(ctx, data, "hash-object", "-w", "--stdin")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(oid)), nil
}

func (g *GitBackend) Get(ctx context.Context, ref string) ([]byte, error) {
	if err := validRef(ref); err != nil {
		return nil, err
	}
	if _, err := g.run(ctx, nil, "cat-file", "-e", ref); err != nil {
		return nil, fmt.Errorf("blob %s: %w", ref, rewind.ErrNotFound)
	}
	return g.run(ctx, nil, "cat-file", "blob", ref)
}

// Delete removes the loose object file. The shadow repository is never
// repacked, so every blob it holds is a loose object.
func (g *GitBackend) Delete(ctx context.Context, ref string) error {
	if err := validRef(ref); err != nil {
		return err
	}
	p := filepath.Join(g.repo, "objects", ref[:2], ref[2:])
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing blob %s: %w", ref, err)
	}
	return nil
}

func (g *GitBackend) ensureRepo(ctx context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ready {
		return nil
	}
	if _, err := os.Stat(filepath.Join(g.repo, "HEAD")); err == nil {
		g.ready = true
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(g.repo), 0o700); err != nil {
		return fmt.Errorf("creating shadow repository parent: %w", err)
	}
	cmd := exec.CommandContext(ctx, "git", "init", "--bare", "--quiet", g.repo)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("git init: %w: %s", err, strings.TrimSpace(string(out)))
	}
	g.ready = true
	return nil
}

// run executes a git command against the shadow repository and returns stdout.
func (g *GitBackend) run(ctx context.Context, stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "git", append([]string{"--git-dir", g.repo}, args...)...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
