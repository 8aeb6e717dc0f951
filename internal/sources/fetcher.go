// Package sources fetches the git repositories library inputs are read from and
// resolves source://<name>/<path> references to files in the local clones.
package sources

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"

	"git.home.luguber.info/inful/refbuilder/internal/config"
	ferrors "git.home.luguber.info/inful/refbuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/refbuilder/internal/logfields"
	"git.home.luguber.info/inful/refbuilder/internal/metrics"
	"git.home.luguber.info/inful/refbuilder/internal/retry"
)

// Result describes a fetched source.
type Result struct {
	Name    string
	Path    string
	Commit  string
	Changed bool // the checkout moved to a new commit
}

// Fetcher clones or updates sources under a workspace directory.
type Fetcher struct {
	workspace string
	policy    retry.Policy
	recorder  metrics.Recorder
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithRecorder reports fetch durations to r.
func WithRecorder(r metrics.Recorder) Option {
	return func(f *Fetcher) { f.recorder = r }
}

// NewFetcher creates a fetcher that keeps clones in workspace.
func NewFetcher(workspace string, policy retry.Policy, opts ...Option) *Fetcher {
	f := &Fetcher{workspace: workspace, policy: policy, recorder: metrics.NoopRecorder{}}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Path returns the clone directory of the named source.
func (f *Fetcher) Path(name string) string {
	return filepath.Join(f.workspace, name)
}

// Fetch clones src, or fetches and hard-resets an existing clone to the remote branch.
func (f *Fetcher) Fetch(ctx context.Context, src config.Source) (Result, error) {
	start := time.Now()
	var res Result
	err := f.policy.Do(ctx, func(ctx context.Context) error {
		var err error
		res, err = f.fetchOnce(ctx, src)
		return err
	})
	f.recorder.ObserveFetchDuration(src.Name, time.Since(start), err == nil)
	if err != nil {
		return Result{}, err
	}
	return res, nil
}

// FetchAll fetches every source and returns their clone directories by name.
func (f *Fetcher) FetchAll(ctx context.Context, srcs []config.Source) (map[string]string, error) {
	dirs := make(map[string]string, len(srcs))
	for _, src := range srcs {
		res, err := f.Fetch(ctx, src)
		if err != nil {
			return nil, err
		}
		dirs[src.Name] = res.Path
	}
	return dirs, nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, src config.Source) (Result, error) {
	path := f.Path(src.Name)
	auth, err := authMethod(src.Auth)
	if err != nil {
		return Result{}, ferrors.WrapError(err, ferrors.CategoryGit, "failed to setup authentication").
			WithContext("source", src.Name).WithRetry(ferrors.RetryUserAction).Build()
	}
	if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		return f.update(ctx, src, path, auth)
	}
	return f.clone(ctx, src, path, auth)
}

func (f *Fetcher) clone(ctx context.Context, src config.Source, path string, auth transport.AuthMethod) (Result, error) {
	slog.Debug("Cloning source", logfields.Source(src.Name), logfields.URL(src.URL), slog.String("branch", src.Branch), logfields.Path(path))
	if err := os.RemoveAll(path); err != nil {
		return Result{}, fmt.Errorf("failed to remove existing directory: %w", err)
	}
	opts := &git.CloneOptions{URL: src.URL, Auth: auth, SingleBranch: true}
	if src.Branch != "" {
		opts.ReferenceName = plumbing.NewBranchReferenceName(src.Branch)
	}
	repo, err := git.PlainCloneContext(ctx, path, false, opts)
	if err != nil {
		return Result{}, classify("clone", src, err)
	}
	head, err := repo.Head()
	if err != nil {
		return Result{}, classify("clone", src, err)
	}
	slog.Info("Source cloned", logfields.Source(src.Name), slog.String("commit", short(head.Hash())))
	return Result{Name: src.Name, Path: path, Commit: head.Hash().String(), Changed: true}, nil
}

func (f *Fetcher) update(ctx context.Context, src config.Source, path string, auth transport.AuthMethod) (Result, error) {
	repo, err := git.PlainOpen(path)
	if err != nil {
		return Result{}, classify("open", src, err)
	}
	before, err := repo.Head()
	if err != nil {
		return Result{}, classify("open", src, err)
	}
	branch := src.Branch
	if branch == "" {
		branch = before.Name().Short()
	}

	refSpec := gitconfig.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/origin/%s", branch, branch))
	err = repo.FetchContext(ctx, &git.FetchOptions{RemoteName: "origin", Auth: auth, RefSpecs: []gitconfig.RefSpec{refSpec}, Force: true})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return Result{}, classify("fetch", src, err)
	}
	remoteRef, err := repo.Reference(plumbing.NewRemoteReferenceName("origin", branch), true)
	if err != nil {
		return Result{}, classify("fetch", src, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return Result{}, classify("fetch", src, err)
	}
	if err := wt.Reset(&git.ResetOptions{Commit: remoteRef.Hash(), Mode: git.HardReset}); err != nil {
		return Result{}, classify("reset", src, err)
	}

	changed := before.Hash() != remoteRef.Hash()
	if changed {
		slog.Info("Source updated", logfields.Source(src.Name), slog.String("from", short(before.Hash())), slog.String("to", short(remoteRef.Hash())))
	} else {
		slog.Debug("Source already up to date", logfields.Source(src.Name))
	}
	return Result{Name: src.Name, Path: path, Commit: remoteRef.Hash().String(), Changed: changed}, nil
}

// classify marks authentication and missing-repository failures permanent; everything
// else is retried.
func classify(op string, src config.Source, err error) error {
	b := ferrors.WrapError(err, ferrors.CategoryGit, "git "+op+" failed").
		WithContext("source", src.Name).
		WithContext("url", src.URL)
	switch {
	case errors.Is(err, transport.ErrAuthenticationRequired),
		errors.Is(err, transport.ErrAuthorizationFailed),
		errors.Is(err, transport.ErrInvalidAuthMethod):
		return b.WithRetry(ferrors.RetryUserAction).Build()
	case errors.Is(err, transport.ErrRepositoryNotFound),
		errors.Is(err, plumbing.ErrReferenceNotFound),
		errors.Is(err, git.NoMatchingRefSpecError{}),
		errors.Is(err, git.ErrRepositoryNotExists):
		return b.WithRetry(ferrors.RetryNever).Build()
	default:
		return b.Retryable().Build()
	}
}

func short(h plumbing.Hash) string {
	return h.String()[:8]
}

// Resolve maps a source://<name>/<path> reference onto the named clone directory.
// Other paths are returned unchanged.
func Resolve(path string, dirs map[string]string) (string, error) {
	name := config.SourceName(path)
	if name == "" {
		return path, nil
	}
	dir, ok := dirs[name]
	if !ok {
		return "", ferrors.NotFoundError("source not fetched").
			WithContext("source", name).WithContext("path", path).Build()
	}
	rest := strings.TrimPrefix(strings.TrimPrefix(path, config.SourcePrefix+name), "/")
	clean := filepath.Clean(filepath.FromSlash(rest))
	if clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", ferrors.ValidationError("source path escapes the clone").WithContext("path", path).Build()
	}
	return filepath.Join(dir, clean), nil
}
