package embedded

import (
	"context"
	"fmt"

	"sibs/pkg/value"

	"github.com/go-git/go-git/v5"
)

// openRepo opens the repository containing the caller's working directory
func openRepo(h Host) (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(h.Workdir(), &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("git: open %s: %w", h.Workdir(), err)
	}
	return repo, nil
}

func gitFns() []def {
	return []def{
		{
			name: "git::branch",
			ret:  value.TyStr,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				repo, err := openRepo(h)
				if err != nil {
					return value.Void(), err
				}
				ref, err := repo.Head()
				if err != nil {
					return value.Void(), fmt.Errorf("git: head: %w", err)
				}
				return value.Str(ref.Name().Short()), nil
			},
		},
		{
			name: "git::head",
			ret:  value.TyStr,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				repo, err := openRepo(h)
				if err != nil {
					return value.Void(), err
				}
				ref, err := repo.Head()
				if err != nil {
					return value.Void(), fmt.Errorf("git: head: %w", err)
				}
				return value.Str(ref.Hash().String()), nil
			},
		},
		{
			name: "git::is_clean",
			ret:  value.TyBool,
			exec: func(ctx context.Context, h Host, args []value.RtValue) (value.RtValue, error) {
				repo, err := openRepo(h)
				if err != nil {
					return value.Void(), err
				}
				worktree, err := repo.Worktree()
				if err != nil {
					return value.Void(), fmt.Errorf("git: worktree: %w", err)
				}
				status, err := worktree.Status()
				if err != nil {
					return value.Void(), fmt.Errorf("git: status: %w", err)
				}
				return value.Bool(status.IsClean()), nil
			},
		},
	}
}
