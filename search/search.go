// Package search routes a free-text query to users, modules or posts.
package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/nasermirzaei89/forumgw/authentication"
	"github.com/nasermirzaei89/forumgw/contents"
)

const Limit = 10

type ResultType string

const (
	ResultTypeUser   ResultType = "user"
	ResultTypeModule ResultType = "module"
	ResultTypePost   ResultType = "post"
)

type Result struct {
	Type    ResultType
	Users   []*authentication.User
	Modules []*contents.Module
	Posts   []*contents.Post
}

type UserSearcher interface {
	SearchUsers(ctx context.Context, keyword string, limit uint64) ([]*authentication.User, error)
}

type ContentSearcher interface {
	SearchModules(ctx context.Context, keyword string, limit uint64) ([]*contents.Module, error)
	SearchPosts(ctx context.Context, keyword string, limit uint64) ([]*contents.Post, error)
}

type Service struct {
	users    UserSearcher
	contents ContentSearcher
}

func NewService(users UserSearcher, contents ContentSearcher) *Service {
	return &Service{
		users:    users,
		contents: contents,
	}
}

// Search treats "@foo" as a user search, "#foo" as a module search and
// anything else as a post search.
func (svc *Service) Search(ctx context.Context, query string) (*Result, error) {
	query = strings.TrimSpace(query)

	switch {
	case strings.HasPrefix(query, "@"):
		users, err := svc.users.SearchUsers(ctx, strings.TrimPrefix(query, "@"), Limit)
		if err != nil {
			return nil, fmt.Errorf("failed to search users: %w", err)
		}

		return &Result{Type: ResultTypeUser, Users: users}, nil
	case strings.HasPrefix(query, "#"):
		modules, err := svc.contents.SearchModules(ctx, strings.TrimPrefix(query, "#"), Limit)
		if err != nil {
			return nil, fmt.Errorf("failed to search modules: %w", err)
		}

		return &Result{Type: ResultTypeModule, Modules: modules}, nil
	case query == "":
		return &Result{Type: ResultTypePost, Posts: []*contents.Post{}}, nil
	default:
		posts, err := svc.contents.SearchPosts(ctx, query, Limit)
		if err != nil {
			return nil, fmt.Errorf("failed to search posts: %w", err)
		}

		return &Result{Type: ResultTypePost, Posts: posts}, nil
	}
}
