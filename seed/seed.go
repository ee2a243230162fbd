// Package seed fills a database with fake users, modules, posts, comments
// and votes for local development.
package seed

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/nasermirzaei89/forumgw/authentication"
	"github.com/nasermirzaei89/forumgw/contents"
	"github.com/nasermirzaei89/forumgw/discuss"
	"github.com/nasermirzaei89/forumgw/votes"
)

const defaultPassword = "password123"

type UserRegistrar interface {
	Register(ctx context.Context, req authentication.RegisterRequest) (*authentication.User, error)
}

type ContentCreator interface {
	CreateModule(ctx context.Context, req contents.CreateModuleRequest) (*contents.Module, error)
	CreatePost(ctx context.Context, req contents.CreatePostRequest) (*contents.Post, error)
}

type CommentCreator interface {
	CreateComment(ctx context.Context, req discuss.CreateCommentRequest) (*discuss.Comment, error)
}

type Voter interface {
	ApplyVote(ctx context.Context, postID, userID int64, voteType votes.VoteType) (*votes.Tally, error)
}

type Options struct {
	Users           int
	Posts           int
	Modules         int
	CommentsPerPost int
}

type Summary struct {
	Users    int
	Modules  int
	Posts    int
	Comments int
	Votes    int
}

type Seeder struct {
	users    UserRegistrar
	contents ContentCreator
	comments CommentCreator
	votes    Voter
	faker    *gofakeit.Faker
}

func NewSeeder(users UserRegistrar, contents ContentCreator, comments CommentCreator, voter Voter, seed int64) *Seeder {
	return &Seeder{
		users:    users,
		contents: contents,
		comments: comments,
		votes:    voter,
		faker:    gofakeit.New(seed),
	}
}

var nonWord = regexp.MustCompile(`\W+`)

// username derives a valid unique username from a fake one.
func (s *Seeder) username(i int) string {
	base := strings.ToLower(nonWord.ReplaceAllString(s.faker.Username(), ""))
	if len(base) > 24 {
		base = base[:24]
	}

	return fmt.Sprintf("%s_%d", base, i)
}

func (s *Seeder) title() string {
	title := strings.TrimSuffix(s.faker.Sentence(s.faker.IntRange(3, 8)), ".")
	if len(title) > 255 {
		title = title[:255]
	}

	for len(title) < 5 {
		title += " " + s.faker.Word()
	}

	return title
}

func (s *Seeder) Run(ctx context.Context, opts Options) (*Summary, error) {
	summary := &Summary{}

	if opts.Users < 1 {
		return summary, nil
	}

	users := make([]*authentication.User, 0, opts.Users)

	for i := range opts.Users {
		user, err := s.users.Register(ctx, authentication.RegisterRequest{
			Username: s.username(i + 1),
			Password: defaultPassword,
		})
		if err != nil {
			return summary, fmt.Errorf("failed to register user: %w", err)
		}

		users = append(users, user)
		summary.Users++
	}

	modules := make([]*contents.Module, 0, opts.Modules)

	for i := range opts.Modules {
		module, err := s.contents.CreateModule(ctx, contents.CreateModuleRequest{
			Name:        fmt.Sprintf("%s %d", s.faker.HackerNoun(), i+1),
			Description: s.faker.Sentence(10),
		})
		if err != nil {
			return summary, fmt.Errorf("failed to create module: %w", err)
		}

		modules = append(modules, module)
		summary.Modules++
	}

	for range opts.Posts {
		author := users[s.faker.IntRange(0, len(users)-1)]

		var moduleIDs []int64
		if len(modules) > 0 {
			moduleIDs = append(moduleIDs, modules[s.faker.IntRange(0, len(modules)-1)].ID)
		}

		post, err := s.contents.CreatePost(ctx, contents.CreatePostRequest{
			AuthorID:  author.ID,
			Title:     s.title(),
			Content:   s.faker.Paragraph(s.faker.IntRange(1, 3), 4, 12, "\n\n"),
			ModuleIDs: moduleIDs,
		})
		if err != nil {
			return summary, fmt.Errorf("failed to create post: %w", err)
		}

		summary.Posts++

		err = s.discussPost(ctx, post, users, opts.CommentsPerPost, summary)
		if err != nil {
			return summary, err
		}
	}

	slog.InfoContext(
		ctx,
		"seeded database",
		"users", summary.Users,
		"modules", summary.Modules,
		"posts", summary.Posts,
		"comments", summary.Comments,
		"votes", summary.Votes,
	)

	return summary, nil
}

func (s *Seeder) discussPost(
	ctx context.Context,
	post *contents.Post,
	users []*authentication.User,
	maxComments int,
	summary *Summary,
) error {
	for range s.faker.IntRange(0, max(maxComments, 0)) {
		author := users[s.faker.IntRange(0, len(users)-1)]
		content := s.faker.Sentence(s.faker.IntRange(4, 16))

		if s.faker.Bool() {
			mentioned := users[s.faker.IntRange(0, len(users)-1)]
			content = "@" + mentioned.Username + " " + content
		}

		_, err := s.comments.CreateComment(ctx, discuss.CreateCommentRequest{
			PostID:   post.ID,
			AuthorID: author.ID,
			Content:  content,
		})
		if err != nil {
			return fmt.Errorf("failed to create comment: %w", err)
		}

		summary.Comments++
	}

	for _, user := range users {
		if s.faker.IntRange(0, 2) == 0 {
			continue
		}

		voteType := votes.VoteLike
		if s.faker.IntRange(0, 3) == 0 {
			voteType = votes.VoteDislike
		}

		_, err := s.votes.ApplyVote(ctx, post.ID, user.ID, voteType)
		if err != nil {
			return fmt.Errorf("failed to apply vote: %w", err)
		}

		summary.Votes++
	}

	return nil
}
