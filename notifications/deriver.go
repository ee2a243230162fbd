package notifications

import (
	"context"
	"fmt"
	"regexp"

	"github.com/nasermirzaei89/forumgw/authentication"
	"github.com/nasermirzaei89/forumgw/contents"
	"github.com/nasermirzaei89/forumgw/discuss"
)

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// ExtractMentions returns the distinct usernames mentioned in content in order
// of first appearance. Matching is case-sensitive.
func ExtractMentions(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)

	seen := make(map[string]struct{}, len(matches))
	usernames := make([]string, 0, len(matches))

	for _, match := range matches {
		username := match[1]
		if _, ok := seen[username]; ok {
			continue
		}

		seen[username] = struct{}{}
		usernames = append(usernames, username)
	}

	return usernames
}

type UserDirectory interface {
	FindUsersByUsernames(ctx context.Context, usernames []string) ([]*authentication.User, error)
}

type Deriver struct {
	users UserDirectory
}

func NewDeriver(users UserDirectory) *Deriver {
	return &Deriver{users: users}
}

// Derive builds the notifications caused by a new comment: one for the post
// author unless they wrote the comment, and one per mentioned user that
// exists. Mentioning yourself still notifies you.
func (d *Deriver) Derive(
	ctx context.Context,
	comment *discuss.Comment,
	author *authentication.User,
	post *contents.Post,
) ([]*Draft, error) {
	drafts := make([]*Draft, 0)

	if post.AuthorID != comment.AuthorID {
		drafts = append(drafts, &Draft{
			RecipientID: post.AuthorID,
			Type:        TypeCommentOnPost,
			PostID:      post.ID,
			CommentID:   comment.ID,
			Content:     fmt.Sprintf("%s commented on your post", author.Username),
		})
	}

	usernames := ExtractMentions(comment.Content)
	if len(usernames) == 0 {
		return drafts, nil
	}

	users, err := d.users.FindUsersByUsernames(ctx, usernames)
	if err != nil {
		return nil, fmt.Errorf("failed to find mentioned users: %w", err)
	}

	byUsername := make(map[string]*authentication.User, len(users))
	for _, user := range users {
		byUsername[user.Username] = user
	}

	for _, username := range usernames {
		user, ok := byUsername[username]
		if !ok {
			continue
		}

		drafts = append(drafts, &Draft{
			RecipientID: user.ID,
			Type:        TypeTagInComment,
			PostID:      post.ID,
			CommentID:   comment.ID,
			Content:     fmt.Sprintf("%s mentioned you in a comment", author.Username),
		})
	}

	return drafts, nil
}
