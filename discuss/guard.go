package discuss

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nasermirzaei89/forumgw/contents"
)

const DefaultEditWindow = time.Hour

// Guard decides who may edit or delete a comment and until when.
type Guard struct {
	clock    clockwork.Clock
	location *time.Location
	window   time.Duration
}

func NewGuard(clock clockwork.Clock, location *time.Location, window time.Duration) *Guard {
	if location == nil {
		location = time.UTC
	}

	if window <= 0 {
		window = DefaultEditWindow
	}

	return &Guard{
		clock:    clock,
		location: location,
		window:   window,
	}
}

func (g *Guard) Now() time.Time {
	return g.clock.Now().In(g.location)
}

func (g *Guard) Window() time.Duration {
	return g.window
}

// withinWindow is inclusive: a comment exactly window old is still open.
func (g *Guard) withinWindow(comment *Comment, now time.Time) bool {
	return now.Sub(comment.CreatedAt) <= g.window
}

func (g *Guard) CanEdit(comment *Comment, actingUserID int64, now time.Time) bool {
	return g.CheckEdit(comment, actingUserID, now) == nil
}

func (g *Guard) CanDelete(comment *Comment, post *contents.Post, actingUserID int64, now time.Time) bool {
	return g.CheckDelete(comment, post, actingUserID, now) == nil
}

func (g *Guard) CheckEdit(comment *Comment, actingUserID int64, now time.Time) error {
	if comment.AuthorID != actingUserID {
		return &CommentForbiddenError{
			CommentID: comment.ID,
			UserID:    actingUserID,
			Action:    "edit",
			Reason:    ReasonNotAuthor,
		}
	}

	if !g.withinWindow(comment, now) {
		return &CommentForbiddenError{
			CommentID: comment.ID,
			UserID:    actingUserID,
			Action:    "edit",
			Reason:    ReasonWindowExpired,
		}
	}

	return nil
}

// CheckDelete lets the post owner delete any comment on the post at any time.
// Otherwise only the author may, within the window.
func (g *Guard) CheckDelete(comment *Comment, post *contents.Post, actingUserID int64, now time.Time) error {
	if post != nil && post.AuthorID == actingUserID {
		return nil
	}

	if comment.AuthorID != actingUserID {
		return &CommentForbiddenError{
			CommentID: comment.ID,
			UserID:    actingUserID,
			Action:    "delete",
			Reason:    ReasonNotOwner,
		}
	}

	if !g.withinWindow(comment, now) {
		return &CommentForbiddenError{
			CommentID: comment.ID,
			UserID:    actingUserID,
			Action:    "delete",
			Reason:    ReasonWindowExpired,
		}
	}

	return nil
}
