package votes

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
)

type VoteType string

const (
	VoteLike    VoteType = "like"
	VoteDislike VoteType = "dislike"
)

func (voteType VoteType) IsValid() bool {
	switch voteType {
	case VoteLike, VoteDislike:
		return true
	default:
		return false
	}
}

// Tally is the vote state of one post. Liked and Disliked never share a
// member and the counters always equal their cardinalities.
type Tally struct {
	PostID       int64
	Liked        mapset.Set[int64]
	Disliked     mapset.Set[int64]
	LikeCount    uint32
	DislikeCount uint32
}

func NewTally(postID int64) *Tally {
	return &Tally{
		PostID:   postID,
		Liked:    mapset.NewThreadUnsafeSet[int64](),
		Disliked: mapset.NewThreadUnsafeSet[int64](),
	}
}

// Apply sets the vote of userID to voteType. Voting the same way twice is a
// no-op and there is no way to withdraw a vote. It reports whether the tally
// changed.
func (t *Tally) Apply(userID int64, voteType VoteType) bool {
	target, opposite := t.Liked, t.Disliked
	targetCount, oppositeCount := &t.LikeCount, &t.DislikeCount

	if voteType == VoteDislike {
		target, opposite = t.Disliked, t.Liked
		targetCount, oppositeCount = &t.DislikeCount, &t.LikeCount
	}

	changed := false

	if opposite.Contains(userID) {
		opposite.Remove(userID)

		if *oppositeCount > 0 {
			*oppositeCount--
		}

		changed = true
	}

	if target.Add(userID) {
		*targetCount++
		changed = true
	}

	return changed
}

// VoteOf returns the current vote of userID, if any.
func (t *Tally) VoteOf(userID int64) (VoteType, bool) {
	switch {
	case t.Liked.Contains(userID):
		return VoteLike, true
	case t.Disliked.Contains(userID):
		return VoteDislike, true
	default:
		return "", false
	}
}

type TallyRepository interface {
	Find(ctx context.Context, postID int64) (tally *Tally, err error)
	// Update loads the tally of postID, passes it to fn and stores the result
	// atomically together with the post counters.
	Update(ctx context.Context, postID int64, fn func(tally *Tally) error) (tally *Tally, err error)
}

type InvalidVoteTypeError struct {
	VoteType VoteType
}

func (err InvalidVoteTypeError) Error() string {
	return fmt.Sprintf("invalid vote type: %q", err.VoteType)
}
