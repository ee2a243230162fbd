package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	mapset "github.com/deckarep/golang-set/v2"
	"github.com/nasermirzaei89/forumgw/contents"
	"github.com/nasermirzaei89/forumgw/votes"
)

const tablePostVotes = "post_votes"

// VoteRepository keeps one row per (post, user) vote and mirrors the counts
// onto the posts table.
type VoteRepository struct {
	db *sql.DB
}

var _ votes.TallyRepository = (*VoteRepository)(nil)

func NewVoteRepository(db *sql.DB) *VoteRepository {
	return &VoteRepository{db: db}
}

const (
	voteFieldPostID = "post_id"
	voteFieldUserID = "user_id"
	voteFieldKind   = "kind"
)

func (repo *VoteRepository) Find(ctx context.Context, postID int64) (*votes.Tally, error) {
	return loadTally(ctx, repo.db, postID)
}

func (repo *VoteRepository) Update(
	ctx context.Context,
	postID int64,
	fn func(tally *votes.Tally) error,
) (*votes.Tally, error) {
	var tally *votes.Tally

	err := inTx(ctx, repo.db, func(tx *sql.Tx) error {
		var err error

		tally, err = loadTally(ctx, tx, postID)
		if err != nil {
			return err
		}

		liked := tally.Liked.Clone()
		disliked := tally.Disliked.Clone()

		err = fn(tally)
		if err != nil {
			return err
		}

		err = saveVotes(ctx, tx, postID, tally.Liked.Difference(liked), votes.VoteLike)
		if err != nil {
			return err
		}

		err = saveVotes(ctx, tx, postID, tally.Disliked.Difference(disliked), votes.VoteDislike)
		if err != nil {
			return err
		}

		withdrawn := liked.Union(disliked).Difference(tally.Liked.Union(tally.Disliked))
		if withdrawn.Cardinality() > 0 {
			_, err = sq.Delete(tablePostVotes).
				Where(sq.Eq{voteFieldPostID: postID, voteFieldUserID: withdrawn.ToSlice()}).
				RunWith(tx).
				ExecContext(ctx)
			if err != nil {
				return fmt.Errorf("failed to delete withdrawn votes: %w", err)
			}
		}

		return refreshCounters(ctx, tx, postID, tally)
	})
	if err != nil {
		return nil, err
	}

	return tally, nil
}

func saveVotes(ctx context.Context, tx *sql.Tx, postID int64, userIDs mapset.Set[int64], kind votes.VoteType) error {
	ids := userIDs.ToSlice()
	if len(ids) == 0 {
		return nil
	}

	q := sq.Insert(tablePostVotes).
		Columns(voteFieldPostID, voteFieldUserID, voteFieldKind)

	for _, userID := range ids {
		q = q.Values(postID, userID, string(kind))
	}

	q = q.Suffix("ON CONFLICT(" + voteFieldPostID + ", " + voteFieldUserID + ") DO UPDATE SET " + voteFieldKind + " = excluded." + voteFieldKind)

	_, err := q.RunWith(tx).ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to upsert %s votes: %w", kind, err)
	}

	return nil
}

// refreshCounters recomputes the post counters from the vote rows.
func refreshCounters(ctx context.Context, tx *sql.Tx, postID int64, tally *votes.Tally) error {
	countOf := func(kind votes.VoteType) sq.Sqlizer {
		return sq.Expr(
			"(SELECT COUNT(*) FROM "+tablePostVotes+" WHERE "+voteFieldPostID+" = ? AND "+voteFieldKind+" = ?)",
			postID, string(kind),
		)
	}

	_, err := sq.Update(tablePosts).
		Set(postFieldLikeCount, countOf(votes.VoteLike)).
		Set(postFieldDislikeCount, countOf(votes.VoteDislike)).
		Where(sq.Eq{postFieldID: postID}).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to update post counters: %w", err)
	}

	err = sq.Select(postFieldLikeCount, postFieldDislikeCount).
		From(tablePosts).
		Where(sq.Eq{postFieldID: postID}).
		RunWith(tx).
		QueryRowContext(ctx).
		Scan(&tally.LikeCount, &tally.DislikeCount)
	if err != nil {
		return fmt.Errorf("failed to read post counters: %w", err)
	}

	return nil
}

func votedPostIDs(ctx context.Context, tx *sql.Tx, userID int64) ([]int64, error) {
	rows, err := sq.Select(voteFieldPostID).
		From(tablePostVotes).
		Where(sq.Eq{voteFieldUserID: userID}).
		RunWith(tx).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query voted posts: %w", err)
	}

	defer closeRows(ctx, rows, "voted post")

	postIDs := make([]int64, 0)

	for rows.Next() {
		var postID int64

		err := rows.Scan(&postID)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voted post: %w", err)
		}

		postIDs = append(postIDs, postID)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate voted post rows: %w", err)
	}

	return postIDs, nil
}

// recountVotes recomputes the counters of many posts from their vote rows.
func recountVotes(ctx context.Context, tx *sql.Tx, postIDs []int64) error {
	if len(postIDs) == 0 {
		return nil
	}

	countOf := func(kind votes.VoteType) sq.Sqlizer {
		return sq.Expr(
			"(SELECT COUNT(*) FROM "+tablePostVotes+" WHERE "+tablePostVotes+"."+voteFieldPostID+" = "+
				tablePosts+"."+postFieldID+" AND "+voteFieldKind+" = ?)",
			string(kind),
		)
	}

	_, err := sq.Update(tablePosts).
		Set(postFieldLikeCount, countOf(votes.VoteLike)).
		Set(postFieldDislikeCount, countOf(votes.VoteDislike)).
		Where(sq.Eq{postFieldID: postIDs}).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to recount post votes: %w", err)
	}

	return nil
}

func loadTally(ctx context.Context, runner sq.BaseRunner, postID int64) (*votes.Tally, error) {
	var exists int

	err := sq.Select("1").
		From(tablePosts).
		Where(sq.Eq{postFieldID: postID}).
		RunWith(runner).
		QueryRowContext(ctx).
		Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &contents.PostNotFoundError{ID: postID}
		}

		return nil, fmt.Errorf("failed to check post: %w", err)
	}

	rows, err := sq.Select(voteFieldUserID, voteFieldKind).
		From(tablePostVotes).
		Where(sq.Eq{voteFieldPostID: postID}).
		RunWith(runner).
		QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query votes: %w", err)
	}

	defer closeRows(ctx, rows, "vote")

	tally := votes.NewTally(postID)

	for rows.Next() {
		var (
			userID int64
			kind   votes.VoteType
		)

		err := rows.Scan(&userID, &kind)
		if err != nil {
			return nil, fmt.Errorf("failed to scan vote: %w", err)
		}

		switch kind {
		case votes.VoteLike:
			tally.Liked.Add(userID)
		case votes.VoteDislike:
			tally.Disliked.Add(userID)
		}
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate vote rows: %w", err)
	}

	tally.LikeCount = uint32(tally.Liked.Cardinality())
	tally.DislikeCount = uint32(tally.Disliked.Cardinality())

	return tally, nil
}
