package votes

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/nasermirzaei89/forumgw/authorization"
	"github.com/nasermirzaei89/forumgw/metrics"
)

const ServiceName = "github.com/nasermirzaei89/forumgw/votes"

type Service interface {
	ApplyVote(ctx context.Context, postID, userID int64, voteType VoteType) (*Tally, error)
	GetTally(ctx context.Context, postID int64) (*Tally, error)
}

type BaseService struct {
	tallyRepo TallyRepository
}

var _ Service = (*BaseService)(nil)

func NewService(tallyRepo TallyRepository) *BaseService {
	return &BaseService{tallyRepo: tallyRepo}
}

func (svc *BaseService) ApplyVote(ctx context.Context, postID, userID int64, voteType VoteType) (*Tally, error) {
	if !voteType.IsValid() {
		return nil, &InvalidVoteTypeError{VoteType: voteType}
	}

	changed := false

	tally, err := svc.tallyRepo.Update(ctx, postID, func(tally *Tally) error {
		changed = tally.Apply(userID, voteType)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to apply vote: %w", err)
	}

	if changed {
		metrics.VotesApplied.WithLabelValues(string(voteType)).Inc()
	}

	slog.DebugContext(ctx, "vote applied",
		"postId", postID,
		"userId", userID,
		"type", voteType,
		"changed", changed,
	)

	return tally, nil
}

func (svc *BaseService) GetTally(ctx context.Context, postID int64) (*Tally, error) {
	tally, err := svc.tallyRepo.Find(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find tally: %w", err)
	}

	return tally, nil
}

const (
	ActionVote     = "vote"
	ActionGetTally = "getTally"
)

type AuthorizationMiddleware struct {
	authzClient *authorization.Client
	next        Service
}

var _ Service = (*AuthorizationMiddleware)(nil)

func NewAuthorizationMiddleware(authzClient *authorization.Client, next Service) *AuthorizationMiddleware {
	return &AuthorizationMiddleware{
		authzClient: authzClient,
		next:        next,
	}
}

func (mw *AuthorizationMiddleware) ApplyVote(ctx context.Context, postID, userID int64, voteType VoteType) (*Tally, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, strconv.FormatInt(postID, 10), ActionVote)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	tally, err := mw.next.ApplyVote(ctx, postID, userID, voteType)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return tally, nil
}

func (mw *AuthorizationMiddleware) GetTally(ctx context.Context, postID int64) (*Tally, error) {
	err := mw.authzClient.CheckAccess(ctx, ServiceName, strconv.FormatInt(postID, 10), ActionGetTally)
	if err != nil {
		return nil, fmt.Errorf("failed to check authorization: %w", err)
	}

	tally, err := mw.next.GetTally(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to call next method: %w", err)
	}

	return tally, nil
}
