package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/forumgw/contents"
)

const (
	tablePosts       = "posts"
	tablePostModules = "post_modules"
)

type PostRepository struct {
	db *sql.DB
}

var _ contents.PostRepository = (*PostRepository)(nil)

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

const (
	postFieldID           = "id"
	postFieldAuthorID     = "author_id"
	postFieldTitle        = "title"
	postFieldContent      = "content"
	postFieldImage        = "image"
	postFieldViewCount    = "view_count"
	postFieldLikeCount    = "like_count"
	postFieldDislikeCount = "dislike_count"
	postFieldCreatedAt    = "created_at"
	postFieldUpdatedAt    = "updated_at"

	postModuleFieldPostID   = "post_id"
	postModuleFieldModuleID = "module_id"
)

func postColumns() []string {
	return []string{
		postFieldID,
		postFieldAuthorID,
		postFieldTitle,
		postFieldContent,
		postFieldImage,
		postFieldViewCount,
		postFieldLikeCount,
		postFieldDislikeCount,
		postFieldCreatedAt,
		postFieldUpdatedAt,
	}
}

func scanPost(row sq.RowScanner) (*contents.Post, error) {
	var (
		post  contents.Post
		image sql.NullString
	)

	err := row.Scan(
		&post.ID,
		&post.AuthorID,
		&post.Title,
		&post.Content,
		&image,
		&post.ViewCount,
		&post.LikeCount,
		&post.DislikeCount,
		&post.CreatedAt,
		&post.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	if image.Valid {
		post.Image = &image.String
	}

	post.Modules = []*contents.Module{}

	return &post, nil
}

func (repo *PostRepository) Insert(ctx context.Context, post *contents.Post) error {
	return inTx(ctx, repo.db, func(tx *sql.Tx) error {
		q := sq.Insert(tablePosts).
			Columns(
				postFieldAuthorID,
				postFieldTitle,
				postFieldContent,
				postFieldImage,
				postFieldCreatedAt,
				postFieldUpdatedAt,
			).
			Values(post.AuthorID, post.Title, post.Content, post.Image, post.CreatedAt.UTC(), post.UpdatedAt.UTC())

		result, err := q.RunWith(tx).ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to exec insert: %w", err)
		}

		post.ID, err = result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}

		if len(post.Modules) == 0 {
			return nil
		}

		mq := sq.Insert(tablePostModules).Columns(postModuleFieldPostID, postModuleFieldModuleID)
		for _, module := range post.Modules {
			mq = mq.Values(post.ID, module.ID)
		}

		_, err = mq.RunWith(tx).ExecContext(ctx)
		if err != nil {
			return fmt.Errorf("failed to exec insert post modules: %w", err)
		}

		return nil
	})
}

func (repo *PostRepository) Find(ctx context.Context, postID int64) (*contents.Post, error) {
	q := sq.Select(postColumns()...).
		From(tablePosts).
		Where(sq.Eq{postFieldID: postID})

	post, err := scanPost(q.RunWith(repo.db).QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &contents.PostNotFoundError{ID: postID}
		}

		return nil, fmt.Errorf("failed to scan post: %w", err)
	}

	err = repo.attachModules(ctx, []*contents.Post{post})
	if err != nil {
		return nil, err
	}

	return post, nil
}

func postFilterWhere(params *contents.ListPostsParams) sq.And {
	where := sq.And{}

	if params.AuthorID != 0 {
		where = append(where, sq.Eq{postFieldAuthorID: params.AuthorID})
	}

	if params.ModuleID != 0 {
		where = append(where, sq.Expr(
			postFieldID+" IN (SELECT "+postModuleFieldPostID+" FROM "+tablePostModules+" WHERE "+postModuleFieldModuleID+" = ?)",
			params.ModuleID,
		))
	}

	return where
}

func postOrderBy(filter contents.PostFilter) []string {
	switch filter {
	case contents.FilterMostView:
		return []string{postFieldViewCount + " DESC", postFieldCreatedAt + " DESC", postFieldID + " DESC"}
	case contents.FilterMostLiked:
		return []string{postFieldLikeCount + " DESC", postFieldCreatedAt + " DESC", postFieldID + " DESC"}
	case contents.FilterMostDisliked:
		return []string{postFieldDislikeCount + " DESC", postFieldCreatedAt + " DESC", postFieldID + " DESC"}
	default:
		return []string{postFieldCreatedAt + " DESC", postFieldID + " DESC"}
	}
}

func (repo *PostRepository) List(ctx context.Context, params *contents.ListPostsParams) ([]*contents.Post, int, error) {
	where := postFilterWhere(params)

	var total int

	err := sq.Select("COUNT(*)").
		From(tablePosts).
		Where(where).
		RunWith(repo.db).
		QueryRowContext(ctx).
		Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count posts: %w", err)
	}

	q := sq.Select(postColumns()...).
		From(tablePosts).
		Where(where).
		OrderBy(postOrderBy(params.Filter)...).
		Limit(params.Limit).
		Offset(params.Offset)

	posts, err := repo.list(ctx, q)
	if err != nil {
		return nil, 0, err
	}

	return posts, total, nil
}

func (repo *PostRepository) Update(ctx context.Context, post *contents.Post) error {
	q := sq.Update(tablePosts).
		Set(postFieldTitle, post.Title).
		Set(postFieldContent, post.Content).
		Set(postFieldUpdatedAt, post.UpdatedAt.UTC()).
		Where(sq.Eq{postFieldID: post.ID})

	return execAffectingOne(ctx, q.RunWith(repo.db), &contents.PostNotFoundError{ID: post.ID})
}

// Delete removes the post with everything hanging off it.
func (repo *PostRepository) Delete(ctx context.Context, postID int64) error {
	return inTx(ctx, repo.db, func(tx *sql.Tx) error {
		for _, table := range []string{tableNotifications, tableComments, tablePostVotes, tablePostModules} {
			_, err := sq.Delete(table).
				Where(sq.Eq{"post_id": postID}).
				RunWith(tx).
				ExecContext(ctx)
			if err != nil {
				return fmt.Errorf("failed to delete from %s: %w", table, err)
			}
		}

		q := sq.Delete(tablePosts).Where(sq.Eq{postFieldID: postID})

		return execAffectingOne(ctx, q.RunWith(tx), &contents.PostNotFoundError{ID: postID})
	})
}

func (repo *PostRepository) IncrementViewCount(ctx context.Context, postID int64) error {
	q := sq.Update(tablePosts).
		Set(postFieldViewCount, sq.Expr(postFieldViewCount+" + 1")).
		Where(sq.Eq{postFieldID: postID})

	return execAffectingOne(ctx, q.RunWith(repo.db), &contents.PostNotFoundError{ID: postID})
}

func (repo *PostRepository) Search(ctx context.Context, keyword string, limit uint64) ([]*contents.Post, error) {
	q := sq.Select(postColumns()...).
		From(tablePosts).
		Where(sq.Or{
			containsKeyword(postFieldTitle, keyword),
			containsKeyword(postFieldContent, keyword),
		}).
		OrderBy(postOrderBy(contents.FilterNewest)...).
		Limit(limit)

	return repo.list(ctx, q)
}

func (repo *PostRepository) list(ctx context.Context, q sq.SelectBuilder) ([]*contents.Post, error) {
	rows, err := q.RunWith(repo.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}

	defer closeRows(ctx, rows, "post")

	posts := make([]*contents.Post, 0)

	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}

		posts = append(posts, post)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate post rows: %w", err)
	}

	err = rows.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to close post rows: %w", err)
	}

	err = repo.attachModules(ctx, posts)
	if err != nil {
		return nil, err
	}

	return posts, nil
}

func (repo *PostRepository) attachModules(ctx context.Context, posts []*contents.Post) error {
	if len(posts) == 0 {
		return nil
	}

	byID := make(map[int64]*contents.Post, len(posts))
	ids := make([]int64, 0, len(posts))

	for _, post := range posts {
		byID[post.ID] = post
		ids = append(ids, post.ID)
	}

	q := sq.Select(
		"pm."+postModuleFieldPostID,
		"m."+moduleFieldID,
		"m."+moduleFieldName,
		"m."+moduleFieldDescription,
		"m."+moduleFieldCreatedAt,
	).
		From(tablePostModules + " pm").
		Join(tableModules + " m ON m." + moduleFieldID + " = pm." + postModuleFieldModuleID).
		Where(sq.Eq{"pm." + postModuleFieldPostID: ids}).
		OrderBy("m." + moduleFieldName)

	rows, err := q.RunWith(repo.db).QueryContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to query post modules: %w", err)
	}

	defer closeRows(ctx, rows, "post module")

	for rows.Next() {
		var (
			postID int64
			module contents.Module
		)

		err := rows.Scan(&postID, &module.ID, &module.Name, &module.Description, &module.CreatedAt)
		if err != nil {
			return fmt.Errorf("failed to scan post module: %w", err)
		}

		if post, ok := byID[postID]; ok {
			post.Modules = append(post.Modules, &module)
		}
	}

	err = rows.Err()
	if err != nil {
		return fmt.Errorf("failed to iterate post module rows: %w", err)
	}

	return nil
}
