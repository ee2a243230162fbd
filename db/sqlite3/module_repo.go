package sqlite3

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/nasermirzaei89/forumgw/contents"
)

const tableModules = "modules"

type ModuleRepository struct {
	db *sql.DB
}

var _ contents.ModuleRepository = (*ModuleRepository)(nil)

func NewModuleRepository(db *sql.DB) *ModuleRepository {
	return &ModuleRepository{db: db}
}

const (
	moduleFieldID          = "id"
	moduleFieldName        = "name"
	moduleFieldDescription = "description"
	moduleFieldCreatedAt   = "created_at"
)

func moduleColumns() []string {
	return []string{
		moduleFieldID,
		moduleFieldName,
		moduleFieldDescription,
		moduleFieldCreatedAt,
	}
}

func scanModule(row sq.RowScanner) (*contents.Module, error) {
	var module contents.Module

	err := row.Scan(
		&module.ID,
		&module.Name,
		&module.Description,
		&module.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row: %w", err)
	}

	return &module, nil
}

func (repo *ModuleRepository) Insert(ctx context.Context, module *contents.Module) error {
	q := sq.Insert(tableModules).
		Columns(moduleFieldName, moduleFieldDescription, moduleFieldCreatedAt).
		Values(module.Name, module.Description, module.CreatedAt.UTC())

	result, err := q.RunWith(repo.db).ExecContext(ctx)
	if err != nil {
		if isUniqueViolation(err) {
			return &contents.ModuleAlreadyExistsError{Name: module.Name}
		}

		return fmt.Errorf("failed to exec insert: %w", err)
	}

	module.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	return nil
}

func (repo *ModuleRepository) Find(ctx context.Context, moduleID int64) (*contents.Module, error) {
	q := sq.Select(moduleColumns()...).
		From(tableModules).
		Where(sq.Eq{moduleFieldID: moduleID})

	module, err := scanModule(q.RunWith(repo.db).QueryRowContext(ctx))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &contents.ModuleNotFoundError{ID: moduleID}
		}

		return nil, fmt.Errorf("failed to scan module: %w", err)
	}

	return module, nil
}

func (repo *ModuleRepository) FindMany(ctx context.Context, moduleIDs []int64) ([]*contents.Module, error) {
	if len(moduleIDs) == 0 {
		return []*contents.Module{}, nil
	}

	q := sq.Select(moduleColumns()...).
		From(tableModules).
		Where(sq.Eq{moduleFieldID: moduleIDs}).
		OrderBy(moduleFieldName)

	return repo.list(ctx, q)
}

func (repo *ModuleRepository) List(ctx context.Context) ([]*contents.Module, error) {
	q := sq.Select(moduleColumns()...).
		From(tableModules).
		OrderBy(moduleFieldName)

	return repo.list(ctx, q)
}

func (repo *ModuleRepository) Search(ctx context.Context, keyword string, limit uint64) ([]*contents.Module, error) {
	q := sq.Select(moduleColumns()...).
		From(tableModules).
		Where(sq.Or{
			containsKeyword(moduleFieldName, keyword),
			containsKeyword(moduleFieldDescription, keyword),
		}).
		OrderBy(moduleFieldName).
		Limit(limit)

	return repo.list(ctx, q)
}

func (repo *ModuleRepository) list(ctx context.Context, q sq.SelectBuilder) ([]*contents.Module, error) {
	rows, err := q.RunWith(repo.db).QueryContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to query modules: %w", err)
	}

	defer closeRows(ctx, rows, "module")

	modules := make([]*contents.Module, 0)

	for rows.Next() {
		module, err := scanModule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan module: %w", err)
		}

		modules = append(modules, module)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("failed to iterate module rows: %w", err)
	}

	return modules, nil
}
