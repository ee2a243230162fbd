package contents

import (
	"context"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Module is a course module posts are tagged with.
type Module struct {
	ID          int64
	Name        string
	Description string
	CreatedAt   time.Time
}

type ModuleRepository interface {
	Insert(ctx context.Context, module *Module) (err error)
	Find(ctx context.Context, moduleID int64) (module *Module, err error)
	FindMany(ctx context.Context, moduleIDs []int64) (modules []*Module, err error)
	List(ctx context.Context) (modules []*Module, err error)
	Search(ctx context.Context, keyword string, limit uint64) (modules []*Module, err error)
}

type CreateModuleRequest struct {
	Name        string
	Description string
}

func (req CreateModuleRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, 255)),
		validation.Field(&req.Description, validation.Length(0, 1000)),
	)
}

type ModuleNotFoundError struct {
	ID int64
}

func (err ModuleNotFoundError) Error() string {
	return fmt.Sprintf("module with id %d not found", err.ID)
}

type ModuleAlreadyExistsError struct {
	Name string
}

func (err ModuleAlreadyExistsError) Error() string {
	return fmt.Sprintf("module with name %q already exists", err.Name)
}
