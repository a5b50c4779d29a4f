package api

import (
	"context"

	"github.com/dayboardhq/dayboard/internal/store"
	"github.com/dayboardhq/dayboard/internal/todo"
)

// UserDirectory is the slice of the user store the API layer needs.
type UserDirectory interface {
	CreateOrLink(ctx context.Context, input store.CreateOrLinkInput) (*store.User, error)
	FindByID(ctx context.Context, userID string) (*store.User, error)
	Touch(ctx context.Context, userID string) error
}

// TodoStore is the todo persistence surface the API layer needs.
type TodoStore interface {
	List(ctx context.Context, userID string) ([]todo.Todo, error)
	Create(ctx context.Context, userID string, input todo.Input) (*todo.Todo, error)
	Get(ctx context.Context, userID, todoID string) (*todo.Todo, error)
	Update(ctx context.Context, userID, todoID string, input todo.Input) (*todo.Todo, error)
	Toggle(ctx context.Context, userID, todoID string) (*todo.Todo, error)
	Delete(ctx context.Context, userID, todoID string) error
}

// The Mongo-backed stores are the production implementations.
var (
	_ UserDirectory = (*store.UserStore)(nil)
	_ TodoStore     = (*todo.Store)(nil)
)
