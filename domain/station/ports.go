package station

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("station not found")

// Lister is the read side the chat prompt builder depends on.
type Lister interface {
	List(ctx context.Context) ([]Station, error)
}

// Catalog is the full station store.
type Catalog interface {
	Lister
	Get(ctx context.Context, id int) (*Station, error)
	Search(ctx context.Context, filter Filter) ([]Station, error)
	Create(ctx context.Context, in NewStation) (*Station, error)
	Update(ctx context.Context, id int, patch Patch) (*Station, error)
	Delete(ctx context.Context, id int) error
	Genres(ctx context.Context) ([]string, error)
	Countries(ctx context.Context) ([]string, error)
	Languages(ctx context.Context) ([]string, error)
	Close() error
}
