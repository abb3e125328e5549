package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// Service manages field operator accounts.
type Service interface {
	Create(ctx context.Context, name string) (*Account, error)
	Get(ctx context.Context, id snowflake.ID) (*Account, error)
	List(ctx context.Context) ([]Account, error)
}
