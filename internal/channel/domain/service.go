package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
)

// CreateChannelRequest carries the fields needed to open a channel.
type CreateChannelRequest struct {
	Name string
}

// Service manages the channel registry. Get may serve a cached snapshot;
// GetFresh always reads the stored row.
type Service interface {
	Create(ctx context.Context, req CreateChannelRequest) (*Channel, error)
	Get(ctx context.Context, id snowflake.ID) (*Channel, error)
	GetFresh(ctx context.Context, id snowflake.ID) (*Channel, error)
	List(ctx context.Context) ([]Channel, error)
	SetStatus(ctx context.Context, id snowflake.ID, status ChannelStatus) (*Channel, error)
}
