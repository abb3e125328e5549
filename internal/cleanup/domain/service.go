package domain

import (
	"context"
	"errors"
	"time"

	"github.com/ShaneWong116/CurrencyExchange-sub000/internal/actor"
)

// Category names one class of purgeable content.
type Category string

const (
	CategoryAccounts    Category = "accounts"
	CategoryChannels    Category = "channels"
	CategoryBills       Category = "bills"
	CategorySettlements Category = "settlements"
	CategoryImages      Category = "images"
	CategoryDrafts      Category = "drafts"
)

// Valid reports whether the category is known.
func (c Category) Valid() bool {
	switch c {
	case CategoryAccounts, CategoryChannels, CategoryBills,
		CategorySettlements, CategoryImages, CategoryDrafts:
		return true
	}
	return false
}

// Options scopes one cleanup run.
type Options struct {
	From       time.Time
	To         time.Time
	Categories []Category
}

// Result reports exactly how many rows each category removed.
type Result struct {
	Deleted map[Category]int64
}

// Service performs scoped, cascading deletion. Referenced channels and
// accounts are silently skipped; settled bills are never touched; deleting
// a settlement unwinds it, restoring its batch to unsettled.
type Service interface {
	Run(ctx context.Context, opts Options, operator actor.Actor) (Result, error)
}

var (
	ErrInvalidCategory  = errors.New("invalid_cleanup_category")
	ErrInvalidTimeRange = errors.New("invalid_time_range")
	ErrInvalidOperator  = errors.New("invalid_operator")
)
