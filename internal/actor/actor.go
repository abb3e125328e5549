package actor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// Kind distinguishes admin operators from field operators.
type Kind string

const (
	KindAdmin   Kind = "admin"
	KindAccount Kind = "account"
)

var ErrInvalidActor = errors.New("invalid_actor")

// Actor attributes a settlement, adjustment, or cleanup run to whoever
// triggered it. Stored as two columns instead of a dynamic relation.
type Actor struct {
	Kind Kind
	ID   snowflake.ID
}

// Admin builds an admin actor reference.
func Admin(id snowflake.ID) Actor { return Actor{Kind: KindAdmin, ID: id} }

// Account builds a field-operator actor reference.
func Account(id snowflake.ID) Actor { return Actor{Kind: KindAccount, ID: id} }

// Valid reports whether the reference names a known kind and a non-zero id.
func (a Actor) Valid() bool {
	return (a.Kind == KindAdmin || a.Kind == KindAccount) && a.ID != 0
}

func (a Actor) String() string {
	return fmt.Sprintf("%s:%s", a.Kind, a.ID)
}

// Parse resolves a "kind:id" reference.
func Parse(value string) (Actor, error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return Actor{}, ErrInvalidActor
	}
	kind := Kind(strings.ToLower(strings.TrimSpace(parts[0])))
	if kind != KindAdmin && kind != KindAccount {
		return Actor{}, ErrInvalidActor
	}
	id, err := snowflake.ParseString(strings.TrimSpace(parts[1]))
	if err != nil || id == 0 {
		return Actor{}, ErrInvalidActor
	}
	return Actor{Kind: kind, ID: id}, nil
}
