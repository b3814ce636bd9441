// Package catalog provides the challenge-question catalog backends: a
// relational store on PostgreSQL, a hierarchical registry store on a
// path-addressed resource tree, and a hybrid store that merges the two with
// relational-wins precedence. Backends are selected once at construction
// through [New]; the resulting store plugs into the root package's Builder.
package catalog

import (
	"errors"

	"github.com/authkit-dev/challengeq"
)

// Mode selects the backend a [New] call assembles.
type Mode int

const (
	// ModeRelational stores the catalog in a single relational table.
	ModeRelational Mode = iota
	// ModeRegistry stores the catalog in a hierarchical resource tree.
	ModeRegistry
	// ModeHybrid reads from both backends with relational precedence and
	// writes only to the relational one.
	ModeHybrid
)

// Deps carries the backend clients a store may need. Relational and hybrid
// modes require DB; registry and hybrid modes require Resources.
type Deps struct {
	// DB executes parameterized SQL. *pgxpool.Pool satisfies it.
	DB DBTX
	// Resources is the path-addressed resource tree client.
	Resources ResourceClient
	// BasePath roots the registry store's resource tree. Defaults to
	// DefaultBasePath.
	BasePath string
	// Dialect is the claim-URI prefix stripped from set identifiers when
	// deriving registry paths.
	Dialect string
}

// New assembles a catalog store for the given mode.
func New(mode Mode, deps Deps) (challengeq.CatalogStore, error) {
	switch mode {
	case ModeRelational:
		if deps.DB == nil {
			return nil, errors.New("relational catalog requires a database client")
		}
		return NewRelational(deps.DB), nil
	case ModeRegistry:
		if deps.Resources == nil {
			return nil, errors.New("registry catalog requires a resource client")
		}
		return NewRegistry(deps.Resources, deps.BasePath, deps.Dialect), nil
	case ModeHybrid:
		if deps.DB == nil || deps.Resources == nil {
			return nil, errors.New("hybrid catalog requires both a database and a resource client")
		}
		return NewHybrid(
			NewRelational(deps.DB),
			NewRegistry(deps.Resources, deps.BasePath, deps.Dialect),
		), nil
	default:
		return nil, errors.New("unknown catalog mode")
	}
}
