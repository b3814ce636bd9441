package catalog

import "context"

// Resource is one node in a hierarchical resource tree: byte content plus
// string properties.
type Resource struct {
	Content    []byte            `json:"content"`
	Properties map[string]string `json:"properties,omitempty"`
}

// ResourceClient is the path-addressed storage a [Registry] store reads and
// writes. Paths are slash-separated; Delete removes the node and everything
// below it.
type ResourceClient interface {
	// Get returns the resource at path. The second return is false when no
	// resource exists there.
	Get(ctx context.Context, path string) (*Resource, bool, error)

	// Put stores the resource at path, replacing any existing one.
	Put(ctx context.Context, path string, res *Resource) error

	// Delete removes the resource at path along with its subtree. Deleting
	// an absent path is a no-op.
	Delete(ctx context.Context, path string) error

	// Children lists the immediate child paths of path, without duplicates.
	Children(ctx context.Context, path string) ([]string, error)
}
