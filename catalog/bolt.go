package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.etcd.io/bbolt"
)

var resourceBucket = []byte("resources")

// BoltResourceClient is a file-backed [ResourceClient] on bbolt. Resources
// live in one bucket keyed by their full slash-separated path, serialized as
// JSON. It suits single-process deployments and tests; shared deployments
// should implement ResourceClient against their registry service instead.
type BoltResourceClient struct {
	bdb *bbolt.DB
}

// NewBoltResourceClient prepares the resource bucket and returns the client.
// The *bbolt.DB stays owned by the caller.
func NewBoltResourceClient(bdb *bbolt.DB) (*BoltResourceClient, error) {
	err := bdb.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(resourceBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("bolt: creating resource bucket: %w", err)
	}
	return &BoltResourceClient{bdb: bdb}, nil
}

func (c *BoltResourceClient) Get(_ context.Context, path string) (*Resource, bool, error) {
	var res *Resource
	err := c.bdb.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(resourceBucket).Get([]byte(path))
		if data == nil {
			return nil
		}
		var r Resource
		if err := json.Unmarshal(data, &r); err != nil {
			return fmt.Errorf("bolt: decoding resource %q: %w", path, err)
		}
		res = &r
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return res, res != nil, nil
}

func (c *BoltResourceClient) Put(_ context.Context, path string, res *Resource) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("bolt: encoding resource %q: %w", path, err)
	}
	return c.bdb.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(resourceBucket).Put([]byte(path), data)
	})
}

// Delete removes the resource at path and its whole subtree.
func (c *BoltResourceClient) Delete(_ context.Context, path string) error {
	prefix := []byte(path + "/")
	exact := []byte(path)

	return c.bdb.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(resourceBucket)
		cur := b.Cursor()

		var doomed [][]byte
		for k, _ := cur.Seek(exact); k != nil && bytes.HasPrefix(k, exact); k, _ = cur.Next() {
			if !bytes.Equal(k, exact) && !bytes.HasPrefix(k, prefix) {
				continue
			}
			key := make([]byte, len(k))
			copy(key, k)
			doomed = append(doomed, key)
		}

		for _, k := range doomed {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
}

// Children lists the immediate child paths of path. Grandchildren collapse
// into their parent, so each child appears once.
func (c *BoltResourceClient) Children(_ context.Context, path string) ([]string, error) {
	prefix := path + "/"

	var children []string
	seen := make(map[string]struct{})

	err := c.bdb.View(func(tx *bbolt.Tx) error {
		cur := tx.Bucket(resourceBucket).Cursor()
		for k, _ := cur.Seek([]byte(prefix)); k != nil && bytes.HasPrefix(k, []byte(prefix)); k, _ = cur.Next() {
			rest := string(k[len(prefix):])
			if i := strings.Index(rest, "/"); i >= 0 {
				rest = rest[:i]
			}
			child := prefix + rest
			if _, ok := seen[child]; !ok {
				seen[child] = struct{}{}
				children = append(children, child)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return children, nil
}
