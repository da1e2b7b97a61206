// Package filters applies content transformations when blobs are written to
// the working directory: line-ending conversion and $Id$ keyword expansion.
// Which filters apply to a path is decided per path from repository
// configuration and the attributes file, so attribute changes made during a
// checkout affect later writes deterministically.
package filters

import (
	"bytes"
	"fmt"

	"github.com/castorvcs/castor/pkg/types"
)

// Context carries what a filter may need about the blob being written.
type Context struct {
	Path string
	ID   types.ObjectID
}

// Filter rewrites blob content on its way to the working directory.
type Filter interface {
	Name() string
	Apply(ctx Context, data []byte) ([]byte, error)
}

// Chain applies filters in order.
type Chain []Filter

// Apply runs every filter over the data.
func (c Chain) Apply(ctx Context, data []byte) ([]byte, error) {
	var err error
	for _, f := range c {
		data, err = f.Apply(ctx, data)
		if err != nil {
			return nil, fmt.Errorf("filter %s on %s: %w", f.Name(), ctx.Path, err)
		}
	}
	return data, nil
}

// Source yields the filter chain for a path. The executor queries it once
// per written blob.
type Source interface {
	FiltersFor(path string) Chain
}

// None is a Source with no filters.
type None struct{}

// FiltersFor returns an empty chain.
func (None) FiltersFor(string) Chain { return nil }

// looksBinary reports whether content should be exempt from text filters.
func looksBinary(data []byte) bool {
	probe := data
	if len(probe) > 8000 {
		probe = probe[:8000]
	}
	return bytes.IndexByte(probe, 0) >= 0
}
