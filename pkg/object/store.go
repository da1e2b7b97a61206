// Package object defines the narrow object-store contract the checkout
// engine consumes, and a native content-addressable file store (blake3 ids,
// zstd-compressed objects). A git-backed implementation lives in pkg/gitio.
package object

import "github.com/castorvcs/castor/pkg/types"

// Store resolves content ids to trees and blob bytes. The engine treats it
// as a black box: tree/blob encodings never leak past this interface.
type Store interface {
	// PeelToTree resolves id to a tree, peeling through a commit if the id
	// names one. Ids naming neither fail with a NOT_A_TREE error.
	PeelToTree(id types.ObjectID) (*types.Tree, error)

	// ReadBlob returns the raw content of a blob.
	ReadBlob(id types.ObjectID) ([]byte, error)

	// HashBlob computes the content id blob data would have in this store,
	// without writing anything. The engine uses it to compare workdir file
	// content against tree entries.
	HashBlob(data []byte) types.ObjectID
}

// RefStore resolves the repository's current HEAD. Split from Store because
// bare target-directory checkouts need objects but may have no refs.
type RefStore interface {
	Head() (types.ObjectID, error)
}
