package filters

import (
	"bytes"
	"fmt"
)

// Ident expands $Id$ keywords to the blob's content id on checkout.
type Ident struct{}

// Name implements Filter.
func (Ident) Name() string { return "ident" }

var identKey = []byte("$Id$")

// Apply replaces every $Id$ occurrence with $Id: <id> $. Content without
// the keyword is returned unchanged.
func (Ident) Apply(ctx Context, data []byte) ([]byte, error) {
	if looksBinary(data) || !bytes.Contains(data, identKey) {
		return data, nil
	}
	expanded := fmt.Sprintf("$Id: %s $", ctx.ID)
	return bytes.ReplaceAll(data, identKey, []byte(expanded)), nil
}
