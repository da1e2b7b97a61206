package filters

import "bytes"

// CRLF converts line endings on checkout. Binary-looking content passes
// through untouched.
type CRLF struct{}

// Name implements Filter.
func (CRLF) Name() string { return "crlf" }

// Apply normalizes bare LF line endings to CRLF. Existing CRLF pairs are
// left alone so the conversion is idempotent.
func (CRLF) Apply(_ Context, data []byte) ([]byte, error) {
	if looksBinary(data) || len(data) == 0 {
		return data, nil
	}
	var out bytes.Buffer
	out.Grow(len(data) + len(data)/16)
	for i, b := range data {
		if b == '\n' && (i == 0 || data[i-1] != '\r') {
			out.WriteByte('\r')
		}
		out.WriteByte(b)
	}
	return out.Bytes(), nil
}
