// Test Type: Unit Test
// Description: Tests for the errors package - code propagation, wrapping,
// and the conflict/cancellation detail accessors.

package errors_test

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castorvcs/castor/pkg/errors"
)

func TestNew(t *testing.T) {
	err := errors.New(errors.ErrConflict, "something conflicted")
	assert.Equal(t, "[CONFLICT] something conflicted", err.Error())
	assert.Equal(t, errors.ErrConflict, errors.GetCode(err))
}

func TestWrap(t *testing.T) {
	inner := fmt.Errorf("disk full")
	err := errors.Wrapf(inner, errors.ErrFilesystem, "writing %s", "a.txt")

	assert.Contains(t, err.Error(), "FILESYSTEM")
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, inner, stderrors.Unwrap(err))
	assert.True(t, errors.IsCode(err, errors.ErrFilesystem))
}

func TestWrap_NilPassthrough(t *testing.T) {
	assert.Nil(t, errors.Wrap(nil, errors.ErrFilesystem, "nope"))
	assert.Nil(t, errors.Wrapf(nil, errors.ErrFilesystem, "nope %d", 1))
}

func TestIs_MatchesByCode(t *testing.T) {
	a := errors.New(errors.ErrNotATree, "first")
	b := errors.New(errors.ErrNotATree, "second, different message")
	assert.True(t, stderrors.Is(a, b))

	c := errors.New(errors.ErrConflict, "other code")
	assert.False(t, stderrors.Is(a, c))
}

func TestGetCode_ForeignError(t *testing.T) {
	assert.Equal(t, errors.ErrUnknown, errors.GetCode(fmt.Errorf("plain")))
}

func TestGetCode_ThroughWrapping(t *testing.T) {
	inner := errors.New(errors.ErrObjectRead, "missing object")
	outer := fmt.Errorf("loading tree: %w", inner)
	assert.Equal(t, errors.ErrObjectRead, errors.GetCode(outer))
}

func TestWithDetail(t *testing.T) {
	err := errors.New(errors.ErrInvalidInput, "bad").WithDetail("path", "a/b")
	assert.Equal(t, "a/b", err.Details["path"])
}

func TestConflictHelpers(t *testing.T) {
	err := errors.NewConflict(3)
	require.True(t, errors.IsCode(err, errors.ErrConflict))
	assert.Equal(t, 3, errors.ConflictCount(err))

	assert.Zero(t, errors.ConflictCount(fmt.Errorf("other")))
	assert.Zero(t, errors.ConflictCount(errors.New(errors.ErrInternal, "not a conflict")))
}

func TestCancelHelpers(t *testing.T) {
	err := errors.NewCancelled(42)
	require.True(t, errors.IsCode(err, errors.ErrCancelled))

	code, ok := errors.CancelCode(err)
	require.True(t, ok)
	assert.Equal(t, 42, code)

	_, ok = errors.CancelCode(fmt.Errorf("not cancelled"))
	assert.False(t, ok)
}
