package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollection(t *testing.T) {
	t.Parallel()

	t.Run("empty collection has no error", func(t *testing.T) {
		t.Parallel()

		var c Collection

		assert.False(t, c.HasError())
		assert.Zero(t, c.Len())
		require.NoError(t, c.GetError())
	})

	t.Run("nil errors are ignored", func(t *testing.T) {
		t.Parallel()

		var c Collection

		c.Add(nil)
		c.Add(nil)

		assert.False(t, c.HasError())
		assert.Zero(t, c.Len())
	})

	t.Run("single error is returned as is", func(t *testing.T) {
		t.Parallel()

		var c Collection

		errScript := errors.New("bad script") //nolint:err113

		c.Add(errScript)

		assert.Equal(t, 1, c.Len())
		assert.Same(t, errScript, c.GetError()) //nolint:testifylint
	})

	t.Run("multiple errors are joined", func(t *testing.T) {
		t.Parallel()

		var c Collection

		err1 := errors.New("first") //nolint:err113
		err2 := errors.New("second") //nolint:err113

		c.Add(err1)
		c.Add(nil)
		c.Add(err2)

		err := c.GetError()
		require.Error(t, err)
		require.ErrorIs(t, err, err1)
		require.ErrorIs(t, err, err2)
		assert.Equal(t, 2, c.Len())
	})

	t.Run("clear resets the collection", func(t *testing.T) {
		t.Parallel()

		var c Collection

		c.Add(ErrWrongType)
		c.Clear()

		assert.False(t, c.HasError())
		require.NoError(t, c.GetError())
	})
}
