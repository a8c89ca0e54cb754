package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFlat(t *testing.T) {
	t.Run("Add", func(t *testing.T) {
		f := NewFlat(3)

		require.NoError(t, f.Add("a", []float32{1, 0, 0}))
		assert.Equal(t, 1, f.Len())
		assert.True(t, f.Contains("a"))

		// Dimension mismatch is rejected without state change.
		err := f.Add("b", []float32{1, 0})
		assert.Error(t, err)
		assert.IsType(t, &ErrDimensionMismatch{}, err)
		assert.Equal(t, 1, f.Len())

		// Duplicate id is rejected.
		err = f.Add("a", []float32{0, 1, 0})
		assert.Error(t, err)
		assert.IsType(t, &ErrDuplicateID{}, err)
	})

	t.Run("SearchOrdering", func(t *testing.T) {
		f := NewFlat(3)
		require.NoError(t, f.Add("x", []float32{1, 0, 0}))
		require.NoError(t, f.Add("y", []float32{0, 1, 0}))
		require.NoError(t, f.Add("z", []float32{0.6, 0.8, 0}))

		matches, err := f.Search([]float32{0, 1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "y", matches[0].ID)
		assert.InDelta(t, 1.0, matches[0].Similarity, 1e-6)
		assert.Equal(t, "z", matches[1].ID)
		assert.InDelta(t, 0.8, matches[1].Similarity, 1e-6)
	})

	t.Run("SearchDeterministic", func(t *testing.T) {
		f := NewFlat(2)
		require.NoError(t, f.Add("first", []float32{1, 0}))
		require.NoError(t, f.Add("second", []float32{1, 0}))

		// Equal similarity: the earlier-inserted entry wins, every time.
		for range 5 {
			matches, err := f.Search([]float32{1, 0}, 2)
			require.NoError(t, err)
			require.Len(t, matches, 2)
			assert.Equal(t, "first", matches[0].ID)
			assert.Equal(t, "second", matches[1].ID)
		}
	})

	t.Run("SearchDimensionMismatch", func(t *testing.T) {
		f := NewFlat(3)
		require.NoError(t, f.Add("a", []float32{1, 0, 0}))

		_, err := f.Search([]float32{1, 0}, 1)
		assert.Error(t, err)
		assert.IsType(t, &ErrDimensionMismatch{}, err)
	})

	t.Run("Remove", func(t *testing.T) {
		f := NewFlat(2)
		require.NoError(t, f.Add("a", []float32{1, 0}))
		require.NoError(t, f.Add("b", []float32{0, 1}))
		require.NoError(t, f.Add("c", []float32{1, 0}))

		f.Remove("a")
		assert.Equal(t, 2, f.Len())
		assert.False(t, f.Contains("a"))

		// Removing an absent id is a no-op.
		f.Remove("missing")
		assert.Equal(t, 2, f.Len())

		// Remaining entries are still searchable and keep their order.
		matches, err := f.Search([]float32{1, 0}, 2)
		require.NoError(t, err)
		require.Len(t, matches, 2)
		assert.Equal(t, "c", matches[0].ID)
		assert.Equal(t, "b", matches[1].ID)
	})

	t.Run("Clear", func(t *testing.T) {
		f := NewFlat(2)
		require.NoError(t, f.Add("a", []float32{1, 0}))
		f.Clear()
		assert.Equal(t, 0, f.Len())

		matches, err := f.Search([]float32{1, 0}, 1)
		require.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestNormalizeL2(t *testing.T) {
	t.Run("InPlace", func(t *testing.T) {
		v := []float32{3, 4}
		require.True(t, NormalizeL2InPlace(v))
		assert.InDelta(t, 0.6, v[0], 1e-6)
		assert.InDelta(t, 0.8, v[1], 1e-6)
		assert.InDelta(t, 1.0, Dot(v, v), 1e-6)
	})

	t.Run("ZeroNorm", func(t *testing.T) {
		assert.False(t, NormalizeL2InPlace([]float32{0, 0, 0}))
		_, ok := NormalizeL2Copy([]float32{0, 0})
		assert.False(t, ok)
	})

	t.Run("Copy", func(t *testing.T) {
		src := []float32{3, 4}
		dst, ok := NormalizeL2Copy(src)
		require.True(t, ok)
		assert.Equal(t, []float32{3, 4}, src)
		assert.InDelta(t, 1.0, Dot(dst, dst), 1e-6)
	})
}
