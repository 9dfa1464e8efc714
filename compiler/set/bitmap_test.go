package set

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBitmap(t *testing.T) {
	var s Bitmap

	assert.Equal(t, -1, s.First())
	assert.Equal(t, 0, s.Len())

	s.Set(3)
	s.Set(70)
	s.Set(200)

	assert.True(t, s.IsSet(3))
	assert.True(t, s.IsSet(70))
	assert.False(t, s.IsSet(4))
	assert.False(t, s.IsSet(-1))
	assert.False(t, s.IsSet(10000))

	assert.Equal(t, 3, s.Size())
	assert.Equal(t, 3, s.First())
	assert.Equal(t, 200, s.Last())
	assert.Equal(t, 201, s.Len())

	assert.Equal(t, 70, s.Next(4))
	assert.Equal(t, 70, s.Next(70))
	assert.Equal(t, 200, s.Next(71))
	assert.Equal(t, -1, s.Next(201))

	var got []int
	s.Range(func(i int) bool {
		got = append(got, i)
		return true
	})

	assert.Equal(t, []int{3, 70, 200}, got)

	s.Clear(70)
	assert.False(t, s.IsSet(70))

	s.Reset()
	assert.Equal(t, 0, s.Size())
}

func TestBitmapFill(t *testing.T) {
	s := NewBitmap(10)

	s.FillSet(5, 68)

	assert.Equal(t, 63, s.Size())
	assert.Equal(t, 5, s.First())
	assert.Equal(t, 67, s.Last())
}
