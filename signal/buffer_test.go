package signal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/cochlea/signal"
)

func TestAllocateKeepsStorage(t *testing.T) {
	var b signal.Buffer
	require.NoError(t, b.Allocate(2, 16, 1e-4))
	first := &b.Channel(0)[0]
	b.Channel(1)[3] = 42

	require.NoError(t, b.Allocate(2, 16, 1e-4))
	assert.Same(t, first, &b.Channel(0)[0])
	assert.Equal(t, 42.0, b.Channel(1)[3])

	// sample interval change doesn't need new storage
	require.NoError(t, b.Allocate(2, 16, 2e-4))
	assert.Same(t, first, &b.Channel(0)[0])
	assert.Equal(t, 2e-4, b.Dt())

	require.NoError(t, b.Allocate(2, 32, 2e-4))
	assert.NotSame(t, first, &b.Channel(0)[0])
	assert.Equal(t, signal.Shape{Channels: 2, Length: 32, Dt: 2e-4}, b.Shape())
	assert.Equal(t, 0.0, b.Channel(1)[3])
}

func TestAllocateFails(t *testing.T) {
	tests := []struct {
		channels int
		length   int
		dt       float64
	}{
		{channels: -1, length: 10, dt: 1},
		{channels: 1, length: -10, dt: 1},
		{channels: 1, length: 10, dt: -1},
	}
	for _, test := range tests {
		var b signal.Buffer
		err := b.Allocate(test.channels, test.length, test.dt)
		var allocErr *signal.AllocError
		assert.ErrorAs(t, err, &allocErr)
	}
}

func TestResetKeepsShape(t *testing.T) {
	var b signal.Buffer
	require.NoError(t, b.Allocate(3, 8, 1))
	for i := 0; i < b.Channels(); i++ {
		for j := range b.Channel(i) {
			b.Channel(i)[j] = float64(i + j)
		}
	}
	first := &b.Channel(0)[0]
	b.Reset()
	assert.Same(t, first, &b.Channel(0)[0])
	assert.Equal(t, signal.EmptyFloat64(3, 8), b.Data())
}

func TestView(t *testing.T) {
	var b signal.Buffer
	require.NoError(t, b.Allocate(4, 2, 0.5))
	require.NoError(t, b.SetLabels([]string{"a", "b", "c", "d"}))
	require.NoError(t, b.SetCFs([]float64{100, 200, 300, 400}))

	v := b.View(signal.Range{From: 1, To: 3})
	assert.True(t, v.IsView())
	assert.Equal(t, 2, v.Channels())
	assert.Equal(t, 1, v.Offset())
	assert.Equal(t, 0.5, v.Dt())
	assert.Equal(t, []string{"b", "c"}, v.Labels())
	assert.Equal(t, []float64{200, 300}, v.CFs())

	v.Channel(0)[1] = 7
	assert.Equal(t, 7.0, b.Channel(1)[1])

	nested := v.View(signal.Range{From: 1, To: 2})
	assert.Equal(t, 2, nested.Offset())
	assert.ErrorIs(t, v.Allocate(1, 1, 1), signal.ErrView)
}

func TestMetadataMismatch(t *testing.T) {
	var b signal.Buffer
	require.NoError(t, b.Allocate(2, 1, 1))
	assert.Error(t, b.SetLabels([]string{"only one"}))
	assert.Error(t, b.SetCFs([]float64{1, 2, 3}))

	require.NoError(t, b.SetLabels([]string{"l", "r"}))
	require.NoError(t, b.Allocate(3, 1, 1))
	assert.Nil(t, b.Labels())
}

func TestPartition(t *testing.T) {
	tests := []struct {
		channels int
		k        int
		expected []signal.Range
	}{
		{channels: 0, k: 2, expected: nil},
		{channels: 4, k: 1, expected: []signal.Range{{0, 4}}},
		{channels: 4, k: 2, expected: []signal.Range{{0, 2}, {2, 4}}},
		{channels: 5, k: 2, expected: []signal.Range{{0, 3}, {3, 5}}},
		{channels: 2, k: 8, expected: []signal.Range{{0, 1}, {1, 2}}},
		{channels: 3, k: 0, expected: []signal.Range{{0, 3}}},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, signal.Partition(test.channels, test.k))
	}
}

func TestSeed(t *testing.T) {
	assert.Equal(t, signal.Seed(1, 3), signal.Seed(1, 3))
	assert.NotEqual(t, signal.Seed(1, 3), signal.Seed(1, 4))
	assert.NotEqual(t, signal.Seed(1, 3), signal.Seed(2, 3))
}
