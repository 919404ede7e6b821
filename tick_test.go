package cochlea_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/cochlea"
	"github.com/dudk/cochlea/mock"
	"github.com/dudk/cochlea/signal"
)

func tick(g *cochlea.Graph) error {
	return g.RunStreamTick(cochlea.Execution{Samples: blockSize})
}

func TestStreamStart(t *testing.T) {
	g := newGraph(t)
	source := &mock.Source{}
	processor := &mock.Processor{}
	sink := &mock.Sink{}
	a := createNode(t, g, "source", source)
	p := createNode(t, g, "processor", processor, a)
	createNode(t, g, "sink", sink, p)

	for i := 0; i < 5; i++ {
		require.NoError(t, tick(g))
	}
	for _, h := range []mock.Hooks{source.Hooks, processor.Hooks, sink.Hooks} {
		assert.Equal(t, 1, h.Validates)
		assert.Equal(t, 1, h.Prepares)
		assert.Equal(t, 5, h.Runs)
		assert.Equal(t, 1, h.StreamStarts)
	}
	assert.Equal(t, int64(5*blockSize), p.Cursor())
	assert.Equal(t, cochlea.Running, p.State())

	require.NoError(t, g.RunStreamTick(cochlea.Execution{Samples: blockSize, StreamStart: true}))
	for _, h := range []mock.Hooks{source.Hooks, processor.Hooks, sink.Hooks} {
		assert.Equal(t, 2, h.Validates)
		assert.Equal(t, 2, h.Prepares)
		assert.Equal(t, 2, h.StreamStarts)
	}
	assert.Equal(t, int64(blockSize), p.Cursor())
}

func TestShapeStability(t *testing.T) {
	g := newGraph(t)
	a := createNode(t, g, "source", &mock.Source{Channels: 2})
	require.NoError(t, tick(g))
	data := a.Output().Data()
	require.NoError(t, tick(g))
	assert.Same(t, &data[0][0], &a.Output().Data()[0][0])

	require.NoError(t, g.RunStreamTick(cochlea.Execution{Samples: 2 * blockSize}))
	assert.Equal(t, 2*blockSize, a.Output().Len())
}

func TestRunError(t *testing.T) {
	testErr := errors.New("numerical instability")
	g := newGraph(t)
	a := createNode(t, g, "source", &mock.Source{Value: 0.5})
	b := createNode(t, g, "processor", &mock.Processor{}, a)
	c := createNode(t, g, "failing", &mock.Processor{Hooks: mock.Hooks{ErrorOnRun: testErr}}, b)
	sink := &mock.Sink{}
	createNode(t, g, "sink", sink, c)

	err := tick(g)
	var runErr *cochlea.RunError
	require.True(t, errors.As(err, &runErr))
	assert.ErrorIs(t, err, testErr)
	assert.Equal(t, c.String(), runErr.Node)
	assert.Contains(t, err.Error(), "failing")

	assert.Equal(t, 0.5, a.Output().Channel(0)[blockSize-1])
	assert.Equal(t, 0.5, b.Output().Channel(0)[0])
	assert.Equal(t, 0, sink.Runs)
}

func TestResourceError(t *testing.T) {
	g := newGraph(t)
	a := createNode(t, g, "source", &mock.Source{Hooks: mock.Hooks{
		ErrorOnPrepare: &signal.AllocError{Channels: 1, Length: 1 << 60, Reason: "out of memory"},
	}})
	err := tick(g)
	var resourceErr *cochlea.ResourceError
	require.True(t, errors.As(err, &resourceErr))
	assert.Equal(t, a.String(), resourceErr.Node)
}

func TestNotReady(t *testing.T) {
	g := newGraph(t)
	late := &mock.Source{NotReady: 1}
	processor := &mock.Processor{}
	independent := &mock.Sink{}
	a := createNode(t, g, "late", late)
	p := createNode(t, g, "processor", processor, a)
	s := createNode(t, g, "sink", &mock.Sink{}, p)
	other := createNode(t, g, "other", &mock.Source{})
	createNode(t, g, "independent", independent, other)

	err := tick(g)
	var notReady *cochlea.NotReadyError
	require.True(t, errors.As(err, &notReady))
	assert.ErrorIs(t, err, cochlea.ErrNotReady)
	assert.Equal(t, []string{a.String(), p.String(), s.String()}, notReady.Nodes)
	assert.Equal(t, 1, independent.Runs)
	assert.Equal(t, 0, processor.Runs)
	assert.Equal(t, 0, processor.Prepares, "dependent is prepared after upstream produced output")
	assert.Equal(t, int64(0), p.Cursor())

	require.NoError(t, tick(g))
	assert.Equal(t, 1, processor.Runs)
	assert.Equal(t, 1, processor.StreamStarts)
	assert.Equal(t, 2, late.StreamStarts, "stream start is delivered until the first successful run")
	assert.Equal(t, int64(blockSize), p.Cursor())
	assert.Equal(t, int64(2*blockSize), other.Cursor())
}

func TestDeferredValidation(t *testing.T) {
	g := newGraph(t)
	late := &mock.Source{NotReady: 1, Lazy: true, Dt: 1e-4}
	processor := &mock.Processor{}
	a := createNode(t, g, "late", late)
	p := createNode(t, g, "processor", processor, a)

	err := tick(g)
	require.ErrorIs(t, err, cochlea.ErrNotReady)
	assert.Equal(t, 0, processor.Validates)
	assert.Equal(t, 0, processor.Prepares)
	assert.Equal(t, 0, a.Output().Channels())

	require.NoError(t, tick(g))
	assert.Equal(t, 1, processor.Validates)
	assert.Equal(t, 1, processor.Prepares)
	assert.Equal(t, 1, processor.Runs)
	assert.Equal(t, 1e-4, p.Output().Dt())

	require.NoError(t, tick(g))
	assert.Equal(t, 1, processor.Validates)
	assert.Equal(t, 1, processor.Prepares)
}

func TestStructuralErrorKeepsStream(t *testing.T) {
	g := newGraph(t)
	a := createNode(t, g, "source", &mock.Source{})
	p := createNode(t, g, "processor", &mock.Processor{}, a)
	require.NoError(t, tick(g))
	require.NoError(t, tick(g))

	createNode(t, g, "unconnected", &mock.Processor{})
	err := g.RunStreamTick(cochlea.Execution{Samples: blockSize, StreamStart: true})
	require.ErrorIs(t, err, cochlea.ErrUnconnected)
	assert.Equal(t, int64(2*blockSize), a.Cursor())
	assert.Equal(t, int64(2*blockSize), p.Cursor())
	assert.Equal(t, cochlea.Running, p.State())
}

func TestChildren(t *testing.T) {
	g := newGraph(t)
	n := createNode(t, g, "owner", &carrier{})
	require.NoError(t, tick(g))
	carry := n.Child("carry")
	assert.Same(t, n, carry.Parent())
	assert.Equal(t, []*cochlea.Node{carry}, n.Children())
	assert.Equal(t, 1.0, carry.Output().Channel(0)[0])
	require.NoError(t, tick(g))
	assert.Equal(t, 2.0, carry.Output().Channel(0)[0])

	require.NoError(t, g.RunStreamTick(cochlea.Execution{Samples: blockSize, StreamStart: true}))
	assert.Equal(t, 1.0, carry.Output().Channel(0)[0], "carry is zeroed at stream start")
}

// carrier counts runs in the carry child.
type carrier struct {
	mock.Source
}

func (c *carrier) Prepare(n *cochlea.Node, e cochlea.Execution) error {
	if err := n.Child("carry").Output().Allocate(1, 1, 1); err != nil {
		return err
	}
	return n.Output().Allocate(1, e.Samples, 1)
}

func (c *carrier) Run(n *cochlea.Node, e cochlea.Execution) error {
	n.Child("carry").Output().Channel(0)[0]++
	return nil
}
