package stage_test

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dudk/cochlea"
	"github.com/dudk/cochlea/mock"
	"github.com/dudk/cochlea/signal"
	"github.com/dudk/cochlea/stage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// build creates nodes of the graph and returns the node to collect output.
type build func(t *testing.T, g *cochlea.Graph) *cochlea.Node

func node(t *testing.T, g *cochlea.Graph, name string, m cochlea.Module, params map[string]interface{}, inputs ...*cochlea.Node) *cochlea.Node {
	t.Helper()
	n, err := g.CreateNode(name, m, cochlea.WithParams(params))
	require.NoError(t, err)
	for slot, in := range inputs {
		require.NoError(t, g.AddEdge(in, n, slot))
	}
	return n
}

// run executes ticks of provided sizes and returns concatenated output.
func run(t *testing.T, b build, threads int, blocks ...int) signal.Float64 {
	t.Helper()
	g, err := cochlea.NewGraph()
	require.NoError(t, err)
	defer g.Close()
	out := b(t, g)

	s, err := cochlea.NewScheduler(g, blocks[0], cochlea.WithThreads(threads))
	require.NoError(t, err)
	var result signal.Float64
	for _, size := range blocks {
		require.NoError(t, s.Advance(size))
		result = result.Append(out.Output().Data())
	}
	return result
}

func TestSineGainSum(t *testing.T) {
	g, err := cochlea.NewGraph()
	require.NoError(t, err)
	defer g.Close()

	a := node(t, g, "a", &stage.Sine{}, map[string]interface{}{"dt": 1e-4, "frequency": 440.0})
	b := node(t, g, "b", &stage.Gain{}, map[string]interface{}{"gain": 2.0}, a)
	c := node(t, g, "c", &stage.Sum{}, nil, b)

	s, err := cochlea.NewScheduler(g, 100)
	require.NoError(t, err)
	require.NoError(t, s.Tick())

	assert.Equal(t, 100, a.Output().Len())
	assert.Equal(t, 1e-4, a.Output().Dt())
	assert.Equal(t, 1, c.Output().Channels())
	assert.Equal(t, 2*a.Output().Channel(0)[50], c.Output().Channel(0)[50])
	assert.InDelta(t, 2*math.Sin(2*math.Pi*440*50*1e-4), c.Output().Channel(0)[50], 1e-12)
}

func TestBinWidthValidation(t *testing.T) {
	source := &mock.Source{Dt: 1e-4}
	g, err := cochlea.NewGraph()
	require.NoError(t, err)
	defer g.Close()

	src := node(t, g, "source", source, nil)
	bin := node(t, g, "bin", &stage.Bin{}, map[string]interface{}{"binwidth": 5e-5}, src)

	s, err := cochlea.NewScheduler(g, 100)
	require.NoError(t, err)
	err = s.Tick()

	var configErr *cochlea.ConfigurationError
	require.True(t, errors.As(err, &configErr))
	assert.Equal(t, bin.String(), configErr.Node)
	assert.Equal(t, "binwidth", configErr.Param)
	assert.Equal(t, 5e-5, configErr.Got)
	assert.Equal(t, 0, source.Runs)
	assert.Equal(t, int64(0), s.Offset())
}

func TestBin(t *testing.T) {
	g, err := cochlea.NewGraph()
	require.NoError(t, err)
	defer g.Close()
	src := node(t, g, "source", &mock.Source{Dt: 1, Ramp: true}, nil)
	bin := node(t, g, "bin", &stage.Bin{}, map[string]interface{}{"binwidth": 2.0}, src)

	s, err := cochlea.NewScheduler(g, 3)
	require.NoError(t, err)
	var result signal.Float64
	for i := 0; i < 2; i++ {
		require.NoError(t, s.Tick())
		assert.Equal(t, 2.0, bin.Output().Dt())
		result = result.Append(bin.Output().Data())
	}
	assert.Equal(t, signal.Float64{{0.5, 2.5, 4.5}}, result)
}

func TestBinWidthValidationDeferred(t *testing.T) {
	source := &mock.Source{Dt: 1e-4, NotReady: 1, Lazy: true}
	g, err := cochlea.NewGraph()
	require.NoError(t, err)
	defer g.Close()

	src := node(t, g, "source", source, nil)
	bin := node(t, g, "bin", &stage.Bin{}, map[string]interface{}{"binwidth": 5e-5}, src)

	s, err := cochlea.NewScheduler(g, 100)
	require.NoError(t, err)
	require.ErrorIs(t, s.Tick(), cochlea.ErrNotReady)

	err = s.Tick()
	var configErr *cochlea.ConfigurationError
	require.True(t, errors.As(err, &configErr), "got %v", err)
	assert.Equal(t, bin.String(), configErr.Node)
	assert.Equal(t, "binwidth", configErr.Param)
	assert.Equal(t, 0, bin.Output().Len())

	err = s.Tick()
	require.True(t, errors.As(err, &configErr), "got %v", err)
}

func TestDelay(t *testing.T) {
	result := run(t, func(t *testing.T, g *cochlea.Graph) *cochlea.Node {
		src := node(t, g, "source", &mock.Source{Dt: 1, Ramp: true}, nil)
		return node(t, g, "delay", &stage.Delay{}, map[string]interface{}{"delay": 2.0}, src)
	}, 1, 3, 3)

	assert.Equal(t, signal.Float64{{0, 0, 0, 1, 2, 3}}, result)
}

func TestSum(t *testing.T) {
	tests := []struct {
		mode     string
		expected float64
	}{
		{mode: "sum", expected: 9},
		{mode: "average", expected: 3},
	}
	for _, test := range tests {
		result := run(t, func(t *testing.T, g *cochlea.Graph) *cochlea.Node {
			one := node(t, g, "one", &mock.Source{Channels: 2, Value: 1}, nil)
			two := node(t, g, "two", &mock.Source{Value: 7}, nil)
			return node(t, g, "sum", &stage.Sum{}, map[string]interface{}{"mode": test.mode}, one, two)
		}, 1, 4)
		require.Equal(t, 1, result.NumChannels(), test.mode)
		assert.InDeltaSlice(t, []float64{test.expected, test.expected, test.expected, test.expected}, result[0], 1e-12, test.mode)
	}
}

func TestFIRCoefficientKeepsHistory(t *testing.T) {
	g, err := cochlea.NewGraph()
	require.NoError(t, err)
	defer g.Close()
	src := node(t, g, "source", &mock.Source{Dt: 1, Ramp: true}, nil)
	fir := node(t, g, "fir", &stage.FIR{}, map[string]interface{}{"coefficients": []float64{0, 1}}, src)

	s, err := cochlea.NewScheduler(g, 4)
	require.NoError(t, err)
	require.NoError(t, s.Tick())
	assert.Equal(t, []float64{0, 0, 1, 2}, fir.Output().Channel(0))

	require.NoError(t, g.SetParameter(fir, "coefficients", []float64{0, 2}))
	require.NoError(t, s.Tick())
	assert.Equal(t, []float64{6, 8, 10, 12}, fir.Output().Channel(0))

	s.Restart()
	require.NoError(t, s.Tick())
	assert.Equal(t, []float64{0, 0, 2, 4}, fir.Output().Channel(0))
}

func noiseChain(channels int) build {
	return func(t *testing.T, g *cochlea.Graph) *cochlea.Node {
		noise := node(t, g, "noise", &stage.Noise{}, map[string]interface{}{"channels": channels, "seed": 42})
		fir := node(t, g, "fir", &stage.FIR{}, map[string]interface{}{"coefficients": []float64{0.5, 0.25, 0.125, 0.125}}, noise)
		delay := node(t, g, "delay", &stage.Delay{}, map[string]interface{}{"delay": 3.0 / 44100}, fir)
		return node(t, g, "gain", &stage.Gain{}, map[string]interface{}{"gain": 0.5}, delay)
	}
}

func TestContinuity(t *testing.T) {
	tests := map[string]build{
		"sine": func(t *testing.T, g *cochlea.Graph) *cochlea.Node {
			return node(t, g, "sine", &stage.Sine{}, map[string]interface{}{"channels": 2, "frequency": 1234.5})
		},
		"noise chain": noiseChain(3),
		"bin": func(t *testing.T, g *cochlea.Graph) *cochlea.Node {
			sine := node(t, g, "sine", &stage.Sine{}, nil)
			return node(t, g, "bin", &stage.Bin{}, map[string]interface{}{"binwidth": 7.0 / 44100}, sine)
		},
	}
	for name, b := range tests {
		t.Run(name, func(t *testing.T) {
			whole := run(t, b, 1, 300)
			segmented := run(t, b, 1, 128, 172)
			assert.Equal(t, whole, segmented)
			uneven := run(t, b, 1, 1, 99, 13, 187)
			assert.Equal(t, whole, uneven)
		})
	}
}

func TestThreadPartitionIndependence(t *testing.T) {
	expected := run(t, noiseChain(8), 1, 64, 64)
	for _, threads := range []int{2, 3, 4, 8, 16} {
		assert.Equal(t, expected, run(t, noiseChain(8), threads, 64, 64), "threads %d", threads)
	}
}

func TestPrepareIdempotence(t *testing.T) {
	expected := run(t, noiseChain(2), 1, 32, 32)

	g, err := cochlea.NewGraph()
	require.NoError(t, err)
	defer g.Close()
	out := noiseChain(2)(t, g)
	s, err := cochlea.NewScheduler(g, 32)
	require.NoError(t, err)

	var result signal.Float64
	require.NoError(t, s.Tick())
	result = result.Append(out.Output().Data())
	for _, n := range g.Nodes() {
		require.NoError(t, g.Invalidate(n))
	}
	require.NoError(t, s.Tick())
	result = result.Append(out.Output().Data())
	assert.Equal(t, expected, result)
}

func TestRegister(t *testing.T) {
	r := cochlea.NewRegistry()
	require.NoError(t, stage.Register(r))
	assert.Equal(t, []string{"bin", "constant", "delay", "fir", "gain", "noise", "sine", "sum"}, r.Names())
	assert.Error(t, stage.Register(r))

	m, err := r.New("gain")
	require.NoError(t, err)
	assert.IsType(t, &stage.Gain{}, m)
}

func TestSourceValidation(t *testing.T) {
	tests := []struct {
		params map[string]interface{}
		param  string
	}{
		{params: map[string]interface{}{"channels": 0}, param: "channels"},
		{params: map[string]interface{}{"dt": 0.0}, param: "dt"},
		{params: map[string]interface{}{"frequency": 30000.0}, param: "frequency"},
	}
	for _, test := range tests {
		g, err := cochlea.NewGraph()
		require.NoError(t, err)
		node(t, g, "sine", &stage.Sine{}, test.params)
		s, err := cochlea.NewScheduler(g, 16)
		require.NoError(t, err)

		var configErr *cochlea.ConfigurationError
		require.ErrorAs(t, s.Tick(), &configErr)
		assert.Equal(t, test.param, configErr.Param)
		g.Close()
	}
}
