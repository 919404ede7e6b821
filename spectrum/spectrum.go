// Package spectrum provides a short-time magnitude spectrum analysis stage.
//
// Analyzer keeps the latest frame of every input channel and on every run
// outputs its one-sided amplitude spectrum. Output channels follow input
// channels, output length is the number of frequency bins and output
// sample interval is the bin width in Hz.
package spectrum

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/dudk/cochlea"
	"github.com/dudk/cochlea/param"
)

const (
	history = "history"
	scratch = "scratch"

	// floor limits decibel values of empty bins.
	floor = 1e-12
)

var windows = map[string]func([]float64) []float64{
	"rectangular": window.Rectangular,
	"hann":        window.Hann,
	"hamming":     window.Hamming,
	"blackman":    window.Blackman,
}

// Analyzer is a channel-parallel magnitude spectrum stage. Every worker
// owns an FFT plan, so channel ranges are transformed concurrently.
type Analyzer struct{}

// Register adds spectrum modules to the registry.
func Register(r *cochlea.Registry) error {
	return r.Register("spectrum", func() cochlea.Module { return &Analyzer{} })
}

// Capabilities implements cochlea.Module.
func (*Analyzer) Capabilities() cochlea.Capabilities {
	return cochlea.Capabilities{Inputs: 1, ChannelParallel: true}
}

// Schema implements cochlea.Module.
func (*Analyzer) Schema() param.Schema {
	return param.Schema{
		{Name: "size", Kind: param.Int, Default: 256, Mutability: param.Structural, Doc: "frame size, samples"},
		{Name: "window", Kind: param.Enum, Default: "hann", Choices: []string{"rectangular", "hann", "hamming", "blackman"}, Mutability: param.Coefficient},
		{Name: "scale", Kind: param.Enum, Default: "linear", Choices: []string{"linear", "db"}, Mutability: param.Coefficient},
	}
}

// Validate implements cochlea.Module.
func (*Analyzer) Validate(n *cochlea.Node) error {
	if size := n.Params().Int("size"); size < 2 {
		return &cochlea.ConfigurationError{Param: "size", Got: size, Want: "at least 2"}
	}
	return nil
}

// Prepare implements cochlea.Module.
func (*Analyzer) Prepare(n *cochlea.Node, e cochlea.Execution) error {
	var (
		in   = n.Input(0)
		size = n.Params().Int("size")
		out  = n.Output()
	)
	if err := out.Allocate(in.Channels(), size/2+1, 1/(float64(size)*in.Dt())); err != nil {
		return err
	}
	if err := out.SetLabels(in.Labels()); err != nil {
		return err
	}
	if err := n.Child(history).Output().Allocate(in.Channels(), size, in.Dt()); err != nil {
		return err
	}
	if err := n.Child(scratch).Output().Allocate(in.Channels(), size+in.Len(), in.Dt()); err != nil {
		return err
	}

	s, _ := n.Private().(*state)
	if s == nil || len(s.window) != size {
		s = &state{window: make([]float64, size)}
	}
	for i := range s.window {
		s.window[i] = 1
	}
	windows[n.Params().Enum("window")](s.window)
	sum := 0.0
	for _, w := range s.window {
		sum += w
	}
	s.gain = 2 / sum
	s.db = n.Params().Enum("scale") == "db"
	n.SetPrivate(s)
	return nil
}

// PrepareThreads implements cochlea.ThreadPreparer. FFT plans are kept
// while frame size and number of workers are unchanged.
func (*Analyzer) PrepareThreads(n *cochlea.Node, p *cochlea.Partition) error {
	s := n.Private().(*state)
	threads := max(p.Threads(), 1)
	if len(s.workers) == threads {
		return nil
	}
	s.workers = make([]*worker, threads)
	for i := range s.workers {
		s.workers[i] = newWorker(len(s.window))
	}
	return nil
}

// Run implements cochlea.Module.
func (*Analyzer) Run(n *cochlea.Node, e cochlea.Execution) error {
	var (
		s    = n.Private().(*state)
		w    = s.workers[e.Thread]
		in   = e.View(n.Input(0))
		out  = e.View(n.Output())
		hist = e.View(n.Child(history).Output())
		tmp  = e.View(n.Child(scratch).Output())
		size = len(s.window)
	)
	for c := 0; c < in.Channels(); c++ {
		buf := tmp.Channel(c)[:size+in.Len()]
		copy(buf, hist.Channel(c))
		copy(buf[size:], in.Channel(c))
		frame := buf[len(buf)-size:]
		copy(hist.Channel(c), frame)

		copy(w.frame, frame)
		vecmath.MulBlockInPlace(w.frame, s.window)
		w.fft.Coefficients(w.coeffs, w.frame)
		for k, v := range w.coeffs {
			w.re[k], w.im[k] = real(v), imag(v)
		}
		dst := out.Channel(c)
		vecmath.Magnitude(dst, w.re, w.im)
		s.scale(dst)
	}
	return nil
}

// Reset implements cochlea.Module.
func (*Analyzer) Reset(n *cochlea.Node) {}

// Teardown implements cochlea.Module.
func (*Analyzer) Teardown(n *cochlea.Node) {
	n.SetPrivate(nil)
}

// state is the private state of analyzer node.
type state struct {
	window  []float64
	gain    float64
	db      bool
	workers []*worker
}

// scale normalizes magnitudes to amplitudes of sinusoids. DC and Nyquist
// bins have no mirrored counterpart.
func (s *state) scale(bins []float64) {
	for k := range bins {
		bins[k] *= s.gain
	}
	bins[0] /= 2
	if len(s.window)%2 == 0 {
		bins[len(bins)-1] /= 2
	}
	if !s.db {
		return
	}
	for k, v := range bins {
		bins[k] = 20 * math.Log10(math.Max(v, floor))
	}
}

// worker holds FFT plan and scratch memory of a single thread.
type worker struct {
	fft    *fourier.FFT
	frame  []float64
	coeffs []complex128
	re, im []float64
}

func newWorker(size int) *worker {
	bins := size/2 + 1
	return &worker{
		fft:    fourier.NewFFT(size),
		frame:  make([]float64, size),
		coeffs: make([]complex128, bins),
		re:     make([]float64, bins),
		im:     make([]float64, bins),
	}
}
