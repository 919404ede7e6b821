// Package wav provides stages which read and write wav files.
package wav

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/dudk/cochlea"
	"github.com/dudk/cochlea/param"
	"github.com/dudk/cochlea/signal"
)

// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
var ErrUnsupportedBitDepth = errors.New("only 16, 24 and 32 bit depth is supported")

// ErrInvalidFile is returned when file is not a valid wav file.
var ErrInvalidFile = errors.New("wav is not valid")

// Register adds wav modules to the registry.
func Register(r *cochlea.Registry) error {
	if err := r.Register("wav.source", func() cochlea.Module { return &Source{} }); err != nil {
		return err
	}
	return r.Register("wav.sink", func() cochlea.Module { return &Sink{} })
}

func supported(bitDepth int) bool {
	switch signal.BitDepth(bitDepth) {
	case signal.BitDepth16, signal.BitDepth24, signal.BitDepth32:
		return true
	}
	return false
}

func validateFile(n *cochlea.Node) error {
	if path := n.Params().Text("file"); path == "" {
		return &cochlea.ConfigurationError{Param: "file", Got: path, Want: "path to wav file"}
	}
	return nil
}

// Source reads wav file. The file is opened at stream start, so every
// stream reads it from the beginning. Last block of the file can be
// shorter than block size, after that Run returns io.EOF.
type Source struct{}

type reader struct {
	file     *os.File
	decoder  *wav.Decoder
	buffer   *audio.IntBuffer
	channels int
	bitDepth signal.BitDepth
	dt       float64
}

func (r *reader) close() error {
	if r == nil || r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	return err
}

// Capabilities implements cochlea.Module.
func (*Source) Capabilities() cochlea.Capabilities {
	return cochlea.Capabilities{}
}

// Schema implements cochlea.Module.
func (*Source) Schema() param.Schema {
	return param.Schema{
		{Name: "file", Kind: param.Text, Default: "", Mutability: param.Fixed, Doc: "path to wav file"},
	}
}

// Validate implements cochlea.Module.
func (*Source) Validate(n *cochlea.Node) error {
	return validateFile(n)
}

// Prepare implements cochlea.Module.
func (*Source) Prepare(n *cochlea.Node, e cochlea.Execution) error {
	r, _ := n.Private().(*reader)
	if e.StreamStart || r == nil {
		if err := r.close(); err != nil {
			n.Logger().Info(fmt.Sprintf("%v: failed to close wav file: %v", n, err))
		}
		var err error
		if r, err = open(n.Params().Text("file")); err != nil {
			return err
		}
		n.SetPrivate(r)
	}
	r.buffer.Data = make([]int, e.Samples*r.channels)
	return n.Output().Allocate(r.channels, e.Samples, r.dt)
}

func open(path string) (*reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &cochlea.ConfigurationError{Param: "file", Got: path, Err: err}
	}
	decoder := wav.NewDecoder(file)
	if !decoder.IsValidFile() {
		if err := file.Close(); err != nil {
			return nil, fmt.Errorf("%w, failed to close the file %v: %v", ErrInvalidFile, path, err)
		}
		return nil, &cochlea.ConfigurationError{Param: "file", Got: path, Err: ErrInvalidFile}
	}
	if !supported(int(decoder.BitDepth)) {
		file.Close()
		return nil, &cochlea.ConfigurationError{Param: "file", Got: decoder.BitDepth, Err: ErrUnsupportedBitDepth}
	}
	format := decoder.Format()
	return &reader{
		file:     file,
		decoder:  decoder,
		channels: format.NumChannels,
		bitDepth: signal.BitDepth(decoder.BitDepth),
		dt:       1 / float64(format.SampleRate),
		buffer: &audio.IntBuffer{
			Format:         format,
			SourceBitDepth: int(decoder.BitDepth),
		},
	}, nil
}

// Run implements cochlea.Module.
func (*Source) Run(n *cochlea.Node, e cochlea.Execution) error {
	r := n.Private().(*reader)
	read, err := r.decoder.PCMBuffer(r.buffer)
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if read == 0 {
		return io.EOF
	}
	out := n.Output()
	// prune buffer to actual size
	if err := out.Allocate(r.channels, read/r.channels, r.dt); err != nil {
		return err
	}
	signal.InterInt{
		Data:        r.buffer.Data[:read],
		NumChannels: r.channels,
		BitDepth:    r.bitDepth,
	}.CopyTo(out.Data())
	return nil
}

// Reset implements cochlea.Module.
func (*Source) Reset(n *cochlea.Node) {}

// Teardown implements cochlea.Module.
func (*Source) Teardown(n *cochlea.Node) {
	r, _ := n.Private().(*reader)
	if err := r.close(); err != nil {
		n.Logger().Info(fmt.Sprintf("%v: failed to close wav file: %v", n, err))
	}
	n.SetPrivate(nil)
}

// Sink writes its input into wav file. Sample rate is derived from the
// input sample interval. The file is created at stream start and
// finalized when the next stream starts or the node is torn down.
type Sink struct{}

type writer struct {
	file     *os.File
	encoder  *wav.Encoder
	buffer   *audio.IntBuffer
	channels int
	bitDepth signal.BitDepth
}

func (w *writer) close() error {
	if w == nil || w.file == nil {
		return nil
	}
	if err := w.encoder.Close(); err != nil {
		w.file.Close()
		w.file = nil
		return err
	}
	err := w.file.Close()
	w.file = nil
	return err
}

// Capabilities implements cochlea.Module.
func (*Sink) Capabilities() cochlea.Capabilities {
	return cochlea.Capabilities{Inputs: 1}
}

// Schema implements cochlea.Module.
func (*Sink) Schema() param.Schema {
	return param.Schema{
		{Name: "file", Kind: param.Text, Default: "", Mutability: param.Fixed, Doc: "path to wav file"},
		{Name: "bitdepth", Kind: param.Int, Default: 16, Mutability: param.Fixed},
	}
}

// Validate implements cochlea.Module.
func (*Sink) Validate(n *cochlea.Node) error {
	if err := validateFile(n); err != nil {
		return err
	}
	if bitDepth := n.Params().Int("bitdepth"); !supported(bitDepth) {
		return &cochlea.ConfigurationError{Param: "bitdepth", Got: bitDepth, Err: ErrUnsupportedBitDepth}
	}
	return nil
}

// Prepare implements cochlea.Module.
func (*Sink) Prepare(n *cochlea.Node, e cochlea.Execution) error {
	in := n.Input(0)
	w, _ := n.Private().(*writer)
	if !e.StreamStart && w != nil {
		if in.Channels() != w.channels {
			return &cochlea.ConfigurationError{Param: "channels", Got: in.Channels(), Want: w.channels}
		}
		return nil
	}
	if err := w.close(); err != nil {
		n.Logger().Info(fmt.Sprintf("%v: failed to finalize wav file: %v", n, err))
	}
	n.SetPrivate(nil)

	path := n.Params().Text("file")
	file, err := os.Create(path)
	if err != nil {
		return &cochlea.ConfigurationError{Param: "file", Got: path, Err: err}
	}
	var (
		bitDepth   = n.Params().Int("bitdepth")
		sampleRate = int(math.Round(1 / in.Dt()))
	)
	n.SetPrivate(&writer{
		file:     file,
		encoder:  wav.NewEncoder(file, sampleRate, bitDepth, in.Channels(), 1),
		channels: in.Channels(),
		bitDepth: signal.BitDepth(bitDepth),
		buffer: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: in.Channels(),
				SampleRate:  sampleRate,
			},
			SourceBitDepth: bitDepth,
		},
	})
	return nil
}

// Run implements cochlea.Module.
func (*Sink) Run(n *cochlea.Node, e cochlea.Execution) error {
	w := n.Private().(*writer)
	w.buffer.Data = n.Input(0).Data().Interleave(w.buffer.Data, w.bitDepth)
	return w.encoder.Write(w.buffer)
}

// Reset implements cochlea.Module.
func (*Sink) Reset(n *cochlea.Node) {}

// Teardown implements cochlea.Module.
func (*Sink) Teardown(n *cochlea.Node) {
	w, _ := n.Private().(*writer)
	if err := w.close(); err != nil {
		n.Logger().Info(fmt.Sprintf("%v: failed to finalize wav file: %v", n, err))
	}
	n.SetPrivate(nil)
}
