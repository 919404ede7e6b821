// Package asset provides in-memory signal storage which can be recorded by
// a graph and played back by another graph.
package asset

import (
	"io"

	"github.com/dudk/cochlea"
	"github.com/dudk/cochlea/param"
	"github.com/dudk/cochlea/signal"
)

// Asset is a recorded multichannel signal.
type Asset struct {
	Data signal.Float64
	Dt   float64
}

// Channels returns number of channels of the asset.
func (a *Asset) Channels() int {
	return a.Data.NumChannels()
}

// Len returns number of samples per channel.
func (a *Asset) Len() int {
	return a.Data.Size()
}

// Sink appends its input to the asset. The asset is cleared at stream
// start. Asset should not be read while graph is running.
type Sink struct {
	*Asset
}

// NewSink returns sink which records into a new asset.
func NewSink() *Sink {
	return &Sink{Asset: &Asset{}}
}

// Capabilities implements cochlea.Module.
func (*Sink) Capabilities() cochlea.Capabilities {
	return cochlea.Capabilities{Inputs: 1}
}

// Schema implements cochlea.Module.
func (*Sink) Schema() param.Schema {
	return nil
}

// Validate implements cochlea.Module.
func (*Sink) Validate(n *cochlea.Node) error {
	return nil
}

// Prepare implements cochlea.Module.
func (s *Sink) Prepare(n *cochlea.Node, e cochlea.Execution) error {
	in := n.Input(0)
	if e.StreamStart {
		s.Data = nil
	}
	if s.Data != nil && s.Channels() != in.Channels() {
		return &cochlea.ConfigurationError{Param: "channels", Got: in.Channels(), Want: s.Channels()}
	}
	s.Dt = in.Dt()
	return nil
}

// Run implements cochlea.Module.
func (s *Sink) Run(n *cochlea.Node, e cochlea.Execution) error {
	s.Data = s.Data.Append(n.Input(0).Data())
	return nil
}

// Reset implements cochlea.Module.
func (*Sink) Reset(n *cochlea.Node) {}

// Teardown implements cochlea.Module.
func (*Sink) Teardown(n *cochlea.Node) {}

// Source plays the asset back. When loop is off, last block can be
// shorter than block size and the next run returns io.EOF.
type Source struct {
	*Asset
}

// Capabilities implements cochlea.Module.
func (*Source) Capabilities() cochlea.Capabilities {
	return cochlea.Capabilities{}
}

// Schema implements cochlea.Module.
func (*Source) Schema() param.Schema {
	return param.Schema{
		{Name: "loop", Kind: param.Enum, Default: "off", Choices: []string{"off", "on"}, Mutability: param.Coefficient},
	}
}

// Validate implements cochlea.Module.
func (s *Source) Validate(n *cochlea.Node) error {
	if s.Asset == nil || s.Len() == 0 {
		return &cochlea.ConfigurationError{Param: "asset", Got: 0, Want: "non-empty asset"}
	}
	if s.Dt <= 0 {
		return &cochlea.ConfigurationError{Param: "dt", Got: s.Dt, Want: "positive value"}
	}
	return nil
}

// Prepare implements cochlea.Module.
func (s *Source) Prepare(n *cochlea.Node, e cochlea.Execution) error {
	return n.Output().Allocate(s.Channels(), e.Samples, s.Dt)
}

// Run implements cochlea.Module.
func (s *Source) Run(n *cochlea.Node, e cochlea.Execution) error {
	var (
		out    = n.Output()
		length = int64(s.Len())
		loop   = n.Params().Enum("loop") == "on"
	)
	if !loop {
		left := length - e.Offset
		if left <= 0 {
			return io.EOF
		}
		if left < int64(e.Samples) {
			if err := out.Allocate(s.Channels(), int(left), s.Dt); err != nil {
				return err
			}
		}
	} else if err := out.Allocate(s.Channels(), e.Samples, s.Dt); err != nil {
		return err
	}
	for c := 0; c < out.Channels(); c++ {
		src, dst := s.Data[c], out.Channel(c)
		pos := e.Offset % length
		for i := range dst {
			dst[i] = src[pos]
			if pos++; pos == length {
				pos = 0
			}
		}
	}
	return nil
}

// Reset implements cochlea.Module.
func (*Source) Reset(n *cochlea.Node) {}

// Teardown implements cochlea.Module.
func (*Source) Teardown(n *cochlea.Node) {}
