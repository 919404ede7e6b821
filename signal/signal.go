// Package signal provides multichannel sample storage for pipeline nodes
// and helpers to manipulate digital signals. It allows to:
//	- allocate and reuse node buffers without reallocation on unchanged shape
//	- restrict buffers to channel sub-ranges for threaded execution
//	- convert interleaved int samples of sound files to float and back
package signal

import (
	"math"
	"time"
)

// Float64 is a non-interleaved float64 signal.
type Float64 [][]float64

const (
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth24 is 24 bit depth.
	BitDepth24 = BitDepth(24)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// InterInt is an interleaved int signal.
type InterInt struct {
	Data        []int
	NumChannels int
	BitDepth
}

// BitDepth is the resolution of int samples.
type BitDepth int

// MaxInt returns the largest sample value of the bit depth. Unknown bit
// depths are treated as unscaled.
func (bitDepth BitDepth) MaxInt() int {
	switch bitDepth {
	case BitDepth16:
		return math.MaxInt16
	case BitDepth24:
		return 1<<23 - 1
	case BitDepth32:
		return math.MaxInt32
	default:
		return 1
	}
}

// DurationOf returns time duration of passed samples for this sample
// interval in seconds.
func DurationOf(dt float64, samples int64) time.Duration {
	return time.Duration(float64(samples) * dt * float64(time.Second))
}

// CopyTo deinterleaves int signal into dst and returns number of copied
// samples per channel. Extra channels of ints are dropped.
func (ints InterInt) CopyTo(dst Float64) int {
	if ints.NumChannels == 0 {
		return 0
	}
	scale := float64(ints.BitDepth.MaxInt())
	frames := len(ints.Data) / ints.NumChannels
	for c := range dst {
		if c >= ints.NumChannels {
			break
		}
		ch := dst[c]
		for i := 0; i < frames && i < len(ch); i++ {
			ch[i] = float64(ints.Data[i*ints.NumChannels+c]) / scale
		}
	}
	return frames
}

// Interleave converts float signal into interleaved ints of the bit
// depth. Samples are clipped to [-1, 1]. Storage of dst is reused if it
// has enough capacity.
func (floats Float64) Interleave(dst []int, bitDepth BitDepth) []int {
	channels, size := floats.NumChannels(), floats.Size()
	if cap(dst) < channels*size {
		dst = make([]int, channels*size)
	}
	dst = dst[:channels*size]
	scale := float64(bitDepth.MaxInt())
	for c := range floats {
		for i, v := range floats[c][:size] {
			dst[i*channels+c] = int(math.Round(math.Max(-1, math.Min(1, v)) * scale))
		}
	}
	return dst
}

// EmptyFloat64 returns an empty buffer of specified dimensions.
func EmptyFloat64(numChannels int, bufferSize int) Float64 {
	result := make([][]float64, numChannels)
	for i := range result {
		result[i] = make([]float64, bufferSize)
	}
	return result
}

// NumChannels returns number of channels in this sample slice.
func (floats Float64) NumChannels() int {
	return len(floats)
}

// Size returns number of samples in single block in this sample slice.
func (floats Float64) Size() int {
	if floats.NumChannels() == 0 {
		return 0
	}
	return len(floats[0])
}

// Append buffers set to existing one.
// New buffer is returned if floats is nil.
func (floats Float64) Append(source Float64) Float64 {
	if floats == nil {
		floats = make([][]float64, source.NumChannels())
		for i := range floats {
			floats[i] = make([]float64, 0, source.Size())
		}
	}
	for i := range source {
		floats[i] = append(floats[i], source[i]...)
	}
	return floats
}
