package signal

import (
	"errors"
	"fmt"
)

// ErrView is returned when a shape-changing operation is called on a view.
var ErrView = errors.New("buffer is a view")

// AllocError is returned when buffer storage cannot be allocated.
type AllocError struct {
	Channels int
	Length   int
	Reason   string
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("allocate %d channels of %d samples: %s", e.Channels, e.Length, e.Reason)
}

// Shape describes buffer dimensions.
type Shape struct {
	Channels int
	Length   int
	Dt       float64
}

// Range is a half-open range of channel indexes [From, To).
type Range struct {
	From, To int
}

// Len returns number of channels in range.
func (r Range) Len() int {
	return r.To - r.From
}

// Buffer is the multichannel sample storage of a single node. All channels
// share length and sample interval. Buffer is not safe for concurrent shape
// changes, but disjoint views can be written concurrently.
type Buffer struct {
	data       Float64
	dt         float64
	interleave int
	offset     int
	labels     []string
	cfs        []float64
	view       bool
}

// Allocate sets buffer shape. Storage is reallocated only if number of
// channels or length differs from current shape, so the call with
// unchanged shape is a no-op. Contents are zeroed on reallocation only.
func (b *Buffer) Allocate(channels, length int, dt float64) (err error) {
	if b.view {
		return ErrView
	}
	if channels < 0 || length < 0 {
		return &AllocError{Channels: channels, Length: length, Reason: "negative dimension"}
	}
	if dt < 0 {
		return &AllocError{Channels: channels, Length: length, Reason: fmt.Sprintf("negative sample interval %v", dt)}
	}
	b.dt = dt
	if b.data != nil && len(b.data) == channels && b.data.Size() == length {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = &AllocError{Channels: channels, Length: length, Reason: fmt.Sprint(r)}
		}
	}()
	data := EmptyFloat64(channels, length)
	if len(b.data) != channels {
		b.labels, b.cfs = nil, nil
	}
	b.data = data
	return nil
}

// Reset zeroes all samples without changing the shape.
func (b *Buffer) Reset() {
	for i := range b.data {
		clear(b.data[i])
	}
}

// Release drops the storage. Buffer has zero shape after this call.
func (b *Buffer) Release() {
	if b.view {
		return
	}
	b.data, b.labels, b.cfs = nil, nil, nil
	b.dt = 0
}

// View returns a non-owning buffer restricted to provided channel range.
// View shares storage with the buffer and is valid until the next
// reallocation of the buffer.
func (b *Buffer) View(r Range) *Buffer {
	if r.From < 0 {
		r.From = 0
	}
	if r.To > len(b.data) {
		r.To = len(b.data)
	}
	if r.To < r.From {
		r.To = r.From
	}
	v := &Buffer{
		data:       b.data[r.From:r.To:r.To],
		dt:         b.dt,
		interleave: b.interleave,
		offset:     b.offset + r.From,
		view:       true,
	}
	if b.labels != nil {
		v.labels = b.labels[r.From:r.To:r.To]
	}
	if b.cfs != nil {
		v.cfs = b.cfs[r.From:r.To:r.To]
	}
	return v
}

// Shape returns current dimensions.
func (b *Buffer) Shape() Shape {
	if b == nil {
		return Shape{}
	}
	return Shape{Channels: len(b.data), Length: b.data.Size(), Dt: b.dt}
}

// Channels returns number of channels.
func (b *Buffer) Channels() int {
	return len(b.data)
}

// Len returns number of samples per channel.
func (b *Buffer) Len() int {
	return b.data.Size()
}

// Dt returns the sample interval in seconds.
func (b *Buffer) Dt() float64 {
	return b.dt
}

// Offset returns absolute index of the first channel. It's not zero only
// for views.
func (b *Buffer) Offset() int {
	return b.offset
}

// IsView returns true if buffer doesn't own its storage.
func (b *Buffer) IsView() bool {
	return b.view
}

// Channel returns samples of channel i.
func (b *Buffer) Channel(i int) []float64 {
	return b.data[i]
}

// Data returns the underlying samples.
func (b *Buffer) Data() Float64 {
	return b.data
}

// Interleave returns the interleave level.
func (b *Buffer) Interleave() int {
	return b.interleave
}

// SetInterleave sets the interleave level. Level below one means
// non-interleaved data.
func (b *Buffer) SetInterleave(level int) {
	b.interleave = level
}

// Labels returns per-channel labels, nil if not set.
func (b *Buffer) Labels() []string {
	return b.labels
}

// SetLabels sets per-channel labels. Number of labels must match number of
// channels.
func (b *Buffer) SetLabels(labels []string) error {
	if labels != nil && len(labels) != len(b.data) {
		return fmt.Errorf("labels: got %d, want %d", len(labels), len(b.data))
	}
	if b.view {
		copy(b.labels, labels)
		return nil
	}
	b.labels = append([]string(nil), labels...)
	return nil
}

// CFs returns per-channel characteristic frequencies, nil if not set.
func (b *Buffer) CFs() []float64 {
	return b.cfs
}

// SetCFs sets per-channel characteristic frequencies. Number of values must
// match number of channels.
func (b *Buffer) SetCFs(cfs []float64) error {
	if cfs != nil && len(cfs) != len(b.data) {
		return fmt.Errorf("characteristic frequencies: got %d, want %d", len(cfs), len(b.data))
	}
	if b.view {
		copy(b.cfs, cfs)
		return nil
	}
	b.cfs = append([]float64(nil), cfs...)
	return nil
}

// CopyFrom copies samples of src into b. Shape of b is adjusted to src.
func (b *Buffer) CopyFrom(src *Buffer) error {
	if err := b.Allocate(src.Channels(), src.Len(), src.Dt()); err != nil {
		return err
	}
	for i := range src.data {
		copy(b.data[i], src.data[i])
	}
	return nil
}
