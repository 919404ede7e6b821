package cochlea

import (
	"github.com/dudk/cochlea/signal"
)

// Execution carries per-call values of a tick.
type Execution struct {
	// StreamStart is true exactly once per stream for every node: on its
	// first prepare and run of the stream.
	StreamStart bool
	// Offset is the number of samples the node consumed in the stream
	// before this tick.
	Offset int64
	// Samples is the block size of the tick. Sources produce this many
	// samples, processors follow their input length.
	Samples int
	// Thread is the index of the worker running this call.
	Thread int
	// Threads is the number of workers running the node in this tick.
	Threads int
	// Channels is the channel range assigned to the worker. It's only set
	// when Partition is not nil.
	Channels signal.Range
	// Partition is the partition of channels across workers. It's nil for
	// nodes which are not channel-parallel.
	Partition *Partition
}

// View restricts buffer to the channels of this execution. If execution
// is not partitioned, buffer is returned as is.
func (e Execution) View(b *signal.Buffer) *signal.Buffer {
	if e.Partition == nil || b == nil {
		return b
	}
	return b.View(e.Channels)
}

// Partition is a fixed split of node channels across workers. It is
// created once per change of channels or threads and is shared read-only
// by all workers.
type Partition struct {
	channels  int
	requested int
	ranges    []signal.Range
}

func newPartition(channels, threads int) *Partition {
	return &Partition{
		channels:  channels,
		requested: threads,
		ranges:    signal.Partition(channels, threads),
	}
}

// Channels returns number of partitioned channels.
func (p *Partition) Channels() int {
	return p.channels
}

// Threads returns number of workers.
func (p *Partition) Threads() int {
	return len(p.ranges)
}

// Range returns channel range of the worker.
func (p *Partition) Range(thread int) signal.Range {
	return p.ranges[thread]
}

func (p *Partition) matches(channels, threads int) bool {
	return p != nil && p.channels == channels && p.requested == threads
}
