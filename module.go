package cochlea

import (
	"github.com/dudk/cochlea/param"
)

// Capabilities declares what a module needs from the graph.
type Capabilities struct {
	// Inputs is the number of required input slots.
	Inputs int
	// OptionalInputs is the number of slots after required ones which
	// may stay unconnected.
	OptionalInputs int
	// ChannelParallel allows the module to run on disjoint channel ranges
	// concurrently. Such module must not share mutable per-channel state
	// across ranges.
	ChannelParallel bool
}

// Slots returns total number of input slots.
func (c Capabilities) Slots() int {
	return c.Inputs + c.OptionalInputs
}

// Module is the behaviour bound to a node. Modules are stateless: all
// running state belongs to the node, its output buffer, private state and
// children.
type Module interface {
	// Capabilities returns the declaration of inputs and parallelism.
	Capabilities() Capabilities
	// Schema returns the declaration of module parameters.
	Schema() param.Schema
	// Validate checks consistency of parameters and connected inputs. It
	// is called once per stream and after topology changes.
	Validate(n *Node) error
	// Prepare sizes output and private memory from current parameters and
	// input shapes. With unchanged parameters and shapes it must not
	// reallocate or reset running state, except at StreamStart, when all
	// state returns to initial conditions.
	Prepare(n *Node, e Execution) error
	// Run consumes input samples and writes output. Carried state is
	// updated for the next call.
	Run(n *Node, e Execution) error
	// Reset forces full re-preparation. It's called when a structural
	// parameter has changed.
	Reset(n *Node)
	// Teardown releases private memory.
	Teardown(n *Node)
}

// ThreadPreparer is implemented by channel-parallel modules which need
// per-thread state. PrepareThreads is called after every Prepare with the
// partition which will be used to fan out Run calls.
type ThreadPreparer interface {
	PrepareThreads(n *Node, p *Partition) error
}
