package cochlea

import (
	"fmt"

	"github.com/rs/xid"

	"github.com/dudk/cochlea/metric"
	"github.com/dudk/cochlea/param"
	"github.com/dudk/cochlea/signal"
)

// State is the lifecycle state of a node.
type State int

// Node states.
const (
	Unprepared State = iota
	Validated
	Ready
	Running
	TornDown
)

func (s State) String() string {
	switch s {
	case Unprepared:
		return "unprepared"
	case Validated:
		return "validated"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case TornDown:
		return "torn down"
	}
	return "unknown"
}

// Node is a single pipeline stage. It binds a module with its parameters,
// owns the output buffer and children, and references upstream nodes.
// Node is not safe for concurrent use, except concurrent Run calls of a
// channel-parallel module on disjoint channel ranges.
type Node struct {
	id     string
	name   string
	module Module
	caps   Capabilities
	params *param.Set
	output signal.Buffer
	inputs []*Node

	parent     *Node
	children   map[string]*Node
	childOrder []string
	private    interface{}

	state         State
	needsValidate bool
	needsPrepare  bool
	prepared      bool   // prepared in current stream
	started       bool   // first run of current stream is done
	produced      uint64 // tick of the latest successful run
	deferred      uint64 // tick the node was deferred in
	cursor        int64
	shapes        []signal.Shape
	samples       int // block size of the latest prepare
	partition     *Partition
	meter         *metric.Meter
	measure       metric.MeasureFunc
	log           Logger
}

// newUID returns new unique id value.
func newUID() string {
	return xid.New().String()
}

func newNode(name string, log Logger) *Node {
	n := &Node{
		id:            newUID(),
		name:          name,
		needsValidate: true,
		needsPrepare:  true,
		log:           log,
	}
	if n.name == "" {
		n.name = n.id
	}
	return n
}

// bind sets module and creates parameters from its schema.
func (n *Node) bind(m Module) error {
	params, err := param.New(m.Schema())
	if err != nil {
		return &ConfigurationError{Node: n.String(), Err: err}
	}
	n.module = m
	n.caps = m.Capabilities()
	n.params = params
	n.needsValidate = true
	n.needsPrepare = true
	n.prepared = false
	n.state = Unprepared
	return nil
}

// ID returns unique node id.
func (n *Node) ID() string {
	return n.id
}

// Name returns node name. If name wasn't provided, id is used.
func (n *Node) Name() string {
	return n.name
}

// String returns name and id of the node.
func (n *Node) String() string {
	if n.name == n.id {
		return n.id
	}
	return fmt.Sprintf("%s (%s)", n.name, n.id)
}

// Module returns bound module.
func (n *Node) Module() Module {
	return n.module
}

// Capabilities returns capabilities of bound module.
func (n *Node) Capabilities() Capabilities {
	return n.caps
}

// Params returns parameters of the node. Parameters must be changed
// through the graph, so the node is invalidated properly.
func (n *Node) Params() *param.Set {
	return n.params
}

// Changed returns names of parameters changed since the last prepare.
func (n *Node) Changed() []string {
	if n.params == nil {
		return nil
	}
	return n.params.Changed()
}

// Output returns the buffer owned by the node. References to the output
// must not be retained across prepare calls of the node.
func (n *Node) Output() *signal.Buffer {
	return &n.output
}

// Slots returns number of connected or declared input slots.
func (n *Node) Slots() int {
	if s := n.caps.Slots(); s > len(n.inputs) {
		return s
	}
	return len(n.inputs)
}

// Upstream returns node connected to the slot or nil.
func (n *Node) Upstream(slot int) *Node {
	if slot < 0 || slot >= len(n.inputs) {
		return nil
	}
	return n.inputs[slot]
}

// Input returns output buffer of the node connected to the slot or nil.
func (n *Node) Input(slot int) *signal.Buffer {
	if u := n.Upstream(slot); u != nil {
		return &u.output
	}
	return nil
}

// Child returns owned child node with provided name. Child is created if
// it doesn't exist. Children don't have modules and are never executed by
// the graph. Their buffers are zeroed at stream start of the parent and
// released when the parent is torn down.
func (n *Node) Child(name string) *Node {
	if c, ok := n.children[name]; ok {
		return c
	}
	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	c := newNode(n.name+"/"+name, n.log)
	c.parent = n
	c.state = Ready
	n.children[name] = c
	n.childOrder = append(n.childOrder, name)
	return c
}

// Children returns owned children in creation order.
func (n *Node) Children() []*Node {
	children := make([]*Node, 0, len(n.childOrder))
	for _, name := range n.childOrder {
		children = append(children, n.children[name])
	}
	return children
}

// Parent returns owner of the child node or nil.
func (n *Node) Parent() *Node {
	return n.parent
}

// Private returns module-private state of the node.
func (n *Node) Private() interface{} {
	return n.private
}

// SetPrivate sets module-private state of the node.
func (n *Node) SetPrivate(v interface{}) {
	n.private = v
}

// Cursor returns number of samples consumed by the node in current stream.
func (n *Node) Cursor() int64 {
	return n.cursor
}

// State returns lifecycle state of the node.
func (n *Node) State() State {
	return n.state
}

// NeedsPrepare returns true if node will be prepared before the next run.
func (n *Node) NeedsPrepare() bool {
	return n.needsPrepare || !n.prepared || (n.params != nil && n.params.Dirty()) || n.shapesChanged()
}

// Partition returns current channel partition of a channel-parallel node.
func (n *Node) Partition() *Partition {
	return n.partition
}

// Logger returns logger of the node.
func (n *Node) Logger() Logger {
	return n.log
}

// inputShapes returns shapes of all connected inputs.
func (n *Node) inputShapes() []signal.Shape {
	shapes := make([]signal.Shape, len(n.inputs))
	for i := range n.inputs {
		if n.inputs[i] != nil {
			shapes[i] = n.inputs[i].output.Shape()
		}
	}
	return shapes
}

// shapesChanged returns true if any input shape differs from the one seen
// at the latest prepare.
func (n *Node) shapesChanged() bool {
	if len(n.shapes) != len(n.inputs) {
		return true
	}
	for i := range n.inputs {
		if n.inputs[i] == nil {
			if n.shapes[i] != (signal.Shape{}) {
				return true
			}
			continue
		}
		if n.inputs[i].output.Shape() != n.shapes[i] {
			return true
		}
	}
	return false
}

// restart returns node to the stream start.
func (n *Node) restart() {
	n.prepared = false
	n.started = false
	n.needsValidate = true
	n.cursor = 0
	n.produced = 0
	n.deferred = 0
}

// teardown releases all memory owned by the node.
func (n *Node) teardown() {
	if n.state == TornDown {
		return
	}
	if n.module != nil {
		n.module.Teardown(n)
	}
	for _, c := range n.children {
		c.teardown()
	}
	n.children, n.childOrder = nil, nil
	n.output.Release()
	n.private = nil
	n.partition = nil
	n.state = TornDown
}
