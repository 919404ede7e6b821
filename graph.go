package cochlea

import (
	"fmt"

	"github.com/dudk/cochlea/internal/topo"
	"github.com/dudk/cochlea/metric"
	"github.com/dudk/cochlea/param"
	"github.com/dudk/cochlea/signal"
)

// Edge connects output of one node to the input slot of another.
type Edge struct {
	From *Node
	To   *Node
	Slot int
}

// Graph holds nodes and directed edges between them. Graph is acyclic at
// all times: edges which would close a cycle are rejected. Graph is not
// safe for concurrent use, Scheduler serializes access to it.
type Graph struct {
	nodes []*Node
	names map[string]*Node
	edges []Edge

	order []*Node // cached run order, nil when edges have changed

	tick    uint64
	closed  bool
	metrics bool
	log     Logger
}

// NewGraph creates a new empty graph and applies provided options.
func NewGraph(options ...GraphOption) (*Graph, error) {
	g := &Graph{
		names: make(map[string]*Node),
		log:   defaultLogger,
	}
	for _, option := range options {
		if err := option(g); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// CreateNode adds a new node to the graph. Module can be nil and bound
// later with Bind. If name is empty, node id is used as name.
func (g *Graph) CreateNode(name string, m Module, options ...NodeOption) (*Node, error) {
	if g.closed {
		return nil, &StructuralError{Node: name, Slot: -1, Err: ErrTornDown}
	}
	if _, ok := g.names[name]; ok && name != "" {
		return nil, &StructuralError{Node: name, Slot: -1, Err: ErrDuplicateName}
	}
	n := newNode(name, g.log)
	if m != nil {
		if err := g.bind(n, m); err != nil {
			return nil, err
		}
	}
	g.nodes = append(g.nodes, n)
	g.names[n.name] = n
	g.order = nil
	for _, option := range options {
		if err := option(g, n); err != nil {
			g.nodes = g.nodes[:len(g.nodes)-1]
			delete(g.names, n.name)
			n.teardown()
			return nil, err
		}
	}
	g.log.Debug(fmt.Sprintf("created node %v", n))
	return n, nil
}

// Bind binds module to the node. Parameters are reset to defaults of the
// module schema. Connected input slots must be declared by the module.
func (g *Graph) Bind(n *Node, m Module) error {
	if err := g.check(n); err != nil {
		return err
	}
	if m == nil {
		return &StructuralError{Node: n.String(), Slot: -1, Err: ErrNoModule}
	}
	slots := m.Capabilities().Slots()
	for slot := slots; slot < len(n.inputs); slot++ {
		if n.inputs[slot] != nil {
			return &StructuralError{Node: n.String(), Slot: slot, Err: ErrSlotRange}
		}
	}
	if n.module != nil {
		n.module.Teardown(n)
		n.private = nil
	}
	return g.bind(n, m)
}

func (g *Graph) bind(n *Node, m Module) error {
	if err := n.bind(m); err != nil {
		return err
	}
	if g.metrics {
		n.meter = metric.New(m)
	}
	n.measure = n.meter.Run()
	return nil
}

// Node returns node with provided name or nil.
func (g *Graph) Node(name string) *Node {
	return g.names[name]
}

// Nodes returns nodes in creation order.
func (g *Graph) Nodes() []*Node {
	return append([]*Node(nil), g.nodes...)
}

// Edges returns edges in creation order.
func (g *Graph) Edges() []Edge {
	return append([]Edge(nil), g.edges...)
}

// AddEdge connects output of from node to input slot of to node. The
// edge is rejected with StructuralError if slot is not declared, already
// occupied or if edge closes a cycle. Rejected edge leaves the graph
// unchanged.
func (g *Graph) AddEdge(from, to *Node, slot int) error {
	if err := g.check(from); err != nil {
		return err
	}
	if err := g.check(to); err != nil {
		return err
	}
	if slot < 0 || (to.module != nil && slot >= to.caps.Slots()) {
		return &StructuralError{Node: to.String(), Slot: slot, Err: ErrSlotRange}
	}
	if slot < len(to.inputs) && to.inputs[slot] != nil {
		return &StructuralError{
			Node: to.String(),
			Slot: slot,
			Err:  fmt.Errorf("%w by %v", ErrSlotOccupied, to.inputs[slot]),
		}
	}
	index := g.index()
	if topo.Reachable(len(g.nodes), g.topoEdges(index), index[to], index[from]) {
		return &StructuralError{
			Node: to.String(),
			Slot: slot,
			Err:  fmt.Errorf("%w: %v is reachable from %v", ErrCycle, from, to),
		}
	}

	for len(to.inputs) <= slot {
		to.inputs = append(to.inputs, nil)
	}
	to.inputs[slot] = from
	g.edges = append(g.edges, Edge{From: from, To: to, Slot: slot})
	g.order = nil
	to.needsValidate = true
	to.needsPrepare = true
	g.log.Debug(fmt.Sprintf("connected %v to %v slot %d", from, to, slot))
	return nil
}

// RemoveEdge disconnects input slot of the node.
func (g *Graph) RemoveEdge(to *Node, slot int) error {
	if err := g.check(to); err != nil {
		return err
	}
	if to.Upstream(slot) == nil {
		return &StructuralError{Node: to.String(), Slot: slot, Err: ErrUnconnected}
	}
	g.disconnect(to, slot)
	return nil
}

func (g *Graph) disconnect(to *Node, slot int) {
	to.inputs[slot] = nil
	for len(to.inputs) > 0 && to.inputs[len(to.inputs)-1] == nil {
		to.inputs = to.inputs[:len(to.inputs)-1]
	}
	for i, e := range g.edges {
		if e.To == to && e.Slot == slot {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			break
		}
	}
	g.order = nil
	to.needsValidate = true
	to.needsPrepare = true
}

// RemoveNode disconnects the node from the graph and tears it down.
func (g *Graph) RemoveNode(n *Node) error {
	if err := g.check(n); err != nil {
		return err
	}
	for _, e := range g.Edges() {
		if e.From == n || e.To == n {
			g.disconnect(e.To, e.Slot)
		}
	}
	for i := range g.nodes {
		if g.nodes[i] == n {
			g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
			break
		}
	}
	delete(g.names, n.name)
	g.order = nil
	n.teardown()
	g.log.Debug(fmt.Sprintf("removed node %v", n))
	return nil
}

// ComputeRunOrder returns nodes in topological order. Nodes without
// dependencies between them keep creation order. The order is cached
// until edges change.
func (g *Graph) ComputeRunOrder() ([]*Node, error) {
	if g.order != nil || len(g.nodes) == 0 {
		return g.order, nil
	}
	index := g.index()
	sorted, ok := topo.Sort(len(g.nodes), g.topoEdges(index))
	if !ok {
		return nil, &StructuralError{Slot: -1, Err: ErrCycle}
	}
	order := make([]*Node, len(sorted))
	for i, v := range sorted {
		order[i] = g.nodes[v]
	}
	g.order = order
	return order, nil
}

// Output returns output buffer of the node.
func (g *Graph) Output(n *Node) (*signal.Buffer, error) {
	if err := g.check(n); err != nil {
		return nil, err
	}
	return n.Output(), nil
}

// GetParameter returns a copy of the parameter value.
func (g *Graph) GetParameter(n *Node, name string) (interface{}, error) {
	if err := g.checkModule(n); err != nil {
		return nil, err
	}
	v, err := n.params.Get(name)
	if err != nil {
		return nil, classify(n, err, configurationError)
	}
	return v, nil
}

// SetParameter assigns the parameter value and invalidates the node
// according to the parameter mutability:
//
//	Coefficient - node is prepared again before the next run;
//	Structural - module is reset, node is validated and prepared again;
//	Fixed - same as structural, but only allowed before the node has
//	started a stream.
//
// Rejected value leaves the node unchanged.
func (g *Graph) SetParameter(n *Node, name string, v interface{}) error {
	if err := g.checkModule(n); err != nil {
		return err
	}
	if err := n.params.Validate(name, v); err != nil {
		return classify(n, err, configurationError)
	}
	spec, err := n.params.Spec(name)
	if err != nil {
		return classify(n, err, configurationError)
	}
	if spec.Mutability == param.Fixed && n.started {
		current, _ := n.params.Get(name)
		return &ConfigurationError{
			Node:  n.String(),
			Param: name,
			Got:   v,
			Want:  current,
			Err:   ErrFixed,
		}
	}
	changed, err := n.params.Set(name, v)
	if err != nil {
		return classify(n, err, configurationError)
	}
	if !changed {
		return nil
	}
	switch spec.Mutability {
	case param.Structural, param.Fixed:
		n.module.Reset(n)
		n.needsValidate = true
	}
	n.needsPrepare = true
	if n.state > Ready {
		n.state = Ready
	}
	g.log.Debug(fmt.Sprintf("%v: %s %v parameter set to %v", n, name, spec.Mutability, v))
	return nil
}

// Invalidate forces validation and preparation of the node before its
// next run.
func (g *Graph) Invalidate(n *Node) error {
	if err := g.checkModule(n); err != nil {
		return err
	}
	n.params.Invalidate()
	n.needsValidate = true
	n.needsPrepare = true
	if n.state > Ready {
		n.state = Ready
	}
	return nil
}

// Reset calls module reset and forces preparation of the node before its
// next run.
func (g *Graph) Reset(n *Node) error {
	if err := g.checkModule(n); err != nil {
		return err
	}
	n.module.Reset(n)
	n.needsPrepare = true
	if n.state > Ready {
		n.state = Ready
	}
	return nil
}

// Restart starts a new stream. Every node is validated again and receives
// StreamStart on its next prepare and run.
func (g *Graph) Restart() {
	for _, n := range g.nodes {
		n.restart()
	}
	g.log.Debug("stream restarted")
}

// Close tears down all nodes. Graph cannot be used after this call.
func (g *Graph) Close() {
	if g.closed {
		return
	}
	for _, n := range g.nodes {
		n.teardown()
	}
	g.closed = true
	g.log.Debug("graph closed")
}

// check returns error if node doesn't belong to the graph.
func (g *Graph) check(n *Node) error {
	if n == nil {
		return &StructuralError{Slot: -1, Err: ErrUnknownNode}
	}
	if n.state == TornDown {
		return &StructuralError{Node: n.String(), Slot: -1, Err: ErrTornDown}
	}
	if g.names[n.name] != n {
		return &StructuralError{Node: n.String(), Slot: -1, Err: ErrUnknownNode}
	}
	return nil
}

// checkModule returns error if node doesn't belong to the graph or has
// no module bound.
func (g *Graph) checkModule(n *Node) error {
	if err := g.check(n); err != nil {
		return err
	}
	if n.module == nil {
		return &StructuralError{Node: n.String(), Slot: -1, Err: ErrNoModule}
	}
	return nil
}

// checkStructure returns error if node cannot be executed.
func (g *Graph) checkStructure(n *Node) error {
	if n.state == TornDown {
		return &StructuralError{Node: n.String(), Slot: -1, Err: ErrTornDown}
	}
	if n.module == nil {
		return &StructuralError{Node: n.String(), Slot: -1, Err: ErrNoModule}
	}
	for slot := 0; slot < n.caps.Inputs; slot++ {
		if n.Upstream(slot) == nil {
			return &StructuralError{Node: n.String(), Slot: slot, Err: ErrUnconnected}
		}
	}
	return nil
}

func (g *Graph) index() map[*Node]int {
	index := make(map[*Node]int, len(g.nodes))
	for i, n := range g.nodes {
		index[n] = i
	}
	return index
}

func (g *Graph) topoEdges(index map[*Node]int) []topo.Edge {
	edges := make([]topo.Edge, 0, len(g.edges))
	for _, e := range g.edges {
		edges = append(edges, topo.Edge{From: index[e.From], To: index[e.To]})
	}
	return edges
}
