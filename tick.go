package cochlea

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"
)

// RunStreamTick executes one tick of the graph. e.Samples is the block
// size for source nodes and e.Threads is the number of workers for
// channel-parallel nodes. If e.StreamStart is set, a new stream is
// started before the tick. Per-node values of execution, such as the
// offset and stream start, are tracked by nodes.
//
// Tick goes in two phases. First every node is checked and, in run
// order and before any run, validated and prepared where its upstream
// allows it: validation needs shaped upstream outputs and preparation
// needs upstreams which have produced output in the current stream. Then
// every node runs in run order, the nodes left over by the first phase
// are validated and prepared right before their run. A node with upstream
// which didn't produce output in this tick is deferred along with its
// dependents and reported in NotReadyError, other nodes still run.
// RunError stops the tick, outputs of nodes executed earlier stay valid.
func (g *Graph) RunStreamTick(e Execution) error {
	if g.closed {
		return &StructuralError{Slot: -1, Err: ErrTornDown}
	}
	if e.Samples <= 0 {
		return &ConfigurationError{Param: "samples", Got: e.Samples, Want: "positive block size"}
	}
	if e.Threads < 1 {
		e.Threads = 1
	}
	order, err := g.ComputeRunOrder()
	if err != nil {
		return err
	}
	for _, n := range order {
		if err := g.checkStructure(n); err != nil {
			return err
		}
	}
	if e.StreamStart {
		g.Restart()
	}

	for _, n := range order {
		if !upstreamShaped(n) {
			continue
		}
		if err := g.validate(n); err != nil {
			return err
		}
		if !upstreamStarted(n) {
			continue
		}
		switch {
		case n.NeedsPrepare() || n.samples != e.Samples:
			if err := g.prepare(n, e); err != nil {
				return err
			}
		case n.caps.ChannelParallel && !n.partition.matches(n.output.Channels(), e.Threads):
			if err := g.partition(n, e.Threads); err != nil {
				return err
			}
		}
	}

	g.tick++
	var deferred []string
	for _, n := range order {
		if !g.upstreamProduced(n) {
			n.deferred = g.tick
			deferred = append(deferred, n.String())
			continue
		}
		if err := g.validate(n); err != nil {
			return err
		}
		if n.NeedsPrepare() || n.samples != e.Samples {
			if err := g.prepare(n, e); err != nil {
				return err
			}
		}
		err := g.run(n, e)
		if errors.Is(err, ErrNotReady) {
			n.deferred = g.tick
			deferred = append(deferred, n.String())
			continue
		}
		if err != nil {
			return classify(n, err, runError)
		}
	}
	if len(deferred) > 0 {
		g.log.Debug(fmt.Sprintf("tick %d deferred %d nodes", g.tick, len(deferred)))
		return &NotReadyError{Nodes: deferred}
	}
	return nil
}

// validate calls module validate if node needs it.
func (g *Graph) validate(n *Node) error {
	if !n.needsValidate {
		return nil
	}
	if err := n.module.Validate(n); err != nil {
		return classify(n, err, configurationError)
	}
	n.needsValidate = false
	if n.state == Unprepared {
		n.state = Validated
	}
	return nil
}

// prepare calls module prepare and sets up channel partition of the node.
// Children are zeroed before the first prepare of a stream.
func (g *Graph) prepare(n *Node, e Execution) error {
	e.StreamStart = !n.started
	e.Offset = n.cursor
	e.Thread = 0
	e.Partition = nil
	e.Channels.From, e.Channels.To = 0, 0
	if !n.prepared {
		for _, c := range n.Children() {
			c.output.Reset()
		}
	}
	if err := n.module.Prepare(n, e); err != nil {
		return classify(n, err, configurationError)
	}
	n.meter.Prepared()
	n.shapes = n.inputShapes()
	n.samples = e.Samples
	n.params.Clean()
	n.needsPrepare = false
	n.prepared = true
	n.state = Ready
	return g.partition(n, e.Threads)
}

// partition splits channels of a channel-parallel node across threads.
// Partition is rebuilt only when number of channels or threads changes,
// but thread preparer is notified every time.
func (g *Graph) partition(n *Node, threads int) error {
	if !n.caps.ChannelParallel {
		n.partition = nil
		return nil
	}
	if !n.partition.matches(n.output.Channels(), threads) {
		n.partition = newPartition(n.output.Channels(), threads)
		g.log.Debug(fmt.Sprintf("%v: %d channels partitioned to %d threads", n, n.partition.Channels(), n.partition.Threads()))
	}
	if tp, ok := n.module.(ThreadPreparer); ok {
		if err := tp.PrepareThreads(n, n.partition); err != nil {
			return classify(n, err, configurationError)
		}
	}
	return nil
}

// upstreamShaped returns true if all connected upstream nodes are
// validated and either have produced output in the current stream or have
// allocated it during prepare.
func upstreamShaped(n *Node) bool {
	for _, u := range n.inputs {
		if u == nil || u.started {
			continue
		}
		if u.needsValidate || !u.prepared || u.output.Channels() == 0 {
			return false
		}
	}
	return true
}

// upstreamStarted returns true if all connected upstream nodes have
// produced output in the current stream.
func upstreamStarted(n *Node) bool {
	for _, u := range n.inputs {
		if u != nil && !u.started {
			return false
		}
	}
	return true
}

// upstreamProduced returns true if all connected upstream nodes have
// produced output in the current tick.
func (g *Graph) upstreamProduced(n *Node) bool {
	for _, u := range n.inputs {
		if u != nil && u.produced != g.tick {
			return false
		}
	}
	return true
}

// run executes the node and advances its cursor. Channel-parallel nodes
// are fanned out to workers, one per channel range of the partition.
func (g *Graph) run(n *Node, e Execution) error {
	e.StreamStart = !n.started
	e.Offset = n.cursor
	start := time.Now()
	if err := g.fanOut(n, e); err != nil {
		return err
	}
	consumed := n.output.Len()
	if in := n.Input(0); in != nil {
		consumed = in.Len()
	}
	n.cursor += int64(consumed)
	n.started = true
	n.produced = g.tick
	n.state = Running
	n.measure(start, int64(n.output.Len()), n.output.Dt())
	return nil
}

func (g *Graph) fanOut(n *Node, e Execution) error {
	p := n.partition
	if p == nil {
		e.Thread, e.Threads = 0, 1
		e.Partition = nil
		return n.module.Run(n, e)
	}
	e.Partition = p
	e.Thread, e.Threads = 0, 1
	switch p.Threads() {
	case 0:
		return n.module.Run(n, e)
	case 1:
		e.Channels = p.Range(0)
		return n.module.Run(n, e)
	}
	e.Threads = p.Threads()
	var eg errgroup.Group
	for i := 0; i < p.Threads(); i++ {
		te := e
		te.Thread = i
		te.Channels = p.Range(i)
		eg.Go(func() error {
			return n.module.Run(n, te)
		})
	}
	return eg.Wait()
}
