/*
Package cochlea allows to build and execute signal-processing graphs of
auditory and biophysical simulation stages.

Concept

A processing graph consists of nodes. Every node binds a Module, owns its
output signal.Buffer and a param.Set and references upstream nodes through
numbered input slots:

    Node - a single pipeline stage;
    Module - the behaviour of the stage: validate, prepare, run, reset and teardown;
    Graph - nodes and directed edges, executed in topological order;
    Scheduler - drives ticks of the graph.

Modules are stateless descriptors. Everything a module needs to carry
between calls lives in the node: the output buffer, private state and child
nodes. Child nodes are owned by their parent and are used as carry buffers
to keep filter state across ticks.

Lifecycle

Every node goes through the following states:

    Unprepared -> Validated -> Ready -> Running

Validate is called once per stream and after topology changes. Prepare is
called before the first run of a stream and whenever parameters or input
shapes have changed. Neither is called until upstream nodes have output
to validate against: such node is deferred and reported in NotReadyError. A parameter change moves the node back to Ready, so
the module is prepared again before the next run. Parameters declare their
mutability: coefficient changes are recomputed in place, structural changes
reset the module first.

    g, _ := cochlea.NewGraph()
    tone, _ := g.CreateNode("tone", &stage.Sine{})
    gain, _ := g.CreateNode("gain", &stage.Gain{})
    _ = g.AddEdge(tone, gain, 0)

Execution

A tick advances every node by a block of samples. The first tick of a
stream delivers StreamStart to every node exactly once. Streams can be
executed in segments of any size: modules carry trailing state in child
nodes, so two ticks of N1 and N2 samples produce the same output as a
single tick of N1+N2 samples.

    s, _ := cochlea.NewScheduler(g, 512, cochlea.WithThreads(4))
    err := cochlea.Wait(s.Run(ctx, 100))

Nodes are executed sequentially. Modules that declare channel parallelism
are fanned out to worker goroutines, each worker runs the module with a
view of its own channel range.
*/
package cochlea
