package cochlea

type (
	// Mutation is a parameter write associated with a certain node.
	Mutation struct {
		node  *Node
		name  string
		value interface{}
	}

	// Mutations is a set of mutations mapped to their nodes. Mutations are
	// applied in the order they were put.
	Mutations map[*Node][]Mutation
)

// Mutate returns a mutation which sets the parameter of the node. It
// doesn't change the node until applied.
func (n *Node) Mutate(name string, value interface{}) Mutation {
	return Mutation{
		node:  n,
		name:  name,
		value: value,
	}
}

// Node returns mutated node.
func (m Mutation) Node() *Node {
	return m.node
}

// Apply sets the parameter through the graph.
func (m Mutation) Apply(g *Graph) error {
	return g.SetParameter(m.node, m.name, m.value)
}

// Put mutation to the set of mutations.
func (ms Mutations) Put(m Mutation) Mutations {
	if m.node == nil {
		return ms
	}
	if ms == nil {
		return Mutations{m.node: {m}}
	}
	ms[m.node] = append(ms[m.node], m)
	return ms
}

// Append mutations to another set.
func (ms Mutations) Append(source Mutations) Mutations {
	if ms == nil {
		ms = make(Mutations)
	}
	for n, m := range source {
		ms[n] = append(ms[n], m...)
	}
	return ms
}

// Detach mutations for provided node.
func (ms Mutations) Detach(n *Node) Mutations {
	if ms == nil {
		return nil
	}
	if m, ok := ms[n]; ok {
		delete(ms, n)
		return Mutations{n: m}
	}
	return nil
}

// ApplyTo applies all mutations to the graph. Mutations of one node are
// applied in order, failed mutation doesn't prevent the rest from being
// applied. All errors are returned together.
func (ms Mutations) ApplyTo(g *Graph) error {
	var errs tickErrors
	for n, m := range ms {
		for i := range m {
			if err := m[i].Apply(g); err != nil {
				errs = append(errs, err)
			}
		}
		delete(ms, n)
	}
	return errs.ret()
}
