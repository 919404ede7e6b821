package cochlea

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dudk/cochlea/param"
	"github.com/dudk/cochlea/signal"
)

var (
	// ErrCycle is returned when an edge would close a cycle.
	ErrCycle = errors.New("edge closes a cycle")
	// ErrSlotOccupied is returned when an input slot is already connected.
	ErrSlotOccupied = errors.New("input slot is occupied")
	// ErrSlotRange is returned when an input slot is not declared by module.
	ErrSlotRange = errors.New("input slot out of range")
	// ErrUnconnected is returned when a required input slot is not connected.
	ErrUnconnected = errors.New("required input is not connected")
	// ErrNoModule is returned when node has no bound module.
	ErrNoModule = errors.New("module is not bound")
	// ErrUnknownNode is returned when node doesn't belong to the graph.
	ErrUnknownNode = errors.New("unknown node")
	// ErrDuplicateName is returned when node name is already used.
	ErrDuplicateName = errors.New("duplicate node name")
	// ErrTornDown is returned when torn down node is used.
	ErrTornDown = errors.New("node is torn down")
	// ErrFixed is returned when fixed parameter is changed during a stream.
	ErrFixed = errors.New("parameter is fixed during stream")
	// ErrNotReady is returned by modules which don't have data yet. Nodes
	// that return it are deferred.
	ErrNotReady = errors.New("not ready")
)

// ConfigurationError is returned for invalid parameters and shape
// mismatches between a node and its upstream.
type ConfigurationError struct {
	Node  string
	Param string
	Got   interface{}
	Want  interface{}
	Err   error
}

func (e *ConfigurationError) Error() string {
	var b strings.Builder
	b.WriteString("configuration")
	if e.Node != "" {
		fmt.Fprintf(&b, ": node %s", e.Node)
	}
	if e.Param != "" {
		fmt.Fprintf(&b, ": parameter %q", e.Param)
	}
	if e.Got != nil || e.Want != nil {
		fmt.Fprintf(&b, ": got %v, want %v", e.Got, e.Want)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// StructuralError is returned for graph topology violations.
type StructuralError struct {
	Node string
	Slot int
	Err  error
}

func (e *StructuralError) Error() string {
	if e.Slot < 0 {
		return fmt.Sprintf("structure: node %s: %v", e.Node, e.Err)
	}
	return fmt.Sprintf("structure: node %s: slot %d: %v", e.Node, e.Slot, e.Err)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}

// ResourceError is returned when memory cannot be allocated.
type ResourceError struct {
	Node string
	Err  error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("resource: node %s: %v", e.Node, e.Err)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// RunError is returned when module fails during processing. Outputs of
// nodes executed earlier in the same tick stay valid.
type RunError struct {
	Node string
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("run: node %s: %v", e.Node, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// NotReadyError lists nodes deferred in a tick because they or their
// upstream had no data. It is not a fault: the tick can be repeated.
type NotReadyError struct {
	Nodes []string
}

func (e *NotReadyError) Error() string {
	return fmt.Sprintf("not ready: %s", strings.Join(e.Nodes, ", "))
}

// Is makes NotReadyError match ErrNotReady.
func (e *NotReadyError) Is(err error) bool {
	return err == ErrNotReady
}

// classify wraps err returned by module into a typed error of the node.
// Typed errors are passed through with node identity filled in.
// Untyped errors are wrapped with provided fallback.
func classify(n *Node, err error, fallback func(node string, err error) error) error {
	var (
		configErr   *ConfigurationError
		structErr   *StructuralError
		resourceErr *ResourceError
		runErr      *RunError
		notReadyErr *NotReadyError
		allocErr    *signal.AllocError
		paramErr    *param.Error
	)
	switch {
	case errors.As(err, &configErr):
		if configErr.Node == "" {
			configErr.Node = n.String()
		}
		return configErr
	case errors.As(err, &structErr):
		if structErr.Node == "" {
			structErr.Node = n.String()
		}
		return structErr
	case errors.As(err, &resourceErr):
		if resourceErr.Node == "" {
			resourceErr.Node = n.String()
		}
		return resourceErr
	case errors.As(err, &runErr):
		if runErr.Node == "" {
			runErr.Node = n.String()
		}
		return runErr
	case errors.As(err, &notReadyErr):
		return notReadyErr
	case errors.As(err, &allocErr):
		return &ResourceError{Node: n.String(), Err: err}
	case errors.As(err, &paramErr):
		return &ConfigurationError{
			Node:  n.String(),
			Param: paramErr.Param,
			Got:   paramErr.Got,
			Want:  paramErr.Want,
			Err:   err,
		}
	}
	return fallback(n.String(), err)
}

func configurationError(node string, err error) error {
	return &ConfigurationError{Node: node, Err: err}
}

func runError(node string, err error) error {
	return &RunError{Node: node, Err: err}
}

// tickErrors wraps errors that might occur when multiple mutations fail
// between ticks.
type tickErrors []error

func (e tickErrors) Error() string {
	s := []string{}
	for _, se := range e {
		s = append(s, se.Error())
	}
	return strings.Join(s, ",")
}

func (e tickErrors) Unwrap() []error {
	return e
}

// ret returns untyped nil if error list is empty.
func (e tickErrors) ret() error {
	if len(e) > 0 {
		return e
	}
	return nil
}
