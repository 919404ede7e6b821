package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dudk/cochlea"
	"github.com/dudk/cochlea/log"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func discard() *logrus.Logger {
	l := log.GetLogger()
	l.SetOutput(io.Discard)
	return l
}

func TestInit(t *testing.T) {
	root := newRootCommand()
	var names []string
	for _, cmd := range root.Commands() {
		names = append(names, cmd.Name())
	}
	assert.Subset(t, names, []string{"run", "modules"})
	assert.Subset(t, registry().Names(), []string{"sine", "gain", "spectrum", "wav.source", "wav.sink"})
}

func TestParseConfig(t *testing.T) {
	c, err := parseConfig([]byte(`
threads: 4
nodes:
  - name: tone
    type: sine
    params:
      frequency: 440
      channels: 2
  - name: fir
    type: fir
    params:
      coefficients: [0.5, 0.5]
edges:
  - {from: tone, to: fir}
`))
	require.NoError(t, err)
	assert.Equal(t, 512, c.Block)
	assert.Equal(t, 4, c.Threads)
	require.Len(t, c.Nodes, 2)
	assert.Equal(t, "sine", c.Nodes[0].Type)
	assert.Equal(t, edgeConfig{From: "tone", To: "fir"}, c.Edges[0])

	g, err := c.build(registry(), discard())
	require.NoError(t, err)
	defer g.Close()
	fir := g.Node("fir")
	require.NotNil(t, fir)
	assert.Equal(t, []float64{0.5, 0.5}, fir.Params().Reals("coefficients"))
	assert.Equal(t, g.Node("tone"), fir.Upstream(0))

	_, err = parseConfig([]byte("block: 10"))
	assert.Error(t, err)
	_, err = parseConfig([]byte("nodes: {"))
	assert.Error(t, err)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name   string
		config string
		err    error
	}{
		{
			name:   "unknown type",
			config: "nodes: [{name: a, type: reverb}]",
			err:    cochlea.ErrUnknownModule,
		},
		{
			name:   "unknown node",
			config: "nodes: [{name: a, type: sine}]\nedges: [{from: a, to: b}]",
			err:    cochlea.ErrUnknownNode,
		},
		{
			name:   "cycle",
			config: "nodes: [{name: a, type: gain}, {name: b, type: gain}]\nedges: [{from: a, to: b}, {from: b, to: a}]",
			err:    cochlea.ErrCycle,
		},
		{
			name:   "parameter",
			config: "nodes: [{name: a, type: sine, params: {frequency: high}}]",
		},
	}
	for _, test := range tests {
		c, err := parseConfig([]byte(test.config))
		require.NoError(t, err, test.name)
		_, err = c.build(registry(), discard())
		require.Error(t, err, test.name)
		if test.err != nil {
			assert.ErrorIs(t, err, test.err, test.name)
		}
	}
}

func TestRun(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "tone.wav")
	tone := writeFile(t, dir, "tone.yaml", `
block: 441
metrics: true
nodes:
  - name: tone
    type: sine
    params: {frequency: 440, amplitude: 0.5, dt: 0.0000625, channels: 2}
  - name: gain
    type: gain
    params: {gain: 0.5}
  - name: out
    type: wav.sink
    params: {file: `+out+`}
edges:
  - {from: tone, to: gain}
  - {from: gain, to: out}
`)
	_, err := execute(t, "run", tone, "--ticks", "20", "--block", "800", "--threads", "2")
	require.NoError(t, err)
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Greater(t, info.Size(), int64(20*800*2*2))

	analysis := writeFile(t, dir, "analysis.yaml", `
nodes:
  - name: in
    type: wav.source
    params: {file: `+out+`}
  - name: spectrum
    type: spectrum
    params: {size: 128}
edges:
  - {from: in, to: spectrum}
`)
	c, err := loadConfig(analysis)
	require.NoError(t, err)
	require.NoError(t, run(context.Background(), c, registry(), discard()))

	_, err = execute(t, "run", filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
	_, err = execute(t, "run")
	assert.Error(t, err)
}

func TestRunCancel(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "noise.yaml", `
nodes:
  - name: noise
    type: noise
    params: {channels: 4}
  - name: fir
    type: fir
    params: {coefficients: [0.25, 0.25, 0.25, 0.25]}
edges:
  - {from: noise, to: fir}
`)
	_, err := execute(t, "run", path, "--timeout", "10ms")
	assert.NoError(t, err, "interruption is not an error")
}

func TestModules(t *testing.T) {
	out, err := execute(t, "modules")
	require.NoError(t, err)
	assert.Contains(t, out, "sine")
	assert.Contains(t, out, "frequency")
	assert.Contains(t, out, "wav.source")

	out, err = execute(t, "modules", "bin")
	require.NoError(t, err)
	assert.Contains(t, out, "binwidth")
	assert.NotContains(t, out, "frequency")

	_, err = execute(t, "modules", "reverb")
	assert.ErrorIs(t, err, cochlea.ErrUnknownModule)
}
