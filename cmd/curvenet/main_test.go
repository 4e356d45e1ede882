package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/npillmayer/curvenet/config"
	"github.com/npillmayer/curvenet/kernel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type output struct {
	Surfaces []config.SurfaceSpec `yaml:"surfaces"`
}

func readOutput(t *testing.T, data []byte) output {
	var out output
	require.NoError(t, yaml.Unmarshal(data, &out))
	return out
}

func TestRunDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, run([]string{"-f", "testdata/network.yaml", "-o", path}, nil))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := readOutput(t, data)
	require.Len(t, out.Surfaces, 2)
	assert.Equal(t, "dome", out.Surfaces[0].Name)
	assert.Len(t, out.Surfaces[0].Key, 12)
	dome, err := out.Surfaces[0].Surface()
	require.NoError(t, err)
	apex := kernel.Default().SurfacePoint(dome, 0.5, 0.5)
	assert.InDelta(t, 1.25, apex[2], 1e-3)
	arcs, err := out.Surfaces[1].Surface()
	require.NoError(t, err)
	assert.True(t, arcs.IsRational())
}

func TestRunDemo(t *testing.T) {
	var stdout bytes.Buffer
	require.NoError(t, run([]string{"-demo"}, &stdout))
	out := readOutput(t, stdout.Bytes())
	require.Len(t, out.Surfaces, 1)
	assert.Equal(t, "wave", out.Surfaces[0].Name)
	_, err := out.Surfaces[0].Surface()
	assert.NoError(t, err)
}

func TestRunErrors(t *testing.T) {
	assert.Error(t, run(nil, nil))
	assert.Error(t, run([]string{"-f", "testdata/missing.yaml"}, nil))
	assert.Error(t, run([]string{"-nosuchflag"}, nil))
}

func TestRunOutputFormat(t *testing.T) {
	data, err := os.ReadFile("testdata/network.yaml")
	require.NoError(t, err)
	doc := strings.Replace(string(data), "settings:\n", "settings:\n  output.format: json\n", 1)
	path := filepath.Join(t.TempDir(), "json.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))
	err = run([]string{"-f", path}, &bytes.Buffer{})
	assert.True(t, errors.Is(err, config.ErrInvalidDocument), "got %v", err)
}
