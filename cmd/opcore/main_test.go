package main

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/opcore/op"
)

func TestDispatch(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, dispatch([]string{"version"}, &out, io.Discard))
	assert.Equal(t, "opcore "+version+"\n", out.String())

	out.Reset()
	require.NoError(t, dispatch(nil, &out, io.Discard))
	assert.Contains(t, out.String(), "Commands:")

	assert.Error(t, dispatch([]string{"train"}, &out, io.Discard))
}

func TestParseInts(t *testing.T) {
	got, err := parseInts("1, 3,8,8", 4)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 3, 8, 8}, got)

	bad := []struct {
		s string
		n int
	}{
		{"1,2", 3},
		{"1,x", 2},
		{"0,1", 2},
		{"-1,2", 2},
	}
	for _, tt := range bad {
		_, err := parseInts(tt.s, tt.n)
		assert.Error(t, err, tt.s)
	}
}

func TestParseRunFlags(t *testing.T) {
	cfg, err := parseRunFlags([]string{
		"-op", "maxpool2d", "-input", "2,4,6,6", "-kernel", "2,2", "-stride", "2,2",
		"-padding", "VALID", "-memory-limit", "1MiB",
	}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, op.PaddingValid, cfg.padding)
	assert.Equal(t, uint64(1<<20), cfg.memoryLimit)

	p, err := cfg.params()
	require.NoError(t, err)
	assert.Equal(t, float32(op.MaxPool2D), p[op.KeyType])
	_, hasChannels := p[op.KeyInChannel]
	assert.False(t, hasChannels)

	_, err = parseRunFlags([]string{"-padding", "full"}, &bytes.Buffer{})
	assert.Error(t, err)
	_, err = parseRunFlags([]string{"-repeat", "0"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunCommand_FlagErrorsGoToStderr(t *testing.T) {
	var stdout, stderr bytes.Buffer
	require.Error(t, runCommand([]string{"-no-such-flag"}, &stdout, &stderr))
	assert.Empty(t, stdout.String())
	assert.Contains(t, stderr.String(), "no-such-flag")
}

func TestRun_ColdConv(t *testing.T) {
	var out bytes.Buffer
	err := runCommand([]string{"-op", "conv2d", "-input", "1,3,8,8", "-out-channel", "4", "-threads", "2"}, &out, io.Discard)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `Convolution2D "op0"`)
	assert.Contains(t, out.String(), "output    [1 4 8 8]")
	assert.Contains(t, out.String(), "weight    [4 3 3 3] float32")
	assert.Contains(t, out.String(), "from default")
	assert.Contains(t, out.String(), "sum=0 ")
}

func TestRun_MaxPool(t *testing.T) {
	var out bytes.Buffer
	err := runCommand([]string{"-op", "maxpool2d", "-input", "1,2,5,5", "-kernel", "3,3", "-stride", "2,2", "-padding", "valid"}, &out, io.Discard)
	require.NoError(t, err)
	assert.Contains(t, out.String(), "output    [1 2 2 2]")
}

func TestRun_WeightsFile(t *testing.T) {
	// conv.weight [1,1,1,1] = 2 and conv.bias [1] = 1 in SafeTensors.
	path := filepath.Join(t.TempDir(), "w.safetensors")
	header, err := json.Marshal(map[string]any{
		"model.conv.weight": map[string]any{"dtype": "F32", "shape": []int{1, 1, 1, 1}, "data_offsets": []int{0, 4}},
		"model.conv.bias":   map[string]any{"dtype": "F32", "shape": []int{1}, "data_offsets": []int{4, 8}},
	})
	require.NoError(t, err)
	var file bytes.Buffer
	require.NoError(t, binary.Write(&file, binary.LittleEndian, uint64(len(header))))
	file.Write(header)
	require.NoError(t, binary.Write(&file, binary.LittleEndian, math.Float32bits(2)))
	require.NoError(t, binary.Write(&file, binary.LittleEndian, math.Float32bits(1)))
	require.NoError(t, os.WriteFile(path, file.Bytes(), 0o600))

	var out bytes.Buffer
	err = runCommand([]string{
		"-name", "conv", "-input", "1,1,1,1", "-kernel", "1,1", "-out-channel", "1", "-bias",
		"-weights", path, "-weight-prefix", "model.",
	}, &out, io.Discard)
	require.NoError(t, err)
	// The single input value is -8/8 = -1, so the output is 2*-1 + 1.
	assert.Contains(t, out.String(), "from loader")
	assert.Contains(t, out.String(), "sum=-1 ")
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
		code op.Code
	}{
		{"window too large", []string{"-op", "maxpool2d", "-input", "1,1,2,2", "-kernel", "3,3", "-padding", "valid"}, op.PreconditionViolation},
		{"memory limit", []string{"-input", "1,3,64,64", "-out-channel", "64", "-memory-limit", "1KiB"}, op.AllocationFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := runCommand(tt.args, &bytes.Buffer{}, io.Discard)
			require.Error(t, err)
			assert.Equal(t, tt.code, op.CodeOf(err))
		})
	}

	assert.Error(t, runCommand([]string{"-op", "dense"}, &bytes.Buffer{}, io.Discard))
	assert.Error(t, runCommand([]string{"-weights", "/nonexistent/w.gguf"}, &bytes.Buffer{}, io.Discard))
}
