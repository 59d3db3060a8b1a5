package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// toolServerEnv makes the test binary act as a stdio tool server
const toolServerEnv = "VOICEGATE_TOOL_SERVER"

func TestMain(m *testing.M) {
	switch os.Getenv(toolServerEnv) {
	case "serve":
		serveStdio(os.Stdin, os.Stdout)
		os.Exit(0)
	case "silent":
		io.Copy(io.Discard, os.Stdin)
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func serveStdio(in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)
	enc := json.NewEncoder(out)
	for scanner.Scan() {
		var req rpcRequest
		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			return
		}
		if err := enc.Encode(answer(req)); err != nil {
			return
		}
	}
}

// toolServerCommand returns a command line that re-runs this test binary as
// a tool server in the given mode
func toolServerCommand(t *testing.T, mode string) string {
	t.Helper()
	exe, err := os.Executable()
	require.NoError(t, err)
	t.Setenv(toolServerEnv, mode)
	return exe
}

func TestStdioProvider(t *testing.T) {
	ctx := context.Background()

	p, err := NewStdioProvider("local", toolServerCommand(t, "serve"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	require.NoError(t, p.Initialize(ctx))

	tools, err := p.ListTools(ctx)
	require.NoError(t, err)
	require.Len(t, tools, 2)
	assert.Equal(t, "get_weather", tools[0].Name)
	assert.Equal(t, "local", tools[0].Provider)

	res, err := p.CallTool(ctx, "get_weather", map[string]any{"query": "Kazan"})
	require.NoError(t, err)
	assert.Equal(t, "Sunny in Kazan", res.Text())

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	_, err = p.ListTools(ctx)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestStdioProviderStopsSilentServer(t *testing.T) {
	p, err := NewStdioProvider("silent", toolServerCommand(t, "silent"), testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { p.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = p.Initialize(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)

	// the stream may be out of step now, so the provider refuses further use
	_, err = p.ListTools(context.Background())
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConnectLocalServer(t *testing.T) {
	r := Connect(context.Background(), []string{toolServerCommand(t, "serve")}, nil, testLogger())
	defer r.Close()

	assert.Equal(t, 1, r.Count())
	out, err := r.Call(context.Background(), "get_weather", map[string]any{"query": "Perm"})
	require.NoError(t, err)
	assert.Equal(t, "Sunny in Perm", out)
}

func TestConnectGivesUpOnSilentServer(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	start := time.Now()
	r := Connect(ctx, []string{toolServerCommand(t, "silent")}, nil, testLogger())
	defer r.Close()

	assert.Equal(t, 0, r.Count())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCommandArgs(t *testing.T) {
	args, err := commandArgs("servers/weather.py --units metric")
	require.NoError(t, err)
	assert.Equal(t, []string{"python3", "servers/weather.py", "--units", "metric"}, args)

	args, err = commandArgs("  /usr/local/bin/search-server  -v ")
	require.NoError(t, err)
	assert.Equal(t, []string{"/usr/local/bin/search-server", "-v"}, args)

	_, err = commandArgs("   ")
	assert.Error(t, err)
}

func TestRegistryCallTimesOut(t *testing.T) {
	p, err := NewStdioProvider("silent", toolServerCommand(t, "silent"), testLogger())
	require.NoError(t, err)

	r := NewRegistry(testLogger())
	r.timeout = 200 * time.Millisecond
	r.Register(p)
	r.tools["get_weather"] = Tool{Name: "get_weather", Provider: "silent"}
	defer r.Close()

	_, err = r.Call(context.Background(), "get_weather", map[string]any{"query": "Omsk"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
