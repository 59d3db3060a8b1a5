package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"
)

// StdioProvider runs a tool server as a child process and exchanges
// newline-delimited JSON-RPC messages over its stdin and stdout.
type StdioProvider struct {
	name    string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	scanner *bufio.Scanner
	reqID   int
	logger  *slog.Logger
	mu      sync.Mutex // one request in flight
	closed  atomic.Bool
	stop    sync.Once
}

// NewStdioProvider starts command. Python scripts (*.py) run under python3;
// anything else is split on whitespace and executed directly.
func NewStdioProvider(name, command string, logger *slog.Logger) (*StdioProvider, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}

	args, err := commandArgs(command)
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(args[0], args[1:]...)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start tool server: %w", err)
	}

	p := &StdioProvider{
		name:    name,
		cmd:     cmd,
		stdin:   stdin,
		scanner: bufio.NewScanner(stdout),
		logger:  logger,
	}
	p.scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	go p.logStderr(stderr)

	logger.Info("started tool server", "name", name, "command", command)
	return p, nil
}

func (c *StdioProvider) Name() string {
	return c.name
}

func (c *StdioProvider) Initialize(ctx context.Context) error {
	return initialize(ctx, c.name, c.logger, c.send)
}

func (c *StdioProvider) ListTools(ctx context.Context) ([]Tool, error) {
	return listTools(ctx, c.name, c.send)
}

func (c *StdioProvider) CallTool(ctx context.Context, name string, args map[string]any) (Result, error) {
	return callTool(ctx, name, args, c.send)
}

func (c *StdioProvider) Close() error {
	c.shutdown()
	return nil
}

// shutdown kills the process. It does not take mu, so it also unblocks a
// send waiting on a silent server.
func (c *StdioProvider) shutdown() {
	c.stop.Do(func() {
		c.closed.Store(true)
		c.stdin.Close()
		if c.cmd.Process != nil {
			if err := c.cmd.Process.Kill(); err != nil {
				c.logger.Warn("failed to kill tool server", "name", c.name, "error", err)
			}
			c.cmd.Wait()
		}
	})
}

type line struct {
	data []byte
	err  error
}

// send writes one request and waits for the next line of output. If ctx ends
// first the process is stopped: a late answer would pair with the wrong
// request.
func (c *StdioProvider) send(ctx context.Context, method string, params, result any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c.reqID++
	data, err := json.Marshal(newRequest(c.reqID, method, params))
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	if _, err := c.stdin.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write request: %w", err)
	}

	lines := make(chan line, 1)
	go func() {
		if !c.scanner.Scan() {
			err := c.scanner.Err()
			if err == nil {
				err = io.EOF
			}
			lines <- line{err: err}
			return
		}
		lines <- line{data: append([]byte(nil), c.scanner.Bytes()...)}
	}()

	var got line
	select {
	case <-ctx.Done():
		c.logger.Warn("tool server did not answer, stopping it", "name", c.name, "method", method)
		c.shutdown()
		return ctx.Err()
	case got = <-lines:
	}
	if got.err != nil {
		return fmt.Errorf("failed to read response: %w", got.err)
	}

	var response rpcResponse
	if err := json.Unmarshal(got.data, &response); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return response.decode(result)
}

// commandArgs splits a tool server command line; scripts ending in .py run
// under python3.
func commandArgs(command string) ([]string, error) {
	args := strings.Fields(command)
	if len(args) == 0 {
		return nil, fmt.Errorf("empty tool server command")
	}
	if strings.HasSuffix(args[0], ".py") {
		args = append([]string{"python3"}, args...)
	}
	return args, nil
}

func (c *StdioProvider) logStderr(stderr io.Reader) {
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		c.logger.Warn("tool server stderr", "name", c.name, "message", scanner.Text())
	}
}
