package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"
)

// HTTPProvider reaches a tool server that accepts JSON-RPC posts on /rpc
type HTTPProvider struct {
	name       string
	baseURL    string
	httpClient *http.Client
	reqID      atomic.Int32
	logger     *slog.Logger
}

// NewHTTPProvider creates a provider; a nil client gets a 30s timeout.
func NewHTTPProvider(name, baseURL string, httpClient *http.Client, logger *slog.Logger) (*HTTPProvider, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger cannot be nil")
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &HTTPProvider{
		name:       name,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}, nil
}

func (c *HTTPProvider) Name() string {
	return c.name
}

func (c *HTTPProvider) Initialize(ctx context.Context) error {
	return initialize(ctx, c.name, c.logger, c.send)
}

func (c *HTTPProvider) ListTools(ctx context.Context) ([]Tool, error) {
	return listTools(ctx, c.name, c.send)
}

func (c *HTTPProvider) CallTool(ctx context.Context, name string, args map[string]any) (Result, error) {
	return callTool(ctx, name, args, c.send)
}

func (c *HTTPProvider) Close() error {
	return nil
}

func (c *HTTPProvider) send(ctx context.Context, method string, params, result any) error {
	request := newRequest(int(c.reqID.Add(1)), method, params)

	body, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/rpc", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(httpResp.Body)
		return fmt.Errorf("HTTP error %d: %s", httpResp.StatusCode, string(data))
	}

	var response rpcResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&response); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return response.decode(result)
}

type sendFunc func(ctx context.Context, method string, params, result any) error

func initialize(ctx context.Context, name string, logger *slog.Logger, send sendFunc) error {
	params := initializeParams{
		ProtocolVersion: protocolVersion,
		Capabilities:    map[string]any{},
		ClientInfo:      clientInfo{Name: "voicegate", Version: "1.0.0"},
	}

	var result initializeResult
	if err := send(ctx, methodInitialize, params, &result); err != nil {
		return fmt.Errorf("initialize failed: %w", err)
	}

	logger.Info("tool server initialized",
		"provider", name,
		"server", result.ServerInfo.Name,
		"version", result.ServerInfo.Version)
	return nil
}

func listTools(ctx context.Context, provider string, send sendFunc) ([]Tool, error) {
	var result listToolsResult
	if err := send(ctx, methodListTools, nil, &result); err != nil {
		return nil, fmt.Errorf("list tools failed: %w", err)
	}

	tools := make([]Tool, len(result.Tools))
	for i, info := range result.Tools {
		tools[i] = Tool{
			Name:        info.Name,
			Description: info.Description,
			InputSchema: info.InputSchema,
			Provider:    provider,
		}
	}
	return tools, nil
}

func callTool(ctx context.Context, name string, args map[string]any, send sendFunc) (Result, error) {
	var result Result
	if err := send(ctx, methodCallTool, callToolParams{Name: name, Arguments: args}, &result); err != nil {
		return Result{}, fmt.Errorf("call tool failed: %w", err)
	}
	return result, nil
}
