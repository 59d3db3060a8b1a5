// Package tools connects responders to external tool servers (weather,
// search) speaking JSON-RPC over HTTP, WebSocket or a child process' stdio.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

const (
	// connectTimeout bounds the handshake with each tool server
	connectTimeout = 10 * time.Second
	// callTimeout bounds a single tool call
	callTimeout = 30 * time.Second
)

var (
	ErrToolNotFound = errors.New("tool not found")
	ErrClosed       = errors.New("tool provider is closed")
)

// Provider is a connection to one tool server
type Provider interface {
	Initialize(ctx context.Context) error
	ListTools(ctx context.Context) ([]Tool, error)
	CallTool(ctx context.Context, name string, args map[string]any) (Result, error)
	Close() error
	Name() string
}

// Tool describes a tool offered by a provider
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Provider    string
}

// Registry indexes the tools of every connected provider by name.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
	tools     map[string]Tool
	timeout   time.Duration
	logger    *slog.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		providers: make(map[string]Provider),
		tools:     make(map[string]Tool),
		timeout:   callTimeout,
		logger:    logger,
	}
}

// Register adds a provider; its tools become visible after Refresh.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Refresh rebuilds the tool index from all providers. A provider that fails
// to list its tools is skipped.
func (r *Registry) Refresh(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tools = make(map[string]Tool)
	for name, p := range r.providers {
		tools, err := p.ListTools(ctx)
		if err != nil {
			r.logger.Warn("failed to list tools", "provider", name, "error", err)
			continue
		}
		for _, t := range tools {
			r.tools[t.Name] = t
		}
		r.logger.Info("loaded tools", "provider", name, "count", len(tools))
	}
}

// Has reports whether a tool with that name is known
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tools[name]
	return ok
}

// Tools returns every known tool
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// Call invokes a tool and returns the text of its result.
func (r *Registry) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	r.mu.RLock()
	tool, ok := r.tools[name]
	var p Provider
	if ok {
		p = r.providers[tool.Provider]
	}
	r.mu.RUnlock()

	if p == nil {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	res, err := p.CallTool(ctx, name, args)
	if err != nil {
		return "", fmt.Errorf("failed to call tool %s: %w", name, err)
	}
	if res.IsError {
		return "", fmt.Errorf("tool %s failed: %s", name, res.Text())
	}

	r.logger.Debug("invoked tool", "tool", name, "provider", p.Name())
	return res.Text(), nil
}

// Count returns the number of registered providers
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.providers)
}

// Close closes all providers
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for name, p := range r.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close provider %s: %w", name, err)
		}
	}
	return firstErr
}

// Connect starts the local tool servers and dials the remote ones. Providers
// that fail to start or initialize are logged and skipped.
func Connect(ctx context.Context, local, remote []string, logger *slog.Logger) *Registry {
	r := NewRegistry(logger)

	for _, command := range local {
		p, err := NewStdioProvider(command, command, logger)
		if err != nil {
			logger.Warn("failed to start local tool server", "command", command, "error", err)
			continue
		}
		r.add(ctx, p)
	}

	for _, url := range remote {
		var p Provider
		var err error
		if strings.HasPrefix(url, "ws://") || strings.HasPrefix(url, "wss://") {
			p, err = NewWebSocketProvider(url, url, logger)
		} else {
			p, err = NewHTTPProvider(url, url, nil, logger)
		}
		if err != nil {
			logger.Warn("failed to connect remote tool server", "url", url, "error", err)
			continue
		}
		r.add(ctx, p)
	}

	refreshCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	r.Refresh(refreshCtx)
	logger.Info("tools initialized", "providers", r.Count(), "tools", len(r.Tools()))
	return r
}

func (r *Registry) add(ctx context.Context, p Provider) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	if err := p.Initialize(ctx); err != nil {
		r.logger.Warn("failed to initialize tool server", "provider", p.Name(), "error", err)
		p.Close()
		return
	}
	r.Register(p)
}
