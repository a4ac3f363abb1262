package compact

import (
	"context"
	"errors"

	"github.com/universal-tool-calling-protocol/go-utcp"
)

// ToolCaller is the part of a UTCP client used to fetch responses.
type ToolCaller interface {
	CallTool(ctx context.Context, toolName string, args map[string]any) (any, error)
}

var _ ToolCaller = (utcp.UtcpClientInterface)(nil)

// NewUTCPFetcher returns a Fetcher that calls toolName on client.
func NewUTCPFetcher(client ToolCaller, toolName string) (Fetcher, error) {
	if client == nil {
		return nil, errors.New("compact: utcp client is nil")
	}
	if toolName == "" {
		return nil, errors.New("compact: tool name is required")
	}
	return FetcherFunc(func(ctx context.Context, args map[string]any) (any, error) {
		return client.CallTool(ctx, toolName, args)
	}), nil
}
