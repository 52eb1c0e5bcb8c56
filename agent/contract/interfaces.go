package contract

import "context"

// ToolGateway executes a batch of requested tool invocations. It returns
// one result per request, in order. Validation failures and lookup misses
// are reported inside the ToolResult; the error return is reserved for
// faults that should end the turn.
type ToolGateway interface {
	Execute(ctx context.Context, reqs []ToolRequest) ([]ToolResult, error)
}
