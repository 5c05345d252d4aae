package gateway

import "fmt"

// PreconditionError 前置校验失败，不会发起任何网络调用，也永远不重试
type PreconditionError struct {
	Symbol string
	Reason string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("precondition failed for %s: %s", e.Symbol, e.Reason)
}

// Precondition 供上层区分拒绝和执行失败
func (e *PreconditionError) Precondition() bool { return true }

func errPositionExists(symbol string) error {
	return &PreconditionError{Symbol: symbol, Reason: "open position already exists"}
}

func errNoPosition(symbol string) error {
	return &PreconditionError{Symbol: symbol, Reason: "no open position to sell"}
}

// ExecutionError 重试耗尽后的执行失败，带分类后的失败原因
type ExecutionError struct {
	Symbol   string
	Kind     string
	Attempts int
	Last     error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("order for %s failed after %d attempts (%s): %v", e.Symbol, e.Attempts, e.Kind, e.Last)
}

func (e *ExecutionError) Unwrap() error { return e.Last }
