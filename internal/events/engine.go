package events

import "time"

// CompileStart is emitted when a plan is requested, before the cache lookup.
type CompileStart struct {
	OperationName string
	Signature     uint64
}

// CompileFinish is emitted once a plan is available or compilation failed.
type CompileFinish struct {
	OperationName string
	Signature     uint64
	CacheHit      bool
	Err           error
	Duration      time.Duration
}

// ExecuteStart is emitted before executing a compiled plan.
type ExecuteStart struct {
	OperationName string
	OperationType string
}

// ExecuteFinish is emitted after plan execution.
type ExecuteFinish struct {
	OperationName string
	OperationType string
	ErrorCount    int
	Rejected      bool
	Duration      time.Duration
}
