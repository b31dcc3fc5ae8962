// Package panel holds the per-panel request state machines that sit between
// a front end and the gateway client.
package panel

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/stocklens/stocklens/internal/metrics"
	"github.com/stocklens/stocklens/internal/observability"
)

// MessageUnknown is shown when a failure carries no user-facing message.
const MessageUnknown = "알 수 없는 오류가 발생했습니다."

// Status is the request state of a panel.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusLoading:
		return "loading"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is a consistent copy of a controller's state.
type Snapshot[Out any] struct {
	Status    Status `json:"status"`
	Result    Out    `json:"result,omitempty"`
	HasResult bool   `json:"has_result"`
	Error     string `json:"error,omitempty"`
}

// Loading reports whether a call is outstanding.
func (s Snapshot[Out]) Loading() bool { return s.Status == StatusLoading }

// Controller runs at most one call at a time and records its outcome.
//
// Transitions: Idle/Succeeded/Failed -> Loading on a valid submission,
// Loading -> Succeeded or Failed when the call returns. Submissions while
// Loading and invalid submissions change nothing.
type Controller[In, Out any] struct {
	name     string
	validate func(In) bool
	call     func(context.Context, In) (Out, error)

	mu        sync.Mutex
	status    Status
	result    Out
	hasResult bool
	errMsg    string
}

// New builds a controller. validate rejects inputs that must not issue a call.
func New[In, Out any](name string, validate func(In) bool, call func(context.Context, In) (Out, error)) *Controller[In, Out] {
	return &Controller[In, Out]{name: name, validate: validate, call: call}
}

// Name identifies the panel in logs and metrics.
func (c *Controller[In, Out]) Name() string { return c.name }

// Ready reports whether in would be accepted by Submit right now.
func (c *Controller[In, Out]) Ready(in In) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status != StatusLoading && c.valid(in)
}

// Submit starts one call for in. It moves the controller to Loading and
// clears any prior result and error before returning. The returned channel
// is closed once the controller has left Loading. A rejected submission
// returns (nil, false) and issues no call.
func (c *Controller[In, Out]) Submit(ctx context.Context, in In) (<-chan struct{}, bool) {
	c.mu.Lock()
	if c.status == StatusLoading || !c.valid(in) {
		c.mu.Unlock()
		metrics.RecordPanelSubmission(c.name, false)
		return nil, false
	}
	var zero Out
	c.status = StatusLoading
	c.result = zero
	c.hasResult = false
	c.errMsg = ""
	c.mu.Unlock()
	metrics.RecordPanelSubmission(c.name, true)

	done := make(chan struct{})
	go func() {
		defer close(done)
		out, err := c.invoke(ctx, in)
		c.finish(out, err)
	}()
	return done, true
}

// Snapshot returns the current state.
func (c *Controller[In, Out]) Snapshot() Snapshot[Out] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot[Out]{Status: c.status, Result: c.result, HasResult: c.hasResult, Error: c.errMsg}
}

// Clear drops any result or error and returns to Idle. It does nothing while
// a call is outstanding.
func (c *Controller[In, Out]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == StatusLoading {
		return
	}
	var zero Out
	c.status = StatusIdle
	c.result = zero
	c.hasResult = false
	c.errMsg = ""
}

func (c *Controller[In, Out]) valid(in In) bool {
	return c.validate == nil || c.validate(in)
}

func (c *Controller[In, Out]) invoke(ctx context.Context, in In) (out Out, err error) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordPanic()
			err = fmt.Errorf("panel %s: panic: %v", c.name, r)
		}
	}()
	if c.call == nil {
		return out, errors.New("panel call not configured")
	}
	return c.call(ctx, in)
}

func (c *Controller[In, Out]) finish(out Out, err error) {
	metrics.RecordOperation(c.name, err == nil)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		var zero Out
		c.status = StatusFailed
		c.result = zero
		c.hasResult = false
		c.errMsg = messageFor(err)
		if logger := observability.Active(); logger != nil {
			logger.Debug("panel submission failed", zap.String("panel", c.name), zap.Error(err))
		}
		return
	}
	c.status = StatusSucceeded
	c.result = out
	c.hasResult = true
	c.errMsg = ""
}

type userMessenger interface {
	UserMessage() string
}

// messageFor extracts the display message of err, falling back to
// MessageUnknown for errors that carry none.
func messageFor(err error) string {
	var um userMessenger
	if errors.As(err, &um) {
		if msg := um.UserMessage(); msg != "" {
			return msg
		}
	}
	return MessageUnknown
}
