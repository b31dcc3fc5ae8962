package ailink

import (
	"errors"
	"fmt"
)

// Kind identifies which gateway operation failed.
type Kind int

const (
	KindMarketAnalysis Kind = iota + 1
	KindImageAnalysis
	KindDeepDive
)

// Fixed user-facing messages, one per operation.
const (
	MessageMarketAnalysis = "시장 분석 중 오류가 발생했습니다."
	MessageImageAnalysis  = "이미지 분석 중 오류가 발생했습니다."
	MessageDeepDive       = "심층 분석 중 오류가 발생했습니다."
)

var (
	ErrMarketAnalysis = errors.New(MessageMarketAnalysis)
	ErrImageAnalysis  = errors.New(MessageImageAnalysis)
	ErrDeepDive       = errors.New(MessageDeepDive)

	// ErrEmptyPrompt is the cause recorded when a prompt is blank after trimming.
	ErrEmptyPrompt = errors.New("prompt is required")
)

// String returns the operation name used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindMarketAnalysis:
		return "market_analysis"
	case KindImageAnalysis:
		return "image_analysis"
	case KindDeepDive:
		return "deep_dive"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindMarketAnalysis:
		return ErrMarketAnalysis
	case KindImageAnalysis:
		return ErrImageAnalysis
	case KindDeepDive:
		return ErrDeepDive
	default:
		return nil
	}
}

// AnalysisError is returned by every failing gateway operation.
//
// Error reports only the fixed message for the operation; the underlying cause
// stays reachable through Unwrap for logging and classification.
type AnalysisError struct {
	Kind Kind
	Err  error
}

func (e *AnalysisError) Error() string {
	return e.UserMessage()
}

// UserMessage returns the fixed message safe to show to the user.
func (e *AnalysisError) UserMessage() string {
	if e == nil {
		return ""
	}
	if sentinel := e.Kind.sentinel(); sentinel != nil {
		return sentinel.Error()
	}
	return "분석 중 오류가 발생했습니다."
}

func (e *AnalysisError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches the per-operation sentinel for the error's kind.
func (e *AnalysisError) Is(target error) bool {
	if e == nil {
		return false
	}
	sentinel := e.Kind.sentinel()
	return sentinel != nil && target == sentinel
}
