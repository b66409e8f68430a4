package analysis

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindTimeout Kind = iota + 1
	KindTransport
	KindUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	case KindUnavailable:
		return "unavailable"
	}
	return "unknown"
}

var (
	ErrTimeout     = errors.New("analysis: timeout")
	ErrTransport   = errors.New("analysis: transport error")
	ErrUnavailable = errors.New("analysis: unavailable")
)

// Error 分析调用失败，Kind 区分超时、传输错误和重试耗尽
type Error struct {
	Kind     Kind
	Endpoint string
	// Status is the HTTP status when the backend answered, 0 otherwise.
	Status   int
	Attempts int
	Err      error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("analysis %s %s", e.Endpoint, e.Kind)
	if e.Attempts > 0 {
		msg += fmt.Sprintf(" after %d attempt(s)", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrTimeout:
		return e.Kind == KindTimeout
	case ErrTransport:
		return e.Kind == KindTransport
	case ErrUnavailable:
		return e.Kind == KindUnavailable
	}
	return false
}

// retryable 4xx 表示请求本身有问题，重试没有意义
func (e *Error) retryable() bool {
	return !(e.Status >= 400 && e.Status < 500)
}
