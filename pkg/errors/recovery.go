package errors

import (
	"fmt"
	"runtime/debug"

	"github.com/cockroachdb/errors"
)

// PanicError は recover した panic を error として運ぶ。
// Error() は利用者向けの1行、String() はスタック付きの詳細。
type PanicError struct {
	PanicValue interface{}
	StackTrace string
	Operation  string
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("panic in %s: %v", e.Operation, e.PanicValue)
}

// Unwrap returns the panic value when it is an error, so errors.Is sees
// through panic(err).
func (e *PanicError) Unwrap() error {
	err, _ := e.PanicValue.(error)
	return err
}

func (e *PanicError) String() string {
	return e.Error() + "\nStack trace:\n" + e.StackTrace
}

// NewPanicError captures the current goroutine stack.
func NewPanicError(operation string, panicValue interface{}) *PanicError {
	return &PanicError{
		PanicValue: panicValue,
		StackTrace: string(debug.Stack()),
		Operation:  operation,
	}
}

// Recover は defer で呼び、panic を *err に変換する。
// *err が既に設定されていれば元のエラーを主、PanicError を副として残す。
//
//	func (w *Washer) wash(...) (err error) {
//	    defer errors.Recover(&err, "Washer.Wash")
//	    ...
//	}
func Recover(err *error, operation string) {
	r := recover()
	if r == nil {
		return
	}
	panicErr := NewPanicError(operation, r)
	if *err == nil {
		*err = panicErr
		return
	}
	*err = errors.WithSecondaryError(
		errors.Wrapf(*err, "panic in %s: %v (original error)", operation, r),
		panicErr,
	)
}

// SafeExecute runs fn behind Recover. Trainers wrap their whole body in it.
func SafeExecute(operation string, fn func() error) (err error) {
	defer Recover(&err, operation)
	return fn()
}

// SafeTask adapts fn for errgroup.Group.Go; a panic in a worker goroutine
// becomes that task's error instead of crashing the process.
func SafeTask(operation string, fn func() error) func() error {
	return func() error { return SafeExecute(operation, fn) }
}
