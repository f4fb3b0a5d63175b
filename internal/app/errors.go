package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/jtomassoni/monaghans-sub000/internal/civil"
	"github.com/jtomassoni/monaghans-sub000/internal/contract"
	"github.com/jtomassoni/monaghans-sub000/internal/output"
	"github.com/jtomassoni/monaghans-sub000/internal/recurrence"
	"github.com/jtomassoni/monaghans-sub000/internal/store"
)

type AppError struct {
	Code    int
	Err     error
	Printed bool
}

func (e AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit code %d", e.Code)
	}
	return e.Err.Error()
}

func (e AppError) Unwrap() error { return e.Err }

func Wrap(code int, err error) error {
	if err == nil {
		return nil
	}
	return AppError{Code: code, Err: err}
}

func WrapPrinted(code int, err error) error {
	if err == nil {
		return nil
	}
	return AppError{Code: code, Err: err, Printed: true}
}

func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var e AppError
	if errors.As(err, &e) {
		return e.Code
	}
	return 1
}

// describeError maps a domain error to its wire code, offending field and exit code.
func describeError(err error) (contract.ErrorBody, int) {
	body := contract.ErrorBody{Code: contract.ErrGeneric, Message: err.Error()}
	var civilErr *civil.InvalidCivilTimeError
	var ruleErr *recurrence.InvalidRuleError
	switch {
	case errors.As(err, &civilErr):
		body.Code, body.Field = contract.ErrInvalidCivilTime, civilErr.Field
		return body, 2
	case errors.As(err, &ruleErr):
		body.Code, body.Field = contract.ErrInvalidRule, ruleErr.Field
		return body, 2
	case errors.Is(err, store.ErrNotFound):
		body.Code = contract.ErrNotFound
		return body, 4
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		body.Code = contract.ErrStoreUnavailable
		return body, 6
	}
	return body, 1
}

// fail prints err with its mapped code and returns the matching exit error.
func fail(p output.Printer, err error, hint string) error {
	body, code := describeError(err)
	body.Hint = hint
	_ = p.Fail(body)
	return WrapPrinted(code, err)
}

func failWithHint(printer output.Printer, code contract.ErrorCode, err error, hint string, exitCode int) error {
	_ = printer.Error(code, err.Error(), hint)
	return WrapPrinted(exitCode, err)
}
