package errors

import (
	"errors"
)

var (
	_ error = (*wrappedError)(nil)
	_ error = (*businessError)(nil)
)

func Wrap(err error, text string) error {
	if err == nil {
		return nil
	}

	if len(text) == 0 {
		return err
	}

	return &wrappedError{
		err: err,
		msg: text,
	}
}

// Business marks err as a business-rule violation: a configuration or data
// defect that must fail the current operation loudly instead of being retried.
func Business(err error, text string) error {
	if err == nil {
		return nil
	}

	return &businessError{wrappedError{err: err, msg: text}}
}

// IsBusiness reports whether any error in the chain is a business-rule violation.
func IsBusiness(err error) bool {
	var b *businessError
	return errors.As(err, &b)
}

type wrappedError struct {
	err error
	msg string
}

const sep = ", err: "

func (err wrappedError) Error() string {
	if err.err == nil {
		return err.msg
	}

	if len(err.msg) == 0 {
		return err.err.Error()
	}

	return err.msg + sep + err.err.Error()
}

func (err wrappedError) Unwrap() error {
	if err.err == nil {
		return errors.New(err.msg)
	}

	return err.err
}

type businessError struct {
	wrappedError
}

func (err *businessError) Error() string {
	return "business: " + err.wrappedError.Error()
}
