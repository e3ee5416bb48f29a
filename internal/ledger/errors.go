package ledger

import (
	"errors"
	"fmt"
)

// User input errors. Each is returned wrapped in an *InputError carrying
// the rejected field.
var (
	ErrInvalidType            = errors.New("wrong account type")
	ErrEmptyName              = errors.New("account name is empty")
	ErrDuplicateName          = errors.New("account with the same name already exists")
	ErrUnknownAccount         = errors.New("unknown account")
	ErrClosedAccount          = errors.New("account is closed")
	ErrAlreadyClosed          = errors.New("account already closed")
	ErrNonZeroBalance         = errors.New("account balance is not zero")
	ErrSelfTransaction        = errors.New("transaction with the same account")
	ErrAmbiguousAmount        = errors.New("set either debit, credit or balance, not several")
	ErrMissingAmount          = errors.New("set either debit, credit or balance")
	ErrNegativeAmount         = errors.New("debit and credit cannot be negative")
	ErrAmountOverflow         = errors.New("amount would take a balance out of range")
	ErrFutureDate             = errors.New("date cannot be in the future")
	ErrDateBeforeOpening      = errors.New("date before the account's opening date")
	ErrOutOfOrderTransaction  = errors.New("account has newer transactions")
	ErrUnknownTransaction     = errors.New("unknown transaction")
	ErrNewerTransactionsExist = errors.New("newer transactions exist")
)

// ErrIntegrity marks a broken ledger invariant. It is never caused by user
// input; the unit of work is aborted and nothing is repaired.
var ErrIntegrity = errors.New("ledger integrity violated")

// InputError is a rejected request, naming the field at fault so the caller
// can redisplay the attempted input.
type InputError struct {
	Err   error
	Field string
	Value string
}

func (e *InputError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// IsInputError reports whether err is a recoverable input error.
func IsInputError(err error) bool {
	var ie *InputError
	return errors.As(err, &ie)
}

func inputErr(err error, field string, value any) error {
	v := ""
	if value != nil {
		v = fmt.Sprint(value)
	}
	return &InputError{Err: err, Field: field, Value: v}
}

func integrityErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrIntegrity, fmt.Sprintf(format, args...))
}
