package errors

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// ErrorHandler centralizes error reporting for the CLI
type ErrorHandler struct {
	mu        sync.Mutex
	logWriter io.Writer
	counts    map[ErrorCode]int
}

// NewErrorHandler creates a new error handler writing to the given writer
func NewErrorHandler(w io.Writer) *ErrorHandler {
	if w == nil {
		w = os.Stderr
	}
	return &ErrorHandler{
		logWriter: w,
		counts:    make(map[ErrorCode]int),
	}
}

// Handle records and displays an error
func (h *ErrorHandler) Handle(err error) {
	if err == nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	var appErr *AppError
	if !errors.As(err, &appErr) {
		appErr = Wrap(err, ErrCodeInternal, err.Error())
	}

	h.counts[appErr.Code]++
	fmt.Fprintf(h.logWriter, "%s\n", appErr.Error())
}

// Counts returns the number of handled errors per code
func (h *ErrorHandler) Counts() map[ErrorCode]int {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[ErrorCode]int, len(h.counts))
	for k, v := range h.counts {
		out[k] = v
	}
	return out
}

// TransactionHandler manages error handling for transactions
type TransactionHandler struct {
	handler      *ErrorHandler
	rollbackFunc func() error
	committed    bool
}

// NewTransactionHandler creates a new transaction handler
func (h *ErrorHandler) NewTransactionHandler(rollbackFunc func() error) *TransactionHandler {
	return &TransactionHandler{
		handler:      h,
		rollbackFunc: rollbackFunc,
		committed:    false,
	}
}

// Execute executes a function within a transaction with automatic rollback on error
func (th *TransactionHandler) Execute(fn func() error) error {
	err := fn()

	if err != nil {
		if th.rollbackFunc != nil && !th.committed {
			if rollbackErr := th.rollbackFunc(); rollbackErr != nil {
				th.handler.Handle(Wrap(rollbackErr, ErrCodeSQLTransaction, "Failed to rollback transaction"))
			}
		}
		return err
	}

	th.committed = true
	return nil
}

var (
	globalHandler     *ErrorHandler
	globalHandlerOnce sync.Once
)

// GetGlobalErrorHandler returns the global error handler instance
func GetGlobalErrorHandler() *ErrorHandler {
	globalHandlerOnce.Do(func() {
		globalHandler = NewErrorHandler(os.Stderr)
	})
	return globalHandler
}
