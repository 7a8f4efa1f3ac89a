package domain

import "errors"

// Failure kinds. Every domain error unwraps to exactly one of these.
var (
	ErrValidation             = errors.New("validation failed")
	ErrNotFound               = errors.New("not found")
	ErrConcurrentModification = errors.New("concurrent modification")
	ErrPersistence            = errors.New("persistence failure")
)

type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }

func validationError(msg string) error { return &kindError{kind: ErrValidation, msg: msg} }
func notFoundError(msg string) error   { return &kindError{kind: ErrNotFound, msg: msg} }

// Errors for the ProductionOrder aggregate
var (
	ErrInvalidMachine         = validationError("invalid machine: must be Trefila or Treliça")
	ErrMissingOrderNumber     = validationError("order number is required")
	ErrMissingTargetBitola    = validationError("target gauge is required")
	ErrMissingTrussSpec       = validationError("truss model and size are required for Treliça orders")
	ErrInvalidQuantity        = validationError("quantity cannot be negative")
	ErrNoLotsSelected         = validationError("at least one lot must be selected")
	ErrInvalidSelection       = validationError("invalid lot selection")
	ErrEmptyReason            = validationError("downtime reason is required")
	ErrEmptyOperator          = validationError("operator is required")
	ErrOrderNotPending        = validationError("order is not pending")
	ErrOrderNotInProgress     = validationError("order is not in progress")
	ErrOrderCompleted         = validationError("order is completed and cannot be modified")
	ErrCannotDeleteCompleted  = validationError("cannot delete a completed order")
	ErrMachineMismatch        = validationError("operation not supported for this machine")
	ErrLotNotSelected         = validationError("lot is not part of the order selection")
	ErrLotAlreadyActive       = validationError("another lot is already being processed")
	ErrLotNotActive           = validationError("lot is not the active lot")
	ErrNoOpenShift            = validationError("operator has no shift on this order")
	ErrShiftStillOpen         = validationError("operator log is still open")
	ErrEmptyDescription       = validationError("activity description is required")
	ErrPackageWeightTolerance = validationError("package weight outside tolerance: manager override required")
	ErrInvalidPackage         = validationError("package number and quantity must be positive")
	ErrTrussModelNotFound     = validationError("no truss model found for the selected model and size")
	ErrInvalidTrussModel      = validationError("truss model final weight must be positive")

	ErrOrderNotFound       = notFoundError("production order not found")
	ErrProcessedLotMissing = notFoundError("processed lot not found on order")
	ErrStockItemNotFound   = notFoundError("stock item not found")

	// ErrShiftReportExists signals a duplicate (orderId, operator, shiftStartTime) report
	ErrShiftReportExists = &kindError{kind: ErrConcurrentModification, msg: "shift report already exists"}
)
