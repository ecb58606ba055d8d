package metrics

import (
	"errors"
	"fmt"
)

// ErrUnsupportedOperation is returned when an operation is foreign to a metric's kind,
// such as Set on a counter or Observe on a gauge.
var ErrUnsupportedOperation = errors.New("unsupported operation")

// ErrInvalidOperation is returned when a supported operation receives a value it cannot apply,
// such as a negative counter increment.
var ErrInvalidOperation = errors.New("invalid operation")

// ErrLabelMismatch is returned when a label assignment does not match the family's declared label names.
var ErrLabelMismatch = errors.New("label mismatch")

// ErrLabelSchemaConflict is returned when a metric is re-created with label names
// that differ from the existing family of the same name.
var ErrLabelSchemaConflict = errors.New("label schema conflict")

// ErrTypeConflict is returned when a metric is re-created with a different kind.
var ErrTypeConflict = errors.New("metric type conflict")

// ErrInvalidOptions is returned when creation options are malformed.
var ErrInvalidOptions = errors.New("invalid metric options")

// ErrNotFound is returned by handle operations whose metric is no longer registered.
var ErrNotFound = errors.New("metric not found")

func unsupported(kind MetricType, op string) error {
	return fmt.Errorf("%w: %s on a %s", ErrUnsupportedOperation, op, kind)
}
