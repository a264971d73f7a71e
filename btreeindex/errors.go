package btreeindex

import "github.com/pkg/errors"

// Every index operation that fails returns exactly one of these kinds.
// Match with errors.Is.
var (
	// ErrBadOpcodes reports invalid scan comparison operators: the lower
	// bound takes GT or GTE, the upper bound LT or LTE.
	ErrBadOpcodes = errors.New("invalid scan operators")

	// ErrBadScanRange reports a scan range whose lower value exceeds its
	// upper value.
	ErrBadScanRange = errors.New("invalid scan range")

	// ErrNoSuchKey reports that no key satisfies the scan predicate.
	ErrNoSuchKey = errors.New("no matching key")

	// ErrScanNotStarted reports a scan call without a successfully started
	// scan.
	ErrScanNotStarted = errors.New("scan not started")

	// ErrScanCompleted reports a NextScan call after the scan was
	// exhausted.
	ErrScanCompleted = errors.New("scan completed")

	// ErrBadIndexInfo reports an existing index file whose meta page does
	// not match the caller's relation, offset or type.
	ErrBadIndexInfo = errors.New("index metadata mismatch")

	// ErrIndexIO classifies any collaborator failure underneath the index.
	ErrIndexIO = errors.New("index I/O failure")
)

// ioErr wraps a collaborator failure as ErrIndexIO while keeping the
// underlying detail in the message.
func ioErr(err error, op string) error {
	return errors.Wrapf(ErrIndexIO, "%s: %s", op, err)
}
