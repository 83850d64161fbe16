package pack

import "errors"

// Sentinel errors for the storage engine. Callers match them with errors.Is;
// wrapped messages carry the document or case that failed.
var (
	// ErrPackageExists is returned by Create when the target path is taken.
	ErrPackageExists = errors.New("package already exists")

	// ErrCorruptPackage is returned when the container is readable as an
	// archive but its manifest or a test-case document is absent or invalid.
	ErrCorruptPackage = errors.New("corrupt package")

	// ErrMissingMedia is returned when an evidence item references a content
	// hash that has no entry in the media manifest or the container.
	ErrMissingMedia = errors.New("missing media")

	// ErrLockHeld is returned by Acquire when another process holds the lock.
	ErrLockHeld = errors.New("package is locked by another process")

	// ErrLockLost is returned by Verify when the marker vanished and could
	// not be recreated. The holder must stop writing immediately.
	ErrLockLost = errors.New("package lock lost")

	// ErrWritePending is returned when the container transport is asked to
	// change mode while an uncommitted write is in progress.
	ErrWritePending = errors.New("uncommitted write in progress")

	// ErrCaseNotFound is returned when a test-case identifier does not exist
	// in the package.
	ErrCaseNotFound = errors.New("test case not found")

	// ErrBadCaseOrder is returned by SetCaseOrder when the proposed order is
	// not a permutation of the existing test-case identifiers.
	ErrBadCaseOrder = errors.New("order is not a permutation of existing test cases")

	// ErrDuplicatePrimary is returned when a second custom field definition
	// would be marked primary.
	ErrDuplicatePrimary = errors.New("another custom field is already primary")

	// ErrNoMatch is returned by ResolveCaseReference for out-of-range,
	// unmatched, or ambiguous references. The engine never guesses.
	ErrNoMatch = errors.New("no matching test case")

	// ErrSavedNotReopened is returned by Save when the commit succeeded, so
	// the data is durable on disk, but the new snapshot could not be reopened
	// for reading. A later Save reopens it before repacking.
	ErrSavedNotReopened = errors.New("package saved but snapshot could not be reopened")
)
