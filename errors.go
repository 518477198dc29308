package ukbtab

import "errors"

// Sentinel errors.
var (
	// ErrConfig is returned when a Dictionary is constructed with invalid
	// parameters (non-positive cache size, bad coding path template, or an
	// unreadable dictionary path).
	ErrConfig = errors.New("ukbtab: invalid configuration")

	// ErrParse is returned when the data dictionary document is missing a
	// structural block or a block is malformed.
	ErrParse = errors.New("ukbtab: data dictionary unreadable")

	// ErrUnknownCoding is returned when a coding id does not appear in the
	// data dictionary's main table.
	ErrUnknownCoding = errors.New("ukbtab: coding id not in data dictionary")

	// ErrCodingNotFound is returned when a flat coding has no embedded table
	// in the document.
	ErrCodingNotFound = errors.New("ukbtab: no embedded coding table")

	// ErrRemoteSource is returned when a downloaded coding file contains the
	// showcase's internal-error marker instead of table content.
	ErrRemoteSource = errors.New("ukbtab: remote source returned an internal error")

	// ErrCodingRetrieval wraps any failure while retrieving or parsing a
	// coding table. The original cause is preserved in the chain.
	ErrCodingRetrieval = errors.New("ukbtab: coding table could not be read")

	// ErrFieldNotFound is returned when a field id matches no UDI.
	ErrFieldNotFound = errors.New("ukbtab: field not found")

	// ErrAmbiguousField is returned when a partial field id matches several
	// fields with differing descriptions.
	ErrAmbiguousField = errors.New("ukbtab: ambiguous field id")
)
