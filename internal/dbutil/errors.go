package dbutil

import "errors"

// Sentinel errors returned across the storage core's public boundary.
// Per the error-handling model, most of these represent recoverable
// "no such thing" or "resource exhausted" outcomes that callers are
// expected to check with errors.Is; precondition violations panic
// instead of returning one of these.
var (
	ErrNoFreeFrame       = errors.New("dbutil: no free frame available")
	ErrPageNotFound      = errors.New("dbutil: page not found")
	ErrFrameOutOfRange   = errors.New("dbutil: frame id out of range")
	ErrInvalidPoolSize   = errors.New("dbutil: pool size must be positive")
	ErrInvalidPageID     = errors.New("dbutil: invalid page id")
	ErrKeyExists         = errors.New("dbutil: key already exists")
	ErrKeyNotFound       = errors.New("dbutil: key not found")
	ErrDirectoryFull     = errors.New("dbutil: directory at maximum depth")
	ErrBucketFull        = errors.New("dbutil: bucket is full")
	ErrHeaderUninitiated = errors.New("dbutil: header page has no directory for this slot")
)
