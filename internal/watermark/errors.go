package watermark

import (
	"errors"
	"fmt"
)

// ErrUnsupportedFormat is wrapped by DecodeError when the file signature does
// not match any of the supported formats.
var ErrUnsupportedFormat = errors.New("unsupported image format")

// ErrImageTooLarge is wrapped by DecodeError when an image declares more
// pixels than the compositor accepts.
var ErrImageTooLarge = errors.New("image dimensions too large")

// DecodeError reports an input file that is missing, unreadable or not a
// valid image.
type DecodeError struct {
	Path string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Path, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// InvalidParameterError reports a blend parameter outside its valid range.
type InvalidParameterError struct {
	Name  string
	Value float64
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid %s %v: must be within [0, 1]", e.Name, e.Value)
}

// EncodeError reports an output file that could not be encoded or written.
type EncodeError struct {
	Path string
	Err  error
}

func (e *EncodeError) Error() string {
	return fmt.Sprintf("encode %s: %v", e.Path, e.Err)
}

func (e *EncodeError) Unwrap() error { return e.Err }
