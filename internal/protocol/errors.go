package protocol

import "errors"

// Errors returned by the frame codec. Callers match them with errors.Is;
// the returned errors wrap these with the offending sizes or fields.
var (
	// ErrOverflow is returned by Encode when the destination buffer cannot
	// hold the whole frame. Nothing is written.
	ErrOverflow = errors.New("frame overflow")

	// ErrIncomplete is returned by Decode and DecodeHeader when the chunk
	// ends before the frame does. The caller should retain the bytes and
	// retry once more have arrived.
	ErrIncomplete = errors.New("incomplete frame")

	// ErrMalformed is returned when header fields are internally inconsistent.
	ErrMalformed = errors.New("malformed frame")
)
