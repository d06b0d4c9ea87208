package snapshot

import "fmt"

// IdentifierError reports a snapshot file whose name does not carry a
// parsable capture timestamp.
type IdentifierError struct {
	Filename string
	Err      error
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("snapshot: could not parse datetime from filename %q: %v", e.Filename, e.Err)
}

func (e *IdentifierError) Unwrap() error {
	return e.Err
}

// ReadError reports a snapshot file that could not be read as a CSV table.
type ReadError struct {
	Path string
	Err  error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("snapshot: read %s: %v", e.Path, e.Err)
}

func (e *ReadError) Unwrap() error {
	return e.Err
}
