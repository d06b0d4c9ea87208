package ledger

import "fmt"

// LoadError reports a ledger workbook that exists but cannot be read as the
// expected two-sheet structure.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("ledger: load %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
