package tablenorm

import (
	"errors"
	"fmt"

	"github.com/ukaji3/tablenorm-go/pkg/tablenorm/models"
)

// ErrFileNotFound indicates the input file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrInvalidFormat indicates the input file is not a valid xlsx format.
var ErrInvalidFormat = errors.New("invalid xlsx format")

// SheetError is a terminal failure of one sheet at one stage.
type SheetError struct {
	Sheet string
	Stage models.Stage
	Err   error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("sheet %q failed at %s: %v", e.Sheet, e.Stage, e.Err)
}

func (e *SheetError) Unwrap() error {
	return e.Err
}

// NewSheetError creates a new SheetError.
func NewSheetError(sheet string, stage models.Stage, err error) *SheetError {
	return &SheetError{
		Sheet: sheet,
		Stage: stage,
		Err:   err,
	}
}
