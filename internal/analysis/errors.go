package analysis

import (
	"errors"
	"fmt"

	"github.com/trogers1052/ticker-research-service/internal/models"
)

var (
	// ErrNoFiling means the ticker has no latest filing to analyze
	ErrNoFiling = models.ErrNoFiling
	// ErrDownload covers transport failures and non-200 filing responses
	ErrDownload = errors.New("filing download failed")
	// ErrParse means the document could not be read as a PDF
	ErrParse = errors.New("filing could not be parsed")
	// ErrEmptyDocument means the document parsed but holds no text
	ErrEmptyDocument = errors.New("filing contains no text")
	// ErrModel covers language model failures and empty completions
	ErrModel = errors.New("analysis model failed")
	// ErrDelivery means a chunk could not be handed to the sink
	ErrDelivery = errors.New("analysis delivery failed")
)

// Error is the terminal failure of a pipeline run
type Error struct {
	State State
	Kind  error
	Err   error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.State, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.State, e.Kind, e.Err)
}

// Unwrap exposes both the failure kind and its cause
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
