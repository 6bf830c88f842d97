// Package transform turns recognized table markup into a normalized record
// renamed onto the operator's target field lists.
package transform

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackzampolin/formshelf/internal/record"
)

var (
	// ErrMalformedResult is returned when the produced record is not a valid
	// {main, children} document for the given field lists.
	ErrMalformedResult = fmt.Errorf("%w: transform result", record.ErrMalformed)

	// ErrEmptyMarkup is returned when there is nothing to transform.
	ErrEmptyMarkup = errors.New("empty table markup")
)

// Transformer converts table markup to a NormalizedResult.
type Transformer interface {
	Transform(ctx context.Context, markup string, mainFields, childFields []string) (*record.Result, error)
}

// Kinds accepted by New.
const (
	KindLLM   = "llm"
	KindTable = "table"
)

// conform applies the output contract and folds strict-policy rejections
// into ErrMalformedResult.
func conform(res *record.Result, mainFields, childFields []string, policy record.Policy) (*record.Result, error) {
	out, err := record.Conform(res, mainFields, childFields, policy)
	if err != nil {
		if errors.Is(err, record.ErrMalformed) {
			return nil, fmt.Errorf("%w: %v", ErrMalformedResult, err)
		}
		return nil, err
	}
	return out, nil
}
