package models

import (
	"errors"
	"fmt"
)

var ErrCatalogNotFound = errors.New("catalog not found")

// NormalizationError rejects a single raw record. Ingestion skips it and
// carries on with the rest of the batch.
type NormalizationError struct {
	Link   string
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	if e.Link == "" {
		return fmt.Sprintf("normalize %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("normalize %s of %s: %s", e.Field, e.Link, e.Reason)
}

// InvalidQueryError rejects a query before any evaluation happens.
type InvalidQueryError struct {
	Field  string
	Reason string
}

func (e *InvalidQueryError) Error() string {
	return fmt.Sprintf("invalid query %s: %s", e.Field, e.Reason)
}

// RefreshFailure means a refresh produced no usable data. The previous
// catalog is left in place.
type RefreshFailure struct {
	CatalogID string
	Reason    string
	Err       error
}

func (e *RefreshFailure) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("refresh %s failed: %s", e.CatalogID, e.Reason)
	}
	return fmt.Sprintf("refresh %s failed: %s: %v", e.CatalogID, e.Reason, e.Err)
}

func (e *RefreshFailure) Unwrap() error {
	return e.Err
}
