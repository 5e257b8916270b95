package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// RawRecord is a listing as produced by a source, before normalization.
type RawRecord struct {
	Link     string `json:"link"`
	Name     string `json:"name"`
	Price    string `json:"price"`
	Brand    string `json:"brand,omitempty"`
	Photo    string `json:"photo,omitempty"`
	Released string `json:"released,omitempty"`
}

// UnmarshalJSON accepts the price as a JSON string ("29,90 €") or number
// (29.9). Numbers are rendered without an exponent so price parsing sees
// every digit.
func (r *RawRecord) UnmarshalJSON(data []byte) error {
	type plain RawRecord
	aux := struct {
		*plain
		Price json.RawMessage `json:"price"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	price, err := decodePrice(aux.Price)
	if err != nil {
		return err
	}
	r.Price = price
	return nil
}

func decodePrice(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("price must be a string or a number, got %s", raw)
	}
	f, err := n.Float64()
	if err != nil {
		return "", fmt.Errorf("price %s: %w", n, err)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// Product is the canonical catalog entity.
type Product struct {
	UUID     uuid.UUID `json:"uuid"`
	Name     string    `json:"name"`
	Brand    string    `json:"brand"`
	Price    int       `json:"price"`
	Link     string    `json:"link"`
	Photo    string    `json:"photo,omitempty"`
	Released Date      `json:"released"`
}

// Catalog is an immutable snapshot of one refresh cycle.
type Catalog struct {
	ID          string    `json:"id"`
	Generation  uint64    `json:"generation"`
	Products    []Product `json:"products"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// Len is nil-safe so an unpopulated catalog reads as empty.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Products)
}

type RefreshReport struct {
	CatalogID  string    `json:"catalog_id"`
	Generation uint64    `json:"generation"`
	Received   int       `json:"received"`
	Accepted   int       `json:"accepted"`
	Rejected   int       `json:"rejected"`
	Duplicates int       `json:"duplicates"`
	Errors     []string  `json:"errors,omitempty"`
	Duration   string    `json:"duration"`
	Sources    []string  `json:"sources,omitempty"`
	FinishedAt time.Time `json:"finished_at"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    int    `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}
