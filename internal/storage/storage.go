// Package storage defines the JSON document contract shared by the file and
// Postgres backends.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
)

// Document names. The file backend maps them to <name>.json.
const (
	DocReviews = "reviews"
	DocClients = "clients"
	DocOrders  = "orders"
	DocLogs    = "logs"
	DocStats   = "stats"
)

var ErrUnknownDriver = errors.New("unknown storage driver")

// DocumentStore loads and saves whole JSON documents. Each document is
// serialised by its own lock; there are no cross-document transactions.
type DocumentStore interface {
	// Load decodes the named document into dst. A missing or unparsable
	// document leaves dst untouched and is not an error.
	Load(ctx context.Context, name string, dst any) error
	// Save overwrites the named document with v.
	Save(ctx context.Context, name string, v any) error
	// Update loads the document into dst, calls fn and saves dst if fn
	// returned nil. Nothing else touches the document in between.
	Update(ctx context.Context, name string, dst any, fn func() error) error
	Close() error
}

// Decode unmarshals raw into dst. Corrupted content is logged and ignored so
// that dst keeps its default value; dst is never partially filled.
func Decode(log *slog.Logger, name string, raw []byte, dst any) error {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil
	}

	target := reflect.ValueOf(dst)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("storage.Decode: destination for %q must be a non-nil pointer", name)
	}

	tmp := reflect.New(target.Elem().Type())
	if err := json.Unmarshal(raw, tmp.Interface()); err != nil {
		log.Warn("document is corrupted, using default",
			slog.String("document", name),
			slog.String("error", err.Error()))
		return nil
	}
	target.Elem().Set(tmp.Elem())
	return nil
}

// Encode renders v as pretty-printed UTF-8 JSON without HTML escaping.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("storage.Encode: %w", err)
	}
	return buf.Bytes(), nil
}
