package errors

import (
	"encoding/json"
	"sort"

	"github.com/cockroachdb/errors"
)

// ErrorBuilder accumulates context around an error before marking it
// with a sentinel. It is not itself an error; every chain must finish
// with Mark.
type ErrorBuilder struct {
	err error
}

// NewError starts a builder chain from a message
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.New(msg)}
}

// WithError starts a builder chain from an existing error
func WithError(err error) *ErrorBuilder {
	return &ErrorBuilder{err: err}
}

// WithMessage prefixes internal context onto the error
func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.err = errors.WithMessage(b.err, msg)
	return b
}

// WithHint attaches an operator-facing message
func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.err = errors.WithHint(b.err, hint)
	return b
}

// WithHintf attaches a formatted operator-facing message
func (b *ErrorBuilder) WithHintf(format string, args ...any) *ErrorBuilder {
	b.err = errors.WithHintf(b.err, format, args...)
	return b
}

// WithReportableDetails attaches structured key/value details, keyed in
// a stable order. Values that fail to marshal are skipped.
func (b *ErrorBuilder) WithReportableDetails(details map[string]any) *ErrorBuilder {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		value, err := json.Marshal(details[k])
		if err != nil {
			continue
		}
		b.err = errors.WithSafeDetails(b.err, "%s=%s",
			errors.Safe(k), errors.Safe(string(value)))
	}
	return b
}

// Mark ties the error to a sentinel for errors.Is matching and ends the
// chain
func (b *ErrorBuilder) Mark(reference error) error {
	b.err = errors.Mark(b.err, reference)
	return b.err
}
