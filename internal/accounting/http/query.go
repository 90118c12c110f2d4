package accountinghttp

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/odyssey-books/internal/platform/httpx"
)

// queryParams reads optional typed query parameters, keeping the first error.
type queryParams struct {
	values url.Values
	err    error
}

func newQuery(values url.Values) *queryParams {
	return &queryParams{values: values}
}

func (q *queryParams) fail(name string, err error) {
	if q.err == nil {
		q.err = fmt.Errorf("%w: %s: %v", httpx.ErrValidation, name, err)
	}
}

func (q *queryParams) date(name string) *time.Time {
	raw := q.values.Get(name)
	if raw == "" {
		return nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		q.fail(name, err)
		return nil
	}
	return &t
}

func (q *queryParams) dateValue(name string) time.Time {
	if t := q.date(name); t != nil {
		return *t
	}
	return time.Time{}
}

func (q *queryParams) uuid(name string) *uuid.UUID {
	raw := q.values.Get(name)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		q.fail(name, err)
		return nil
	}
	return &id
}

func (q *queryParams) bool(name string) bool {
	raw := q.values.Get(name)
	if raw == "" {
		return false
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		q.fail(name, err)
	}
	return b
}

// limit reads a positive count no larger than max.
func (q *queryParams) limit(name string, max int) int {
	raw := q.values.Get(name)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		q.fail(name, err)
		return 0
	}
	if n < 1 || n > max {
		q.fail(name, fmt.Errorf("must be between 1 and %d", max))
		return 0
	}
	return n
}

func (q *queryParams) Err() error {
	return q.err
}
