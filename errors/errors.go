package errors

import "errors"

// ErrWrongType is returned when an argument cannot be passed to a parameter.
var ErrWrongType = errors.New("wrong type")

// Collection is a thread-unsafe accumulator for errors produced by a batch of
// independent steps (for example, loading every script in a directory).
// Nil errors are ignored, so callers can Add the result of each step directly.
type Collection struct {
	errors []error
}

// Add appends err to the collection. Nil errors are ignored.
func (c *Collection) Add(err error) {
	if err != nil {
		c.errors = append(c.errors, err)
	}
}

// Len returns how many errors have been collected.
func (c *Collection) Len() int {
	return len(c.errors)
}

// Clear resets the collection.
func (c *Collection) Clear() {
	c.errors = nil
}

// HasError returns true if at least one error was collected.
func (c *Collection) HasError() bool {
	return len(c.errors) > 0
}

// GetError returns nil for an empty collection, the sole error when there is
// exactly one, and an errors.Join of everything otherwise.
func (c *Collection) GetError() error {
	switch len(c.errors) {
	case 0:
		return nil
	case 1:
		return c.errors[0]
	default:
		return errors.Join(c.errors...)
	}
}
