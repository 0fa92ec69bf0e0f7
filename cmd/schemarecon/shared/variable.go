package shared

import (
	"fmt"
	"os"
	"strings"
)

type Required interface {
	Name() string
	IsSet() bool
}

// Validate returns a configuration error naming every variable that is not
// set.
func Validate(vars ...Required) error {
	var missing []string
	for _, s := range vars {
		if !s.IsSet() {
			missing = append(missing, s.Name())
		}
	}
	switch len(missing) {
	case 0:
		return nil
	case 1:
		return ConfigError(fmt.Errorf(`required flag "%s" not set`, missing[0]))
	default:
		return ConfigError(fmt.Errorf(`required flags "%s" not set`, strings.Join(missing, `", "`)))
	}
}

// Candidate is one possible value of a Variable and where it was read from.
type Candidate[T comparable] struct {
	Source string
	Value  T
}

func From[T comparable](source string, value T) Candidate[T] {
	return Candidate[T]{Source: source, Value: value}
}

func Flag[T comparable](value T) Candidate[T] {
	return From("flag", value)
}

func Env(key string) Candidate[string] {
	return From("env "+key, os.Getenv(key))
}

func FromConfig[T comparable](value T) Candidate[T] {
	return From("config", value)
}

func Default[T comparable](value T) Candidate[T] {
	return From("default", value)
}

// NewVariable picks the first candidate with a non-zero value, so candidates
// should be passed from highest to lowest precedence.
func NewVariable[T comparable](name string, candidates ...Candidate[T]) Variable[T] {
	var zero T
	for _, c := range candidates {
		if c.Value != zero {
			return Variable[T]{name: name, value: c.Value, source: c.Source}
		}
	}
	return Variable[T]{name: name}
}

type Variable[T comparable] struct {
	name   string
	value  T
	source string
}

func (s Variable[T]) Name() string {
	return s.name
}

func (s Variable[T]) IsSet() bool {
	var zero T
	return s.value != zero
}

func (s Variable[T]) Value() T {
	return s.value
}

// Source names where the value came from, or "" if the variable is not set.
func (s Variable[T]) Source() string {
	return s.source
}
