package records

import "context"

// Mapper transforms one input record into zero or more output records. A nil
// or empty result drops the input; multiple results express a flat map.
type Mapper interface {
	Map(ctx context.Context, record Record) ([]Record, error)
}

// MapperFunc adapts a plain function to the Mapper interface.
type MapperFunc func(ctx context.Context, record Record) ([]Record, error)

// Map calls fn.
func (fn MapperFunc) Map(ctx context.Context, record Record) ([]Record, error) {
	return fn(ctx, record)
}

// Projector writes a record out to some external system or database. It is
// the terminal stage of a projection pipeline; there is no downstream sink.
type Projector interface {
	Project(ctx context.Context, record Record) error
}

// ProjectorFunc adapts a plain function to the Projector interface.
type ProjectorFunc func(ctx context.Context, record Record) error

// Project calls fn.
func (fn ProjectorFunc) Project(ctx context.Context, record Record) error {
	return fn(ctx, record)
}

// Generator produces records for an automatic adapter. Generate must call
// emit once per record and return when the input is exhausted; a non-nil
// error from emit means the downstream has failed and generation must stop.
type Generator interface {
	Generate(ctx context.Context, emit func(Record) error) error
}

// GeneratorFunc adapts a plain function to the Generator interface.
type GeneratorFunc func(ctx context.Context, emit func(Record) error) error

// Generate calls fn.
func (fn GeneratorFunc) Generate(ctx context.Context, emit func(Record) error) error {
	return fn(ctx, emit)
}
