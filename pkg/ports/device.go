package ports

import (
	"context"

	"github.com/aretw0/sweep/pkg/domain"
)

// Writer moves the knobs to a position.
// Write blocks until the readback matches the target within tolerance. A
// timeout is reported by returning domain.ErrActuationTimeout or the context's
// deadline error.
type Writer interface {
	Write(ctx context.Context, pos domain.Position) error
}

// Reader acquires one sample from the observables.
type Reader interface {
	Read(ctx context.Context) (domain.Measurement, error)
}

// ConditionReader returns the latest value of every monitored channel,
// aligned with the configured conditions.
type ConditionReader interface {
	ReadConditions(ctx context.Context) ([]any, error)
}

// WriterFunc adapts a function to the Writer interface.
type WriterFunc func(ctx context.Context, pos domain.Position) error

func (f WriterFunc) Write(ctx context.Context, pos domain.Position) error { return f(ctx, pos) }

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(ctx context.Context) (domain.Measurement, error)

func (f ReaderFunc) Read(ctx context.Context) (domain.Measurement, error) { return f(ctx) }

// ConditionReaderFunc adapts a function to the ConditionReader interface.
type ConditionReaderFunc func(ctx context.Context) ([]any, error)

func (f ConditionReaderFunc) ReadConditions(ctx context.Context) ([]any, error) { return f(ctx) }
