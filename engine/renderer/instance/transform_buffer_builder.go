package instance

import "github.com/Carmen-Shannon/automation/tools/worker"

// TransformBufferBuilderOption is a functional option used to configure a TransformBuffer during construction.
type TransformBufferBuilderOption func(*transformBufferImpl)

// WithCapacity reserves an initial capacity when the buffer is created.
//
// Parameters:
//   - n: the initial capacity in records
//
// Returns:
//   - TransformBufferBuilderOption: a function that sets the initial capacity
func WithCapacity(n uint32) TransformBufferBuilderOption {
	return func(b *transformBufferImpl) {
		b.initialCapacity = n
	}
}

// WithLabel sets the debug label of the GPU buffer.
//
// Parameters:
//   - label: the label
//
// Returns:
//   - TransformBufferBuilderOption: a function that sets the label
func WithLabel(label string) TransformBufferBuilderOption {
	return func(b *transformBufferImpl) {
		b.label = label
	}
}

// WithWorkerPool shares a worker pool for WriteBatch packing instead of creating one per buffer.
//
// Parameters:
//   - pool: the worker pool
//
// Returns:
//   - TransformBufferBuilderOption: a function that sets the pool
func WithWorkerPool(pool worker.DynamicWorkerPool) TransformBufferBuilderOption {
	return func(b *transformBufferImpl) {
		b.pool = pool
		b.hasPool = true
	}
}
