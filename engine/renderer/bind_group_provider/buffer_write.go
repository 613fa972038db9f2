package bind_group_provider

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Queue is the subset of *wgpu.Queue used to upload host data into GPU buffers.
// Tests substitute a recording fake.
type Queue interface {
	WriteBuffer(buffer *wgpu.Buffer, offset uint64, data []byte) error
}

// Compile-time check that *wgpu.Queue satisfies Queue
var _ Queue = (*wgpu.Queue)(nil)

// BufferWrite describes a single GPU buffer write operation targeting a specific binding
// on a BindGroupProvider at a given byte offset.
type BufferWrite struct {
	Provider BindGroupProvider
	Binding  int
	Offset   uint64
	Data     []byte
}

// Apply submits the write through the queue.
//
// Parameters:
//   - q: the queue to write through
//
// Returns:
//   - error: error if the binding has no buffer or the queue rejects the write
func (w BufferWrite) Apply(q Queue) error {
	buf := w.Provider.Buffer(w.Binding)
	if buf == nil {
		return fmt.Errorf("provider %q has no buffer at binding %d", w.Provider.Label(), w.Binding)
	}
	if err := q.WriteBuffer(buf, w.Offset, w.Data); err != nil {
		return fmt.Errorf("write %d bytes to %q binding %d: %w", len(w.Data), w.Provider.Label(), w.Binding, err)
	}
	return nil
}
