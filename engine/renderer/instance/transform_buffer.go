package instance

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/lawny-go/common"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/lawny-go/engine/renderer/variant"
	"github.com/cogentcore/webgpu/wgpu"
)

// batchChunk is the number of records packed by a single worker task in WriteBatch.
const batchChunk = 256

// bufferCount is an atomic counter used to generate unique buffer labels.
var bufferCount atomic.Uint64

// white is the colour written for tinted records that were given no colour. It makes a tinted
// instance shade exactly like the untinted lit variant.
var white = [3]float32{1, 1, 1}

// BufferAllocator creates and releases GPU buffers. The Renderer implements it; tests substitute a fake.
type BufferAllocator interface {
	// CreateBuffer allocates a GPU buffer.
	//
	// Parameters:
	//   - label: debug label for the buffer
	//   - size: size in bytes
	//   - usage: wgpu buffer usage flags
	//
	// Returns:
	//   - *wgpu.Buffer: the created buffer
	//   - error: error if the device could not allocate the buffer
	CreateBuffer(label string, size uint64, usage wgpu.BufferUsage) (*wgpu.Buffer, error)

	// ReleaseBuffer frees a GPU buffer previously returned by CreateBuffer.
	//
	// Parameters:
	//   - buf: the buffer to release
	ReleaseBuffer(buf *wgpu.Buffer)
}

type transformBufferImpl struct {
	mu *sync.Mutex

	label   string
	variant variant.Variant
	alloc   BufferAllocator
	pool    worker.DynamicWorkerPool
	hasPool bool

	buffer   *wgpu.Buffer
	capacity uint32
	count    uint32
	staging  []byte

	// Sparse dirty tracking: dirtyIndices holds record indices written since the last successful
	// Flush, dirtyBitset dedups them (1 bit per record; word = index/64, bit = index%64).
	dirtyIndices []uint32
	dirtyBitset  []uint64

	initialCapacity uint32
}

// TransformBuffer owns the per-instance vertex buffer of one batch. Each record holds the four
// rows of a model matrix and, for the tinted variant only, a trailing RGB colour. Records are
// staged on the host and uploaded by Flush as coalesced runs of consecutive dirty records.
type TransformBuffer interface {
	// Variant returns the variant whose record schema this buffer stores.
	//
	// Returns:
	//   - variant.Variant: the record schema
	Variant() variant.Variant

	// Label returns the debug label of the GPU buffer.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Capacity returns the number of records the GPU buffer can hold.
	//
	// Returns:
	//   - uint32: the capacity in records
	Capacity() uint32

	// Count returns the highest written index plus one.
	//
	// Returns:
	//   - uint32: the number of live records
	Count() uint32

	// DirtyCount returns the number of records waiting for the next Flush.
	//
	// Returns:
	//   - int: the number of dirty records
	DirtyCount() int

	// Buffer returns the GPU buffer bound to the per-instance vertex slot, or nil if capacity is zero.
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer() *wgpu.Buffer

	// Reserve grows the capacity to exactly n records if n exceeds the current capacity. A new GPU
	// buffer is allocated, host records are copied, every written record is marked dirty and the
	// old buffer is released. Capacity never shrinks; n <= Capacity() does nothing.
	//
	// Parameters:
	//   - n: the required capacity in records
	//
	// Returns:
	//   - error: *common.UploadError if allocation fails, in which case the old buffer stays valid
	Reserve(n uint32) error

	// Write stores the record at index from a column-major model matrix.
	//
	// Parameters:
	//   - index: the record index
	//   - model: the column-major model matrix
	//   - color: the tint for the tinted variant, nil for white; must be nil for other variants
	//
	// Returns:
	//   - error: *common.CapacityError if index >= Capacity() (nothing is modified),
	//     *common.ConfigurationError if a colour is given for an untinted variant
	Write(index uint32, model [16]float32, color *[3]float32) error

	// WriteRows stores the record at index from its four rows. Same contract as Write.
	//
	// Parameters:
	//   - index: the record index
	//   - rows: the four model matrix rows in upload order
	//   - color: the tint for the tinted variant, nil for white; must be nil for other variants
	//
	// Returns:
	//   - error: see Write
	WriteRows(index uint32, rows [4][4]float32, color *[3]float32) error

	// WriteBatch stores len(models) consecutive records starting at start, packing them in parallel.
	// Capacity is checked before anything is written.
	//
	// Parameters:
	//   - start: the first record index
	//   - models: one column-major model matrix per record
	//   - colors: nil, or one colour per record for the tinted variant
	//
	// Returns:
	//   - error: *common.CapacityError if the last index is out of range,
	//     *common.ConfigurationError if colours do not fit the variant
	WriteBatch(start uint32, models [][16]float32, colors [][3]float32) error

	// Flush uploads every dirty record through the queue, one write per run of consecutive indices.
	//
	// Parameters:
	//   - q: the queue to write through
	//
	// Returns:
	//   - uint32: the number of records uploaded
	//   - error: *common.UploadError if a write fails; dirty state is retained
	Flush(q bind_group_provider.Queue) (uint32, error)

	// Record returns a copy of the staged bytes of one record.
	//
	// Parameters:
	//   - index: the record index
	//
	// Returns:
	//   - []byte: RecordSize() bytes
	//   - error: *common.CapacityError if index >= Capacity()
	Record(index uint32) ([]byte, error)

	// Rows decodes the model matrix rows of one staged record.
	//
	// Parameters:
	//   - index: the record index
	//
	// Returns:
	//   - [4][4]float32: the rows
	//   - error: *common.CapacityError if index >= Capacity()
	Rows(index uint32) ([4][4]float32, error)

	// Color decodes the colour of one staged record of the tinted variant.
	//
	// Parameters:
	//   - index: the record index
	//
	// Returns:
	//   - [3]float32: the colour
	//   - error: *common.CapacityError if out of range, *common.ConfigurationError for untinted variants
	Color(index uint32) ([3]float32, error)

	// Release frees the GPU buffer and drops all staged records.
	Release()
}

var _ TransformBuffer = &transformBufferImpl{}

// NewTransformBuffer creates a TransformBuffer for the record schema of v. If an initial capacity
// is configured the GPU buffer is allocated immediately.
//
// Parameters:
//   - v: the shading variant whose instance record schema is stored
//   - alloc: the allocator used to create and release GPU buffers
//   - options: functional options to configure the buffer
//
// Returns:
//   - TransformBuffer: the new buffer
//   - error: *common.ConfigurationError for an unknown variant, *common.UploadError if allocation fails
func NewTransformBuffer(v variant.Variant, alloc BufferAllocator, options ...TransformBufferBuilderOption) (TransformBuffer, error) {
	if !v.Valid() {
		return nil, common.NewConfigurationError("instance.NewTransformBuffer", "unknown variant %s", v)
	}
	if alloc == nil {
		return nil, common.NewConfigurationError("instance.NewTransformBuffer", "buffer allocator is nil")
	}

	b := &transformBufferImpl{
		mu:      &sync.Mutex{},
		label:   fmt.Sprintf("instances_%s_%d", v, bufferCount.Add(1)-1),
		variant: v,
		alloc:   alloc,
	}
	for _, opt := range options {
		opt(b)
	}

	if b.initialCapacity > 0 {
		if err := b.Reserve(b.initialCapacity); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func (b *transformBufferImpl) Variant() variant.Variant {
	return b.variant
}

func (b *transformBufferImpl) Label() string {
	return b.label
}

func (b *transformBufferImpl) Capacity() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capacity
}

func (b *transformBufferImpl) Count() uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

func (b *transformBufferImpl) DirtyCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.dirtyIndices)
}

func (b *transformBufferImpl) Buffer() *wgpu.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffer
}

func (b *transformBufferImpl) Reserve(n uint32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n <= b.capacity {
		return nil
	}

	recordSize := b.variant.RecordSize()
	buf, err := b.alloc.CreateBuffer(b.label, uint64(n)*recordSize, wgpu.BufferUsageVertex|wgpu.BufferUsageCopyDst)
	if err != nil {
		return &common.UploadError{Op: "instance.Reserve", Err: err}
	}
	if buf == nil {
		return &common.UploadError{Op: "instance.Reserve", Err: errors.New("allocator returned no buffer")}
	}

	staging := make([]byte, uint64(n)*recordSize)
	copy(staging, b.staging)
	old := b.buffer
	oldCapacity := b.capacity

	b.staging = staging
	b.buffer = buf
	b.capacity = n

	// The new GPU buffer is empty: every written record must be uploaded again.
	b.dirtyBitset = make([]uint64, (n+63)/64)
	b.dirtyIndices = b.dirtyIndices[:0]
	for i := uint32(0); i < b.count; i++ {
		b.enqueueDirty(i)
	}

	if old != nil {
		b.alloc.ReleaseBuffer(old)
	}
	common.Logger().Debug("instance buffer grown",
		"label", b.label, "from", oldCapacity, "to", n, "requeued", b.count)
	return nil
}

func (b *transformBufferImpl) Write(index uint32, model [16]float32, color *[3]float32) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.check("instance.Write", index, color != nil); err != nil {
		return err
	}
	b.pack(index, model, color)
	b.markWritten(index)
	return nil
}

func (b *transformBufferImpl) WriteRows(index uint32, rows [4][4]float32, color *[3]float32) error {
	return b.Write(index, ModelFromRows(rows), color)
}

func (b *transformBufferImpl) WriteBatch(start uint32, models [][16]float32, colors [][3]float32) error {
	if len(models) == 0 {
		return nil
	}
	if colors != nil && len(colors) != len(models) {
		return common.NewConfigurationError("instance.WriteBatch",
			"got %d colours for %d models", len(colors), len(models))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	last := uint64(start) + uint64(len(models)) - 1
	if last >= uint64(b.capacity) {
		return &common.CapacityError{Index: uint32(min(last, uint64(^uint32(0)))), Capacity: b.capacity}
	}
	if err := b.check("instance.WriteBatch", start, colors != nil); err != nil {
		return err
	}

	// Each task packs a disjoint slice of the staging buffer, so workers need no locking.
	pool := b.workerPool()
	var wg sync.WaitGroup
	for offset := 0; offset < len(models); offset += batchChunk {
		end := min(offset+batchChunk, len(models))
		lo, hi := offset, end
		wg.Add(1)
		pool.SubmitTask(worker.Task{
			ID: lo / batchChunk,
			Do: func() (any, error) {
				defer wg.Done()
				for i := lo; i < hi; i++ {
					var c *[3]float32
					if colors != nil {
						c = &colors[i]
					}
					b.pack(start+uint32(i), models[i], c)
				}
				return nil, nil
			},
		})
	}
	wg.Wait()

	for i := range models {
		b.markWritten(start + uint32(i))
	}
	return nil
}

func (b *transformBufferImpl) Flush(q bind_group_provider.Queue) (uint32, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.dirtyIndices) == 0 {
		return 0, nil
	}
	if b.buffer == nil {
		return 0, &common.UploadError{Op: "instance.Flush", Err: errors.New("no GPU buffer reserved")}
	}

	// Sort dirty indices so adjacent ones coalesce into contiguous buffer writes.
	sortUint32(b.dirtyIndices)

	runStart := b.dirtyIndices[0]
	runEnd := runStart + 1 // exclusive
	for i := 1; i < len(b.dirtyIndices); i++ {
		idx := b.dirtyIndices[i]
		if idx == runEnd {
			runEnd++
			continue
		}
		if err := b.flushRange(q, runStart, runEnd); err != nil {
			return 0, err
		}
		runStart = idx
		runEnd = idx + 1
	}
	if err := b.flushRange(q, runStart, runEnd); err != nil {
		return 0, err
	}

	count := uint32(len(b.dirtyIndices))
	b.dirtyIndices = b.dirtyIndices[:0]
	for i := range b.dirtyBitset {
		b.dirtyBitset[i] = 0
	}
	return count, nil
}

func (b *transformBufferImpl) Record(index uint32) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index >= b.capacity {
		return nil, &common.CapacityError{Index: index, Capacity: b.capacity}
	}
	size := b.variant.RecordSize()
	off := uint64(index) * size
	out := make([]byte, size)
	copy(out, b.staging[off:off+size])
	return out, nil
}

func (b *transformBufferImpl) Rows(index uint32) ([4][4]float32, error) {
	rec, err := b.Record(index)
	if err != nil {
		return [4][4]float32{}, err
	}
	var m [16]float32
	copy(m[:], decodeFloats(rec, 16))
	return RowsFromModel(m), nil
}

func (b *transformBufferImpl) Color(index uint32) ([3]float32, error) {
	if !b.variant.HasColor() {
		return [3]float32{}, common.NewConfigurationError("instance.Color", "variant %s records carry no colour", b.variant)
	}
	rec, err := b.Record(index)
	if err != nil {
		return [3]float32{}, err
	}
	var c [3]float32
	copy(c[:], decodeFloats(rec[b.variant.ColorOffset():], 3))
	return c, nil
}

func (b *transformBufferImpl) Release() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.buffer != nil {
		b.alloc.ReleaseBuffer(b.buffer)
		b.buffer = nil
	}
	b.capacity = 0
	b.count = 0
	b.staging = nil
	b.dirtyIndices = nil
	b.dirtyBitset = nil
}

// check validates an index and the presence of a colour against the schema. Caller must hold b.mu.
func (b *transformBufferImpl) check(op string, index uint32, hasColor bool) error {
	if index >= b.capacity {
		return &common.CapacityError{Index: index, Capacity: b.capacity}
	}
	if hasColor && !b.variant.HasColor() {
		return common.NewConfigurationError(op, "variant %s records carry no colour", b.variant)
	}
	return nil
}

// pack marshals one record into the staging buffer. The index must already be validated.
func (b *transformBufferImpl) pack(index uint32, model [16]float32, color *[3]float32) {
	size := b.variant.RecordSize()
	dst := b.staging[uint64(index)*size : uint64(index+1)*size]
	if !b.variant.HasColor() {
		rec := GPUInstance{Model: model}
		rec.marshalTo(dst)
		return
	}
	c := white
	if color != nil {
		c = *color
	}
	rec := GPUTintedInstance{Model: model, Color: c}
	rec.marshalTo(dst)
}

// markWritten extends the live count and queues the record for upload. Caller must hold b.mu.
func (b *transformBufferImpl) markWritten(index uint32) {
	if index+1 > b.count {
		b.count = index + 1
	}
	b.enqueueDirty(index)
}

// enqueueDirty adds a record index to the dirty queue if not already present.
// Uses a bitset for O(1) dedup. Caller must hold b.mu.
func (b *transformBufferImpl) enqueueDirty(index uint32) {
	word := index / 64
	bit := uint64(1) << (index % 64)
	if b.dirtyBitset[word]&bit != 0 {
		return
	}
	b.dirtyBitset[word] |= bit
	b.dirtyIndices = append(b.dirtyIndices, index)
}

// flushRange uploads the contiguous run of records [start, end) as a single write. Caller must hold b.mu.
func (b *transformBufferImpl) flushRange(q bind_group_provider.Queue, start, end uint32) error {
	size := b.variant.RecordSize()
	offset := uint64(start) * size
	data := b.staging[offset : uint64(end)*size]
	if err := q.WriteBuffer(b.buffer, offset, data); err != nil {
		return &common.UploadError{
			Op:  "instance.Flush",
			Err: fmt.Errorf("records [%d, %d) of %q: %w", start, end, b.label, err),
		}
	}
	return nil
}

// workerPool returns the configured pool, creating the default one on first use. Caller must hold b.mu.
func (b *transformBufferImpl) workerPool() worker.DynamicWorkerPool {
	if !b.hasPool {
		// Queue size of 256 covers batches of up to 64k records without blocking submission.
		b.pool = worker.NewDynamicWorkerPool(max(runtime.NumCPU()-1, 1), 256, 1*time.Second)
		b.hasPool = true
	}
	return b.pool
}

// sortUint32 sorts a uint32 slice in ascending order using insertion sort.
// Dirty queues are usually short, and this avoids the allocation of sort.Slice.
func sortUint32(s []uint32) {
	for i := 1; i < len(s); i++ {
		key := s[i]
		j := i - 1
		for j >= 0 && s[j] > key {
			s[j+1] = s[j]
			j--
		}
		s[j+1] = key
	}
}
