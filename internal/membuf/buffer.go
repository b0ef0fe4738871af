// Package membuf implements the aligned owned buffer and read-only memory
// map that every Tensor in pkg/tensor is backed by (spec.md §3, C1).
//
// Grounded on the teacher's pre-sized-allocation discipline in
// pkg/bitnet/model/model.go (LoadWeights pre-computes every slice size
// before reading) and its atomic-closed-flag lifecycle in
// pkg/bitnet/tensor/tensor.go (Tensor.closed / Close via
// atomic.CompareAndSwapUint32). Memory mapping itself is new: the teacher
// streams model files sequentially and never maps them, so mmap semantics
// are grounded on golang.org/x/sys/unix directly (the library the
// gittool-Mimir and go-highway pack siblings use for raw syscall access).
package membuf

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Alignment is the byte alignment every owned Buffer honors (spec.md §3:
// "64-byte aligned").
const Alignment = 64

var (
	ErrClosed       = errors.New("membuf: buffer is closed")
	ErrOutOfRange   = errors.New("membuf: byte range out of bounds")
	ErrNotOwned     = errors.New("membuf: buffer does not own its storage")
)

// Buffer is an owned 64-byte-aligned byte buffer, or a read-only view into
// a memory-mapped file. Exactly one of the two backing modes is active.
type Buffer struct {
	data   []byte // aligned-allocated storage, or the mmap'd region
	owned  bool   // true: heap-owned; false: borrowed view (mmap or sub-slice)
	closed uint32 // atomic flag, CAS-guarded like tensor.Tensor.closed

	// mm is non-nil only for the buffer that actually holds the mmap
	// mapping. Sub-views derived from it via Slice do not carry it, and
	// live views are not tracked: Close on the root unmaps immediately.
	mm []byte
}

// NewAligned allocates an owned buffer of n bytes, aligned to Alignment.
// Cloning a Tensor always allocates (spec.md §3) and goes through this path.
func NewAligned(n int) *Buffer {
	if n < 0 {
		n = 0
	}
	raw := make([]byte, n+Alignment)
	addr := uintptr(unsafe.Pointer(&raw[0]))
	off := int((Alignment - addr%Alignment) % Alignment)
	return &Buffer{data: raw[off : off+n : off+n], owned: true}
}

// Bytes returns the live byte slice. Returns ErrClosed if Close was called.
func (b *Buffer) Bytes() ([]byte, error) {
	if atomic.LoadUint32(&b.closed) == 1 {
		return nil, ErrClosed
	}
	return b.data, nil
}

// Len returns the number of bytes currently backing the buffer.
func (b *Buffer) Len() int { return len(b.data) }

// Slice returns a borrowed sub-view [off, off+n) of this buffer. The
// returned Buffer is never itself owning and its Close is a no-op: the
// model file mmap (or the parent owned allocation) retains ownership, per
// spec.md §3's ownership summary ("the model file's mmap owns all
// read-only weight bytes").
func (b *Buffer) Slice(off, n int) (*Buffer, error) {
	if atomic.LoadUint32(&b.closed) == 1 {
		return nil, ErrClosed
	}
	if off < 0 || n < 0 || off+n > len(b.data) {
		return nil, ErrOutOfRange
	}
	return &Buffer{data: b.data[off : off+n], owned: false}, nil
}

// Close releases an owned buffer's storage. Borrowed views are no-ops.
func (b *Buffer) Close() error {
	if !atomic.CompareAndSwapUint32(&b.closed, 0, 1) {
		return nil
	}
	if b.owned {
		b.data = nil
	}
	if b.mm != nil {
		err := unix.Munmap(b.mm)
		b.mm = nil
		return err
	}
	return nil
}

// FileMap is a read-only memory-mapped view of a model file. All tensors
// that borrow from it share this single mapping for the lifetime of the
// loaded model (spec.md §3: "the model file's mmap owns all read-only
// weight bytes").
type FileMap struct {
	file *os.File
	root *Buffer
}

// MapFile opens path and maps it read-only into the process address space.
func MapFile(path string) (*FileMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("membuf: open %s: %w", path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("membuf: stat %s: %w", path, err)
	}
	size := int(st.Size())
	if size == 0 {
		f.Close()
		return nil, fmt.Errorf("membuf: %s is empty", path)
	}
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("membuf: mmap %s: %w", path, err)
	}
	return &FileMap{
		file: f,
		root: &Buffer{data: data, owned: false, mm: data},
	}, nil
}

// Buffer returns the Buffer wrapping the entire mapped file.
func (fm *FileMap) Buffer() *Buffer { return fm.root }

// Close unmaps the file and closes the underlying descriptor.
func (fm *FileMap) Close() error {
	if fm == nil {
		return nil
	}
	err := fm.root.Close()
	if cerr := fm.file.Close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

var _ = ErrNotOwned // reserved for owned-view validation; not returned by this package
