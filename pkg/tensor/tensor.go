// Package tensor implements the typed n-dimensional views (spec.md §3, C2)
// that every other component of the engine operates on: dense, row-major,
// last-axis-contiguous buffers tagged with an element kind, plus the
// elementwise, reduction, and reshape kernels of spec.md §4.1.
//
// Grounded on the teacher's pkg/bitnet/tensor/tensor.go: the closed-flag +
// RWMutex lifecycle (atomic.CompareAndSwapUint32 on a Tensor.closed field),
// the calculateIndex/calculateIndices row-major index arithmetic, and the
// chunk-per-CPU parallel-goroutine pattern used throughout its Transpose,
// MatMul, and Softmax. Generalized here from a ternary-only int8 tensor to
// the five element kinds spec.md §3 requires (I8, IG8, I32, U32, F32),
// backed by internal/membuf instead of a bare []int8 so a Tensor can either
// own aligned storage or borrow a view into the model file mmap.
package tensor

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/slimtgo/slimt/internal/membuf"
)

// Kind tags the element type backing a Tensor (spec.md §3).
type Kind int

const (
	I8  Kind = iota // signed 8-bit, raw
	IG8             // intgemm-prepared INT8; opaque outside pkg/qmm
	I32             // signed 32-bit
	U32             // unsigned 32-bit
	F32             // IEEE-754 32-bit float
)

// ElemSize returns the byte width of one element of kind k.
func (k Kind) ElemSize() int {
	switch k {
	case I8, IG8:
		return 1
	case I32, U32, F32:
		return 4
	default:
		return 0
	}
}

func (k Kind) String() string {
	switch k {
	case I8:
		return "I8"
	case IG8:
		return "IG8"
	case I32:
		return "I32"
	case U32:
		return "U32"
	case F32:
		return "F32"
	default:
		return "unknown"
	}
}

var (
	ErrInvalidShape    = errors.New("tensor: invalid shape")
	ErrShapeMismatch   = errors.New("tensor: shape mismatch")
	ErrClosed          = errors.New("tensor: operation on closed tensor")
	ErrNil             = errors.New("tensor: nil tensor")
	ErrOpaqueKind      = errors.New("tensor: IG8 tensor read outside qmm provider")
	ErrSizeMismatch    = errors.New("tensor: shape element count does not fit backing buffer")
)

// Tensor is a tagged view over contiguous bytes (spec.md §3): an element
// kind, a shape, and either owned (64-byte aligned) or borrowed storage.
type Tensor struct {
	Name  string
	kind  Kind
	shape Shape
	buf   *membuf.Buffer

	mu     sync.RWMutex
	closed uint32
}

// New allocates an owned, zero-filled tensor of the given kind and shape.
func New(kind Kind, shape ...int) (*Tensor, error) {
	s := Shape(shape)
	if len(s) == 0 {
		return nil, ErrInvalidShape
	}
	for _, d := range s {
		if d <= 0 {
			return nil, ErrInvalidShape
		}
	}
	nbytes := s.Elements() * kind.ElemSize()
	return &Tensor{kind: kind, shape: s, buf: membuf.NewAligned(nbytes)}, nil
}

// NewPrepared allocates an owned IG8 tensor of the given shape, with room
// for the trailing F32 quantization multiplier spec.md §3 requires
// ("prepared INT8 weight tensors are followed in memory by one F32
// quantization multiplier").
func NewPrepared(shape ...int) (*Tensor, error) {
	s := Shape(shape)
	if len(s) == 0 {
		return nil, ErrInvalidShape
	}
	for _, d := range s {
		if d <= 0 {
			return nil, ErrInvalidShape
		}
	}
	nbytes := s.Elements() + 4
	return &Tensor{kind: IG8, shape: s, buf: membuf.NewAligned(nbytes)}, nil
}

// FromView wraps a borrowed byte buffer (e.g. a slice of the model file
// mmap) as a tensor without copying. buf must hold at least
// shape.Elements()*kind.ElemSize() bytes; IG8 tensors are additionally
// followed in memory by one F32 quantization multiplier (spec.md §3), so
// the caller is responsible for sizing buf to include that trailer.
func FromView(name string, kind Kind, shape Shape, buf *membuf.Buffer) (*Tensor, error) {
	if buf == nil {
		return nil, ErrNil
	}
	need := shape.Elements() * kind.ElemSize()
	if buf.Len() < need {
		return nil, ErrSizeMismatch
	}
	return &Tensor{Name: name, kind: kind, shape: shape, buf: buf}, nil
}

// Kind returns the tensor's element kind.
func (t *Tensor) Kind() Kind { return t.kind }

// Shape returns the tensor's dimensions.
func (t *Tensor) Shape() Shape { return t.shape }

// Closed reports whether Close has been called.
func (t *Tensor) Closed() bool { return atomic.LoadUint32(&t.closed) == 1 }

// Close releases the tensor's owned storage. A no-op on borrowed views
// beyond marking the Tensor itself unusable (spec.md §3 ownership summary:
// the mmap, not the Tensor, owns borrowed bytes).
func (t *Tensor) Close() error {
	if t == nil {
		return ErrNil
	}
	if !atomic.CompareAndSwapUint32(&t.closed, 0, 1) {
		return nil
	}
	return t.buf.Close()
}

// bytes returns the raw backing bytes of a tensor of any kind, or
// ErrClosed once the tensor is closed. It does not check the element kind.
func (t *Tensor) bytes() ([]byte, error) {
	if t.Closed() {
		return nil, ErrClosed
	}
	return t.buf.Bytes()
}

// Clone always allocates a fresh owned copy (spec.md §3: "Cloning always
// allocates").
func (t *Tensor) Clone() (*Tensor, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	src, err := t.bytes()
	if err != nil {
		return nil, err
	}
	need := t.shape.Elements() * t.kind.ElemSize()
	dst := membuf.NewAligned(need)
	dstBytes, _ := dst.Bytes()
	copy(dstBytes, src[:need])
	return &Tensor{Name: t.Name, kind: t.kind, shape: t.shape.Clone(), buf: dst}, nil
}

func (t *Tensor) checkKind(want Kind) error {
	if t.kind != want {
		return fmt.Errorf("%w: want %s, got %s", ErrShapeMismatch, want, t.kind)
	}
	return nil
}
