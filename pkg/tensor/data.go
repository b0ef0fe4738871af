package tensor

import "unsafe"

// Float32s returns the tensor's elements reinterpreted as a []float32. The
// returned slice aliases the tensor's storage; mutating it mutates the
// tensor. Panics if the tensor's kind is not F32 to catch caller bugs early,
// matching the teacher's habit of panicking on kernel invariant violations
// (pkg/bitnet/tensor/raw_tensor.go: "dimensions must be positive").
func (t *Tensor) Float32s() []float32 {
	if err := t.checkKind(F32); err != nil {
		panic(err)
	}
	b, err := t.bytes()
	if err != nil {
		panic(err)
	}
	n := t.shape.Elements()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*float32)(unsafe.Pointer(&b[0])), n)
}

// Int32s returns the tensor's elements reinterpreted as a []int32.
func (t *Tensor) Int32s() []int32 {
	if err := t.checkKind(I32); err != nil {
		panic(err)
	}
	b, err := t.bytes()
	if err != nil {
		panic(err)
	}
	n := t.shape.Elements()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*int32)(unsafe.Pointer(&b[0])), n)
}

// Uint32s returns the tensor's elements reinterpreted as a []uint32.
func (t *Tensor) Uint32s() []uint32 {
	if err := t.checkKind(U32); err != nil {
		panic(err)
	}
	b, err := t.bytes()
	if err != nil {
		panic(err)
	}
	n := t.shape.Elements()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*uint32)(unsafe.Pointer(&b[0])), n)
}

// Int8s returns the tensor's raw bytes reinterpreted as a []int8. Valid for
// kind I8 only; IG8 tensors must go through pkg/qmm.
func (t *Tensor) Int8s() []int8 {
	if err := t.checkKind(I8); err != nil {
		panic(err)
	}
	b, err := t.bytes()
	if err != nil {
		panic(err)
	}
	n := t.shape.Elements()
	if n == 0 {
		return nil
	}
	return unsafe.Slice((*int8)(unsafe.Pointer(&b[0])), n)
}

// WriteIG8 fills a tensor allocated by NewPrepared with quantized values
// and the trailing b_quant multiplier.
func (t *Tensor) WriteIG8(values []int8, bQuant float32) error {
	if err := t.checkKind(IG8); err != nil {
		return err
	}
	n := t.shape.Elements()
	if len(values) != n {
		return ErrSizeMismatch
	}
	b, err := t.bytes()
	if err != nil {
		return err
	}
	dst := unsafe.Slice((*int8)(unsafe.Pointer(&b[0])), n)
	copy(dst, values)
	*(*float32)(unsafe.Pointer(&b[n])) = bQuant
	return nil
}

// RawIG8 exposes the opaque prepared-INT8 byte view plus its trailing
// quantization multiplier (b_quant, spec.md §3: "prepared INT8 weight
// tensors are followed in memory by one F32 quantization multiplier"), for
// the exclusive use of pkg/qmm. Any other caller should treat an IG8
// tensor as opaque.
func (t *Tensor) RawIG8() (quantized []int8, bQuant float32, err error) {
	if err := t.checkKind(IG8); err != nil {
		return nil, 0, err
	}
	b, err := t.bytes()
	if err != nil {
		return nil, 0, err
	}
	n := t.shape.Elements()
	q := unsafe.Slice((*int8)(unsafe.Pointer(&b[0])), n)
	mult := *(*float32)(unsafe.Pointer(&b[n]))
	return q, mult, nil
}
