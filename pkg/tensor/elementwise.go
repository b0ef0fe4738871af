package tensor

import (
	"runtime"
	"sync"
)

// parallelChunks splits [0, n) into at most runtime.NumCPU() contiguous
// chunks and runs fn over each chunk concurrently, matching the teacher's
// ParallelForEach chunk-per-CPU pattern (pkg/bitnet/tensor/tensor.go).
func parallelChunks(n int, fn func(lo, hi int)) {
	if n == 0 {
		return
	}
	workers := runtime.NumCPU()
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		fn(0, n)
		return
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}

// Add computes dst = a + b elementwise. a, b, and dst must share shape.
func Add(dst, a, b *Tensor) error {
	return binaryOp(dst, a, b, func(x, y float32) float32 { return x + y })
}

// Sub computes dst = a - b elementwise.
func Sub(dst, a, b *Tensor) error {
	return binaryOp(dst, a, b, func(x, y float32) float32 { return x - y })
}

// Mul computes dst = a * b elementwise.
func Mul(dst, a, b *Tensor) error {
	return binaryOp(dst, a, b, func(x, y float32) float32 { return x * y })
}

func binaryOp(dst, a, b *Tensor, op func(x, y float32) float32) error {
	if !a.shape.Equal(b.shape) || !a.shape.Equal(dst.shape) {
		return ErrShapeMismatch
	}
	av, bv, dv := a.Float32s(), b.Float32s(), dst.Float32s()
	parallelChunks(len(dv), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dv[i] = op(av[i], bv[i])
		}
	})
	return nil
}

// MulScalar computes dst = a * s elementwise.
func MulScalar(dst, a *Tensor, s float32) error {
	if !a.shape.Equal(dst.shape) {
		return ErrShapeMismatch
	}
	av, dv := a.Float32s(), dst.Float32s()
	parallelChunks(len(dv), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dv[i] = av[i] * s
		}
	})
	return nil
}

// ReLU computes dst = max(0, a) elementwise.
func ReLU(dst, a *Tensor) error {
	if !a.shape.Equal(dst.shape) {
		return ErrShapeMismatch
	}
	av, dv := a.Float32s(), dst.Float32s()
	parallelChunks(len(dv), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			if av[i] > 0 {
				dv[i] = av[i]
			} else {
				dv[i] = 0
			}
		}
	})
	return nil
}

// Sigmoid computes dst = 1 / (1 + exp(-a)) elementwise.
func Sigmoid(dst, a *Tensor) error {
	if !a.shape.Equal(dst.shape) {
		return ErrShapeMismatch
	}
	av, dv := a.Float32s(), dst.Float32s()
	parallelChunks(len(dv), func(lo, hi int) {
		for i := lo; i < hi; i++ {
			dv[i] = sigmoid1(av[i])
		}
	})
	return nil
}

func sigmoid1(x float32) float32 {
	return 1.0 / (1.0 + expNeg(x))
}
