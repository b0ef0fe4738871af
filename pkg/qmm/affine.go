package qmm

import (
	"runtime"
	"sync"

	"github.com/slimtgo/slimt/pkg/tensor"
)

var activationPool = sync.Pool{
	New: func() interface{} { return make([]uint8, 0) },
}

func borrowActivation(n int) []uint8 {
	buf := activationPool.Get().([]uint8)
	if cap(buf) < n {
		buf = make([]uint8, n)
	}
	return buf[:n]
}

func returnActivation(buf []uint8) {
	activationPool.Put(buf) //nolint:staticcheck // re-sliced on borrow, not reused by length
}

// Dot computes dst = A @ B (spec.md §4.2 dot), with A an [m,k] F32
// activation and w a [k,n] IG8 prepared weight.
func Dot(dst, a *tensor.Tensor, w *tensor.Tensor, aQuant float32) error {
	return affine(dst, a, w, nil, aQuant, nil)
}

// Affine computes dst = A @ B + bias (spec.md §4.2 affine).
func Affine(dst, a *tensor.Tensor, w *tensor.Tensor, bias *tensor.Tensor, aQuant float32) error {
	return affine(dst, a, w, bias, aQuant, nil)
}

// AffineWithSelect computes dst = A @ select_columns(B, idx) +
// bias[idx] (spec.md §4.2 affine_with_select), used by the decoder's
// output projection when a shortlist restricts the target classes.
func AffineWithSelect(dst, a *tensor.Tensor, w *tensor.Tensor, bias *tensor.Tensor, aQuant float32, idx []uint32) error {
	return affine(dst, a, w, bias, aQuant, idx)
}

func affine(dst, a, w, bias *tensor.Tensor, aQuant float32, idx []uint32) error {
	if len(a.Shape()) != 2 || len(w.Shape()) != 2 {
		return ErrShape
	}
	m, k := a.Shape().At(0), a.Shape().At(1)
	if w.Shape().At(0) != k {
		return ErrShape
	}
	wq, bQuant, err := w.RawIG8()
	if err != nil {
		return err
	}
	fullN := w.Shape().At(1)

	n := fullN
	if idx != nil {
		n = len(idx)
	}
	if dst.Shape().At(0) != m || dst.Shape().At(1) != n {
		return ErrShape
	}
	if bias != nil && bias.Shape().At(0) != fullN {
		return ErrShape
	}

	sums := colSums(wq, k, fullN)
	biasMultiplier := -127.0 / (aQuant * bQuant)
	unquant := 1.0 / (aQuant * bQuant)

	biasedBeta := make([]float32, n)
	for j := 0; j < n; j++ {
		col := j
		if idx != nil {
			col = int(idx[j])
		}
		b := float32(0)
		if bias != nil {
			b = bias.Float32s()[col]
		}
		biasedBeta[j] = float32(biasMultiplier)*float32(sums[col]) + b
	}

	av := a.Float32s()
	dv := dst.Float32s()

	workers := runtime.NumCPU()
	if workers > m {
		workers = m
	}
	if workers < 1 {
		workers = 1
	}
	chunk := (m + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < m; lo += chunk {
		hi := lo + chunk
		if hi > m {
			hi = m
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			aq := borrowActivation(k)
			defer returnActivation(aq)
			for i := lo; i < hi; i++ {
				row := av[i*k : i*k+k]
				quantizeShifted(row, aQuant, aq)
				out := dv[i*n : i*n+n]
				for j := 0; j < n; j++ {
					col := j
					if idx != nil {
						col = int(idx[j])
					}
					var acc int32
					wcol := wq[col:]
					for p := 0; p < k; p++ {
						acc += int32(aq[p]) * int32(wcol[p*fullN])
					}
					out[j] = float32(acc)*float32(unquant) + biasedBeta[j]
				}
			}
		}(lo, hi)
	}
	wg.Wait()
	return nil
}
