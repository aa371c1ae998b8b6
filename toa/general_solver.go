package toa

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// rankTolerance is the relative singular-value cutoff below which a direction
// of the linear system is treated as unobservable.
const rankTolerance = 1e-9

// SolveGeneral localizes one event against an array of 5 or more receivers
// using spherical interpolation: subtracting the reference receiver's
// distance equation from every other receiver's eliminates the quadratic
// position term and leaves the linear system
//
//	[2*(r_i - r_ref), 2*d_i] * [x y z R]^T = |r_i|^2 - |r_ref|^2 - d_i^2
//
// where d_i is the range difference and R the source-to-reference range.
// With N-1 >= 4 equations for 4 unknowns the system is solved by QR least
// squares. The returned Estimate carries Eq = "single" and Error set to the
// normalized linear residual |A*x - b| / sqrt(m), in units of squared
// distance (b mixes squared distances, so the residual does too).
//
// Rank-deficient geometry — coplanar receivers, or range differences that
// collapse onto the position columns — fails with SingularSystemError rather
// than silently returning a degenerate position.
func SolveGeneral(receivers ReceiverArray, ev DetectionEvent, speed float64) (Estimate, error) {
	diffs, err := BuildRangeDifferences(receivers, ev, speed)
	if err != nil {
		return Estimate{}, err
	}
	if len(diffs.Diffs) < 4 {
		return Estimate{}, &InsufficientDataError{
			EventID: ev.ID, Got: len(diffs.Diffs), Need: 4, What: "range differences",
		}
	}

	sol, residual, err := solveInterpolationSystem(receivers, diffs, false)
	if err != nil {
		if se, ok := err.(*SingularSystemError); ok {
			se.EventID = ev.ID
		}
		return Estimate{}, err
	}

	return Estimate{
		ID:    ev.ID,
		X:     sol[0],
		Y:     sol[1],
		Z:     sol[2],
		Error: residual,
		Eq:    EqSingle,
	}, nil
}

// buildInterpolationSystem assembles the (m x 4) spherical-interpolation
// matrix and its right-hand side for one event's range differences.
func buildInterpolationSystem(receivers ReceiverArray, diffs RangeDifferenceSet) (*mat.Dense, *mat.VecDense) {
	m := len(diffs.Diffs)
	ref := receivers[diffs.Reference].Position
	refNormSq := ref.NormSq()

	aData := make([]float64, m*4)
	bData := make([]float64, m)
	for i, rd := range diffs.Diffs {
		ri := receivers[rd.Receiver].Position
		aData[i*4+0] = 2 * (ri.X - ref.X)
		aData[i*4+1] = 2 * (ri.Y - ref.Y)
		aData[i*4+2] = 2 * (ri.Z - ref.Z)
		aData[i*4+3] = 2 * rd.Delta
		bData[i] = ri.NormSq() - refNormSq - rd.Delta*rd.Delta
	}
	return mat.NewDense(m, 4, aData), mat.NewVecDense(m, bData)
}

// solveInterpolationSystem solves the linear system by least squares and
// returns the 4-vector [x y z R] plus the normalized residual |A*x - b|/sqrt(m).
//
// allowDeficient controls the rank-deficient path. The strict mode (used by
// SolveGeneral) rejects deficient geometry with SingularSystemError. The
// relaxed mode computes the minimum-norm solution by rank-truncated SVD: the
// residual of that solution equals the residual of any least-squares solution
// and stays continuous in the inputs, which is what the speed-calibration
// objective needs even when one position component is unobservable.
func solveInterpolationSystem(receivers ReceiverArray, diffs RangeDifferenceSet, allowDeficient bool) ([4]float64, float64, error) {
	A, b := buildInterpolationSystem(receivers, diffs)
	m, _ := A.Dims()

	var svd mat.SVD
	if !svd.Factorize(A, mat.SVDThin) {
		return [4]float64{}, 0, &SingularSystemError{Detail: "SVD factorization failed"}
	}
	sv := svd.Values(nil)

	rank := 0
	for _, s := range sv {
		if s > rankTolerance*sv[0] {
			rank++
		}
	}
	if sv[0] == 0 {
		rank = 0
	}

	var x mat.VecDense
	switch {
	case rank == 4:
		// Full rank: QR is the numerically stable least-squares route.
		var qr mat.QR
		qr.Factorize(A)
		if err := qr.SolveVecTo(&x, false, b); err != nil {
			return [4]float64{}, 0, &SingularSystemError{Rank: rank, Detail: "least-squares solve failed: " + err.Error()}
		}
	case allowDeficient && rank >= 2:
		minimumNormSolve(&svd, b, rank, &x)
	default:
		return [4]float64{}, 0, &SingularSystemError{
			Rank:   rank,
			Detail: "receiver geometry is rank-deficient (coplanar or collinear receivers)",
		}
	}

	var res mat.VecDense
	res.MulVec(A, &x)
	res.SubVec(b, &res)
	residual := mat.Norm(&res, 2) / math.Sqrt(float64(m))

	var sol [4]float64
	for i := 0; i < 4; i++ {
		sol[i] = x.AtVec(i)
	}
	return sol, residual, nil
}

// minimumNormSolve computes the rank-truncated pseudo-inverse solution
// x = V * diag(1/s_k) * U^T * b using only the first rank singular triplets.
func minimumNormSolve(svd *mat.SVD, b *mat.VecDense, rank int, x *mat.VecDense) {
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)
	sv := svd.Values(nil)

	m, _ := u.Dims()
	x.ReuseAsVec(4)
	for k := 0; k < rank; k++ {
		// coefficient along the k-th right singular vector
		utb := 0.0
		for i := 0; i < m; i++ {
			utb += u.At(i, k) * b.AtVec(i)
		}
		c := utb / sv[k]
		for j := 0; j < 4; j++ {
			x.SetVec(j, x.AtVec(j)+c*v.At(j, k))
		}
	}
}
