package toa

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/mat"
)

// maxConditionNumber rejects 3x3 eliminations whose geometry is effectively
// degenerate even if not exactly singular.
const maxConditionNumber = 1e12

// SolveFourReceiver localizes one event against exactly 4 receivers. With
// only 3 difference equations the spherical-interpolation system is
// under-determined by one degree of freedom; solving the 3x3 subsystem for
// position as an affine function of the reference range R,
//
//	p(R) = p0 + R*p1,  p0 = M^-1 * k,  p1 = -2 * M^-1 * d
//
// and substituting into R^2 = |p(R) - r_ref|^2 yields the scalar quadratic
//
//	(|p1|^2 - 1)*R^2 + 2*(p0 - r_ref)·p1 * R + |p0 - r_ref|^2 = 0.
//
// Each real non-negative root is back-substituted into p(R) and returned as
// one Estimate: the larger root is tagged Eq = "+", the smaller Eq = "-".
// When the discriminant is zero within tolerance a single estimate is
// returned. No real non-negative root fails with NoValidSolutionError;
// a singular 3x3 subsystem (coplanar receivers) with SingularSystemError.
//
// Per-branch Error is the RMS residual of the original nonlinear
// range-difference equations at the back-substituted position (units of
// distance), so the two branches can be compared; both are always returned
// when both are physically valid — disambiguation is the caller's job.
func SolveFourReceiver(receivers ReceiverArray, ev DetectionEvent, speed float64) ([]Estimate, error) {
	if len(receivers) != 4 {
		return nil, &InsufficientDataError{EventID: ev.ID, Got: len(receivers), Need: 4, What: "receivers (exactly)"}
	}
	diffs, err := BuildRangeDifferences(receivers, ev, speed)
	if err != nil {
		return nil, err
	}

	ref := receivers[diffs.Reference].Position
	refNormSq := ref.NormSq()

	mData := make([]float64, 9)
	kData := make([]float64, 3)
	dData := make([]float64, 3)
	for i, rd := range diffs.Diffs {
		ri := receivers[rd.Receiver].Position
		mData[i*3+0] = 2 * (ri.X - ref.X)
		mData[i*3+1] = 2 * (ri.Y - ref.Y)
		mData[i*3+2] = 2 * (ri.Z - ref.Z)
		kData[i] = ri.NormSq() - refNormSq - rd.Delta*rd.Delta
		dData[i] = rd.Delta
	}
	M := mat.NewDense(3, 3, mData)

	var lu mat.LU
	lu.Factorize(M)
	if cond := lu.Cond(); math.IsInf(cond, 1) || cond > maxConditionNumber {
		return nil, &SingularSystemError{
			EventID: ev.ID,
			Detail:  "four-receiver geometry is degenerate (coplanar receivers)",
		}
	}

	var p0v, p1v mat.VecDense
	if err := lu.SolveVecTo(&p0v, false, mat.NewVecDense(3, kData)); err != nil {
		return nil, &SingularSystemError{EventID: ev.ID, Detail: "position elimination failed: " + err.Error()}
	}
	if err := lu.SolveVecTo(&p1v, false, mat.NewVecDense(3, dData)); err != nil {
		return nil, &SingularSystemError{EventID: ev.ID, Detail: "position elimination failed: " + err.Error()}
	}

	p0 := Point3{X: p0v.AtVec(0), Y: p0v.AtVec(1), Z: p0v.AtVec(2)}
	p1 := Point3{X: -2 * p1v.AtVec(0), Y: -2 * p1v.AtVec(1), Z: -2 * p1v.AtVec(2)}

	q := Point3{X: p0.X - ref.X, Y: p0.Y - ref.Y, Z: p0.Z - ref.Z}
	alpha := p1.NormSq() - 1
	beta := 2 * (q.X*p1.X + q.Y*p1.Y + q.Z*p1.Z)
	gamma := q.NormSq()

	roots, _, err := solveRangeQuadratic(alpha, beta, gamma)
	if err != nil {
		if nv, ok := err.(*NoValidSolutionError); ok {
			nv.EventID = ev.ID
		}
		return nil, err
	}

	estimates := make([]Estimate, 0, 2)
	for i, r := range roots {
		pos := Point3{X: p0.X + r*p1.X, Y: p0.Y + r*p1.Y, Z: p0.Z + r*p1.Z}
		// roots are sorted descending and a lone survivor is always the
		// larger (or double) root, so index 0 is the "+" branch
		eq := EqPlus
		if i == 1 {
			eq = EqMinus
		}
		estimates = append(estimates, Estimate{
			ID:    ev.ID,
			X:     pos.X,
			Y:     pos.Y,
			Z:     pos.Z,
			Error: RangeResidual(pos, receivers, diffs),
			Eq:    eq,
		})
	}
	return estimates, nil
}

// solveRangeQuadratic solves alpha*R^2 + beta*R + gamma = 0 for the
// physically valid (real, non-negative) reference ranges. Roots are returned
// in descending order, so the first corresponds to the "+" branch. A nearly
// linear equation (alpha ~ 0) degenerates to the single root -gamma/beta.
func solveRangeQuadratic(alpha, beta, gamma float64) ([]float64, float64, error) {
	scale := math.Max(math.Abs(alpha), math.Max(math.Abs(beta), math.Abs(gamma)))
	if scale == 0 {
		// 0 = 0: the reference sits on the source, treat R = 0 as the root.
		return []float64{0}, 0, nil
	}

	if math.Abs(alpha) < 1e-12*scale {
		if math.Abs(beta) < 1e-12*scale {
			return nil, 0, &NoValidSolutionError{Discriminant: math.Inf(-1)}
		}
		r := -gamma / beta
		if r < 0 {
			return nil, 0, &NoValidSolutionError{Discriminant: 0}
		}
		return []float64{r}, 0, nil
	}

	disc := beta*beta - 4*alpha*gamma
	discTol := 1e-10 * (beta*beta + math.Abs(4*alpha*gamma))
	if disc < -discTol {
		return nil, disc, &NoValidSolutionError{Discriminant: disc}
	}
	if disc < 0 {
		disc = 0
	}

	sq := math.Sqrt(disc)
	r1 := (-beta + sq) / (2 * alpha)
	r2 := (-beta - sq) / (2 * alpha)
	if r1 < r2 {
		r1, r2 = r2, r1
	}

	var roots []float64
	if disc <= discTol {
		// double root within tolerance
		roots = []float64{r1}
	} else {
		roots = []float64{r1, r2}
	}

	valid := roots[:0]
	for _, r := range roots {
		if r >= 0 {
			valid = append(valid, r)
		}
	}
	if len(valid) == 0 {
		return nil, disc, &NoValidSolutionError{Discriminant: disc}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(valid)))
	return valid, disc, nil
}
