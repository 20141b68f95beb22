package control

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/splinempc/internal/dynamo"
	"github.com/san-kum/splinempc/internal/spline"
)

// LQR is a fixed-gain linear-quadratic regulator used as the non-spline
// baseline: u = clamp(-K (x - goal)). The gain comes from a discrete Riccati
// iteration on a finite-difference linearization of the model.
type LQR struct {
	gain   *mat.Dense
	goal   dynamo.State
	ranges []dynamo.Range
	err    dynamo.State
}

// Options for the Riccati iteration.
const (
	riccatiMaxIter = 1000
	riccatiTol     = 1e-9
	linearizeEps   = 1e-6
)

// NewLQR linearizes the model around the goal state with zero control,
// discretizes at dt, and solves for the steady-state gain. stateWeights and
// controlWeight form the diagonal Q and R cost matrices.
func NewLQR(model dynamo.Actuated, goal dynamo.State, stateWeights []float64, controlWeight, dt float64) (*LQR, error) {
	n := model.StateDim()
	m := model.ControlDim()
	if len(goal) != n || len(stateWeights) != n {
		return nil, fmt.Errorf("lqr: goal/weights must have state dimension %d", n)
	}
	if controlWeight <= 0 {
		return nil, fmt.Errorf("lqr: control weight must be positive")
	}

	A, B := Linearize(model, goal, make(dynamo.Control, m))

	// Discretize: Ad = I + A dt, Bd = B dt.
	Ad := mat.NewDense(n, n, nil)
	Ad.Scale(dt, A)
	for i := 0; i < n; i++ {
		Ad.Set(i, i, Ad.At(i, i)+1)
	}
	Bd := mat.NewDense(n, m, nil)
	Bd.Scale(dt, B)

	Q := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		Q.Set(i, i, stateWeights[i]*dt)
	}
	R := mat.NewDense(m, m, nil)
	for i := 0; i < m; i++ {
		R.Set(i, i, controlWeight*dt)
	}

	K, err := riccatiGain(Ad, Bd, Q, R)
	if err != nil {
		return nil, err
	}

	return &LQR{
		gain:   K,
		goal:   goal.Clone(),
		ranges: model.ControlRange(),
		err:    make(dynamo.State, n),
	}, nil
}

// Compute fills u with the clamped regulator output.
func (l *LQR) Compute(u dynamo.Control, x dynamo.State, t float64) {
	for i := range l.err {
		l.err[i] = x[i] - l.goal[i]
	}

	m, n := l.gain.Dims()
	for r := 0; r < m; r++ {
		sum := 0.0
		for c := 0; c < n; c++ {
			sum += l.gain.At(r, c) * l.err[c]
		}
		u[r] = -sum
	}

	spline.Clamp(u, l.ranges, m)
}

// Gain returns the regulator gain matrix.
func (l *LQR) Gain() mat.Matrix { return l.gain }

// Linearize estimates the continuous-time A and B matrices of the system by
// central finite differences around (x0, u0).
func Linearize(model dynamo.System, x0 dynamo.State, u0 dynamo.Control) (*mat.Dense, *mat.Dense) {
	n := model.StateDim()
	m := model.ControlDim()

	A := mat.NewDense(n, n, nil)
	B := mat.NewDense(n, m, nil)

	plus := make(dynamo.State, n)
	minus := make(dynamo.State, n)
	xp := x0.Clone()
	up := u0.Clone()

	for j := 0; j < n; j++ {
		xp[j] = x0[j] + linearizeEps
		model.Derive(plus, xp, u0, 0)
		xp[j] = x0[j] - linearizeEps
		model.Derive(minus, xp, u0, 0)
		xp[j] = x0[j]
		for i := 0; i < n; i++ {
			A.Set(i, j, (plus[i]-minus[i])/(2*linearizeEps))
		}
	}

	for j := 0; j < m; j++ {
		up[j] = u0[j] + linearizeEps
		model.Derive(plus, x0, up, 0)
		up[j] = u0[j] - linearizeEps
		model.Derive(minus, x0, up, 0)
		up[j] = u0[j]
		for i := 0; i < n; i++ {
			B.Set(i, j, (plus[i]-minus[i])/(2*linearizeEps))
		}
	}

	return A, B
}

// riccatiGain iterates the discrete algebraic Riccati equation to a fixed
// point and returns K = (R + B'PB)^-1 B'PA.
func riccatiGain(A, B, Q, R *mat.Dense) (*mat.Dense, error) {
	n, _ := A.Dims()
	_, m := B.Dims()

	P := mat.NewDense(n, n, nil)
	P.CloneFrom(Q)

	var (
		atp  mat.Dense // A' P
		atpa mat.Dense // A' P A
		atpb mat.Dense // A' P B
		btpb mat.Dense // B' P B
		s    mat.Dense // R + B' P B
		sinv mat.Dense
		k    mat.Dense // S^-1 B' P A
		corr mat.Dense // A' P B K
		next mat.Dense
	)

	for iter := 0; iter < riccatiMaxIter; iter++ {
		atp.Mul(A.T(), P)
		atpa.Mul(&atp, A)
		atpb.Mul(&atp, B)

		var btp mat.Dense
		btp.Mul(B.T(), P)
		btpb.Mul(&btp, B)

		s.Add(R, &btpb)
		if err := sinv.Inverse(&s); err != nil {
			return nil, fmt.Errorf("lqr: riccati step not invertible: %w", err)
		}

		var btpa mat.Dense
		btpa.Mul(&btp, A)
		k.Mul(&sinv, &btpa)

		corr.Mul(&atpb, &k)

		next.Sub(&atpa, &corr)
		next.Add(&next, Q)

		diff := 0.0
		for i := 0; i < n; i++ {
			for j := 0; j < n; j++ {
				d := next.At(i, j) - P.At(i, j)
				if d < 0 {
					d = -d
				}
				if d > diff {
					diff = d
				}
			}
		}
		P.CloneFrom(&next)

		if diff < riccatiTol {
			gain := mat.NewDense(m, n, nil)
			gain.CloneFrom(&k)
			return gain, nil
		}
	}

	return nil, fmt.Errorf("lqr: riccati iteration did not converge in %d steps", riccatiMaxIter)
}
