package shapley

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// UnfitUtility is the fixed worst-case utility substituted for coalitions
// that cannot train or score a model: empty training sets, too few feature
// rows, constant held-out targets, or a singular fit. Substitution keeps
// marginal-contribution arithmetic well-defined on the empty coalition.
const UnfitUtility = -1.0

// Valuator scores a training chunk-set against a test chunk-set, returning a
// scalar utility. Implementations must treat chunks as read-only.
type Valuator interface {
	Utility(train, test []Chunk) float64
}

// RidgeValuator trains a ridge regression on windowed chunk features and
// scores the coefficient of determination (R²) on the held-out chunks. The
// model is deliberately cheap: utility evaluation runs thousands of times
// per estimate, so fidelity is traded for throughput. Each call fits a fresh
// model; no state is carried between evaluations.
type RidgeValuator struct {
	WindowSamples int     // nominal feature window size in samples
	Alpha         float64 // L2 penalty
	MinTrainRows  int     // below this many feature rows the fit is declared unfit
}

// NewRidgeValuator returns a valuator with the default penalty and minimum
// row count for the given feature window size.
func NewRidgeValuator(windowSamples int) *RidgeValuator {
	return &RidgeValuator{
		WindowSamples: windowSamples,
		Alpha:         10.0,
		MinTrainRows:  2,
	}
}

// Utility implements Valuator. Degenerate inputs select the UnfitUtility
// sentinel via precondition checks rather than error paths: an empty or
// near-empty coalition is a routine part of the sampling distribution.
func (v *RidgeValuator) Utility(train, test []Chunk) float64 {
	if len(train) == 0 {
		return UnfitUtility
	}

	xTrain, yTrain := extractAll(train, v.WindowSamples)
	minRows := v.MinTrainRows
	if minRows < 2 {
		minRows = 2
	}
	if len(xTrain) < minRows {
		return UnfitUtility
	}

	xTest, yTest := extractAll(test, v.WindowSamples)
	if len(xTest) == 0 {
		return UnfitUtility
	}
	// R² is undefined against a constant held-out target.
	if sampleStddev(yTest) == 0 {
		return UnfitUtility
	}

	model, ok := fitRidge(xTrain, yTrain, v.Alpha)
	if !ok {
		return UnfitUtility
	}

	pred := make([]float64, len(xTest))
	for i, row := range xTest {
		pred[i] = model.predict(row)
	}

	r2 := stat.RSquaredFrom(pred, yTest, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		return UnfitUtility
	}
	return r2
}

// PredictGlucose fits the same model Utility uses on train and returns the
// held-out window targets alongside the model's predictions, for offline
// review (Clarke error grid plotting). ok is false on the same degenerate
// inputs that make Utility return the sentinel.
func (v *RidgeValuator) PredictGlucose(train, test []Chunk) (actual, predicted []float64, ok bool) {
	if len(train) == 0 {
		return nil, nil, false
	}
	xTrain, yTrain := extractAll(train, v.WindowSamples)
	if len(xTrain) < 2 {
		return nil, nil, false
	}
	xTest, yTest := extractAll(test, v.WindowSamples)
	if len(xTest) == 0 {
		return nil, nil, false
	}
	model, fitted := fitRidge(xTrain, yTrain, v.Alpha)
	if !fitted {
		return nil, nil, false
	}
	predicted = make([]float64, len(xTest))
	for i, row := range xTest {
		predicted[i] = model.predict(row)
	}
	return yTest, predicted, true
}

// ridgeModel is a fitted ridge regression over standardised features.
type ridgeModel struct {
	colMean []float64
	colStd  []float64
	beta    *mat.VecDense
	yMean   float64
}

// fitRidge solves the ridge normal equations (ZᵀZ + αI)β = Zᵀy over
// column-standardised features Z and a centred target. Returns ok=false when
// the system cannot be factorised.
func fitRidge(x [][]float64, y []float64, alpha float64) (*ridgeModel, bool) {
	rows := len(x)
	if rows == 0 || rows != len(y) {
		return nil, false
	}
	cols := len(x[0])

	colMean := make([]float64, cols)
	colStd := make([]float64, cols)
	for j := 0; j < cols; j++ {
		col := make([]float64, rows)
		for i := 0; i < rows; i++ {
			col[i] = x[i][j]
		}
		colMean[j] = stat.Mean(col, nil)
		colStd[j] = sampleStddev(col)
	}

	z := mat.NewDense(rows, cols, nil)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			z.Set(i, j, standardise(x[i][j], colMean[j], colStd[j]))
		}
	}

	yMean := stat.Mean(y, nil)
	yc := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		yc.SetVec(i, y[i]-yMean)
	}

	var ztz mat.Dense
	ztz.Mul(z.T(), z)

	sym := mat.NewSymDense(cols, nil)
	for i := 0; i < cols; i++ {
		for j := i; j < cols; j++ {
			v := ztz.At(i, j)
			if i == j {
				v += alpha
			}
			sym.SetSym(i, j, v)
		}
	}

	var chol mat.Cholesky
	if !chol.Factorize(sym) {
		return nil, false
	}

	zty := mat.NewVecDense(cols, nil)
	zty.MulVec(z.T(), yc)

	beta := mat.NewVecDense(cols, nil)
	if err := chol.SolveVecTo(beta, zty); err != nil {
		return nil, false
	}

	return &ridgeModel{
		colMean: colMean,
		colStd:  colStd,
		beta:    beta,
		yMean:   yMean,
	}, true
}

// predict evaluates the fitted model on one raw feature row.
func (m *ridgeModel) predict(row []float64) float64 {
	p := m.yMean
	for j := 0; j < m.beta.Len() && j < len(row); j++ {
		p += m.beta.AtVec(j) * standardise(row[j], m.colMean[j], m.colStd[j])
	}
	return p
}

// standardise centres and scales one value; constant columns collapse to 0.
func standardise(v, mean, std float64) float64 {
	if std == 0 {
		return 0
	}
	return (v - mean) / std
}
