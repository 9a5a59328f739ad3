package shapley

import (
	"testing"
)

// levelChunk builds a chunk whose signal sits at a constant level with the
// target a linear function of it, so windowed means carry full information.
func levelChunk(id int, level float64, samples int) Chunk {
	return makeChunk(id,
		constSlice(samples, level),
		constSlice(samples, -level),
		constSlice(samples, 2*level))
}

func TestUtilityEmptyTrain(t *testing.T) {
	v := NewRidgeValuator(4)
	test := []Chunk{levelChunk(0, 1, 8), levelChunk(1, 2, 8)}
	if got := v.Utility(nil, test); got != UnfitUtility {
		t.Errorf("empty train: utility = %v, want %v", got, UnfitUtility)
	}
	if got := v.Utility([]Chunk{}, test); got != UnfitUtility {
		t.Errorf("empty train slice: utility = %v, want %v", got, UnfitUtility)
	}
}

func TestUtilityTooFewTrainRows(t *testing.T) {
	v := NewRidgeValuator(4)
	// A 3-sample chunk yields a single feature window, below the minimum of
	// two training rows.
	train := []Chunk{levelChunk(0, 1, 3)}
	test := []Chunk{levelChunk(1, 1, 8), levelChunk(2, 2, 8)}
	if got := v.Utility(train, test); got != UnfitUtility {
		t.Errorf("one-row train: utility = %v, want %v", got, UnfitUtility)
	}
}

func TestUtilityEmptyTest(t *testing.T) {
	v := NewRidgeValuator(4)
	train := []Chunk{levelChunk(0, 1, 8), levelChunk(1, 2, 8)}
	if got := v.Utility(train, nil); got != UnfitUtility {
		t.Errorf("empty test: utility = %v, want %v", got, UnfitUtility)
	}
	// A test chunk too short for a single window reduces to the same case.
	if got := v.Utility(train, []Chunk{levelChunk(2, 1, 1)}); got != UnfitUtility {
		t.Errorf("unwindowable test: utility = %v, want %v", got, UnfitUtility)
	}
}

func TestUtilityConstantTestTarget(t *testing.T) {
	v := NewRidgeValuator(4)
	train := []Chunk{levelChunk(0, 1, 8), levelChunk(1, 2, 8)}
	// Both test windows share the same level, so the held-out target is
	// constant and R² is undefined.
	test := []Chunk{levelChunk(2, 3, 8)}
	if got := v.Utility(train, test); got != UnfitUtility {
		t.Errorf("constant test target: utility = %v, want %v", got, UnfitUtility)
	}
}

func TestUtilityLearnableData(t *testing.T) {
	v := NewRidgeValuator(4)
	var train []Chunk
	for i := 1; i <= 6; i++ {
		train = append(train, levelChunk(i, float64(i), 8))
	}
	test := []Chunk{levelChunk(10, 2.5, 8), levelChunk(11, 4.5, 8)}

	got := v.Utility(train, test)
	if got == UnfitUtility {
		t.Fatal("learnable data scored the unfit sentinel")
	}
	if got <= 0 {
		t.Errorf("learnable data: utility = %v, want > 0", got)
	}
	if got > 1 {
		t.Errorf("utility = %v, want <= 1", got)
	}
}

func TestPredictGlucose(t *testing.T) {
	v := NewRidgeValuator(4)
	var train []Chunk
	for i := 1; i <= 6; i++ {
		train = append(train, levelChunk(i, float64(i), 8))
	}
	test := []Chunk{levelChunk(10, 2.5, 8), levelChunk(11, 4.5, 8)}

	actual, predicted, ok := v.PredictGlucose(train, test)
	if !ok {
		t.Fatal("fit failed on learnable data")
	}
	if len(actual) != len(predicted) || len(actual) != 4 {
		t.Fatalf("got %d actual and %d predicted values, want 4 each", len(actual), len(predicted))
	}
	// Predictions must track the target ordering.
	if !(predicted[0] < predicted[2]) {
		t.Errorf("predictions do not track targets: %v", predicted)
	}

	if _, _, ok := v.PredictGlucose(nil, test); ok {
		t.Error("empty train should not fit")
	}
	if _, _, ok := v.PredictGlucose(train, nil); ok {
		t.Error("empty test should not fit")
	}
}

func TestUtilityReadsChunksOnly(t *testing.T) {
	v := NewRidgeValuator(4)
	train := []Chunk{levelChunk(0, 1, 8), levelChunk(1, 2, 8)}
	test := []Chunk{levelChunk(2, 1.5, 8), levelChunk(3, 2.5, 8)}

	first := v.Utility(train, test)
	second := v.Utility(train, test)
	if first != second {
		t.Errorf("repeated evaluation differs: %v vs %v", first, second)
	}
}
