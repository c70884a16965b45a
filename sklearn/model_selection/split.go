// Package model_selection provides seeded data splitting, cross-validation
// splitters, declarative hyperparameter grids and a parallel grid search.
package model_selection

import (
	"math"
	"math/rand/v2"
	"sort"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

// newRand returns the PCG source every splitter uses. Global random state
// is never touched, so the same seed always yields the same rows.
func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// testCount is ceil(testSize * n), matching scikit-learn's float test_size.
func testCount(n int, testSize float64) int {
	return int(math.Ceil(testSize * float64(n)))
}

// TrainTestSplit shuffles 0..n-1 with a seeded source and returns the
// train and test index sets. Both sets must end up non-empty.
func TrainTestSplit(n int, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	nTest := testCount(n, testSize)
	if nTest < 1 || n-nTest < 1 {
		return nil, nil, errors.NewInsufficientDataError("TrainTestSplit", 2, n,
			"both partitions need at least one row")
	}

	perm := newRand(seed).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

// StratifiedTrainTestSplit splits row indices so that each class keeps its
// share of the data in both partitions. Every class needs at least two
// members. Per-class test counts are allocated by largest remainder with
// ties going to the smaller label.
func StratifiedTrainTestSplit(y []float64, testSize float64, seed uint64) (train, test []int, err error) {
	if testSize <= 0 || testSize >= 1 {
		return nil, nil, errors.NewValidationError("test_size", "must be in (0, 1)", testSize)
	}
	n := len(y)
	classes, members := groupByClass(y)
	for i, c := range classes {
		if len(members[i]) < 2 {
			return nil, nil, errors.NewInsufficientDataError("StratifiedTrainTestSplit", 2, len(members[i]),
				"least populated class "+formatLabel(c)+" has too few members")
		}
	}

	nTest := testCount(n, testSize)
	if nTest < len(classes) || n-nTest < len(classes) {
		return nil, nil, errors.NewInsufficientDataError("StratifiedTrainTestSplit", len(classes), min(nTest, n-nTest),
			"each partition needs one row per class")
	}

	alloc := largestRemainder(members, n, nTest)
	r := newRand(seed)
	for i, idx := range members {
		shuffled := append([]int(nil), idx...)
		r.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })
		test = append(test, shuffled[:alloc[i]]...)
		train = append(train, shuffled[alloc[i]:]...)
	}
	r.Shuffle(len(train), func(a, b int) { train[a], train[b] = train[b], train[a] })
	r.Shuffle(len(test), func(a, b int) { test[a], test[b] = test[b], test[a] })
	return train, test, nil
}

// largestRemainder divides total test rows between classes in proportion to
// their size. Every class keeps at least one row on each side.
func largestRemainder(members [][]int, n, total int) []int {
	alloc := make([]int, len(members))
	type rem struct {
		class int
		frac  float64
	}
	rems := make([]rem, len(members))
	assigned := 0
	for i, m := range members {
		exact := float64(total) * float64(len(m)) / float64(n)
		alloc[i] = int(math.Floor(exact))
		rems[i] = rem{class: i, frac: exact - float64(alloc[i])}
		assigned += alloc[i]
	}
	sort.SliceStable(rems, func(a, b int) bool { return rems[a].frac > rems[b].frac })
	for k := 0; assigned < total && k < len(rems); k++ {
		alloc[rems[k].class]++
		assigned++
	}
	for i, m := range members {
		alloc[i] = max(1, min(alloc[i], len(m)-1))
	}
	return alloc
}

// groupByClass returns the sorted distinct labels and the row indices of each.
func groupByClass(y []float64) ([]float64, [][]int) {
	byLabel := make(map[float64][]int)
	for i, v := range y {
		byLabel[v] = append(byLabel[v], i)
	}
	classes := make([]float64, 0, len(byLabel))
	for c := range byLabel {
		classes = append(classes, c)
	}
	sort.Float64s(classes)
	members := make([][]int, len(classes))
	for i, c := range classes {
		members[i] = byLabel[c]
	}
	return classes, members
}

// CVFold is one train/test partition produced by a Splitter.
type CVFold struct {
	TrainIndices []int
	TestIndices  []int
}

// Splitter produces cross-validation folds. y may be nil for splitters
// that ignore labels.
type Splitter interface {
	Split(X mat.Matrix, y mat.Matrix) ([]CVFold, error)
	GetNSplits() int
}

// KFold implements k-fold cross-validation.
type KFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewKFold creates a k-fold splitter. nSplits < 2 falls back to 5.
func NewKFold(nSplits int, shuffle bool, randomSeed uint64) *KFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &KFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits returns the number of folds.
func (kf *KFold) GetNSplits() int { return kf.NSplits }

// Split assigns contiguous blocks of the (optionally shuffled) indices to
// each fold; the first n%k folds get one extra row.
func (kf *KFold) Split(X, _ mat.Matrix) ([]CVFold, error) {
	n, _ := X.Dims()
	if n < kf.NSplits {
		return nil, errors.NewInsufficientDataError("KFold.Split", kf.NSplits, n, "one row per fold")
	}

	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	if kf.Shuffle {
		newRand(kf.RandomSeed).Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
	}

	folds := make([]CVFold, kf.NSplits)
	foldSize, remainder := n/kf.NSplits, n%kf.NSplits
	start := 0
	for i := range folds {
		size := foldSize
		if i < remainder {
			size++
		}
		end := start + size
		folds[i] = CVFold{
			TestIndices:  append([]int(nil), indices[start:end]...),
			TrainIndices: append(append([]int(nil), indices[:start]...), indices[end:]...),
		}
		start = end
	}
	return folds, nil
}

// StratifiedKFold distributes each class evenly over the folds. Classes are
// visited in sorted label order so fold membership is deterministic.
type StratifiedKFold struct {
	NSplits    int
	Shuffle    bool
	RandomSeed uint64
}

// NewStratifiedKFold creates a stratified k-fold splitter.
func NewStratifiedKFold(nSplits int, shuffle bool, randomSeed uint64) *StratifiedKFold {
	if nSplits < 2 {
		nSplits = 5
	}
	return &StratifiedKFold{NSplits: nSplits, Shuffle: shuffle, RandomSeed: randomSeed}
}

// GetNSplits returns the number of folds.
func (skf *StratifiedKFold) GetNSplits() int { return skf.NSplits }

// Split requires labels. The most populated class must have at least
// NSplits members so that no test fold is empty.
func (skf *StratifiedKFold) Split(X, y mat.Matrix) ([]CVFold, error) {
	if y == nil {
		return nil, errors.NewValueError("StratifiedKFold.Split", "labels are required")
	}
	n, _ := X.Dims()
	labels := columnValues(y)
	if len(labels) != n {
		return nil, errors.NewDimensionError("StratifiedKFold.Split", n, len(labels), 0)
	}

	_, members := groupByClass(labels)
	largest := 0
	for _, m := range members {
		largest = max(largest, len(m))
	}
	if largest < skf.NSplits {
		return nil, errors.NewInsufficientDataError("StratifiedKFold.Split", skf.NSplits, largest,
			"members in the largest class")
	}

	var r *rand.Rand
	if skf.Shuffle {
		r = newRand(skf.RandomSeed)
	}

	inTest := make([][]bool, skf.NSplits)
	folds := make([]CVFold, skf.NSplits)
	for i := range inTest {
		inTest[i] = make([]bool, n)
	}
	// 各クラスを fold に順番に割り当てる。余りは前の fold から埋める
	for _, idx := range members {
		idx = append([]int(nil), idx...)
		if r != nil {
			r.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })
		}
		size, remainder := len(idx)/skf.NSplits, len(idx)%skf.NSplits
		pos := 0
		for f := 0; f < skf.NSplits; f++ {
			take := size
			if f < remainder {
				take++
			}
			for _, i := range idx[pos : pos+take] {
				folds[f].TestIndices = append(folds[f].TestIndices, i)
				inTest[f][i] = true
			}
			pos += take
		}
	}
	for f := range folds {
		for i := 0; i < n; i++ {
			if !inTest[f][i] {
				folds[f].TrainIndices = append(folds[f].TrainIndices, i)
			}
		}
	}
	return folds, nil
}

// SelectRows copies the given rows of X into a new matrix, in index order.
func SelectRows(X mat.Matrix, indices []int) *mat.Dense {
	if len(indices) == 0 {
		return &mat.Dense{}
	}
	_, c := X.Dims()
	out := mat.NewDense(len(indices), c, nil)
	row := make([]float64, c)
	for i, idx := range indices {
		mat.Row(row, idx, X)
		out.SetRow(i, row)
	}
	return out
}

// SelectTargets returns the first column of y at the given rows. A nil y
// stays nil so unsupervised estimators still receive an untyped nil.
func SelectTargets(y mat.Matrix, indices []int) mat.Matrix {
	if y == nil {
		return nil
	}
	if len(indices) == 0 {
		return &mat.VecDense{}
	}
	out := mat.NewVecDense(len(indices), nil)
	for i, idx := range indices {
		out.SetVec(i, y.At(idx, 0))
	}
	return out
}

func formatLabel(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// columnValues flattens the first column of y.
func columnValues(y mat.Matrix) []float64 {
	r, _ := y.Dims()
	out := make([]float64, r)
	for i := range out {
		out[i] = y.At(i, 0)
	}
	return out
}
