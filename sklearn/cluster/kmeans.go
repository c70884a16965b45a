package cluster

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/YuminosukeSato/autotrain/core/model"
	"github.com/YuminosukeSato/autotrain/core/parallel"
	"github.com/YuminosukeSato/autotrain/pkg/errors"
)

// assignThreshold を超える行数のときだけ割り当てを並列化する
const assignThreshold = 512

// KMeans はLloydアルゴリズムによるK-meansクラスタリング
// scikit-learnのKMeans(algorithm="lloyd")と互換性を持つ
type KMeans struct {
	model.BaseEstimator

	// ハイパーパラメータ
	nClusters   int     // クラスタ数
	init        string  // 初期化方法: "k-means++", "random"
	nInit       int     // 異なる初期化での実行回数
	maxIter     int     // 1回の実行での最大イテレーション数
	tol         float64 // 中心移動量の許容誤差（特徴量分散の平均に対する相対値）
	randomState uint64  // 乱数シード

	// 学習パラメータ
	clusterCenters_ [][]float64 // クラスタ中心（nClusters x nFeatures）
	labels_         []int       // 各サンプルのクラスタラベル
	inertia_        float64     // クラスタ内平方和誤差
	nIter_          int         // 最良の実行で使われたイテレーション数
	nFeatures_      int

	mu sync.RWMutex
}

// KMeansOption はKMeansの設定オプション
type KMeansOption func(*KMeans)

// WithKMeansNClusters はクラスタ数を設定
func WithKMeansNClusters(n int) KMeansOption {
	return func(k *KMeans) { k.nClusters = n }
}

// WithKMeansInit は初期化方法を設定
func WithKMeansInit(init string) KMeansOption {
	return func(k *KMeans) { k.init = init }
}

// WithKMeansNInit は初期化の試行回数を設定
func WithKMeansNInit(n int) KMeansOption {
	return func(k *KMeans) { k.nInit = n }
}

// WithKMeansMaxIter は最大イテレーション数を設定
func WithKMeansMaxIter(n int) KMeansOption {
	return func(k *KMeans) { k.maxIter = n }
}

// WithKMeansTol は収束判定の許容誤差を設定
func WithKMeansTol(tol float64) KMeansOption {
	return func(k *KMeans) { k.tol = tol }
}

// WithKMeansRandomState は乱数シードを設定
func WithKMeansRandomState(seed uint64) KMeansOption {
	return func(k *KMeans) { k.randomState = seed }
}

// NewKMeans は新しいKMeansを作成
func NewKMeans(options ...KMeansOption) *KMeans {
	k := &KMeans{
		nClusters: 8,
		init:      "k-means++",
		nInit:     10,
		maxIter:   300,
		tol:       1e-4,
	}
	for _, opt := range options {
		opt(k)
	}
	return k
}

func (k *KMeans) validate() error {
	if k.nClusters < 1 {
		return errors.NewValidationError("n_clusters", "must be at least 1", k.nClusters)
	}
	if k.init != "k-means++" && k.init != "random" {
		return errors.NewValidationError("init", "must be 'k-means++' or 'random'", k.init)
	}
	if k.nInit < 1 {
		return errors.NewValidationError("n_init", "must be at least 1", k.nInit)
	}
	if k.maxIter < 1 {
		return errors.NewValidationError("max_iter", "must be at least 1", k.maxIter)
	}
	if k.tol < 0 {
		return errors.NewValidationError("tol", "must be non-negative", k.tol)
	}
	return nil
}

// Fit はモデルを学習する。yは無視される
func (k *KMeans) Fit(X, _ mat.Matrix) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if err := k.validate(); err != nil {
		return err
	}
	rows, cols := X.Dims()
	if rows == 0 || cols == 0 {
		return errors.NewModelError("KMeans.Fit", "empty data", errors.ErrEmptyData)
	}
	if rows < k.nClusters {
		return errors.NewInsufficientDataError("KMeans.Fit", k.nClusters, rows,
			fmt.Sprintf("n_samples=%d should be >= n_clusters=%d", rows, k.nClusters))
	}

	data := make([][]float64, rows)
	for i := range data {
		data[i] = mat.Row(nil, i, X)
	}
	if err := errors.CheckMatrix("KMeans.Fit", X); err != nil {
		return err
	}
	threshold := k.tol * meanVariance(data)

	rng := rand.New(rand.NewPCG(k.randomState, k.randomState))

	// 複数回の初期化で最良の結果を選択
	bestInertia := math.Inf(1)
	var bestCenters [][]float64
	var bestLabels []int
	bestIter := 0
	converged := false
	for run := 0; run < k.nInit; run++ {
		centers, labels, inertia, nIter, ok := k.fitSingleRun(data, threshold, rng)
		if inertia < bestInertia {
			bestInertia = inertia
			bestCenters = centers
			bestLabels = labels
			bestIter = nIter
			converged = ok
		}
	}

	if !converged {
		errors.Warn(errors.NewConvergenceWarning("KMeans", bestIter,
			"Lloyd iterations did not converge; consider increasing max_iter"))
	}

	k.clusterCenters_ = bestCenters
	k.labels_ = bestLabels
	k.inertia_ = bestInertia
	k.nIter_ = bestIter
	k.nFeatures_ = cols
	k.SetFitted()
	return nil
}

// fitSingleRun は1回のK-meansを実行
func (k *KMeans) fitSingleRun(data [][]float64, threshold float64, rng *rand.Rand) ([][]float64, []int, float64, int, bool) {
	centers := k.initializeCenters(data, rng)
	labels := make([]int, len(data))
	dist := make([]float64, len(data))

	converged := false
	iter := 0
	for iter < k.maxIter {
		iter++
		assign(data, centers, labels, dist)

		newCenters := computeCenters(data, labels, len(centers))
		relocateEmpty(data, newCenters, labels, dist)

		// 中心移動量の二乗和で収束判定
		shift := 0.0
		for c := range centers {
			d := floats.Distance(centers[c], newCenters[c], 2)
			shift += d * d
		}
		centers = newCenters
		if shift <= threshold {
			converged = true
			break
		}
	}

	// 最終中心に対してラベルと慣性を揃える
	assign(data, centers, labels, dist)
	return centers, labels, floats.Sum(dist), iter, converged
}

// initializeCenters はクラスタ中心を初期化
func (k *KMeans) initializeCenters(data [][]float64, rng *rand.Rand) [][]float64 {
	if k.init == "random" {
		centers := make([][]float64, k.nClusters)
		for c, idx := range rng.Perm(len(data))[:k.nClusters] {
			centers[c] = append([]float64(nil), data[idx]...)
		}
		return centers
	}
	return initKMeansPlusPlus(data, k.nClusters, rng)
}

// initKMeansPlusPlus はk-means++初期化を実行
func initKMeansPlusPlus(data [][]float64, nClusters int, rng *rand.Rand) [][]float64 {
	rows := len(data)
	centers := make([][]float64, 0, nClusters)
	centers = append(centers, append([]float64(nil), data[rng.IntN(rows)]...))

	// 最近傍中心までの距離の二乗
	minDist := make([]float64, rows)
	for i := range data {
		minDist[i] = sqDistance(data[i], centers[0])
	}

	for len(centers) < nClusters {
		total := floats.Sum(minDist)
		selected := 0
		if total > 0 {
			target := rng.Float64() * total
			cum := 0.0
			for i, d := range minDist {
				cum += d
				if cum >= target {
					selected = i
					break
				}
			}
		} else {
			// 全点が既存の中心と一致する場合は一様に選ぶ
			selected = rng.IntN(rows)
		}

		center := append([]float64(nil), data[selected]...)
		centers = append(centers, center)
		for i := range data {
			if d := sqDistance(data[i], center); d < minDist[i] {
				minDist[i] = d
			}
		}
	}
	return centers
}

// assign は各サンプルを最近傍中心に割り当て、その距離の二乗を dist に書く
func assign(data, centers [][]float64, labels []int, dist []float64) {
	parallel.ParallelizeWithThreshold(len(data), assignThreshold, func(start, end int) {
		for i := start; i < end; i++ {
			labels[i], dist[i] = findNearestCluster(data[i], centers)
		}
	})
}

func computeCenters(data [][]float64, labels []int, nClusters int) [][]float64 {
	cols := len(data[0])
	centers := make([][]float64, nClusters)
	counts := make([]int, nClusters)
	for c := range centers {
		centers[c] = make([]float64, cols)
	}
	for i, row := range data {
		floats.Add(centers[labels[i]], row)
		counts[labels[i]]++
	}
	for c := range centers {
		if counts[c] > 0 {
			floats.Scale(1/float64(counts[c]), centers[c])
		} else {
			centers[c] = nil
		}
	}
	return centers
}

// relocateEmpty は空クラスタの中心を、現在の中心から最も遠いサンプルへ移す
func relocateEmpty(data, centers [][]float64, labels []int, dist []float64) {
	taken := make(map[int]bool)
	for c := range centers {
		if centers[c] != nil {
			continue
		}
		far, farDist := -1, -1.0
		for i, d := range dist {
			if !taken[i] && d > farDist {
				far, farDist = i, d
			}
		}
		taken[far] = true
		centers[c] = append([]float64(nil), data[far]...)
		labels[far] = c
		dist[far] = 0
	}
}

// findNearestCluster は最近傍クラスタとその距離の二乗を返す
func findNearestCluster(sample []float64, centers [][]float64) (int, float64) {
	best, bestDist := 0, math.Inf(1)
	for c, center := range centers {
		if d := sqDistance(sample, center); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best, bestDist
}

func sqDistance(a, b []float64) float64 {
	d := floats.Distance(a, b, 2)
	return d * d
}

// meanVariance は各特徴量の母分散の平均
func meanVariance(data [][]float64) float64 {
	cols := len(data[0])
	col := make([]float64, len(data))
	sum := 0.0
	for j := 0; j < cols; j++ {
		for i, row := range data {
			col[i] = row[j]
		}
		_, std := stat.PopMeanStdDev(col, nil)
		sum += std * std
	}
	return sum / float64(cols)
}

// Predict は各サンプルの最近傍クラスタ番号を n×1 で返す
func (k *KMeans) Predict(X mat.Matrix) (mat.Matrix, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if err := k.CheckFitted("KMeans", "Predict"); err != nil {
		return nil, err
	}
	rows, cols := X.Dims()
	if cols != k.nFeatures_ {
		return nil, errors.NewDimensionError("KMeans.Predict", k.nFeatures_, cols, 1)
	}
	if rows == 0 {
		return nil, errors.NewModelError("KMeans.Predict", "empty data", errors.ErrEmptyData)
	}

	out := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		c, _ := findNearestCluster(mat.Row(nil, i, X), k.clusterCenters_)
		out.SetVec(i, float64(c))
	}
	return out, nil
}

// Score は X の慣性の符号を反転した値を返す（大きいほど良い）
func (k *KMeans) Score(X, _ mat.Matrix) (float64, error) {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if err := k.CheckFitted("KMeans", "Score"); err != nil {
		return 0, err
	}
	rows, cols := X.Dims()
	if cols != k.nFeatures_ {
		return 0, errors.NewDimensionError("KMeans.Score", k.nFeatures_, cols, 1)
	}
	inertia := 0.0
	for i := 0; i < rows; i++ {
		_, d := findNearestCluster(mat.Row(nil, i, X), k.clusterCenters_)
		inertia += d
	}
	return -inertia, nil
}

// ClusterCenters は学習されたクラスタ中心を nClusters×nFeatures で返す
func (k *KMeans) ClusterCenters() *mat.Dense {
	k.mu.RLock()
	defer k.mu.RUnlock()

	if k.clusterCenters_ == nil {
		return nil
	}
	out := mat.NewDense(len(k.clusterCenters_), k.nFeatures_, nil)
	for c, center := range k.clusterCenters_ {
		out.SetRow(c, center)
	}
	return out
}

// Labels は学習データのクラスタラベルを返す
func (k *KMeans) Labels() []int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.labels_ == nil {
		return nil
	}
	return append([]int(nil), k.labels_...)
}

// Inertia は慣性（クラスタ内平方和誤差）を返す
func (k *KMeans) Inertia() float64 {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.inertia_
}

// NIter は最良の実行のイテレーション数を返す
func (k *KMeans) NIter() int {
	k.mu.RLock()
	defer k.mu.RUnlock()
	return k.nIter_
}

// NClusters は設定されたクラスタ数を返す
func (k *KMeans) NClusters() int {
	return k.nClusters
}

// GetParams はハイパーパラメータを返す
func (k *KMeans) GetParams() map[string]interface{} {
	return map[string]interface{}{
		"n_clusters":   k.nClusters,
		"init":         k.init,
		"n_init":       k.nInit,
		"max_iter":     k.maxIter,
		"tol":          k.tol,
		"random_state": k.randomState,
	}
}

func (k *KMeans) String() string {
	return fmt.Sprintf("KMeans(n_clusters=%d, init=%s, n_init=%d, max_iter=%d, tol=%g)",
		k.nClusters, k.init, k.nInit, k.maxIter, k.tol)
}
