package training

import (
	"fmt"

	ms "github.com/YuminosukeSato/autotrain/sklearn/model_selection"
)

// SearchSpace declares what a tier searches. Base holds the parameters every
// candidate shares; Grid holds the axes varied on top of it.
type SearchSpace struct {
	Tier     Tier
	Strategy string
	Base     ms.Params
	Grid     ms.ParamGrid
}

// Candidates returns Base merged with every grid point, or Base alone when
// the grid is empty.
func (s SearchSpace) Candidates() []ms.Params {
	points := s.Grid.Candidates()
	if len(points) == 0 {
		return []ms.Params{s.Base.Clone()}
	}
	out := make([]ms.Params, len(points))
	for i, p := range points {
		c := s.Base.Clone()
		for k, v := range p {
			c[k] = v
		}
		out[i] = c
	}
	return out
}

// Size is the number of candidates.
func (s SearchSpace) Size() int { return len(s.Candidates()) }

func (s SearchSpace) String() string {
	return fmt.Sprintf("%s/%s base=%s grid=%v", s.Tier, s.Strategy, s.Base, s.Grid)
}

// RegressionSpace returns the SGDRegressor search space of a tier.
func RegressionSpace(t Tier) (SearchSpace, error) {
	switch t {
	case TierFast:
		return SearchSpace{Tier: t, Strategy: StrategyFixed, Base: ms.Params{
			"learning_rate": "constant",
			"eta0":          1e-3,
			"max_iter":      1000,
			"tol":           1e-4,
		}}, nil
	case TierBalance:
		return SearchSpace{Tier: t, Strategy: StrategyGridCV,
			Base: ms.Params{"penalty": "elasticnet", "learning_rate": "invscaling", "max_iter": 1000},
			Grid: ms.ParamGrid{
				ms.Values("alpha", 1e-4, 1e-3, 1e-2, 1e-1),
				ms.Values("l1_ratio", 0.15, 0.5, 0.85),
				ms.Values("eta0", 1e-3, 1e-2),
				ms.Values("tol", 1e-4),
			}}, nil
	case TierHighPrecision:
		return SearchSpace{Tier: t, Strategy: StrategyGridCV,
			Base: ms.Params{"penalty": "elasticnet", "learning_rate": "invscaling", "max_iter": 2000},
			Grid: ms.ParamGrid{
				ms.Logspace("alpha", -6, 1, 8),
				ms.Linspace("l1_ratio", 0.1, 0.9, 5),
				ms.Logspace("eta0", -4, -1, 4),
				ms.Values("tol", 1e-4, 1e-5),
			}}, nil
	}
	_, err := ParseTier(string(t))
	return SearchSpace{}, err
}

// ClassifierSpace returns the LinearSVC search space of a tier.
func ClassifierSpace(t Tier) (SearchSpace, error) {
	categorical := ms.ParamGrid{
		ms.Values("penalty", "l1", "l2"),
		ms.Values("loss", "hinge", "squared_hinge"),
	}
	switch t {
	case TierFast:
		return SearchSpace{Tier: t, Strategy: StrategyFixed, Base: ms.Params{
			"C":        1.0,
			"penalty":  "l2",
			"loss":     "hinge",
			"max_iter": 500,
			"tol":      1e-3,
		}}, nil
	case TierBalance:
		grid := append(ms.ParamGrid{ms.Values("C", 0.1, 1.0, 10.0)}, categorical...)
		grid = append(grid, ms.Values("max_iter", 1000), ms.Values("tol", 1e-3, 1e-4))
		return SearchSpace{Tier: t, Strategy: StrategyGridCV, Base: ms.Params{}, Grid: grid}, nil
	case TierHighPrecision:
		grid := append(ms.ParamGrid{ms.Linspace("C", 0.1, 10, 50)}, categorical...)
		grid = append(grid, ms.Values("max_iter", 2000), ms.Values("tol", 1e-4, 1e-5))
		return SearchSpace{Tier: t, Strategy: StrategyGridCV, Base: ms.Params{}, Grid: grid}, nil
	}
	_, err := ParseTier(string(t))
	return SearchSpace{}, err
}

// ClusteringSpace returns the KMeans search space of a tier.
func ClusteringSpace(t Tier) (SearchSpace, error) {
	switch t {
	case TierFast:
		return SearchSpace{Tier: t, Strategy: StrategyEnumerate,
			Base: ms.Params{"n_init": 10, "init": "k-means++", "max_iter": 300, "tol": 1e-4},
			Grid: ms.ParamGrid{ms.Values("n_clusters", 3, 5, 7, 9, 11)},
		}, nil
	case TierBalance:
		return SearchSpace{Tier: t, Strategy: StrategyGridCV, Base: ms.Params{},
			Grid: ms.ParamGrid{
				ms.IntLinspace("n_clusters", 1, 20, 20),
				ms.Values("init", "k-means++", "random"),
				ms.Values("n_init", 5, 10, 20),
				ms.Values("max_iter", 100, 300),
				ms.Values("tol", 1e-4),
			}}, nil
	case TierHighPrecision:
		return SearchSpace{Tier: t, Strategy: StrategyGridCV, Base: ms.Params{},
			Grid: ms.ParamGrid{
				ms.IntLinspace("n_clusters", 1, 50, 25),
				ms.Values("init", "k-means++", "random"),
				ms.Values("n_init", 5, 10, 20, 30, 50),
				ms.Values("max_iter", 100, 300, 500),
				ms.Values("tol", 1e-5, 1e-6),
			}}, nil
	}
	_, err := ParseTier(string(t))
	return SearchSpace{}, err
}
