package model_selection

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// AxisKind tells how an Axis enumerates its points.
type AxisKind int

const (
	// Discrete axes list their values explicitly.
	Discrete AxisKind = iota
	// Linear axes are evenly spaced floats between Start and Stop inclusive.
	Linear
	// Log axes are 10^x for x evenly spaced between Start and Stop inclusive.
	Log
	// IntLinear axes are Linear points truncated to int, duplicates removed.
	IntLinear
)

func (k AxisKind) String() string {
	switch k {
	case Linear:
		return "linspace"
	case Log:
		return "logspace"
	case IntLinear:
		return "int_linspace"
	default:
		return "values"
	}
}

// Axis is one hyperparameter dimension of a search space.
type Axis struct {
	Name   string
	Kind   AxisKind
	Values []any
	Start  float64
	Stop   float64
	Num    int
}

// Values declares an axis with explicit values.
func Values(name string, vals ...any) Axis {
	return Axis{Name: name, Kind: Discrete, Values: vals}
}

// Linspace declares num evenly spaced floats over [start, stop].
func Linspace(name string, start, stop float64, num int) Axis {
	return Axis{Name: name, Kind: Linear, Start: start, Stop: stop, Num: num}
}

// Logspace declares num floats 10^x with x evenly spaced over [startExp, stopExp].
func Logspace(name string, startExp, stopExp float64, num int) Axis {
	return Axis{Name: name, Kind: Log, Start: startExp, Stop: stopExp, Num: num}
}

// IntLinspace declares evenly spaced integers over [start, stop].
func IntLinspace(name string, start, stop, num int) Axis {
	return Axis{Name: name, Kind: IntLinear, Start: float64(start), Stop: float64(stop), Num: num}
}

func linspace(start, stop float64, num int) []float64 {
	switch {
	case num <= 0:
		return nil
	case num == 1:
		return []float64{start}
	}
	out := make([]float64, num)
	step := (stop - start) / float64(num-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	out[num-1] = stop
	return out
}

// Points enumerates the axis.
func (a Axis) Points() []any {
	switch a.Kind {
	case Linear:
		pts := linspace(a.Start, a.Stop, a.Num)
		out := make([]any, len(pts))
		for i, v := range pts {
			out[i] = v
		}
		return out
	case Log:
		pts := linspace(a.Start, a.Stop, a.Num)
		out := make([]any, len(pts))
		for i, v := range pts {
			out[i] = math.Pow(10, v)
		}
		return out
	case IntLinear:
		var out []any
		last := math.MinInt
		for _, v := range linspace(a.Start, a.Stop, a.Num) {
			iv := int(v)
			if iv != last {
				out = append(out, iv)
				last = iv
			}
		}
		return out
	default:
		return append([]any(nil), a.Values...)
	}
}

// Size returns the number of points.
func (a Axis) Size() int { return len(a.Points()) }

// String describes the axis declaratively, e.g. "alpha=logspace(-6, 1, 8)".
func (a Axis) String() string {
	switch a.Kind {
	case Discrete:
		parts := make([]string, len(a.Values))
		for i, v := range a.Values {
			parts[i] = fmt.Sprint(v)
		}
		return fmt.Sprintf("%s={%s}", a.Name, strings.Join(parts, ", "))
	default:
		return fmt.Sprintf("%s=%s(%g, %g, %d)", a.Name, a.Kind, a.Start, a.Stop, a.Num)
	}
}

// ParamGrid is the cartesian product of its axes.
type ParamGrid []Axis

// Size returns the number of candidates without enumerating them.
func (g ParamGrid) Size() int {
	if len(g) == 0 {
		return 0
	}
	n := 1
	for _, a := range g {
		n *= a.Size()
	}
	return n
}

// Candidates enumerates the grid. The last axis varies fastest, so the
// order is stable and candidate indices can break ties.
func (g ParamGrid) Candidates() []Params {
	if len(g) == 0 {
		return nil
	}
	points := make([][]any, len(g))
	for i, a := range g {
		points[i] = a.Points()
		if len(points[i]) == 0 {
			return nil
		}
	}

	out := make([]Params, 0, g.Size())
	idx := make([]int, len(g))
	for {
		p := make(Params, len(g))
		for i, a := range g {
			p[a.Name] = points[i][idx[i]]
		}
		out = append(out, p)

		k := len(idx) - 1
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < len(points[k]) {
				break
			}
			idx[k] = 0
		}
		if k < 0 {
			return out
		}
	}
}

// Params is one point of a search space.
type Params map[string]any

// GetFloat returns a numeric parameter as float64, or def when absent.
func (p Params) GetFloat(name string, def float64) float64 {
	switch v := p[name].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	}
	return def
}

// GetInt returns an integer parameter, or def when absent.
func (p Params) GetInt(name string, def int) int {
	switch v := p[name].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return def
}

// GetString returns a string parameter, or def when absent.
func (p Params) GetString(name string, def string) string {
	if v, ok := p[name].(string); ok {
		return v
	}
	return def
}

// Clone returns a shallow copy.
func (p Params) Clone() Params {
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// String renders the parameters sorted by name.
func (p Params) String() string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, p[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}
