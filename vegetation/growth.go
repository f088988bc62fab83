/*
Copyright © 2024 the InSOC authors.
This file is part of InSOC.

InSOC is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

InSOC is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with InSOC.  If not, see <http://www.gnu.org/licenses/>.*/

package vegetation

import (
	"fmt"
	"log"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// An Allometric converts a stem diameter measurement in cm to the
// above-ground biomass of a single tree in kg C.
type Allometric func(diameter float64, params TreeParams) float64

// logAllometric evaluates a polynomial in ln(diameter), highest-order
// coefficient first, and returns its exponential.
func logAllometric(coeffs []float64, d float64) float64 {
	if math.Abs(d) < 1e-8 {
		return 0
	}
	ld := math.Log(d)
	var v float64
	for _, c := range coeffs {
		v = v*ld + c
	}
	return math.Exp(v)
}

// Ryan is the log-allometric of Ryan et al. (2010) for miombo woodland
// trees. It returns kg C directly.
func Ryan(d float64, _ TreeParams) float64 {
	return logAllometric([]float64{2.601, -3.629}, d)
}

// ChaveDry is the Chave et al. (2005) allometric for tropical stands
// receiving under 1500 mm of rain per year.
func ChaveDry(d float64, p TreeParams) float64 {
	return logAllometric([]float64{-0.0281, 0.207, 1.784, -0.667}, d) * p.Density * p.Carbon
}

// ChaveMoist is the Chave et al. (2005) allometric for tropical stands
// receiving 1500 to 3000 mm of rain per year.
func ChaveMoist(d float64, p TreeParams) float64 {
	return logAllometric([]float64{-0.0281, 0.207, 2.148, -1.499}, d) * p.Density * p.Carbon
}

// ChaveWet is the Chave et al. (2005) allometric for tropical stands
// receiving over 3500 mm of rain per year.
func ChaveWet(d float64, p TreeParams) float64 {
	return logAllometric([]float64{-0.0281, 0.207, 1.98, -1.239}, d) * p.Density * p.Carbon
}

// CurveKind identifies one of the curve families fit to tree biomass
// measurements.
type CurveKind int

const (
	// Linear is a*x.
	Linear CurveKind = iota
	// Exponential is (1+a)^x - 1.
	Exponential
	// Hyperbolic is a*(1-exp(-b*x)).
	Hyperbolic
	// Logistic is a/(1+exp(-b*(x-c))).
	Logistic
)

func (k CurveKind) String() string {
	switch k {
	case Linear:
		return "linear"
	case Exponential:
		return "exponential"
	case Hyperbolic:
		return "hyperbolic"
	case Logistic:
		return "logistic"
	default:
		return fmt.Sprintf("CurveKind(%d)", int(k))
	}
}

// zeroBiomass is the threshold below which a standing biomass is
// treated as zero when inverting a growth curve.
const zeroBiomass = 1e-8

type curveFamily struct {
	value      func(p []float64, x float64) float64
	derivative func(p []float64, x float64) float64
	inverse    func(p []float64, y float64) float64
	start      []float64
}

var curveOrder = []CurveKind{Linear, Exponential, Hyperbolic, Logistic}

var curves = map[CurveKind]curveFamily{
	Linear: {
		value:      func(p []float64, x float64) float64 { return p[0] * x },
		derivative: func(p []float64, _ float64) float64 { return p[0] },
		inverse: func(p []float64, y float64) float64 {
			if math.Abs(y) < zeroBiomass {
				return 0
			}
			return y / p[0]
		},
		start: []float64{1},
	},
	Exponential: {
		value: func(p []float64, x float64) float64 { return math.Pow(1+p[0], x) - 1 },
		derivative: func(p []float64, x float64) float64 {
			return math.Pow(1+p[0], x) * math.Log(1+p[0])
		},
		inverse: func(p []float64, y float64) float64 {
			if math.Abs(y) < zeroBiomass {
				return 0
			}
			return math.Log(y+1) / math.Log(1+p[0])
		},
		start: []float64{20},
	},
	Hyperbolic: {
		value: func(p []float64, x float64) float64 { return p[0] * (1 - math.Exp(-p[1]*x)) },
		derivative: func(p []float64, x float64) float64 {
			return p[0] * p[1] * math.Exp(-p[1]*x)
		},
		inverse: func(p []float64, y float64) float64 {
			if math.Abs(y) < zeroBiomass {
				return 0
			}
			if y >= p[0] {
				return math.Inf(1)
			}
			return (math.Log(p[0]) - math.Log(p[0]-y)) / p[1]
		},
		start: []float64{200, 0.1},
	},
	Logistic: {
		value: func(p []float64, x float64) float64 {
			return p[0] / (1 + math.Exp(-p[1]*(x-p[2])))
		},
		derivative: func(p []float64, x float64) float64 {
			e := math.Exp(-p[1] * (x - p[2]))
			return p[0] * p[1] * e / ((1 + e) * (1 + e))
		},
		inverse: func(p []float64, y float64) float64 {
			if math.Abs(y) < zeroBiomass {
				return 0
			}
			if y >= p[0] {
				return math.Inf(1)
			}
			return p[2] + (math.Log(y)-math.Log(p[0]-y))/p[1]
		},
		start: []float64{100, 0, 0},
	},
}

// A GrowthFit holds the least-squares fit of one curve family to tree
// biomass measurements.
type GrowthFit struct {
	Params []float64
	MSE    float64
}

// TreeGrowth holds per-tree biomass measurements in kg C against tree
// age in years, and the growth curves fit to them.
type TreeGrowth struct {
	Age     []float64
	Biomass []float64

	// Best names the curve family with the smallest mean-square
	// error; Fits holds the fit for each family that converged.
	Best CurveKind
	Fits map[CurveKind]GrowthFit
}

// NewTreeGrowth fits the four curve families to the given per-tree
// biomass measurements and selects the one with the smallest
// mean-square error.
func NewTreeGrowth(age, biomass []float64) (*TreeGrowth, error) {
	if len(age) != len(biomass) {
		return nil, fmt.Errorf("vegetation: growth series length mismatch: %d ages but %d biomass values", len(age), len(biomass))
	}
	if len(age) == 0 {
		return nil, fmt.Errorf("vegetation: growth series is empty")
	}
	g := &TreeGrowth{Age: age, Biomass: biomass, Fits: make(map[CurveKind]GrowthFit)}
	best := math.Inf(1)
	found := false
	for _, kind := range curveOrder {
		fit, err := fitCurve(curves[kind], age, biomass)
		if err != nil {
			log.Printf("vegetation: fitting %v growth curve: %v", kind, err)
			continue
		}
		g.Fits[kind] = fit
		if fit.MSE < best {
			best = fit.MSE
			g.Best = kind
			found = true
		}
	}
	if !found {
		return nil, fmt.Errorf("vegetation: no growth curve could be fit to the measurements")
	}
	return g, nil
}

// NewTreeGrowthFromDiameters converts diameter measurements in cm to
// per-tree biomass through the given allometric before fitting.
func NewTreeGrowthFromDiameters(age, diameter []float64, allom Allometric, params TreeParams) (*TreeGrowth, error) {
	if len(age) != len(diameter) {
		return nil, fmt.Errorf("vegetation: growth series length mismatch: %d ages but %d diameters", len(age), len(diameter))
	}
	biomass := make([]float64, len(diameter))
	for i, d := range diameter {
		if d < 0 {
			return nil, fmt.Errorf("vegetation: tree diameter measurement %d is negative (%g cm)", i, d)
		}
		biomass[i] = allom(d, params)
	}
	return NewTreeGrowth(age, biomass)
}

func fitCurve(fam curveFamily, age, biomass []float64) (GrowthFit, error) {
	obj := func(p []float64) float64 {
		var sum float64
		for i, x := range age {
			d := fam.value(p, x) - biomass[i]
			sum += d * d
		}
		mse := sum / float64(len(age))
		if math.IsNaN(mse) {
			return math.Inf(1)
		}
		return mse
	}
	start := make([]float64, len(fam.start))
	copy(start, fam.start)
	result, err := optimize.Minimize(optimize.Problem{Func: obj}, start, nil, &optimize.NelderMead{})
	if err != nil {
		return GrowthFit{}, err
	}
	if math.IsNaN(result.F) || math.IsInf(result.F, 0) {
		return GrowthFit{}, fmt.Errorf("fit did not converge")
	}
	return GrowthFit{Params: result.X, MSE: result.F}, nil
}

// At returns the fitted per-tree biomass in kg C at the given age.
func (g *TreeGrowth) At(age float64) float64 {
	fit := g.Fits[g.Best]
	return curves[g.Best].value(fit.Params, age)
}

// InitialBiomass returns the fitted per-tree biomass at the age of the
// first measurement.
func (g *TreeGrowth) InitialBiomass() float64 { return g.At(g.Age[0]) }

// NPP returns the growth rate in kg C per tree per year of a tree that
// has reached the given above-ground biomass. The rate is the
// derivative of the best-fit curve, evaluated at the age found by
// inverting the curve; a tree at or beyond a curve's asymptote no
// longer grows.
func (g *TreeGrowth) NPP(biomass float64) float64 {
	fit := g.Fits[g.Best]
	fam := curves[g.Best]
	return fam.derivative(fit.Params, fam.inverse(fit.Params, biomass))
}
