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
	"math"
	"testing"
)

func absDifferent(a, b, tolerance float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return math.Abs(a-b) > tolerance
}

func relDifferent(a, b, tolerance float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return true
	}
	return 2*math.Abs(a-b)/math.Abs(a+b) > tolerance
}

func ages(n int) []float64 {
	a := make([]float64, n)
	for i := range a {
		a[i] = float64(i + 1)
	}
	return a
}

func TestLinearGrowthFit(t *testing.T) {
	age := ages(10)
	biomass := make([]float64, len(age))
	for i, x := range age {
		biomass[i] = 2 * x
	}
	g, err := NewTreeGrowth(age, biomass)
	if err != nil {
		t.Fatal(err)
	}
	if g.Best != Linear {
		t.Fatalf("best fit is %v, want linear", g.Best)
	}
	fit := g.Fits[Linear]
	if absDifferent(fit.Params[0], 2, 1e-4) {
		t.Errorf("fitted slope = %g, want 2", fit.Params[0])
	}
	if fit.MSE > 1e-6 {
		t.Errorf("linear fit MSE = %g, want ~0", fit.MSE)
	}
	// The growth rate of a linear stand is its slope at any size.
	if g.NPP(0) != fit.Params[0] || g.NPP(50) != fit.Params[0] {
		t.Errorf("NPP = %g, %g; want %g at any biomass", g.NPP(0), g.NPP(50), fit.Params[0])
	}
}

func TestHyperbolicGrowthFit(t *testing.T) {
	const a, b = 150.0, 0.25
	age := ages(15)
	biomass := make([]float64, len(age))
	for i, x := range age {
		biomass[i] = a * (1 - math.Exp(-b*x))
	}
	g, err := NewTreeGrowth(age, biomass)
	if err != nil {
		t.Fatal(err)
	}
	if g.Best != Hyperbolic {
		t.Fatalf("best fit is %v, want hyperbolic", g.Best)
	}
	fit := g.Fits[Hyperbolic]
	if relDifferent(fit.Params[0], a, 0.02) || relDifferent(fit.Params[1], b, 0.02) {
		t.Errorf("fitted params = %v, want {%g, %g}", fit.Params, a, b)
	}

	// Inverting the curve reduces the growth rate to b*(a-biomass).
	if relDifferent(g.NPP(50), fit.Params[1]*(fit.Params[0]-50), 1e-12) {
		t.Errorf("NPP(50) = %g, want %g", g.NPP(50), fit.Params[1]*(fit.Params[0]-50))
	}
	if got := g.NPP(0); got != fit.Params[0]*fit.Params[1] {
		t.Errorf("NPP(0) = %g, want %g", got, fit.Params[0]*fit.Params[1])
	}
	// At or beyond the asymptote the stand has stopped growing.
	if got := g.NPP(2 * a); got != 0 {
		t.Errorf("NPP beyond the asymptote = %g, want 0", got)
	}
}

func TestExponentialGrowthFit(t *testing.T) {
	const a = 0.3
	age := ages(12)
	biomass := make([]float64, len(age))
	for i, x := range age {
		biomass[i] = math.Pow(1+a, x) - 1
	}
	g, err := NewTreeGrowth(age, biomass)
	if err != nil {
		t.Fatal(err)
	}
	if g.Best != Exponential {
		t.Fatalf("best fit is %v, want exponential", g.Best)
	}
	fit := g.Fits[Exponential]
	if relDifferent(fit.Params[0], a, 0.02) {
		t.Errorf("fitted rate = %g, want %g", fit.Params[0], a)
	}
	// d/dx[(1+a)^x - 1] at the inverted age is (biomass+1)*ln(1+a).
	want := (10.0 + 1) * math.Log(1+fit.Params[0])
	if relDifferent(g.NPP(10), want, 1e-9) {
		t.Errorf("NPP(10) = %g, want %g", g.NPP(10), want)
	}
}

func TestLogisticGrowthFit(t *testing.T) {
	const a, b, c = 120.0, 0.8, 6.0
	age := make([]float64, 15)
	biomass := make([]float64, 15)
	for i := range age {
		x := float64(i)
		age[i] = x
		biomass[i] = a / (1 + math.Exp(-b*(x-c)))
	}
	g, err := NewTreeGrowth(age, biomass)
	if err != nil {
		t.Fatal(err)
	}
	if g.Best != Logistic {
		t.Fatalf("best fit is %v, want logistic", g.Best)
	}
	fit := g.Fits[Logistic]
	if relDifferent(fit.Params[0], a, 0.1) {
		t.Errorf("fitted asymptote = %g, want %g", fit.Params[0], a)
	}
	// Inverting the curve reduces the growth rate to b*y*(a-y)/a.
	y := 60.0
	want := fit.Params[1] * y * (fit.Params[0] - y) / fit.Params[0]
	if relDifferent(g.NPP(y), want, 1e-9) {
		t.Errorf("NPP(%g) = %g, want %g", y, g.NPP(y), want)
	}
	if got := g.NPP(2 * fit.Params[0]); got != 0 {
		t.Errorf("NPP beyond the asymptote = %g, want 0", got)
	}
}

func TestGrowthValidation(t *testing.T) {
	if _, err := NewTreeGrowth([]float64{1, 2}, []float64{1}); err == nil {
		t.Error("length mismatch should be an error")
	}
	if _, err := NewTreeGrowth(nil, nil); err == nil {
		t.Error("empty series should be an error")
	}
}

func TestGrowthFromDiameters(t *testing.T) {
	params := TreeParams{Species: "test", Density: 0.6, Carbon: 0.48}
	age := []float64{2, 4, 6, 8}
	diam := []float64{3, 8, 14, 19}
	g, err := NewTreeGrowthFromDiameters(age, diam, Ryan, params)
	if err != nil {
		t.Fatal(err)
	}
	for i, d := range diam {
		if g.Biomass[i] != Ryan(d, params) {
			t.Errorf("biomass[%d] = %g, want %g", i, g.Biomass[i], Ryan(d, params))
		}
	}
	if _, err := NewTreeGrowthFromDiameters(age, []float64{1, 2, 3, -4}, Ryan, params); err == nil {
		t.Error("negative diameter should be an error")
	}
	if _, err := NewTreeGrowthFromDiameters(age, []float64{1, 2}, Ryan, params); err == nil {
		t.Error("length mismatch should be an error")
	}
}

func TestAllometrics(t *testing.T) {
	params := TreeParams{Density: 1, Carbon: 1}
	alloms := map[string]Allometric{
		"ryan":        Ryan,
		"chave dry":   ChaveDry,
		"chave moist": ChaveMoist,
		"chave wet":   ChaveWet,
	}
	for name, f := range alloms {
		if got := f(0, params); got != 0 {
			t.Errorf("%s: biomass at zero diameter = %g, want 0", name, got)
		}
		small, large := f(10, params), f(25, params)
		if small <= 0 || large <= small {
			t.Errorf("%s: biomass not increasing: f(10)=%g f(25)=%g", name, small, large)
		}
	}
	// The Chave forms scale with wood density and carbon fraction.
	dense := TreeParams{Density: 0.5, Carbon: 0.5}
	if got, want := ChaveDry(15, dense), 0.25*ChaveDry(15, params); relDifferent(got, want, 1e-12) {
		t.Errorf("ChaveDry scaling: got %g, want %g", got, want)
	}
}
