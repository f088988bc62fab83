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

import "fmt"

// PoolParams controls how tree growth is allocated among the biomass
// pools and what happens to the material each pool sheds. Retained
// fractions give the share of thinned or dead material left on the
// field; the remainder is exported. Turnover losses are always
// retained.
type PoolParams struct {
	Allocation   [5]float64 // fraction of growth entering each pool
	Turnover     [5]float64 // fraction of each pool shed annually
	ThinRetained [5]float64 // fraction of thinned material left on the field
	MortRetained [5]float64 // fraction of dead material left on the field
}

// DefaultPoolParams returns pool parameters for a generic agroforestry
// planting: annual leaf shedding, slow branch and coarse root
// turnover, and stems and branches removed from the field when thinned
// or dead. The coarse root allocation follows from the stem allocation
// and the species root-to-shoot ratio.
func DefaultPoolParams(params TreeParams) PoolParams {
	p := PoolParams{
		Allocation:   [5]float64{0.25, 0.2, 0.35, 0, 0.2},
		Turnover:     [5]float64{1, 0.03, 0, 0.07, 0.8},
		ThinRetained: [5]float64{1, 0, 0, 1, 1},
		MortRetained: [5]float64{1, 0, 0, 1, 1},
	}
	p.Allocation[CoarseRoot] = p.Allocation[Stem] * params.RootToShoot
	return p
}

// TreeConfig describes a cohort of trees planted on one hectare.
type TreeConfig struct {
	Years        int     // simulation years
	YearPlanted  int     // year the cohort is established
	StandDensity float64 // trees per hectare at planting
	Pools        PoolParams

	// Thinning and Mortality give the fraction of the stand removed
	// or dying in each year. Both must cover Years+1 years when set;
	// nil means none.
	Thinning  []float64
	Mortality []float64
}

// TreeModel grows a cohort of trees and accounts for the biomass it
// returns to the soil. Five per-tree pools (leaf, branch, stem, coarse
// root, fine root) are advanced annually: growth follows the fitted
// curve's production rate, turnover, thinning, and mortality move
// material out of the pools, and the retained share of that material
// becomes a soil input.
type TreeModel struct {
	Params TreeParams
	Growth *TreeGrowth
	Output Output

	// StandingBiomass is the total woody biomass in t C/ha at the end
	// of each year, including year zero.
	StandingBiomass []float64

	// Density is the surviving stand density in trees/ha at the end
	// of each year.
	Density []float64

	// BalanceError is the annual mass balance residual in t C/ha;
	// values away from zero indicate an accounting bug.
	BalanceError []float64
}

// NewTreeModel runs the biomass model for one tree cohort.
func NewTreeModel(params TreeParams, growth *TreeGrowth, cfg TreeConfig) (*TreeModel, error) {
	if cfg.Years < 1 {
		return nil, fmt.Errorf("vegetation: simulation length must be at least 1 year but is %d", cfg.Years)
	}
	if cfg.YearPlanted < 0 || cfg.YearPlanted >= cfg.Years {
		return nil, fmt.Errorf("vegetation: planting year %d is outside the %d year simulation", cfg.YearPlanted, cfg.Years)
	}
	if cfg.StandDensity <= 0 {
		return nil, fmt.Errorf("vegetation: stand density must be positive but is %g trees/ha", cfg.StandDensity)
	}
	if params.Carbon <= 0 {
		return nil, fmt.Errorf("vegetation: tree species %q has no carbon fraction", params.Species)
	}
	thin, err := removalSchedule("thinning", cfg.Thinning, cfg.Years)
	if err != nil {
		return nil, err
	}
	mort, err := removalSchedule("mortality", cfg.Mortality, cfg.Years)
	if err != nil {
		return nil, err
	}
	for i := range thin {
		if thin[i]+mort[i] >= 1 {
			return nil, fmt.Errorf("vegetation: thinning and mortality remove the whole stand in year %d", i)
		}
	}

	years := cfg.Years
	pp := cfg.Pools

	// Per-tree pool state and per-hectare woody biomass, in kg C.
	pools := make([][5]float64, years+1)
	woody := make([][5]float64, years+1)
	inputs := make([][5]float64, years+1)
	exports := make([][5]float64, years+1)
	density := make([]float64, years+1)
	grown := make([]float64, years+1)

	yp := cfg.YearPlanted
	initial := growth.InitialBiomass()
	density[yp] = cfg.StandDensity
	for j := 0; j < 5; j++ {
		pools[yp][j] = initial * pp.Allocation[j]
		woody[yp][j] = pools[yp][j] * density[yp]
	}

	for i := yp + 1; i <= years; i++ {
		agb := pools[i-1][Branch] + pools[i-1][Stem]
		npp := growth.NPP(agb)
		for j := 0; j < 5; j++ {
			gr := npp * pp.Allocation[j] * density[i-1]
			live := pools[i-1][j] * pp.Turnover[j] * density[i-1]
			thinned := pools[i-1][j] * thin[i] * density[i-1]
			dead := pools[i-1][j] * mort[i] * density[i-1]
			inputs[i][j] = live + thinned*pp.ThinRetained[j] + dead*pp.MortRetained[j]
			exports[i][j] = thinned*(1-pp.ThinRetained[j]) + dead*(1-pp.MortRetained[j])
			woody[i][j] = woody[i-1][j] + gr - (live + thinned + dead)
			grown[i] += gr
		}
		density[i] = density[i-1] * (1 - (mort[i] + thin[i]))
		for j := 0; j < 5; j++ {
			pools[i][j] = woody[i][j] / density[i]
		}
	}

	m := &TreeModel{
		Params:          params,
		Growth:          growth,
		Output:          Output{Above: newResidue(years), Below: newResidue(years)},
		StandingBiomass: make([]float64, years+1),
		Density:         density,
		BalanceError:    make([]float64, years+1),
	}
	for i := 0; i <= years; i++ {
		var total, in, out float64
		for j := 0; j < 5; j++ {
			total += woody[i][j]
			out += inputs[i][j] + exports[i][j]
		}
		m.StandingBiomass[i] = 0.001 * total
		if i > yp {
			in = grown[i]
			var prev float64
			for j := 0; j < 5; j++ {
				prev += woody[i-1][j]
			}
			m.BalanceError[i] = 0.001 * (in - out - (total - prev))
		}
	}
	for i := 0; i < years; i++ {
		var aboveC, aboveDM, aboveN, belowC, belowDM, belowN float64
		for j := 0; j < 5; j++ {
			dm := inputs[i][j] / params.Carbon
			n := dm * params.Nitrogen[j]
			if j == CoarseRoot || j == FineRoot {
				belowC += inputs[i][j]
				belowDM += dm
				belowN += n
			} else {
				aboveC += inputs[i][j]
				aboveDM += dm
				aboveN += n
			}
		}
		m.Output.Above.Carbon[i] = 0.001 * aboveC
		m.Output.Above.DryOn[i] = 0.001 * aboveDM
		m.Output.Above.Nitrogen[i] = 0.001 * aboveN
		m.Output.Below.Carbon[i] = 0.001 * rootInTopsoil * belowC
		m.Output.Below.DryOn[i] = 0.001 * rootInTopsoil * belowDM
		m.Output.Below.Nitrogen[i] = 0.001 * rootInTopsoil * belowN
	}
	return m, nil
}

func removalSchedule(name string, s []float64, years int) ([]float64, error) {
	if s == nil {
		return make([]float64, years+1), nil
	}
	if len(s) != years+1 {
		return nil, fmt.Errorf("vegetation: %s schedule covers %d years but the run requires %d", name, len(s), years+1)
	}
	for i, v := range s {
		if v < 0 || v > 1 {
			return nil, fmt.Errorf("vegetation: %s fraction in year %d must be in [0, 1] but is %g", name, i, v)
		}
	}
	return s, nil
}
