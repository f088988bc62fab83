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

// Package emissions turns the residue streams of a land use into the
// soil model's annual carbon inputs and into an annual greenhouse gas
// inventory. Burning reduces the above-ground residues reaching the
// soil and emits methane and nitrous oxide; retained residues and
// nitrogen applications emit nitrous oxide; changes in soil and
// standing tree carbon count as removals.
package emissions

import (
	"fmt"

	"github.com/ctessum/unit"
	"github.com/spatialmodel/insoc"
	"github.com/spatialmodel/insoc/vegetation"
)

// These must be initializer expressions rather than init() assignments
// so that they run before the package-level Dimensions maps below that
// reference them.
var (
	haDim = unit.NewDimension("Ha") // "ha" itself is reserved by the unit package
	yrDim = unit.NewDimension("yr")
	dmDim = unit.NewDimension("dm") // residue dry matter mass
)

// Units
var (
	dimensionless = unit.Dimensions{}
	// Residue dry matter flux [t DM ha⁻¹ yr⁻¹].
	dryMatterFlux = unit.Dimensions{
		dmDim: 1,
		haDim: -1,
		yrDim: -1}
	// Gas emitted per unit of dry matter burned [t t⁻¹].
	gasPerDryMatter = unit.Dimensions{
		unit.MassDim: 1,
		dmDim:        -1}
	// Greenhouse gas flux [t CO2e ha⁻¹ yr⁻¹].
	gasFlux = unit.Dimensions{
		unit.MassDim: 1,
		haDim:        -1,
		yrDim:        -1}
)

// Molar mass ratios for converting elemental fluxes to gas fluxes.
const (
	cToCO2 = 44.0 / 12.0
	nToN2O = 44.0 / 28.0
)

// Factors holds the emission factors used by the inventory. The zero
// value is not usable; start from DefaultFactors.
type Factors struct {
	// CropCH4, CropN2O, TreeCH4, and TreeN2O are the masses of methane
	// and nitrous oxide emitted per mass of crop or woody dry matter
	// burned.
	CropCH4, CropN2O, TreeCH4, TreeN2O *unit.Unit

	// CropCombustion and TreeCombustion are the fractions of
	// above-ground dry matter consumed when a field burns.
	CropCombustion, TreeCombustion *unit.Unit

	// GWPCH4 and GWPN2O are 100-year global warming potentials
	// relative to CO2.
	GWPCH4, GWPN2O *unit.Unit

	// ResidueEF is the fraction of nitrogen in retained residues and
	// applied fertilizer emitted as N2O-N.
	ResidueEF *unit.Unit

	// VolatilizedOrganic and VolatilizedSynthetic are the fractions of
	// applied nitrogen volatilized before nitrous oxide can form.
	VolatilizedOrganic, VolatilizedSynthetic *unit.Unit
}

// DefaultFactors returns the IPCC (2006) tier 1 emission factors:
// burning factors from table 2.5, combustion factors from table 2.6,
// the 1% nitrogen emission factor from table 11.1, and second
// assessment report warming potentials.
func DefaultFactors() Factors {
	return Factors{
		CropCH4:              unit.New(2.7e-3, gasPerDryMatter), // 2.7 g/kg
		CropN2O:              unit.New(0.07e-3, gasPerDryMatter),
		TreeCH4:              unit.New(6.8e-3, gasPerDryMatter),
		TreeN2O:              unit.New(0.2e-3, gasPerDryMatter),
		CropCombustion:       unit.New(0.80, dimensionless),
		TreeCombustion:       unit.New(0.74, dimensionless),
		GWPCH4:               unit.New(21, dimensionless),
		GWPN2O:               unit.New(310, dimensionless),
		ResidueEF:            unit.New(0.01, dimensionless),
		VolatilizedOrganic:   unit.New(0.2, dimensionless),
		VolatilizedSynthetic: unit.New(0.1, dimensionless),
	}
}

// check validates the dimensions of every factor so that the inventory
// arithmetic can safely work with bare values.
func (f Factors) check() error {
	named := []struct {
		name string
		u    *unit.Unit
		d    unit.Dimensions
	}{
		{"crop methane", f.CropCH4, gasPerDryMatter},
		{"crop nitrous oxide", f.CropN2O, gasPerDryMatter},
		{"tree methane", f.TreeCH4, gasPerDryMatter},
		{"tree nitrous oxide", f.TreeN2O, gasPerDryMatter},
		{"crop combustion", f.CropCombustion, dimensionless},
		{"tree combustion", f.TreeCombustion, dimensionless},
		{"methane warming potential", f.GWPCH4, dimensionless},
		{"nitrous oxide warming potential", f.GWPN2O, dimensionless},
		{"residue nitrogen", f.ResidueEF, dimensionless},
		{"volatilized organic nitrogen", f.VolatilizedOrganic, dimensionless},
		{"volatilized synthetic nitrogen", f.VolatilizedSynthetic, dimensionless},
	}
	for _, fa := range named {
		if fa.u == nil {
			return fmt.Errorf("emissions: the %s factor is missing", fa.name)
		}
		if err := fa.u.Check(fa.d); err != nil {
			return fmt.Errorf("emissions: the %s factor: %v", fa.name, err)
		}
	}
	// The assembled fire term must come out as a greenhouse gas flux.
	burnt := unit.Mul(unit.New(1, dryMatterFlux), f.CropCombustion)
	fire := unit.Mul(burnt, unit.Add(unit.Mul(f.CropCH4, f.GWPCH4), unit.Mul(f.CropN2O, f.GWPN2O)))
	if err := fire.Check(gasFlux); err != nil {
		return fmt.Errorf("emissions: fire emission units: %v", err)
	}
	return nil
}

// LandUse collects the residue sources and burning practices of one
// management scenario on one field.
type LandUse struct {
	Crops  []*vegetation.CropModel
	Trees  []*vegetation.TreeModel
	Litter []*vegetation.LitterModel // organic additions

	// Fertilizer holds synthetic nitrogen applications. They carry no
	// carbon and only contribute to the nitrous oxide accounting.
	Fertilizer []*vegetation.LitterModel

	// Fire marks the years in which the field burns. Nil means the
	// field never burns; otherwise it must cover every year.
	Fire []bool

	// BurnOff specifies that crop residues removed from the field are
	// burned off-farm. Off-farm burning happens every year there are
	// exported residues, independent of Fire.
	BurnOff bool
}

// years returns the number of years the land use covers, checking that
// every residue source and the fire schedule agree on it.
func (u *LandUse) years() (int, error) {
	years := -1
	check := func(kind string, n int) error {
		if years == -1 {
			years = n
		}
		if n != years {
			return fmt.Errorf("emissions: %s residues cover %d years but other sources cover %d", kind, n, years)
		}
		return nil
	}
	for _, c := range u.Crops {
		if err := check("crop", c.Output.Years()); err != nil {
			return 0, err
		}
	}
	for _, t := range u.Trees {
		if err := check("tree", t.Output.Years()); err != nil {
			return 0, err
		}
	}
	for _, l := range u.Litter {
		if err := check("litter", l.Output.Years()); err != nil {
			return 0, err
		}
	}
	for _, s := range u.Fertilizer {
		if err := check("fertilizer", s.Output.Years()); err != nil {
			return 0, err
		}
	}
	if years == -1 {
		return 0, fmt.Errorf("emissions: the land use has no residue sources")
	}
	if u.Fire != nil && len(u.Fire) != years {
		return 0, fmt.Errorf("emissions: the fire schedule covers %d years but residues cover %d", len(u.Fire), years)
	}
	return years, nil
}

func (u *LandUse) burns(year int) bool {
	return year < len(u.Fire) && u.Fire[year]
}

// Reduce sums the land use's residue streams into the annual carbon
// inputs driving the soil model. In fire years the above-ground
// residues lose their burned share; roots are unaffected. Organic
// additions count with the woody inputs.
func (u *LandUse) Reduce(f Factors) ([]insoc.AnnualInput, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	years, err := u.years()
	if err != nil {
		return nil, err
	}
	cfCrop := f.CropCombustion.Value()
	cfTree := f.TreeCombustion.Value()
	inputs := make([]insoc.AnnualInput, years)
	for i := range inputs {
		burn := u.burns(i)
		var crop, tree float64
		for _, c := range u.Crops {
			above := c.Output.Above.Carbon[i]
			if burn {
				above *= 1 - cfCrop
			}
			crop += above + c.Output.Below.Carbon[i]
		}
		for _, t := range u.Trees {
			above := t.Output.Above.Carbon[i]
			if burn {
				above *= 1 - cfTree
			}
			tree += above + t.Output.Below.Carbon[i]
		}
		for _, l := range u.Litter {
			above := l.Output.Above.Carbon[i]
			if burn {
				above *= 1 - cfTree
			}
			tree += above + l.Output.Below.Carbon[i]
		}
		inputs[i] = insoc.AnnualInput{Crop: crop, Tree: tree}
	}
	return inputs, nil
}
