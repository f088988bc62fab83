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

package emissions

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/spatialmodel/insoc"
	"gonum.org/v1/gonum/floats"
)

// Inventory holds the annual greenhouse gas balance of one land use.
// Every series is in t CO2e ha⁻¹ yr⁻¹ over the accounting period;
// negative entries are removals.
type Inventory struct {
	// SoilSink is CO2 removed by (or, when the soil loses carbon,
	// emitted from) the soil organic carbon stock.
	SoilSink []float64

	// BiomassSink is CO2 removed by the change in standing tree
	// biomass.
	BiomassSink []float64

	// ResidueNitrogen is N2O from the nitrogen in residues that stay
	// on the field after any burning.
	ResidueNitrogen []float64

	// Fire is CH4 and N2O from burning residues, on and off the farm.
	Fire []float64

	// Fertilizer is N2O from applied organic and synthetic nitrogen,
	// after volatilization losses.
	Fertilizer []float64

	// Total is the sum of the other series.
	Total []float64
}

// NewInventory computes the annual greenhouse gas balance of a land
// use. soil is the pool trajectory from the land use's forward model
// run, starting with the initial state, and accounting is the number
// of years, from the start of the run, over which emissions are
// claimed.
func NewInventory(f Factors, u *LandUse, soil []insoc.CarbonPools, accounting int) (*Inventory, error) {
	if err := f.check(); err != nil {
		return nil, err
	}
	years, err := u.years()
	if err != nil {
		return nil, err
	}
	if len(soil) != years+1 {
		return nil, fmt.Errorf("emissions: the soil trajectory has %d states but the land use covers %d years", len(soil), years)
	}
	if accounting < 1 || accounting > years {
		return nil, fmt.Errorf("emissions: accounting period of %d years is outside the %d year simulation", accounting, years)
	}

	biomass := make([]float64, years+1)
	for _, t := range u.Trees {
		floats.Add(biomass, t.StandingBiomass)
	}

	var (
		cfCrop = f.CropCombustion.Value()
		cfTree = f.TreeCombustion.Value()
		// CO2e emitted per tonne of dry matter burned, by category.
		burnCrop = f.CropCH4.Value()*f.GWPCH4.Value() + f.CropN2O.Value()*f.GWPN2O.Value()
		burnTree = f.TreeCH4.Value()*f.GWPCH4.Value() + f.TreeN2O.Value()*f.GWPN2O.Value()
		// CO2e emitted per tonne of nitrogen kept on the field.
		nitrogenEF = f.ResidueEF.Value() * nToN2O * f.GWPN2O.Value()
	)

	v := &Inventory{
		SoilSink:        make([]float64, accounting),
		BiomassSink:     make([]float64, accounting),
		ResidueNitrogen: make([]float64, accounting),
		Fire:            make([]float64, accounting),
		Fertilizer:      make([]float64, accounting),
		Total:           make([]float64, accounting),
	}
	for i := 0; i < accounting; i++ {
		v.SoilSink[i] = -(soil[i+1].Total() - soil[i].Total()) * cToCO2
		v.BiomassSink[i] = -(biomass[i+1] - biomass[i]) * cToCO2

		burn := u.burns(i)
		var retainedN, fire float64
		for _, c := range u.Crops {
			aboveN := c.Output.Above.Nitrogen[i]
			if burn {
				aboveN *= 1 - cfCrop
				fire += c.Output.Above.DryOn[i] * cfCrop * burnCrop
			}
			if u.BurnOff {
				fire += c.Output.Above.DryOff[i] * cfCrop * burnCrop
			}
			retainedN += aboveN + c.Output.Below.Nitrogen[i]
		}
		for _, t := range u.Trees {
			aboveN := t.Output.Above.Nitrogen[i]
			if burn {
				aboveN *= 1 - cfTree
				fire += t.Output.Above.DryOn[i] * cfTree * burnTree
			}
			retainedN += aboveN + t.Output.Below.Nitrogen[i]
		}
		for _, l := range u.Litter {
			aboveN := l.Output.Above.Nitrogen[i]
			if burn {
				aboveN *= 1 - cfTree
				fire += l.Output.Above.DryOn[i] * cfTree * burnTree
			}
			retainedN += aboveN
		}
		v.ResidueNitrogen[i] = retainedN * nitrogenEF
		v.Fire[i] = fire

		var appliedN float64
		for _, l := range u.Litter {
			appliedN += l.Output.Above.Nitrogen[i] * (1 - f.VolatilizedOrganic.Value())
		}
		for _, s := range u.Fertilizer {
			appliedN += s.Output.Above.Nitrogen[i] * (1 - f.VolatilizedSynthetic.Value())
		}
		v.Fertilizer[i] = appliedN * nitrogenEF

		v.Total[i] = v.SoilSink[i] + v.BiomassSink[i] + v.ResidueNitrogen[i] +
			v.Fire[i] + v.Fertilizer[i]
	}
	return v, nil
}

// Years returns the number of accounting years the inventory covers.
func (v *Inventory) Years() int { return len(v.Total) }

// Cumulative returns the total net emissions over the accounting
// period [t CO2e ha⁻¹].
func (v *Inventory) Cumulative() float64 { return floats.Sum(v.Total) }

// Report pairs the baseline and project inventories of a scenario.
type Report struct {
	Baseline, Project *Inventory
}

// Difference returns the annual project emissions minus the baseline
// emissions; negative values are net benefits of the project.
func (r *Report) Difference() ([]float64, error) {
	if r.Baseline.Years() != r.Project.Years() {
		return nil, fmt.Errorf("emissions: the baseline covers %d years but the project covers %d",
			r.Baseline.Years(), r.Project.Years())
	}
	d := make([]float64, r.Project.Years())
	floats.SubTo(d, r.Project.Total, r.Baseline.Total)
	return d, nil
}

var channelNames = []string{"soil", "biomass", "residue_n2o", "fire", "fertilizer", "total"}

func (v *Inventory) channels() [][]float64 {
	return [][]float64{v.SoilSink, v.BiomassSink, v.ResidueNitrogen, v.Fire, v.Fertilizer, v.Total}
}

// Save writes the annual emission channels of both inventories and
// their difference as CSV, one row per accounting year.
func (r *Report) Save(w io.Writer) error {
	diff, err := r.Difference()
	if err != nil {
		return err
	}
	cw := csv.NewWriter(w)
	header := []string{"year"}
	for _, scen := range []string{"baseline", "project"} {
		for _, name := range channelNames {
			header = append(header, scen+"_"+name)
		}
	}
	header = append(header, "difference")
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("emissions: writing report: %v", err)
	}
	for i := range diff {
		row := make([]string, 0, len(header))
		row = append(row, strconv.Itoa(i+1))
		for _, inv := range []*Inventory{r.Baseline, r.Project} {
			for _, series := range inv.channels() {
				row = append(row, strconv.FormatFloat(series[i], 'g', -1, 64))
			}
		}
		row = append(row, strconv.FormatFloat(diff[i], 'g', -1, 64))
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("emissions: writing report: %v", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("emissions: writing report: %v", err)
	}
	return nil
}
