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

// Package vegetation estimates the annual organic residues that crops,
// trees, and other organic additions return to the soil, along with
// the nitrogen those residues carry and the dry matter they leave on
// the field available to burn.
package vegetation

// Indexes of the tree biomass pools.
const (
	Leaf = iota
	Branch
	Stem
	CoarseRoot
	FineRoot
)

// rootInTopsoil is the fraction of root mass assumed to lie within the
// soil depth simulated by the carbon model.
const rootInTopsoil = 0.7

// Residue holds annual series of organic matter fluxes in t/ha:
// carbon and nitrogen delivered to the soil, dry matter remaining on
// the field, and dry matter removed from it.
type Residue struct {
	Carbon   []float64
	Nitrogen []float64
	DryOn    []float64
	DryOff   []float64
}

func newResidue(years int) Residue {
	return Residue{
		Carbon:   make([]float64, years),
		Nitrogen: make([]float64, years),
		DryOn:    make([]float64, years),
		DryOff:   make([]float64, years),
	}
}

// Output holds the above- and below-ground residue series produced by
// a residue source over the simulation years.
type Output struct {
	Above, Below Residue
}

// Years returns the number of years the output series cover.
func (o Output) Years() int { return len(o.Above.Carbon) }
