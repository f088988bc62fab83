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

// LitterParams holds the carbon and nitrogen content of applied
// organic matter as mass fractions of dry matter.
type LitterParams struct {
	Carbon   float64
	Nitrogen float64
}

// DefaultLitter returns the carbon and nitrogen fractions assumed for
// unspecified organic additions.
func DefaultLitter() LitterParams {
	return LitterParams{Carbon: 0.5, Nitrogen: 0.018}
}

// LitterModel describes organic additions brought to the field, such
// as mulch, manure, or compost. Additions land on the surface, so the
// below-ground series are zero.
type LitterModel struct {
	Params LitterParams
	Output Output
}

// NewLitterModel returns additions of the given quantity in t dry
// matter per application, applied every `every` years starting in year
// every-1. An interval of zero means no additions.
func NewLitterModel(params LitterParams, years, every int, quantity float64) (*LitterModel, error) {
	if years < 1 {
		return nil, fmt.Errorf("vegetation: simulation length must be at least 1 year but is %d", years)
	}
	if quantity < 0 {
		return nil, fmt.Errorf("vegetation: litter quantity is negative (%g t/ha)", quantity)
	}
	amounts := make([]float64, years)
	if every > 0 {
		for y := every - 1; y < years; y += every {
			amounts[y] = quantity
		}
	}
	return NewLitterSchedule(params, amounts), nil
}

// NewLitterSchedule returns additions following an explicit per-year
// dry matter schedule in t/ha.
func NewLitterSchedule(params LitterParams, amounts []float64) *LitterModel {
	years := len(amounts)
	m := &LitterModel{
		Params: params,
		Output: Output{Above: newResidue(years), Below: newResidue(years)},
	}
	for i, dm := range amounts {
		m.Output.Above.DryOn[i] = dm
		m.Output.Above.Carbon[i] = dm * params.Carbon
		m.Output.Above.Nitrogen[i] = dm * params.Nitrogen
	}
	return m
}

// NewFertilizer describes synthetic fertilizer applications: nitrogen
// with no carbon. The quantity is in t of fertilizer and nitrogen is
// its nitrogen mass fraction. Fertilizer is not a soil carbon input
// and should be kept separate from litter when accounting emissions.
func NewFertilizer(years, every int, quantity, nitrogen float64) (*LitterModel, error) {
	return NewLitterModel(LitterParams{Carbon: 0, Nitrogen: nitrogen}, years, every, quantity)
}
