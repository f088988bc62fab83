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

// CropModel calculates the residues an annual crop returns to the soil
// from its dry-matter yield series, following the IPCC (2006)
// inventory guidelines.
type CropModel struct {
	Params CropParams
	Output Output
}

// NewCropModel runs the crop residue model. yields is the dry-matter
// yield in t/ha for each simulation year, and leftInField is the
// fraction of above-ground residues remaining on the field after
// harvest. Years with zero yield produce no residues.
func NewCropModel(params CropParams, yields []float64, leftInField float64) (*CropModel, error) {
	if len(yields) == 0 {
		return nil, fmt.Errorf("vegetation: crop yield series is empty")
	}
	if leftInField < 0 || leftInField > 1 {
		return nil, fmt.Errorf("vegetation: fraction of residues left in field must be in [0, 1] but is %g", leftInField)
	}
	m := &CropModel{
		Params: params,
		Output: Output{Above: newResidue(len(yields)), Below: newResidue(len(yields))},
	}
	for i, y := range yields {
		if y < 0 {
			return nil, fmt.Errorf("vegetation: crop yield in year %d is negative (%g t/ha)", i, y)
		}
		if y == 0 {
			continue
		}
		res := y*params.Slope + params.Intercept
		above := res * leftInField
		below := (y + res) * params.RootToShoot * rootInTopsoil
		m.Output.Above.DryOn[i] = above
		m.Output.Above.DryOff[i] = res * (1 - leftInField)
		m.Output.Above.Carbon[i] = above * params.CarbonAbove
		m.Output.Above.Nitrogen[i] = above * params.NitrogenAbove
		m.Output.Below.DryOn[i] = below
		m.Output.Below.Carbon[i] = below * params.CarbonBelow
		m.Output.Below.Nitrogen[i] = below * params.NitrogenBelow
	}
	return m, nil
}
