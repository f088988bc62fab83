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

import "testing"

func TestCropModel(t *testing.T) {
	params, err := DefaultCrop("maize")
	if err != nil {
		t.Fatal(err)
	}
	yields := []float64{3, 0, 2}
	const lif = 0.6
	m, err := NewCropModel(params, yields, lif)
	if err != nil {
		t.Fatal(err)
	}
	if m.Output.Years() != len(yields) {
		t.Fatalf("output covers %d years, want %d", m.Output.Years(), len(yields))
	}
	for i, y := range yields {
		var res, above, below float64
		if y > 0 {
			res = y*params.Slope + params.Intercept
			above = res * lif
			below = (y + res) * params.RootToShoot * rootInTopsoil
		}
		if absDifferent(m.Output.Above.DryOn[i], above, 1e-12) {
			t.Errorf("year %d: above residue = %g, want %g", i, m.Output.Above.DryOn[i], above)
		}
		if absDifferent(m.Output.Above.DryOff[i], res*(1-lif), 1e-12) {
			t.Errorf("year %d: exported residue = %g, want %g", i, m.Output.Above.DryOff[i], res*(1-lif))
		}
		if absDifferent(m.Output.Above.Carbon[i], above*params.CarbonAbove, 1e-12) {
			t.Errorf("year %d: above carbon = %g, want %g", i, m.Output.Above.Carbon[i], above*params.CarbonAbove)
		}
		if absDifferent(m.Output.Above.Nitrogen[i], above*params.NitrogenAbove, 1e-12) {
			t.Errorf("year %d: above nitrogen = %g, want %g", i, m.Output.Above.Nitrogen[i], above*params.NitrogenAbove)
		}
		if absDifferent(m.Output.Below.DryOn[i], below, 1e-12) {
			t.Errorf("year %d: below residue = %g, want %g", i, m.Output.Below.DryOn[i], below)
		}
		if absDifferent(m.Output.Below.Carbon[i], below*params.CarbonBelow, 1e-12) {
			t.Errorf("year %d: below carbon = %g, want %g", i, m.Output.Below.Carbon[i], below*params.CarbonBelow)
		}
	}
	// Maize at 3 t/ha: residue = 3*1.03 + 0.61.
	if absDifferent(m.Output.Above.DryOn[0], 3.7*0.6, 1e-12) {
		t.Errorf("maize residue = %g, want %g", m.Output.Above.DryOn[0], 3.7*0.6)
	}
	// A fallow year leaves nothing behind.
	if m.Output.Above.Carbon[1] != 0 || m.Output.Below.Carbon[1] != 0 || m.Output.Above.DryOff[1] != 0 {
		t.Error("fallow year should produce no residues")
	}
}

func TestCropModelValidation(t *testing.T) {
	params, err := DefaultCrop("maize")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := NewCropModel(params, nil, 0.5); err == nil {
		t.Error("empty yield series should be an error")
	}
	if _, err := NewCropModel(params, []float64{1, -2}, 0.5); err == nil {
		t.Error("negative yield should be an error")
	}
	if _, err := NewCropModel(params, []float64{1}, 1.5); err == nil {
		t.Error("residue fraction above 1 should be an error")
	}
	if _, err := NewCropModel(params, []float64{1}, -0.1); err == nil {
		t.Error("negative residue fraction should be an error")
	}
}
