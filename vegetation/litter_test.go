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

func TestLitterModel(t *testing.T) {
	m, err := NewLitterModel(DefaultLitter(), 9, 3, 2)
	if err != nil {
		t.Fatal(err)
	}
	if m.Output.Years() != 9 {
		t.Fatalf("output covers %d years, want 9", m.Output.Years())
	}
	applied := map[int]bool{2: true, 5: true, 8: true}
	for i := 0; i < 9; i++ {
		want := 0.0
		if applied[i] {
			want = 2
		}
		if m.Output.Above.DryOn[i] != want {
			t.Errorf("year %d: dry matter = %g, want %g", i, m.Output.Above.DryOn[i], want)
		}
		if m.Output.Above.Carbon[i] != want*0.5 {
			t.Errorf("year %d: carbon = %g, want %g", i, m.Output.Above.Carbon[i], want*0.5)
		}
		if m.Output.Above.Nitrogen[i] != want*0.018 {
			t.Errorf("year %d: nitrogen = %g, want %g", i, m.Output.Above.Nitrogen[i], want*0.018)
		}
		if m.Output.Below.Carbon[i] != 0 || m.Output.Above.DryOff[i] != 0 {
			t.Errorf("year %d: additions should stay on the surface", i)
		}
	}

	// An interval of zero means no additions; an interval of one
	// applies every year.
	none, err := NewLitterModel(DefaultLitter(), 4, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	annual, err := NewLitterModel(DefaultLitter(), 4, 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 4; i++ {
		if none.Output.Above.DryOn[i] != 0 {
			t.Errorf("year %d: unexpected addition %g", i, none.Output.Above.DryOn[i])
		}
		if annual.Output.Above.DryOn[i] != 2 {
			t.Errorf("year %d: annual addition = %g, want 2", i, annual.Output.Above.DryOn[i])
		}
	}
}

func TestLitterSchedule(t *testing.T) {
	m := NewLitterSchedule(LitterParams{Carbon: 0.4, Nitrogen: 0.02}, []float64{0, 1.5, 0})
	if m.Output.Years() != 3 {
		t.Fatalf("output covers %d years, want 3", m.Output.Years())
	}
	if m.Output.Above.Carbon[1] != 1.5*0.4 || m.Output.Above.Nitrogen[1] != 1.5*0.02 {
		t.Errorf("year 1: carbon = %g, nitrogen = %g; want %g, %g",
			m.Output.Above.Carbon[1], m.Output.Above.Nitrogen[1], 1.5*0.4, 1.5*0.02)
	}
	if m.Output.Above.Carbon[0] != 0 || m.Output.Above.Carbon[2] != 0 {
		t.Error("years without applications should be zero")
	}
}

func TestFertilizer(t *testing.T) {
	m, err := NewFertilizer(6, 2, 0.1, 0.46)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 6; i++ {
		if m.Output.Above.Carbon[i] != 0 {
			t.Errorf("year %d: fertilizer should carry no carbon but has %g", i, m.Output.Above.Carbon[i])
		}
	}
	for _, i := range []int{1, 3, 5} {
		if absDifferent(m.Output.Above.Nitrogen[i], 0.1*0.46, 1e-15) {
			t.Errorf("year %d: nitrogen = %g, want %g", i, m.Output.Above.Nitrogen[i], 0.1*0.46)
		}
	}
	if m.Output.Above.Nitrogen[0] != 0 || m.Output.Above.Nitrogen[2] != 0 {
		t.Error("years without applications should be zero")
	}
}

func TestLitterValidation(t *testing.T) {
	if _, err := NewLitterModel(DefaultLitter(), 0, 1, 1); err == nil {
		t.Error("zero-year simulation should be an error")
	}
	if _, err := NewLitterModel(DefaultLitter(), 5, 1, -1); err == nil {
		t.Error("negative quantity should be an error")
	}
}
