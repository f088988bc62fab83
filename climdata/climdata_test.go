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

package climdata

import (
	"math"
	"strconv"
	"strings"
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
	if a == 0 && b == 0 {
		return false
	}
	return math.Abs(a-b)/math.Max(math.Abs(a), math.Abs(b)) > tolerance
}

func climateCSV(series ...[]float64) string {
	rows := make([]string, len(series))
	for i, s := range series {
		fields := make([]string, len(s))
		for j, v := range s {
			fields[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		rows[i] = strings.Join(fields, ",")
	}
	return strings.Join(rows, "\n") + "\n"
}

func TestFromCSV(t *testing.T) {
	temp := []float64{15.5, 16, 18.25, 21, 24.5, 27, 28.5, 28, 25.5, 22, 18, 16}
	rain := []float64{60, 55, 70, 45, 20, 5, 0, 2, 10, 35, 55, 65}
	evap := []float64{40, 50, 75, 100, 130, 150, 160, 145, 110, 75, 50, 40}

	c, err := FromCSV(strings.NewReader(climateCSV(temp, rain, evap)), false)
	if err != nil {
		t.Fatal(err)
	}
	for m := 0; m < months; m++ {
		if c.Temperature[m] != temp[m] {
			t.Errorf("month %d: temperature %g, want %g", m+1, c.Temperature[m], temp[m])
		}
		if c.Rain[m] != rain[m] {
			t.Errorf("month %d: rain %g, want %g", m+1, c.Rain[m], rain[m])
		}
		if c.Evap[m] != evap[m] {
			t.Errorf("month %d: evaporation %g, want %g", m+1, c.Evap[m], evap[m])
		}
	}

	// With isPET set, the third row is potential evapotranspiration
	// and gets converted to open-pan evaporation.
	c, err = FromCSV(strings.NewReader(climateCSV(temp, rain, evap)), true)
	if err != nil {
		t.Fatal(err)
	}
	for m := 0; m < months; m++ {
		if want := evap[m] / 0.75; c.Evap[m] != want {
			t.Errorf("month %d: converted evaporation %g, want %g", m+1, c.Evap[m], want)
		}
	}

	// Spreadsheet exports often pad fields with spaces.
	padded := "1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12\n" +
		"0,0,0,0,0,0,0,0,0,0,0,0\n" +
		" 10,20,30,40,50,60,70,80,90,100,110,120\n"
	c, err = FromCSV(strings.NewReader(padded), false)
	if err != nil {
		t.Fatal(err)
	}
	if c.Temperature[1] != 2 || c.Evap[0] != 10 {
		t.Errorf("padded fields parsed as %g and %g, want 2 and 10", c.Temperature[1], c.Evap[0])
	}
}

func TestFromCSVValidation(t *testing.T) {
	temp := make([]float64, months)
	rain := make([]float64, months)

	if _, err := FromCSV(strings.NewReader(climateCSV(temp, rain)), false); err == nil {
		t.Error("a table with 2 rows should be an error")
	}
	short := "1,2,3,4,5,6,7,8,9,10,11\n1,2,3,4,5,6,7,8,9,10,11\n1,2,3,4,5,6,7,8,9,10,11\n"
	if _, err := FromCSV(strings.NewReader(short), false); err == nil {
		t.Error("rows with 11 values should be an error")
	}
	bad := climateCSV(temp, rain, rain)
	bad = strings.Replace(bad, "0", "x", 1)
	if _, err := FromCSV(strings.NewReader(bad), false); err == nil {
		t.Error("a non-numeric value should be an error")
	}
}

func TestCell(t *testing.T) {
	tests := []struct {
		lat, lon float64
		row, col int
	}{
		{0.25, 0.25, 179, 360},
		{-0.25, -0.25, 180, 359},
		{-1.25, 36.75, 182, 433},
		{52.25, -1.75, 75, 356},
		{89.75, -179.75, 0, 0},
		{90, -180, 0, 0},
		{-90, 180, 359, 719},
	}
	for _, test := range tests {
		row, col, err := cell(test.lat, test.lon)
		if err != nil {
			t.Errorf("(%g, %g): %v", test.lat, test.lon, err)
			continue
		}
		if row != test.row || col != test.col {
			t.Errorf("(%g, %g): cell (%d, %d), want (%d, %d)",
				test.lat, test.lon, row, col, test.row, test.col)
		}
	}

	for _, test := range []struct{ lat, lon float64 }{
		{91, 0},
		{-90.5, 0},
		{0, 180.5},
		{0, -181},
		{math.NaN(), 0},
		{0, math.NaN()},
	} {
		if _, _, err := cell(test.lat, test.lon); err == nil {
			t.Errorf("(%g, %g) should be an error", test.lat, test.lon)
		}
	}
}
