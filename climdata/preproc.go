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
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/ctessum/cdf"
	"github.com/ctessum/sparse"
)

// Raster holds a gridded monthly climatology on the global half-degree
// grid, each array dimensioned [month, lat, lon]. PET is in mm day⁻¹;
// temperature and precipitation are in °C and mm.
type Raster struct {
	Temperature   *sparse.DenseArray
	Precipitation *sparse.DenseArray
	PET           *sparse.DenseArray
}

// NewRaster returns a zero-filled global raster.
func NewRaster() *Raster {
	return &Raster{
		Temperature:   sparse.ZerosDense(months, gridRows, gridCols),
		Precipitation: sparse.ZerosDense(months, gridRows, gridCols),
		PET:           sparse.ZerosDense(months, gridRows, gridCols),
	}
}

// ReadStations grids a CSV dump of station climatologies. Each row
// holds latitude, longitude, month (1-12), temperature [°C],
// precipitation [mm], and PET [mm day⁻¹]; a header row is skipped.
// Cells observed by several stations get the mean of their values.
func ReadStations(r io.Reader) (*Raster, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("climdata: reading station table: %v", err)
	}
	out := NewRaster()
	counts := sparse.ZerosDense(months, gridRows, gridCols)
	for i, row := range rows {
		if len(row) != 6 {
			return nil, fmt.Errorf("climdata: station row %d has %d fields but needs 6 (lat, lon, month, tmp, pre, pet)", i+1, len(row))
		}
		var vals [6]float64
		ok := true
		for j, field := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				if i == 0 {
					ok = false // header row
					break
				}
				return nil, fmt.Errorf("climdata: station row %d column %d: %v", i+1, j+1, err)
			}
			vals[j] = v
		}
		if !ok {
			continue
		}
		month := int(vals[2])
		if month < 1 || month > months || vals[2] != float64(month) {
			return nil, fmt.Errorf("climdata: station row %d month %g is not in 1-%d", i+1, vals[2], months)
		}
		gr, gc, err := cell(vals[0], vals[1])
		if err != nil {
			return nil, fmt.Errorf("climdata: station row %d: %v", i+1, err)
		}
		out.Temperature.AddVal(vals[3], month-1, gr, gc)
		out.Precipitation.AddVal(vals[4], month-1, gr, gc)
		out.PET.AddVal(vals[5], month-1, gr, gc)
		counts.AddVal(1, month-1, gr, gc)
	}
	for i, n := range counts.Elements {
		if n > 1 {
			out.Temperature.Elements[i] /= n
			out.Precipitation.Elements[i] /= n
			out.PET.Elements[i] /= n
		}
	}
	return out, nil
}

// Write saves the raster as a NetCDF climatology readable by
// OpenClimatology. Values are stored as float32 scaled by 10.
func (ra *Raster) Write(w *os.File) error {
	h := cdf.NewHeader([]string{"month", "lat", "lon"},
		[]int{months, gridRows, gridCols})
	h.AddAttribute("", "comment", "InSOC gridded monthly climatology")
	vars := []struct {
		name  string
		units string
		data  *sparse.DenseArray
	}{
		{"tmp", "0.1 degrees Celsius", ra.Temperature},
		{"pre", "0.1 mm/month", ra.Precipitation},
		{"pet", "0.1 mm/day", ra.PET},
	}
	for _, v := range vars {
		h.AddVariable(v.name, []string{"month", "lat", "lon"}, []float32{0})
		h.AddAttribute(v.name, "units", v.units)
	}
	h.Define()
	f, err := cdf.Create(w, h)
	if err != nil {
		return fmt.Errorf("climdata: creating climatology file: %v", err)
	}
	for _, v := range vars {
		if err := writeVar(f, v.name, v.data); err != nil {
			return fmt.Errorf("climdata: writing variable %s: %v", v.name, err)
		}
	}
	if err := cdf.UpdateNumRecs(w); err != nil {
		return fmt.Errorf("climdata: writing climatology file: %v", err)
	}
	return nil
}

func writeVar(f *cdf.File, name string, data *sparse.DenseArray) error {
	n := 1
	for _, v := range data.Shape {
		n *= v
	}
	if len(data.Elements) != n {
		return fmt.Errorf("dims are %d but array length is %d", n, len(data.Elements))
	}
	data32 := make([]float32, len(data.Elements))
	for i, e := range data.Elements {
		data32[i] = float32(e / valueScale)
	}
	end := f.Header.Lengths(name)
	start := make([]int, len(end))
	w := f.Writer(name, start, end)
	_, err := w.Write(data32)
	return err
}
