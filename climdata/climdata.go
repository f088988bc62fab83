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

// Package climdata provides the monthly climatologies that drive soil
// carbon decomposition, either from small per-site CSV tables or by
// looking locations up in a gridded global climatology raster.
package climdata

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/spatialmodel/insoc"
)

// The global half-degree climatology grid.
const (
	months   = 12
	gridRows = 360
	gridCols = 720
)

// Stored raster values are scaled by 10, following the half-degree
// climatology distribution convention.
const valueScale = 0.1

var daysInMonth = [months]float64{31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

// cell returns the raster indexes of the grid cell containing the
// given location.
func cell(lat, lon float64) (row, col int, err error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return 0, 0, fmt.Errorf("climdata: latitude %g is outside [-90, 90]", lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("climdata: longitude %g is outside [-180, 180]", lon)
	}
	row = int(math.Ceil(180 - 2*lat))
	col = int(math.Ceil(360 + 2*lon))
	if row < 1 {
		row = 1
	}
	if col < 1 {
		col = 1
	}
	return row - 1, col - 1, nil
}

// FromCSV reads a per-site climatology: three rows of twelve monthly
// values holding air temperature [°C], precipitation [mm], and either
// open-pan evaporation or, if isPET is true, potential
// evapotranspiration [mm].
func FromCSV(r io.Reader, isPET bool) (*insoc.Climate, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("climdata: reading climate table: %v", err)
	}
	if len(rows) != 3 {
		return nil, fmt.Errorf("climdata: a climate table must have 3 rows but has %d", len(rows))
	}
	series := make([][]float64, 3)
	for i, row := range rows {
		if len(row) != months {
			return nil, fmt.Errorf("climdata: climate table row %d has %d values but needs %d", i+1, len(row), months)
		}
		series[i] = make([]float64, months)
		for j, field := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, fmt.Errorf("climdata: climate table row %d column %d: %v", i+1, j+1, err)
			}
			series[i][j] = v
		}
	}
	if isPET {
		return insoc.NewClimateFromPET(series[0], series[1], series[2])
	}
	return insoc.NewClimate(series[0], series[1], series[2])
}
