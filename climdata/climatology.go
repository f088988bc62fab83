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
	"context"
	"fmt"
	"os"

	"github.com/ctessum/cdf"
	"github.com/ctessum/requestcache"
	"github.com/ctessum/sparse"
	"github.com/spatialmodel/insoc"
	"github.com/spatialmodel/insoc/internal/hash"
)

// Climatology looks locations up in a gridded global climatology,
// stored as a NetCDF raster with variables tmp (air temperature,
// 0.1 °C), pre (precipitation, 0.1 mm), and pet (potential
// evapotranspiration, 0.1 mm day⁻¹), each dimensioned
// [month, lat, lon] on the half-degree grid.
type Climatology struct {
	temperature   *sparse.DenseArray
	precipitation *sparse.DenseArray
	pet           *sparse.DenseArray

	cache *requestcache.Cache
}

// OpenClimatology reads the gridded climatology in the named NetCDF
// file into memory.
func OpenClimatology(filename string) (*Climatology, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("climdata: opening climatology: %v", err)
	}
	defer f.Close()
	ff, err := cdf.Open(f)
	if err != nil {
		return nil, fmt.Errorf("climdata: opening climatology %s: %v", filename, err)
	}
	c := new(Climatology)
	for _, v := range []struct {
		name string
		dst  **sparse.DenseArray
	}{
		{"tmp", &c.temperature},
		{"pre", &c.precipitation},
		{"pet", &c.pet},
	} {
		data, err := readVar(ff, v.name)
		if err != nil {
			return nil, fmt.Errorf("climdata: reading climatology %s: %v", filename, err)
		}
		*v.dst = data
	}
	c.cache = requestcache.NewCache(c.lookup, 1, requestcache.Deduplicate(),
		requestcache.Memory(100))
	return c, nil
}

func readVar(ff *cdf.File, name string) (*sparse.DenseArray, error) {
	dims := ff.Header.Lengths(name)
	if len(dims) != 3 || dims[0] != months || dims[1] != gridRows || dims[2] != gridCols {
		return nil, fmt.Errorf("variable %s has dimensions %v but needs [%d %d %d]",
			name, dims, months, gridRows, gridCols)
	}
	r := ff.Reader(name, nil, nil)
	buf := r.Zero(-1)
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("reading variable %s: %v", name, err)
	}
	data := sparse.ZerosDense(dims...)
	vals, ok := buf.([]float32)
	if !ok {
		return nil, fmt.Errorf("variable %s is not float32", name)
	}
	for i, v := range vals {
		data.Elements[i] = float64(v)
	}
	return data, nil
}

type location struct {
	Lat, Lon float64
}

func (c *Climatology) lookup(ctx context.Context, request interface{}) (interface{}, error) {
	loc := request.(location)
	row, col, err := cell(loc.Lat, loc.Lon)
	if err != nil {
		return nil, err
	}
	var temp, rain, pet [months]float64
	for m := 0; m < months; m++ {
		temp[m] = c.temperature.Get(m, row, col) * valueScale
		rain[m] = c.precipitation.Get(m, row, col) * valueScale
		pet[m] = c.pet.Get(m, row, col) * valueScale * daysInMonth[m]
	}
	return insoc.NewClimateFromPET(temp[:], rain[:], pet[:])
}

// AtLocation returns the climatology of the grid cell containing the
// given location. PET is converted to monthly open-pan evaporation.
// Lookups are deduplicated and cached.
func (c *Climatology) AtLocation(ctx context.Context, lat, lon float64) (*insoc.Climate, error) {
	loc := location{Lat: lat, Lon: lon}
	r := c.cache.NewRequest(ctx, loc, "climate_"+hash.Hash(loc))
	result, err := r.Result()
	if err != nil {
		return nil, err
	}
	return result.(*insoc.Climate), nil
}
