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
along with InSOC.  If not, see <http://www.gnu.org/licenses/>.
*/

package insoc

import (
	"fmt"
	"log"
	"math"
)

// petToOpenPan converts potential evapotranspiration to the open-pan
// evaporation the moisture deficit calculation expects.
const petToOpenPan = 0.75

// Climate holds the monthly climatology driving decomposition: twelve
// values each of air temperature, precipitation, and open-pan
// evaporation. Months are calendar months starting in January.
type Climate struct {
	// Temperature is the mean monthly air temperature [°C].
	Temperature [12]float64

	// Rain is the monthly precipitation [mm].
	Rain [12]float64

	// Evap is the monthly open-pan evaporation [mm].
	Evap [12]float64
}

// NewClimate creates a climatology from twelve-month series of
// temperature [°C], precipitation [mm], and open-pan evaporation [mm].
// Series of the wrong length are an error; physically implausible
// values are reported but accepted.
func NewClimate(temperature, rain, evap []float64) (*Climate, error) {
	if len(temperature) != 12 || len(rain) != 12 || len(evap) != 12 {
		return nil, fmt.Errorf("insoc: climate series must have 12 months but have %d, %d, and %d",
			len(temperature), len(rain), len(evap))
	}
	c := new(Climate)
	copy(c.Temperature[:], temperature)
	copy(c.Rain[:], rain)
	copy(c.Evap[:], evap)
	c.sanityCheck()
	return c, nil
}

// NewClimateFromPET creates a climatology from monthly potential
// evapotranspiration [mm] instead of open-pan evaporation.
func NewClimateFromPET(temperature, rain, pet []float64) (*Climate, error) {
	if len(pet) != 12 {
		return nil, fmt.Errorf("insoc: climate series must have 12 months but have %d, %d, and %d",
			len(temperature), len(rain), len(pet))
	}
	evap := make([]float64, 12)
	for i, v := range pet {
		evap[i] = v / petToOpenPan
	}
	return NewClimate(temperature, rain, evap)
}

// sanityCheck reports climatology values outside plausible physical
// ranges. NaNs are reported too; they propagate through the moisture
// calculation and zero out the affected months' decomposition.
func (c *Climate) sanityCheck() {
	for m := 0; m < 12; m++ {
		if math.IsNaN(c.Temperature[m]) || math.Abs(c.Temperature[m]) > 100 {
			log.Printf("insoc: month %d temperature %g °C is outside [-100, 100]", m+1, c.Temperature[m])
		}
		if math.IsNaN(c.Rain[m]) || c.Rain[m] < 0 || c.Rain[m] > 4000 {
			log.Printf("insoc: month %d precipitation %g mm is outside [0, 4000]", m+1, c.Rain[m])
		}
		if math.IsNaN(c.Evap[m]) || c.Evap[m] < 0 || c.Evap[m] > 4000 {
			log.Printf("insoc: month %d evaporation %g mm is outside [0, 4000]", m+1, c.Evap[m])
		}
	}
}

// CoverSchedule specifies for each calendar month whether the soil is
// covered by a growing crop or canopy. Cover slows decomposition and
// changes how the moisture deficit accumulates.
type CoverSchedule [12]bool

// FullCover returns a schedule with the soil covered in every month,
// appropriate for permanent vegetation.
func FullCover() CoverSchedule {
	var s CoverSchedule
	for m := range s {
		s[m] = true
	}
	return s
}

// BareSoil returns a schedule with the soil bare in every month.
func BareSoil() CoverSchedule {
	return CoverSchedule{}
}
