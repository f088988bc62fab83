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

// Indexes of the four active carbon pools.
const (
	DPM = iota // decomposable plant material
	RPM        // resistant plant material
	BIO        // microbial biomass
	HUM        // humified organic matter
)

// poolNames are the conventional RothC abbreviations, used in output
// headers and log messages.
var poolNames = [4]string{"DPM", "RPM", "BIO", "HUM"}

// CarbonPools holds the contents of the four active soil carbon pools
// [t C ha⁻¹]. Inert organic matter is tracked separately on the soil
// profile because it does not participate in turnover.
type CarbonPools [4]float64

// Total returns the summed carbon content of the active pools.
func (p CarbonPools) Total() float64 {
	return p[DPM] + p[RPM] + p[BIO] + p[HUM]
}

// add returns the element-wise sum p + q.
func (p CarbonPools) add(q CarbonPools) CarbonPools {
	for i, v := range q {
		p[i] += v
	}
	return p
}

// scale returns p with every pool multiplied by a.
func (p CarbonPools) scale(a float64) CarbonPools {
	for i := range p {
		p[i] *= a
	}
	return p
}

// RateConstants holds first-order decomposition rate constants for the
// four active pools [yr⁻¹].
type RateConstants [4]float64

// DefaultRateConstants returns the RothC 26.3 rate constants at
// reference conditions, before modification for temperature, moisture,
// and soil cover.
func DefaultRateConstants() RateConstants {
	return RateConstants{
		DPM: 10.0,
		RPM: 0.3,
		BIO: 0.66,
		HUM: 0.02,
	}
}

// Scale returns the rate constants multiplied by the rate-modifying
// factor a.
func (k RateConstants) Scale(a float64) RateConstants {
	for i := range k {
		k[i] *= a
	}
	return k
}

// AnnualInput is the residue carbon reaching the soil in one model
// year, split by origin. The split determines how the input is
// partitioned between the decomposable and resistant pools. Both
// values are net of any burning.
type AnnualInput struct {
	// Crop is carbon from crop residues and other fast-decomposing
	// material [t C ha⁻¹ yr⁻¹].
	Crop float64

	// Tree is carbon from woody litter and roots [t C ha⁻¹ yr⁻¹].
	Tree float64
}

// Total returns the total residue carbon input for the year.
func (a AnnualInput) Total() float64 {
	return a.Crop + a.Tree
}
