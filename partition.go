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
	"math"
)

// Decomposability of incoming plant material: the DPM fraction of
// fresh residue. Crop residues and manures decompose faster than
// woody litter.
const (
	CropDecomposability  = 0.59
	WoodyDecomposability = 0.2
)

// bioFraction is the share of decomposed carbon that is incorporated
// into microbial biomass rather than humus.
const bioFraction = 0.46

// PartitionCoefficients allocates incoming residue carbon between the
// decomposable and resistant pools, and decomposed carbon between
// biomass, humus, and CO2.
type PartitionCoefficients [4]float64

// newPartition calculates the partition coefficients for residue with
// the given DPM fraction entering soil with the given clay content
// [%]. Clay controls how much decomposed carbon is retained in the
// soil rather than respired.
func newPartition(decomposability, clay float64) PartitionCoefficients {
	z := 1.67 * (1.85 + 1.6*math.Exp(-0.0786*clay))
	co2 := z / (z + 1)
	retained := 1 - co2
	return PartitionCoefficients{
		DPM: decomposability,
		RPM: 1 - decomposability,
		BIO: bioFraction * retained,
		HUM: (1 - bioFraction) * retained,
	}
}

// EquilibriumPartition returns the partition coefficients for the
// inverse mode, which assumes the pre-disturbance equilibrium formed
// under permanent woody vegetation.
func EquilibriumPartition(clay float64) PartitionCoefficients {
	return newPartition(WoodyDecomposability, clay)
}

// InputPartition returns the partition coefficients for one forward
// model year whose residue input is split between crop material
// [t C ha⁻¹] and woody material [t C ha⁻¹]. The DPM fraction is the
// input-weighted mean of the crop and woody decomposabilities; a year
// with essentially no input decomposes whatever arrives as woody
// material.
func InputPartition(clay, cropC, treeC float64) PartitionCoefficients {
	total := cropC + treeC
	decomposability := WoodyDecomposability
	if math.Abs(total) >= 1e-8 {
		decomposability = (CropDecomposability*cropC + WoodyDecomposability*treeC) / total
	}
	return newPartition(decomposability, clay)
}

// Valid checks that the coefficients are a physically meaningful
// partition: the plant fractions sum to one, every coefficient is a
// proportion, and some decomposed carbon is left over for CO2.
func (x PartitionCoefficients) Valid() error {
	if math.Abs(x[DPM]+x[RPM]-1) > 1e-9 {
		return fmt.Errorf("insoc: plant material fractions sum to %g, not 1", x[DPM]+x[RPM])
	}
	for i, v := range x {
		if !(v >= 0 && v <= 1) {
			return fmt.Errorf("insoc: %s partition coefficient %g is outside [0, 1]", poolNames[i], v)
		}
	}
	if x[BIO]+x[HUM] >= 1 {
		return fmt.Errorf("insoc: biomass and humus coefficients sum to %g, leaving nothing for CO2", x[BIO]+x[HUM])
	}
	return nil
}
