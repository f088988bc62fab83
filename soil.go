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
	"log"
	"math"
)

// DefaultDepth is the thickness of the modeled topsoil layer [cm]. The
// moisture deficit capacity scales linearly with depth relative to the
// 23 cm of the original RothC calibration.
const DefaultDepth = 30.0

// SoilProfile describes the topsoil layer being simulated.
type SoilProfile struct {
	// Clay is the clay content of the layer [%].
	Clay float64

	// Depth is the thickness of the layer [cm].
	Depth float64

	// InitialStock is the measured total soil organic carbon at the
	// start of the project [t C ha⁻¹].
	InitialStock float64
}

// NewSoilProfile creates a soil profile from a clay content [%] and a
// measured initial carbon stock [t C ha⁻¹], using the default layer
// depth. Implausible values are reported but do not fail: survey data
// is often messy and the model remains well defined.
func NewSoilProfile(clay, initialStock float64) *SoilProfile {
	if clay < 0 || clay > 100 {
		log.Printf("insoc: clay content %g%% is outside [0, 100]", clay)
	}
	if initialStock < 0 || initialStock > 10000 {
		log.Printf("insoc: initial carbon stock %g t C/ha is outside [0, 10000]", initialStock)
	}
	return &SoilProfile{
		Clay:         clay,
		Depth:        DefaultDepth,
		InitialStock: initialStock,
	}
}

// EquilibriumStock returns the total carbon stock the soil is assumed
// to have held at equilibrium, before the land use change that led to
// the measured initial stock. Measured stocks reflect roughly 20% loss
// from the pre-disturbance state.
func (s *SoilProfile) EquilibriumStock() float64 {
	return 1.25 * s.InitialStock
}

// InertMatter returns the inert organic matter content [t C ha⁻¹],
// estimated from the equilibrium stock with the Falloon et al. (1998)
// regression. IOM is radiocarbon-dead and excluded from turnover.
func (s *SoilProfile) InertMatter() float64 {
	return 0.049 * math.Pow(s.EquilibriumStock(), 1.139)
}

// deficitCapacity returns the maximum topsoil moisture deficit
// [mm, negative] for the profile: the most negative value the
// accumulated deficit can take under a growing crop.
func (s *SoilProfile) deficitCapacity() float64 {
	return -(20.0 + 1.3*s.Clay - 0.01*s.Clay*s.Clay) * s.Depth / 23.0
}
