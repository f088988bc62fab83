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

// DefaultSubsteps is the number of fixed integration steps per model
// year. The system is stiff in the decomposable pool (k = 10 yr⁻¹ at
// reference conditions), so the step must stay well under 1/k.
const DefaultSubsteps = 1000

// derivatives returns the time derivatives of the pool contents
// [t C ha⁻¹ yr⁻¹] for pools p under a constant residue input rate
// input [t C ha⁻¹ yr⁻¹] partitioned by x. Decomposed carbon from all
// pools is pooled and re-partitioned into biomass, humus, and CO2; the
// CO2 share leaves the system.
func derivatives(p CarbonPools, k RateConstants, x PartitionCoefficients, input float64) CarbonPools {
	through := k[DPM]*p[DPM] + k[RPM]*p[RPM] + k[BIO]*p[BIO] + k[HUM]*p[HUM]
	return CarbonPools{
		DPM: input*x[DPM] - k[DPM]*p[DPM],
		RPM: input*x[RPM] - k[RPM]*p[RPM],
		BIO: through*x[BIO] - k[BIO]*p[BIO],
		HUM: through*x[HUM] - k[HUM]*p[HUM],
	}
}

// rk4Step advances the pools by one step of length h [yr] using the
// classical fourth-order Runge-Kutta scheme.
func rk4Step(p CarbonPools, k RateConstants, x PartitionCoefficients, input, h float64) CarbonPools {
	k1 := derivatives(p, k, x, input)
	k2 := derivatives(p.add(k1.scale(h/2)), k, x, input)
	k3 := derivatives(p.add(k2.scale(h/2)), k, x, input)
	k4 := derivatives(p.add(k3.scale(h)), k, x, input)

	incr := k1.add(k2.scale(2)).add(k3.scale(2)).add(k4).scale(h / 6)
	return p.add(incr)
}

// integrateYear advances the pools through one model year of constant
// input, recording the state at the start of each substep in buf if it
// is non-nil. buf must have length substeps; buf[j] receives the state
// at time j/substeps years, so the returned end-of-year state is not
// stored in it.
func integrateYear(p CarbonPools, k RateConstants, x PartitionCoefficients, input float64, substeps int, buf []CarbonPools) CarbonPools {
	h := 1.0 / float64(substeps)
	for j := 0; j < substeps; j++ {
		if buf != nil {
			buf[j] = p
		}
		p = rk4Step(p, k, x, input, h)
	}
	return p
}
