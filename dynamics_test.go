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
	"math"
	"testing"
)

func TestDecayAgainstAnalyticSolution(t *testing.T) {
	// With no input and no recycling into biomass or humus, each pool
	// decays as C·e^(-kt). The fastest pool is the hardest case for
	// the integrator.
	k := RateConstants{10, 0.3, 0.66, 0.02}
	x := PartitionCoefficients{1, 0, 0, 0}
	p0 := CarbonPools{1, 1, 1, 1}
	p := integrateYear(p0, k, x, 0, DefaultSubsteps, nil)
	for i := range p {
		want := math.Exp(-k[i])
		if different(p[i], want, 1e-8) {
			t.Errorf("%s after one year=%g (it should equal %g)", poolNames[i], p[i], want)
		}
	}
}

func TestSteadyStateHolds(t *testing.T) {
	// At k=1 for every pool and partition {0.5, 0.5, 0.2, 0.2} with
	// unit input, the steady state is {1/2, 1/2, 1/3, 1/3}. The
	// integrator must not drift away from it.
	k := RateConstants{1, 1, 1, 1}
	x := PartitionCoefficients{0.5, 0.5, 0.2, 0.2}
	steady := CarbonPools{0.5, 0.5, 1. / 3., 1. / 3.}
	p := integrateYear(steady, k, x, 1, DefaultSubsteps, nil)
	for i := range p {
		if absDifferent(p[i], steady[i], 1e-12) {
			t.Errorf("%s drifted from %g to %g", poolNames[i], steady[i], p[i])
		}
	}
}

func TestIntegrationOrder(t *testing.T) {
	// Halving the step size must not change the result appreciably;
	// otherwise the default step is too coarse.
	k := DefaultRateConstants().Scale(2.5)
	x := EquilibriumPartition(23.4)
	p0 := CarbonPools{0.1, 10, 1, 30}
	coarse := integrateYear(p0, k, x, 3, DefaultSubsteps, nil)
	fine := integrateYear(p0, k, x, 3, 2*DefaultSubsteps, nil)
	if different(coarse.Total(), fine.Total(), 1e-9) {
		t.Errorf("total stock %g at %d steps vs %g at %d steps",
			coarse.Total(), DefaultSubsteps, fine.Total(), 2*DefaultSubsteps)
	}
}

func TestSubstateRecording(t *testing.T) {
	k := DefaultRateConstants()
	x := EquilibriumPartition(23.4)
	p0 := CarbonPools{0, 0, 0, 0}
	buf := make([]CarbonPools, 100)
	end := integrateYear(p0, k, x, 2, 100, buf)

	if buf[0] != p0 {
		t.Errorf("buf[0]=%v (it should hold the initial state %v)", buf[0], p0)
	}
	// Starting from empty soil under constant input, the stock grows
	// through every sub-step of the first year.
	prev := buf[0].Total()
	for j := 1; j < len(buf); j++ {
		if buf[j].Total() <= prev {
			t.Fatalf("total stock %g at sub-step %d is not above %g", buf[j].Total(), j, prev)
		}
		prev = buf[j].Total()
	}
	if end.Total() <= prev {
		t.Errorf("end-of-year stock %g is not above the last sub-step %g", end.Total(), prev)
	}
}

func TestDerivativesConserveThroughput(t *testing.T) {
	// The change in total carbon is input minus the CO2 share of the
	// decomposition throughput.
	k := DefaultRateConstants().Scale(1.7)
	x := EquilibriumPartition(40)
	p := CarbonPools{0.3, 8, 1.2, 25}
	const input = 2.4
	d := derivatives(p, k, x, input)

	through := k[DPM]*p[DPM] + k[RPM]*p[RPM] + k[BIO]*p[BIO] + k[HUM]*p[HUM]
	want := input - through*(1-x[BIO]-x[HUM])
	got := d[DPM] + d[RPM] + d[BIO] + d[HUM]
	if different(got, want, 1e-12) {
		t.Errorf("total derivative=%g (it should equal %g)", got, want)
	}
}
