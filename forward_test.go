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

func TestIntegrateForward(t *testing.T) {
	profile := NewSoilProfile(23.4, 60)
	climate := uniformClimate(20, 200, 100)
	initial := CarbonPools{0.1, 5, 0.5, 20}
	inputs := make([]AnnualInput, 5)
	for i := range inputs {
		inputs[i] = AnnualInput{Crop: 1.2, Tree: 0.8}
	}

	c := make(chan *SimulationStatus, len(inputs)+1)
	m, err := IntegrateForward(profile, climate, FullCover(), DefaultRateConstants(), initial, inputs, c)
	if err != nil {
		t.Fatal(err)
	}

	traj := m.Trajectory()
	if len(traj) != len(inputs)+1 {
		t.Fatalf("trajectory has %d entries (it should have %d)", len(traj), len(inputs)+1)
	}
	if traj[0] != initial {
		t.Errorf("trajectory[0]=%v (it should hold the initial pools %v)", traj[0], initial)
	}
	if m.Year != len(inputs) || !m.Done {
		t.Errorf("year=%d done=%v after the run", m.Year, m.Done)
	}
	if m.Pools != traj[len(traj)-1] {
		t.Errorf("pools=%v (they should match the last trajectory entry %v)", m.Pools, traj[len(traj)-1])
	}
	if m.FractionalYear() != float64(len(inputs)) {
		t.Errorf("fractional year=%g (it should equal %d)", m.FractionalYear(), len(inputs))
	}
	if m.TargetReached() {
		t.Error("a fixed-length run should not report a target")
	}

	if len(c) != len(inputs) {
		t.Fatalf("%d status messages (there should be one per year)", len(c))
	}
	first := <-c
	if first.Year != 1 {
		t.Errorf("first status year=%d (it should equal 1)", first.Year)
	}
	if absDifferent(first.Stock, traj[1].Total()+profile.InertMatter(), 1e-12) {
		t.Errorf("first status stock=%g (it should equal %g)", first.Stock, traj[1].Total()+profile.InertMatter())
	}
}

func TestIntegrateForwardEmptySeries(t *testing.T) {
	profile := NewSoilProfile(23.4, 60)
	climate := uniformClimate(20, 200, 100)
	_, err := IntegrateForward(profile, climate, FullCover(), DefaultRateConstants(), CarbonPools{}, nil, nil)
	if err == nil {
		t.Error("a run without inputs should fail before integrating")
	}
}

func TestCheckDuration(t *testing.T) {
	m := &InSOC{Inputs: make([]AnnualInput, 3)}
	if err := CheckDuration(0)(m); err == nil {
		t.Error("zero years should be rejected")
	}
	if err := CheckDuration(5)(m); err == nil {
		t.Error("a 3-year series cannot support a 5-year run")
	}
	if err := CheckDuration(3)(m); err != nil {
		t.Error(err)
	}
}

func TestAdvanceYearInvalidInput(t *testing.T) {
	profile := NewSoilProfile(23.4, 60)
	climate := uniformClimate(20, 200, 100)
	inputs := []AnnualInput{{Crop: -1, Tree: 2}}
	_, err := IntegrateForward(profile, climate, FullCover(), DefaultRateConstants(), CarbonPools{}, inputs, nil)
	if err == nil {
		t.Error("an input mix outside the archetypes should be rejected")
	}
}

func TestIntegrateToTarget(t *testing.T) {
	// Spin-up style run: decay from a high equilibrium state, with no
	// inputs, down to a measured stock.
	profile := NewSoilProfile(23.4, 40)
	climate := uniformClimate(20, 200, 100)
	initial := CarbonPools{0.2, 20, 2, 40}
	inputs := make([]AnnualInput, 30)
	target := profile.InitialStock

	m, err := IntegrateToTarget(profile, climate, BareSoil(), DefaultRateConstants(), initial, inputs, target, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !m.TargetReached() {
		t.Error("the decay should pass through the target")
	}
	frac := m.FractionalYear()
	if frac <= 0 || frac >= float64(len(inputs)) {
		t.Fatalf("fractional year=%g (it should be inside the run)", frac)
	}
	traj := m.Trajectory()
	if want := int(math.Floor(frac)) + 2; len(traj) != want {
		t.Errorf("trajectory has %d entries (it should have %d for a crossing at year %g)", len(traj), want, frac)
	}
	last := traj[len(traj)-1]
	if m.Pools != last {
		t.Errorf("pools=%v (they should match the last trajectory entry)", m.Pools)
	}
	if diff := math.Abs(last.Total() + profile.InertMatter() - target); diff > 0.01 {
		t.Errorf("closest approach misses the target by %g t C/ha", diff)
	}
}

func TestIntegrateToTargetExhausted(t *testing.T) {
	// The target is reachable only asymptotically; the series ends
	// while the stock is still approaching it.
	profile := NewSoilProfile(23.4, 40)
	climate := uniformClimate(20, 200, 100)
	initial := CarbonPools{0.2, 20, 2, 40}
	inputs := make([]AnnualInput, 2)

	m, err := IntegrateToTarget(profile, climate, BareSoil(), DefaultRateConstants(), initial, inputs, 5, nil)
	if err != nil {
		t.Fatal(err)
	}
	if m.TargetReached() {
		t.Error("the run should report the target as not reached")
	}
	if len(m.Trajectory()) != 3 {
		t.Errorf("trajectory has %d entries (it should have 3)", len(m.Trajectory()))
	}
	frac := m.FractionalYear()
	if frac <= 1.99 || frac >= 2 {
		t.Errorf("fractional year=%g (the closest approach should be the last sub-step)", frac)
	}
}

func TestIntegrateToTargetAtStart(t *testing.T) {
	// The initial state already matches the target; the first year
	// can only move away from it.
	profile := NewSoilProfile(23.4, 40)
	climate := uniformClimate(20, 200, 100)
	initial := CarbonPools{0.2, 20, 2, 40}
	inputs := make([]AnnualInput, 10)
	target := initial.Total() + profile.InertMatter()

	m, err := IntegrateToTarget(profile, climate, BareSoil(), DefaultRateConstants(), initial, inputs, target, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !m.TargetReached() {
		t.Error("the initial state is the closest approach; the target counts as reached")
	}
	if m.FractionalYear() != 0 {
		t.Errorf("fractional year=%g (it should equal 0)", m.FractionalYear())
	}
	if len(m.Trajectory()) != 2 {
		t.Errorf("trajectory has %d entries (it should have 2)", len(m.Trajectory()))
	}
	if m.Pools != initial {
		t.Errorf("pools=%v (they should hold the initial state %v)", m.Pools, initial)
	}
}
