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

// targetSlack is the minimum reduction in the distance to the target
// stock that counts as an improvement during solve-to-value runs.
const targetSlack = 1e-8

// AdvanceYear returns a function that advances the model by one year:
// it takes the next entry of the input series, partitions it according
// to its crop/woody split, and integrates the pools with the given
// number of sub-steps, recording the state at every sub-step.
func AdvanceYear(substeps int) ModelManipulator {
	return func(m *InSOC) error {
		if substeps < 1 {
			return fmt.Errorf("insoc: integration requires at least 1 sub-step per year but has %d", substeps)
		}
		if m.Year >= len(m.Inputs) {
			return fmt.Errorf("insoc: no residue input for year %d", m.Year+1)
		}
		in := m.Inputs[m.Year]
		x := InputPartition(m.Profile.Clay, in.Crop, in.Tree)
		if err := x.Valid(); err != nil {
			return err
		}
		if len(m.substates) != substeps {
			m.substates = make([]CarbonPools, substeps)
		}
		m.Pools = integrateYear(m.Pools, m.Rates, x, in.Total(), substeps, m.substates)
		m.Year++
		m.trajectory = append(m.trajectory, m.Pools)
		return nil
	}
}

// TargetStock returns a function that stops a forward run at its
// closest approach to a total stock target [t C ha⁻¹, inert matter
// included]. After each model year it scans the year's sub-step states
// in order, keeping the running closest approach; a sub-step that
// fails to improve the approach by at least targetSlack ends the
// within-year scan, and a year that contributes no improvement ends
// the run. On finishing, the trajectory is truncated at the closest
// approach and the final entry replaced by the sub-step state there.
// Progress is reported on c if it is non-nil.
//
// A run whose input series ends while the stock is still approaching
// the target finishes at its closest approach but reports the target
// as not reached.
func TargetStock(target float64, c chan ConvergenceStatus) ModelManipulator {
	best := math.Inf(1)
	bestYear, bestStep := 0, 0
	var bestPools CarbonPools
	return func(m *InSOC) error {
		iom := m.Profile.InertMatter()
		improved := false
		for j, p := range m.substates {
			diff := math.Abs(p.Total() + iom - target)
			if best-diff < targetSlack {
				break
			}
			best = diff
			bestYear, bestStep, bestPools = m.Year, j, p
			improved = true
		}

		if c != nil {
			c <- ConvergenceStatus{
				Year:     m.Year,
				Value:    bestPools.Total() + iom,
				Target:   target,
				Improved: improved,
			}
		}

		switch {
		case !improved:
			m.finishAtTarget(bestYear, bestStep, bestPools, true)
		case m.Year >= len(m.Inputs):
			m.finishAtTarget(bestYear, bestStep, bestPools, false)
		}
		return nil
	}
}

// finishAtTarget ends a solve-to-value run at the recorded closest
// approach: sub-step bestStep of model year bestYear (1-based).
// bestYear 0 means no sub-step was ever an approach (possible only
// with non-finite state) and leaves the initial pools in place.
func (m *InSOC) finishAtTarget(bestYear, bestStep int, bestPools CarbonPools, reached bool) {
	if bestYear > 0 {
		m.trajectory = m.trajectory[:bestYear+1]
		m.trajectory[bestYear] = bestPools
		m.Pools = bestPools
		m.fracYear = float64(bestYear-1) + float64(bestStep)/float64(len(m.substates))
	} else {
		m.trajectory = m.trajectory[:1]
		m.Pools = m.trajectory[0]
	}
	m.targeted = true
	m.reached = reached
	m.Done = true
}

// IntegrateForward runs the model forward for len(inputs) years from
// the given initial pools, returning the finished model. The
// trajectory has one entry per year boundary, starting with the
// initial pools. Per-year progress is reported on c if it is non-nil.
func IntegrateForward(profile *SoilProfile, climate *Climate, cover CoverSchedule, rates RateConstants, initial CarbonPools, inputs []AnnualInput, c chan *SimulationStatus) (*InSOC, error) {
	years := len(inputs)
	m := &InSOC{
		InitFuncs: []ModelManipulator{
			Setup(profile, climate, cover, rates),
			InitialPools(initial),
			InputSeries(inputs),
			CheckDuration(years),
		},
		RunFuncs: []ModelManipulator{
			AdvanceYear(DefaultSubsteps),
			Log(c),
			FixedYears(years),
		},
	}
	if err := m.Init(); err != nil {
		return nil, err
	}
	if err := m.Run(); err != nil {
		return nil, err
	}
	if err := m.Cleanup(); err != nil {
		return nil, err
	}
	return m, nil
}

// IntegrateToTarget runs the model forward from the given initial
// pools until its total stock (inert matter included) makes its
// closest approach to target, or until the input series runs out.
// Convergence progress is reported on c if it is non-nil. Use
// TargetReached and FractionalYear on the returned model to see how
// the run ended.
func IntegrateToTarget(profile *SoilProfile, climate *Climate, cover CoverSchedule, rates RateConstants, initial CarbonPools, inputs []AnnualInput, target float64, c chan ConvergenceStatus) (*InSOC, error) {
	m := &InSOC{
		InitFuncs: []ModelManipulator{
			Setup(profile, climate, cover, rates),
			InitialPools(initial),
			InputSeries(inputs),
			CheckDuration(1),
		},
		RunFuncs: []ModelManipulator{
			AdvanceYear(DefaultSubsteps),
			TargetStock(target, c),
		},
	}
	if err := m.Init(); err != nil {
		return nil, err
	}
	if err := m.Run(); err != nil {
		return nil, err
	}
	if err := m.Cleanup(); err != nil {
		return nil, err
	}
	return m, nil
}
