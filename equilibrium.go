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

	"gonum.org/v1/gonum/mat"
)

// Candidate input grid for the equilibrium scan [t C ha⁻¹ yr⁻¹].
// Candidate i carries an input of gridStart + i·gridStep; the last
// candidate is just below 10 t C ha⁻¹ yr⁻¹.
const (
	gridStart = 0.01
	gridStep  = 0.001
	gridN     = 9990
)

// eqInitialBest is the distance to the target that the first recorded
// candidate must beat.
const eqInitialBest = 1e3

const (
	steadyTol     = 1e-10
	steadyMaxIter = 50
)

// EquilibriumStatus describes how an equilibrium scan ended.
type EquilibriumStatus int

const (
	// EqConverged means the scan passed through a minimum of the
	// distance to the target stock.
	EqConverged EquilibriumStatus = iota

	// EqNoImprovement means even the smallest candidate input
	// overshoots the target; the result holds the grid minimum.
	EqNoImprovement

	// EqGridExhausted means the largest candidate input still falls
	// short of the target; the result holds the grid maximum.
	EqGridExhausted
)

func (s EquilibriumStatus) String() string {
	switch s {
	case EqConverged:
		return "converged"
	case EqNoImprovement:
		return "no improvement over the smallest input"
	case EqGridExhausted:
		return "input grid exhausted"
	default:
		return fmt.Sprintf("unknown status %d", int(s))
	}
}

// Equilibrium holds the result of an inverse model run: the constant
// annual residue input whose steady state best reproduces the
// equilibrium carbon stock inferred from a soil measurement.
type Equilibrium struct {
	// Input is the best-fitting annual residue input [t C ha⁻¹ yr⁻¹].
	Input float64

	// Pools is the steady state reached under Input.
	Pools CarbonPools

	// Stock is the total carbon of that steady state including inert
	// matter [t C ha⁻¹].
	Stock float64

	// Target is the equilibrium stock the scan tried to reproduce
	// [t C ha⁻¹].
	Target float64

	// Partition holds the woody partition coefficients the scan
	// decomposed the candidate inputs with.
	Partition PartitionCoefficients

	// Status reports how the scan ended.
	Status EquilibriumStatus
}

// steadyState solves for the pool contents at which decomposition
// exactly balances a constant residue input, by Newton iteration on
// the turnover equations. The equations are linear in the pools, so
// the iteration lands on the solution in a single step; the loop and
// tolerance guard against a degenerate rate set.
func steadyState(k RateConstants, x PartitionCoefficients, input float64) (CarbonPools, error) {
	jac := mat.NewDense(4, 4, []float64{
		-k[DPM], 0, 0, 0,
		0, -k[RPM], 0, 0,
		k[DPM] * x[BIO], k[RPM] * x[BIO], k[BIO]*x[BIO] - k[BIO], k[HUM] * x[BIO],
		k[DPM] * x[HUM], k[RPM] * x[HUM], k[BIO] * x[HUM], k[HUM]*x[HUM] - k[HUM],
	})
	p := CarbonPools{0.1, 10, 0, 0}
	for iter := 0; iter < steadyMaxIter; iter++ {
		f := derivatives(p, k, x, input)
		norm := 0.0
		for _, v := range f {
			norm = math.Max(norm, math.Abs(v))
		}
		if norm < steadyTol {
			return p, nil
		}
		var step mat.VecDense
		if err := step.SolveVec(jac, mat.NewVecDense(4, f[:])); err != nil {
			return p, fmt.Errorf("insoc: degenerate decomposition rates: %v", err)
		}
		for i := range p {
			p[i] -= step.AtVec(i)
		}
	}
	return p, fmt.Errorf("insoc: steady state search did not converge in %d iterations", steadyMaxIter)
}

// EquilibriumScan returns a function that evaluates one candidate
// input per call, walking the input grid from the bottom until the
// distance to the target stock stops shrinking. The best candidate so
// far is recorded in eq and in the model pools. Progress is reported
// on c if it is non-nil.
//
// The scan assumes the site carried permanent woody vegetation while
// the equilibrium formed, so residue is partitioned with the woody
// decomposability.
func EquilibriumScan(eq *Equilibrium, c chan ConvergenceStatus) ModelManipulator {
	best := eqInitialBest
	updates := 0
	return func(m *InSOC) error {
		i := m.Year
		if i >= gridN {
			eq.Status = EqGridExhausted
			m.Done = true
			return nil
		}
		if i == 0 {
			eq.Target = m.Profile.EquilibriumStock()
			eq.Partition = EquilibriumPartition(m.Profile.Clay)
			if err := eq.Partition.Valid(); err != nil {
				return err
			}
		}

		input := gridStart + float64(i)*gridStep
		pools, err := steadyState(m.Rates, eq.Partition, input)
		if err != nil {
			return err
		}
		stock := pools.Total() + m.Profile.InertMatter()
		diff := math.Abs(stock - eq.Target)
		better := diff < best

		if c != nil {
			c <- ConvergenceStatus{Year: i, Value: stock, Target: eq.Target, Improved: better}
		}

		switch {
		case better:
			updates++
			best = diff
			eq.Input = input
			eq.Pools = pools
			eq.Stock = stock
			m.Pools = pools
		case diff > best:
			if updates > 1 {
				eq.Status = EqConverged
			} else {
				eq.Status = EqNoImprovement
			}
			m.Done = true
			return nil
		}
		m.Year++
		return nil
	}
}

// SolveEquilibrium runs the inverse model for a site: it finds the
// constant annual residue input whose steady state, plus inert matter,
// best reproduces the equilibrium stock implied by the measured soil
// carbon. Progress is reported on c if it is non-nil. A scan that did
// not bracket the target is reported in the result status and logged,
// not returned as an error.
func SolveEquilibrium(profile *SoilProfile, climate *Climate, cover CoverSchedule, rates RateConstants, c chan ConvergenceStatus) (*Equilibrium, error) {
	eq := new(Equilibrium)
	m := &InSOC{
		InitFuncs: []ModelManipulator{Setup(profile, climate, cover, rates)},
		RunFuncs:  []ModelManipulator{EquilibriumScan(eq, c)},
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
	if eq.Status != EqConverged {
		log.Printf("insoc: equilibrium scan for target %g t C/ha: %v", eq.Target, eq.Status)
	}
	return eq, nil
}
