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

// Package insoc implements a four-pool soil organic carbon turnover
// model (RothC 26.3 family) for estimating the soil carbon impacts of
// land management interventions. Carbon enters the soil as crop and
// tree residues, is split between a decomposable and a resistant pool,
// and decays with first-order kinetics into microbial biomass, humified
// matter, and CO2, at rates modified by monthly temperature, moisture,
// and soil cover. The model runs either forward in time from known
// initial pools, or inversely to find the constant input rate that
// reproduces a measured equilibrium stock.
package insoc

import (
	"fmt"
	"time"
)

// Version gives the version number of this software.
const Version = "1.1.0"

// InSOC holds the current state of a model run. The struct itself is
// empty of behavior: functionality is added by appending manipulator
// functions to InitFuncs, RunFuncs, and CleanupFuncs, which are run in
// order by Init, Run, and Cleanup respectively. RunFuncs are repeated
// until Done is true; each repetition normally advances the model by
// one year.
type InSOC struct {
	InitFuncs    []ModelManipulator
	RunFuncs     []ModelManipulator
	CleanupFuncs []ModelManipulator

	// Done specifies whether the simulation is finished.
	Done bool

	// Profile describes the topsoil layer being simulated.
	Profile *SoilProfile

	// Climate holds the monthly climatology driving decomposition.
	Climate *Climate

	// Cover specifies the months in which the soil is covered by a
	// crop or canopy.
	Cover CoverSchedule

	// RMF is the annual decomposition rate-modifying factor calculated
	// from Climate, Profile, and Cover during initialization.
	RMF float64

	// Rates holds the effective (rate-modified) decomposition rate
	// constants for the current run.
	Rates RateConstants

	// Pools holds the current pool contents [t C ha⁻¹].
	Pools CarbonPools

	// Year is the number of complete model years run so far.
	Year int

	// Inputs holds the residue carbon reaching the soil, one entry per
	// prospective model year.
	Inputs []AnnualInput

	trajectory []CarbonPools
	substates  []CarbonPools
	targeted   bool
	fracYear   float64
	reached    bool
}

// Trajectory returns the year-by-year pool contents: element 0 is the
// initial state and element y the state after y years. A run that
// stopped at a target stock ends with the closest sub-step state
// instead of a year boundary.
func (m *InSOC) Trajectory() []CarbonPools {
	return m.trajectory
}

// FractionalYear returns the time, in years from the start of the run,
// of the last trajectory entry. It is fractional only for runs that
// stopped at a target stock mid-year.
func (m *InSOC) FractionalYear() float64 {
	if m.targeted {
		return m.fracYear
	}
	return float64(len(m.trajectory) - 1)
}

// TargetReached reports whether a run with a target stock passed
// through its closest approach to the target, rather than running out
// of input years while still approaching it.
func (m *InSOC) TargetReached() bool {
	return m.reached
}

// ModelManipulator is a function that modifies the state of the model.
type ModelManipulator func(m *InSOC) error

// Init initializes the model by running the InitFuncs.
func (m *InSOC) Init() error {
	for _, f := range m.InitFuncs {
		if err := f(m); err != nil {
			return err
		}
	}
	return nil
}

// Run repeatedly runs the RunFuncs until Done is true.
func (m *InSOC) Run() error {
	for !m.Done {
		for _, f := range m.RunFuncs {
			if err := f(m); err != nil {
				return err
			}
		}
	}
	return nil
}

// Cleanup finishes the simulation by running the CleanupFuncs.
func (m *InSOC) Cleanup() error {
	for _, f := range m.CleanupFuncs {
		if err := f(m); err != nil {
			return err
		}
	}
	return nil
}

// Setup returns a function that attaches the soil profile, climate, and
// cover schedule to the model and calculates the effective
// decomposition rates from the base rates and the rate-modifying
// factor.
func Setup(profile *SoilProfile, climate *Climate, cover CoverSchedule, base RateConstants) ModelManipulator {
	return func(m *InSOC) error {
		if profile == nil || climate == nil {
			return fmt.Errorf("insoc: model setup requires soil and climate data")
		}
		rmf, err := RateModifier(climate, profile, cover)
		if err != nil {
			return err
		}
		m.Profile = profile
		m.Climate = climate
		m.Cover = cover
		m.RMF = rmf
		m.Rates = base.Scale(rmf)
		return nil
	}
}

// InitialPools returns a function that sets the starting pool contents.
func InitialPools(p CarbonPools) ModelManipulator {
	return func(m *InSOC) error {
		m.Pools = p
		m.trajectory = append(m.trajectory[:0], p)
		return nil
	}
}

// InputSeries returns a function that attaches the annual residue
// inputs to the model.
func InputSeries(inputs []AnnualInput) ModelManipulator {
	return func(m *InSOC) error {
		m.Inputs = inputs
		return nil
	}
}

// CheckDuration returns a function that verifies that the input series
// covers the requested number of years. It is meant to be run during
// initialization so that length mismatches surface before any
// integration happens.
func CheckDuration(years int) ModelManipulator {
	return func(m *InSOC) error {
		if years < 1 {
			return fmt.Errorf("insoc: simulation length must be at least 1 year but is %d", years)
		}
		if len(m.Inputs) < years {
			return fmt.Errorf("insoc: input series covers %d years but the run requires %d", len(m.Inputs), years)
		}
		return nil
	}
}

// FixedYears returns a function that ends the simulation after the
// given number of years have been run.
func FixedYears(years int) ModelManipulator {
	return func(m *InSOC) error {
		if m.Year >= years {
			m.Done = true
		}
		return nil
	}
}

// SimulationStatus holds information about the progress of a
// simulation, one record per model year.
type SimulationStatus struct {
	// Year is the number of complete model years run so far.
	Year int

	// Stock is the current total carbon stock including inert
	// matter [t C ha⁻¹].
	Stock float64

	// Walltime is the total simulation run time so far.
	Walltime time.Duration

	// StepTime is the run time since the previous status message.
	StepTime time.Duration
}

func (s *SimulationStatus) String() string {
	return fmt.Sprintf("Year %-4d  stock=%-9.4g t C/ha  walltime=%6.3gs  Δwalltime=%4.2gs",
		s.Year, s.Stock, s.Walltime.Seconds(), s.StepTime.Seconds())
}

// Log returns a function that sends simulation status messages to c
// after each model year. If c is nil no messages are sent.
func Log(c chan *SimulationStatus) ModelManipulator {
	startTime := time.Now()
	stepTime := time.Now()
	return func(m *InSOC) error {
		if c == nil {
			return nil
		}
		c <- &SimulationStatus{
			Year:     m.Year,
			Stock:    m.Pools.Total() + m.Profile.InertMatter(),
			Walltime: time.Since(startTime),
			StepTime: time.Since(stepTime),
		}
		stepTime = time.Now()
		return nil
	}
}

// ConvergenceStatus holds information about how close a run is to
// meeting its convergence criterion.
type ConvergenceStatus struct {
	// Year is the model year (or, for equilibrium scans, the candidate
	// index) that the status describes.
	Year int

	// Value is the quantity being driven toward Target: the total
	// stock of the closest approach so far, or a candidate equilibrium
	// stock.
	Value float64

	// Target is the stock the run is trying to reach.
	Target float64

	// Improved reports whether this step improved on the previous
	// closest approach.
	Improved bool
}

func (c ConvergenceStatus) String() string {
	return fmt.Sprintf("Year %-4d  distance to target = %.4g t C/ha (improved: %v)",
		c.Year, c.Target-c.Value, c.Improved)
}
