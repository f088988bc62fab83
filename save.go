package insoc

import (
	"encoding/gob"
	"fmt"
	"io"
)

// modelState is the gob image of a model run: everything needed to
// resume or inspect it later.
type modelState struct {
	Profile    *SoilProfile
	Climate    *Climate
	Cover      CoverSchedule
	RMF        float64
	Rates      RateConstants
	Pools      CarbonPools
	Year       int
	Inputs     []AnnualInput
	Trajectory []CarbonPools
	Targeted   bool
	FracYear   float64
	Reached    bool
}

// Save returns a function that saves the model state to a gob stream
// (format description at https://golang.org/pkg/encoding/gob/), so a
// spun-up state can seed later runs.
func Save(w io.Writer) ModelManipulator {
	return func(m *InSOC) error {
		e := gob.NewEncoder(w)
		s := modelState{
			Profile:    m.Profile,
			Climate:    m.Climate,
			Cover:      m.Cover,
			RMF:        m.RMF,
			Rates:      m.Rates,
			Pools:      m.Pools,
			Year:       m.Year,
			Inputs:     m.Inputs,
			Trajectory: m.trajectory,
			Targeted:   m.targeted,
			FracYear:   m.fracYear,
			Reached:    m.reached,
		}
		if err := e.Encode(s); err != nil {
			return fmt.Errorf("insoc.InSOC.Save: %v", err)
		}
		return nil
	}
}

// Load returns a function that loads a previously Saved state into an
// InSOC object.
func Load(r io.Reader) ModelManipulator {
	return func(m *InSOC) error {
		dec := gob.NewDecoder(r)
		var s modelState
		if err := dec.Decode(&s); err != nil {
			return fmt.Errorf("insoc.InSOC.Load: %v", err)
		}
		m.Profile = s.Profile
		m.Climate = s.Climate
		m.Cover = s.Cover
		m.RMF = s.RMF
		m.Rates = s.Rates
		m.Pools = s.Pools
		m.Year = s.Year
		m.Inputs = s.Inputs
		m.trajectory = s.Trajectory
		m.targeted = s.Targeted
		m.fracYear = s.FracYear
		m.reached = s.Reached
		return nil
	}
}
