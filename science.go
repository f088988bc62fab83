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
)

const (
	// coverFactor slows decomposition in months in which the soil is
	// covered by a growing crop or canopy.
	coverFactor = 0.6

	// deficitFraction is the fraction of open-pan evaporation that
	// contributes to the accumulated topsoil moisture deficit.
	deficitFraction = 0.75

	// bareCapFraction is the fraction of the deficit capacity beyond
	// which a bare soil cannot dry out further.
	bareCapFraction = 0.556

	// moistureLimitFraction is the fraction of the deficit capacity up
	// to which decomposition proceeds at the full rate.
	moistureLimitFraction = 0.444
)

// RateModifier returns the annual decomposition rate-modifying factor
// for the given climatology, soil, and cover schedule: the mean over
// the twelve months of the product of the temperature, moisture, and
// cover factors.
func RateModifier(climate *Climate, profile *SoilProfile, cover CoverSchedule) (float64, error) {
	b, err := moistureFactor(climate, profile, cover)
	if err != nil {
		return 0, err
	}
	var sum float64
	for m := 0; m < 12; m++ {
		a := temperatureFactor(climate.Temperature[m])
		c := 1.0
		if cover[m] {
			c = coverFactor
		}
		sum += a * b[m] * c
	}
	return sum / 12, nil
}

// temperatureFactor returns the RothC temperature rate modifier for a
// mean monthly air temperature t [°C]. Decomposition stops below -5 °C.
func temperatureFactor(t float64) float64 {
	if t <= -5 {
		return 0
	}
	return 47.91 / (1 + math.Exp(106.06/(t+18.27)))
}

// moistureFactor returns the twelve monthly moisture rate modifiers.
// The calculation follows RothC 26.3: a topsoil moisture deficit is
// accumulated month by month from the start of the drying season, held
// at 0.556 of capacity while the soil is bare, and refilled by rain;
// the modifier falls linearly from 1 to 0.2 as the deficit grows past
// 0.444 of capacity.
func moistureFactor(climate *Climate, profile *SoilProfile, cover CoverSchedule) ([12]float64, error) {
	var b [12]float64

	start, dries := deficitStart(climate)
	if !dries {
		for m := range b {
			b[m] = 1
		}
		return b, nil
	}

	cap := profile.deficitCapacity()
	acc := 0.0
	for i := 0; i < 12; i++ {
		m := (start + i) % 12
		d := climate.Rain[m] - deficitFraction*climate.Evap[m]
		switch {
		case d >= 0:
			// Rain refills the deficit, at most back to zero.
			acc = math.Min(acc+d, 0)
		case cover[m]:
			// A growing crop dries the soil down to capacity.
			acc = math.Max(acc+d, cap)
		default:
			// Bare soil cannot dry below 0.556 of capacity. If a
			// previous crop already dried it further, hold.
			if acc >= bareCapFraction*cap {
				acc = math.Max(acc+d, bareCapFraction*cap)
			}
		}

		switch {
		case acc >= moistureLimitFraction*cap:
			b[m] = 1
		case acc >= cap:
			b[m] = 0.2 + 0.8*(cap-acc)/(bareCapFraction*cap)
		case acc < cap:
			return b, fmt.Errorf("insoc: month %d accumulated moisture deficit %g mm exceeds capacity %g mm", m+1, acc, cap)
		default:
			// NaN climatology propagates to the modifier.
			b[m] = acc
		}
	}
	return b, nil
}

// deficitStart locates the start of the moisture deficit recurrence:
// one month before the first month with an evaporative excess that
// follows the wet season (wrapping around the year). The second return
// value is false when no month has an evaporative excess, in which
// case the soil never dries and the moisture modifier is 1 everywhere.
func deficitStart(climate *Climate) (int, bool) {
	var d [12]float64
	for m := 0; m < 12; m++ {
		d[m] = climate.Rain[m] - climate.Evap[m]
	}

	firstWet := -1
	for m := 0; m < 12; m++ {
		if d[m] > 0 {
			firstWet = m
			break
		}
	}
	if firstWet < 0 {
		log.Printf("insoc: evaporation exceeds precipitation in every month; starting the moisture deficit in January")
		firstWet = 0
	}

	for i := 0; i < 12; i++ {
		m := (firstWet + i) % 12
		if d[m] < 0 {
			return (m + 11) % 12, true
		}
	}
	return 0, false
}
