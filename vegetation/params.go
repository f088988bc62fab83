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
along with InSOC.  If not, see <http://www.gnu.org/licenses/>.*/

package vegetation

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
)

// CropParams holds the parameters controlling residue production for a
// crop species. Slope and Intercept are the coefficients relating
// dry-matter yield to total residue production from table 11.2 of the
// IPCC (2006) national greenhouse gas inventory guidelines; the carbon
// and nitrogen values are mass fractions of residue dry matter.
type CropParams struct {
	Species       string  `toml:"species"`
	Slope         float64 `toml:"slope"`
	Intercept     float64 `toml:"intercept"`
	NitrogenAbove float64 `toml:"nitrogen_above"`
	NitrogenBelow float64 `toml:"nitrogen_below"`
	CarbonAbove   float64 `toml:"carbon_above"`
	CarbonBelow   float64 `toml:"carbon_below"`
	RootToShoot   float64 `toml:"root_to_shoot"`
}

// TreeParams holds the parameters for a tree species. Nitrogen is the
// nitrogen content of each biomass pool as a mass fraction of dry
// matter, ordered leaf, branch, stem, coarse root, fine root.
type TreeParams struct {
	Species     string     `toml:"species"`
	Density     float64    `toml:"density"` // wood density, g/cm3
	Carbon      float64    `toml:"carbon"`  // carbon fraction of dry matter
	Nitrogen    [5]float64 `toml:"nitrogen"`
	RootToShoot float64    `toml:"root_to_shoot"`
}

type cropTable struct {
	Crop []CropParams `toml:"crop"`
}

type treeTable struct {
	Tree []TreeParams `toml:"tree"`
}

// ReadCropParams reads a TOML table of crop parameters, keyed by
// lower-cased species name. Files in this format can replace or extend
// the built-in defaults.
func ReadCropParams(r io.Reader) (map[string]CropParams, error) {
	var t cropTable
	if _, err := toml.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("vegetation: decoding crop parameters: %v", err)
	}
	out := make(map[string]CropParams, len(t.Crop))
	for _, c := range t.Crop {
		out[strings.ToLower(c.Species)] = c
	}
	return out, nil
}

// ReadTreeParams reads a TOML table of tree parameters, keyed by
// lower-cased species name.
func ReadTreeParams(r io.Reader) (map[string]TreeParams, error) {
	var t treeTable
	if _, err := toml.NewDecoder(r).Decode(&t); err != nil {
		return nil, fmt.Errorf("vegetation: decoding tree parameters: %v", err)
	}
	out := make(map[string]TreeParams, len(t.Tree))
	for _, tr := range t.Tree {
		out[strings.ToLower(tr.Species)] = tr
	}
	return out, nil
}

// DefaultCrop returns the built-in parameters for the named crop
// species. Names are matched case-insensitively.
func DefaultCrop(species string) (CropParams, error) {
	c, ok := cropDefaults[strings.ToLower(species)]
	if !ok {
		return CropParams{}, fmt.Errorf("vegetation: no default parameters for crop species %q", species)
	}
	return c, nil
}

// DefaultTree returns the built-in parameters for the named tree
// species. Names are matched case-insensitively.
func DefaultTree(species string) (TreeParams, error) {
	t, ok := treeDefaults[strings.ToLower(species)]
	if !ok {
		return TreeParams{}, fmt.Errorf("vegetation: no default parameters for tree species %q", species)
	}
	return t, nil
}

// CropSpecies returns the sorted names of the crop species with
// built-in parameters.
func CropSpecies() []string {
	names := make([]string, 0, len(cropDefaults))
	for name := range cropDefaults {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TreeSpecies returns the sorted names of the tree species with
// built-in parameters.
func TreeSpecies() []string {
	names := make([]string, 0, len(treeDefaults))
	for name := range treeDefaults {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

var (
	cropDefaults map[string]CropParams
	treeDefaults map[string]TreeParams
)

func init() {
	var err error
	cropDefaults, err = ReadCropParams(strings.NewReader(defaultCropTOML))
	if err != nil {
		panic(err)
	}
	treeDefaults, err = ReadTreeParams(strings.NewReader(defaultTreeTOML))
	if err != nil {
		panic(err)
	}
}

// Built-in crop parameters. Slopes, intercepts, and nitrogen fractions
// follow table 11.2 of the IPCC (2006) guidelines; carbon fractions
// assume 42% carbon in herbaceous dry matter.
const defaultCropTOML = `
[[crop]]
species = "grains"
slope = 1.09
intercept = 0.88
nitrogen_above = 0.006
nitrogen_below = 0.009
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.22

[[crop]]
species = "maize"
slope = 1.03
intercept = 0.61
nitrogen_above = 0.006
nitrogen_below = 0.007
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.22

[[crop]]
species = "wheat"
slope = 1.51
intercept = 0.52
nitrogen_above = 0.006
nitrogen_below = 0.009
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.24

[[crop]]
species = "winter wheat"
slope = 1.61
intercept = 0.40
nitrogen_above = 0.006
nitrogen_below = 0.009
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.23

[[crop]]
species = "spring wheat"
slope = 1.29
intercept = 0.75
nitrogen_above = 0.006
nitrogen_below = 0.009
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.28

[[crop]]
species = "rice"
slope = 0.95
intercept = 2.46
nitrogen_above = 0.007
nitrogen_below = 0.009
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.16

[[crop]]
species = "barley"
slope = 0.98
intercept = 0.59
nitrogen_above = 0.007
nitrogen_below = 0.014
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.22

[[crop]]
species = "oats"
slope = 0.91
intercept = 0.89
nitrogen_above = 0.007
nitrogen_below = 0.008
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.25

[[crop]]
species = "millet"
slope = 1.43
intercept = 0.14
nitrogen_above = 0.007
nitrogen_below = 0.009
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.22

[[crop]]
species = "sorghum"
slope = 0.88
intercept = 1.33
nitrogen_above = 0.007
nitrogen_below = 0.006
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.22

[[crop]]
species = "rye"
slope = 1.09
intercept = 0.88
nitrogen_above = 0.005
nitrogen_below = 0.011
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.22

[[crop]]
species = "soyabean"
slope = 0.93
intercept = 1.35
nitrogen_above = 0.008
nitrogen_below = 0.008
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.19

[[crop]]
species = "dry bean"
slope = 0.36
intercept = 0.68
nitrogen_above = 0.01
nitrogen_below = 0.01
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.19

[[crop]]
species = "beans and pulses"
slope = 1.13
intercept = 0.85
nitrogen_above = 0.008
nitrogen_below = 0.008
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.19

[[crop]]
species = "potato"
slope = 0.10
intercept = 1.06
nitrogen_above = 0.019
nitrogen_below = 0.014
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.20

[[crop]]
species = "tubers"
slope = 0.10
intercept = 1.06
nitrogen_above = 0.019
nitrogen_below = 0.014
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.20

[[crop]]
species = "root crops"
slope = 1.07
intercept = 1.54
nitrogen_above = 0.016
nitrogen_below = 0.014
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.20

[[crop]]
species = "peanut"
slope = 1.07
intercept = 1.54
nitrogen_above = 0.016
nitrogen_below = 0.014
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.20

[[crop]]
species = "alfalfa"
slope = 0.29
intercept = 0.0
nitrogen_above = 0.027
nitrogen_below = 0.019
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.40

[[crop]]
species = "non-legume hay"
slope = 0.18
intercept = 0.0
nitrogen_above = 0.015
nitrogen_below = 0.012
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.54

[[crop]]
species = "n-fixing forages"
slope = 0.30
intercept = 0.0
nitrogen_above = 0.027
nitrogen_below = 0.022
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.40

[[crop]]
species = "non-n-fixing forages"
slope = 0.30
intercept = 0.0
nitrogen_above = 0.015
nitrogen_below = 0.012
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.54

[[crop]]
species = "perennial grasses"
slope = 0.30
intercept = 0.0
nitrogen_above = 0.015
nitrogen_below = 0.012
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.80

[[crop]]
species = "grass-clover mixtures"
slope = 0.30
intercept = 0.0
nitrogen_above = 0.025
nitrogen_below = 0.016
carbon_above = 0.42
carbon_below = 0.42
root_to_shoot = 0.80
`

// Built-in tree parameters for common agroforestry plantings. Nitrogen
// fractions are ordered leaf, branch, stem, coarse root, fine root.
const defaultTreeTOML = `
[[tree]]
species = "generic agroforestry"
density = 0.58
carbon = 0.48
nitrogen = [0.025, 0.007, 0.005, 0.008, 0.012]
root_to_shoot = 0.25

[[tree]]
species = "grevillea robusta"
density = 0.54
carbon = 0.48
nitrogen = [0.022, 0.006, 0.004, 0.007, 0.011]
root_to_shoot = 0.25

[[tree]]
species = "eucalyptus"
density = 0.64
carbon = 0.47
nitrogen = [0.018, 0.005, 0.003, 0.006, 0.010]
root_to_shoot = 0.20

[[tree]]
species = "faidherbia albida"
density = 0.55
carbon = 0.47
nitrogen = [0.030, 0.008, 0.005, 0.009, 0.015]
root_to_shoot = 0.27
`
