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

// Package insocutil wires the soil carbon engine, the residue models,
// and the data providers into the insoc command line tool.
package insocutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// DefaultYears is the simulation length when the scenario does not
// give one.
const DefaultYears = 30

// A Scenario describes one accounting analysis: where the field is,
// where its soil and climate data come from, and the baseline and
// project managements to be compared.
type Scenario struct {
	// Name identifies the project the analysis belongs to.
	Name string `toml:"name"`

	// UUID is the identifier the questionnaire assigned to this
	// analysis, if any.
	UUID string `toml:"uuid"`

	// Timestamp records when the scenario was prepared, in RFC 3339
	// form. It is informational only.
	Timestamp string `toml:"timestamp"`

	// Years is the length of the simulation. Zero means DefaultYears.
	Years int `toml:"years"`

	// AccountingYears is the length of the emission accounting
	// period. Zero means the full simulation.
	AccountingYears int `toml:"accounting_years"`

	// Latitude and Longitude locate the field in WGS84 degrees. They
	// are needed when the soil or climate comes from a spatial
	// dataset.
	Latitude  float64 `toml:"latitude"`
	Longitude float64 `toml:"longitude"`

	// CropParams and TreeParams name TOML species parameter tables
	// that take precedence over the built-in defaults.
	CropParams string `toml:"crop_params"`
	TreeParams string `toml:"tree_params"`

	Soil    SoilSource    `toml:"soil"`
	Climate ClimateSource `toml:"climate"`

	Baseline Management `toml:"baseline"`
	Project  Management `toml:"project"`
}

// SoilSource chooses where the initial soil carbon stock and texture
// come from. Exactly one source may be given: a two-value CSV table
// (stock, clay), a soil survey shapefile queried at the scenario
// location, or literal Stock and Clay values.
type SoilSource struct {
	CSV    string  `toml:"csv"`
	Survey string  `toml:"survey"`
	Stock  float64 `toml:"stock"` // t C/ha
	Clay   float64 `toml:"clay"`  // percent
}

// ClimateSource chooses where the monthly climate comes from: a 3x12
// CSV table or a gridded climatology raster queried at the scenario
// location. PET marks the third CSV row as potential
// evapotranspiration rather than open-pan evaporation.
type ClimateSource struct {
	CSV         string `toml:"csv"`
	PET         bool   `toml:"pet"`
	Climatology string `toml:"climatology"`
}

// A Management describes the land use of one arm of the comparison:
// what grows on the field, what is brought to it, and how it burns.
// Every management needs at least one residue source; a management
// that adds nothing to the soil can say so with an all-zero litter
// entry.
type Management struct {
	// CoverStart and CoverEnd delimit the months (1 to 12, inclusive)
	// during which the soil is covered by a growing crop or canopy. A
	// season that wraps the year end, say October to March, has
	// CoverEnd before CoverStart. Both zero means the soil is always
	// bare.
	CoverStart int `toml:"cover_start"`
	CoverEnd   int `toml:"cover_end"`

	Crops      []CropSpec       `toml:"crops"`
	Trees      []TreeSpec       `toml:"trees"`
	Litter     []LitterSpec     `toml:"litter"`
	Fertilizer []FertilizerSpec `toml:"fertilizer"`

	// FireInterval burns the field in year zero and every interval
	// years after. Zero means the field never burns. FireYears names
	// additional burn years explicitly.
	FireInterval int   `toml:"fire_interval"`
	FireYears    []int `toml:"fire_years,omitempty"`

	// BurnOff burns the crop residues removed from the field off the
	// farm instead of leaving them to other uses.
	BurnOff bool `toml:"burn_off"`
}

// A CropSpec describes one annual crop. The yield series is either an
// explicit per-year Yields schedule or a constant Yield applied from
// FirstYear through LastYear (zero-based, inclusive); years outside
// the window have no crop. A zero LastYear means the final simulation
// year.
type CropSpec struct {
	// Species names an entry in the crop parameter table.
	Species string `toml:"species"`

	Yield     float64 `toml:"yield"` // dry matter, t/ha
	FirstYear int     `toml:"first_year"`
	LastYear  int     `toml:"last_year"`

	Yields []float64 `toml:"yields,omitempty"`

	// LeftInField is the fraction of above-ground residues remaining
	// on the field after harvest.
	LeftInField float64 `toml:"left_in_field"`
}

// A TreeSpec describes one cohort of trees planted together.
type TreeSpec struct {
	// Species names an entry in the tree parameter table.
	Species string `toml:"species"`

	YearPlanted  int     `toml:"year_planted"`
	StandDensity float64 `toml:"stand_density"` // trees/ha

	// Ages and either Biomass (per-tree kg C) or Diameters (stem
	// diameters in cm, converted through Allometric) are the growth
	// measurements the growth curve is fit to.
	Ages      []float64 `toml:"ages,omitempty"`
	Biomass   []float64 `toml:"biomass,omitempty"`
	Diameters []float64 `toml:"diameters,omitempty"`

	// Allometric names the diameter-to-biomass relation: ryan (the
	// default), chave-dry, chave-moist, or chave-wet.
	Allometric string `toml:"allometric"`

	// Thinning maps simulation years to the fraction of the stand
	// removed in that year.
	Thinning map[string]float64 `toml:"thinning,omitempty"`

	// Mortality is the fraction of the stand dying each year.
	Mortality float64 `toml:"mortality"`

	// ThinningRetained and MortalityRetained give the fractions of
	// removed branch and stem material left on the field. Leaves and
	// roots always stay.
	ThinningRetained  Retained `toml:"thinning_retained"`
	MortalityRetained Retained `toml:"mortality_retained"`
}

// Retained gives the fractions of removed branch and stem dry matter
// left on the field.
type Retained struct {
	Branches float64 `toml:"branches"`
	Stems    float64 `toml:"stems"`
}

// A LitterSpec describes organic additions such as mulch, manure, or
// compost: either Quantity tonnes of dry matter every Interval years
// or an explicit per-year Amounts schedule. Zero Carbon and Nitrogen
// mean the default litter fractions.
type LitterSpec struct {
	Quantity float64   `toml:"quantity"` // t dry matter per application
	Interval int       `toml:"interval"` // years between applications
	Amounts  []float64 `toml:"amounts,omitempty"`
	Carbon   float64   `toml:"carbon"`
	Nitrogen float64   `toml:"nitrogen"`
}

// A FertilizerSpec describes synthetic nitrogen applications:
// Quantity tonnes of fertilizer with the given Nitrogen mass fraction
// every Interval years.
type FertilizerSpec struct {
	Quantity float64 `toml:"quantity"`
	Interval int     `toml:"interval"`
	Nitrogen float64 `toml:"nitrogen"`
}

// ReadScenario reads and validates a TOML scenario file, filling in
// the simulation length defaults.
func ReadScenario(filename string) (*Scenario, error) {
	s := new(Scenario)
	md, err := toml.DecodeFile(filename, s)
	if err != nil {
		return nil, fmt.Errorf("insocutil: reading scenario %s: %v", filename, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, fmt.Errorf("insocutil: scenario %s has unrecognized keys: %s",
			filename, strings.Join(keys, ", "))
	}
	if err := s.check(); err != nil {
		return nil, fmt.Errorf("insocutil: scenario %s: %v", filename, err)
	}
	return s, nil
}

// WriteScenario writes a scenario as a TOML file that ReadScenario can
// read back.
func WriteScenario(filename string, s *Scenario) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("insocutil: writing scenario: %v", err)
	}
	if err := toml.NewEncoder(f).Encode(s); err != nil {
		f.Close()
		return fmt.Errorf("insocutil: encoding scenario %s: %v", filename, err)
	}
	return f.Close()
}

func (s *Scenario) check() error {
	if s.Years == 0 {
		s.Years = DefaultYears
	}
	if s.Years < 1 {
		return fmt.Errorf("the simulation must cover at least 1 year but covers %d", s.Years)
	}
	if s.AccountingYears == 0 {
		s.AccountingYears = s.Years
	}
	if s.AccountingYears < 1 || s.AccountingYears > s.Years {
		return fmt.Errorf("the accounting period must cover between 1 and %d years but covers %d",
			s.Years, s.AccountingYears)
	}
	if s.Timestamp != "" {
		if _, err := time.Parse(time.RFC3339, s.Timestamp); err != nil {
			return fmt.Errorf("the timestamp must be in RFC 3339 form: %v", err)
		}
	}
	if err := s.Soil.check(); err != nil {
		return err
	}
	if err := s.Climate.check(); err != nil {
		return err
	}
	// Treat (0, 0), in the Gulf of Guinea, as an unset location.
	if s.Latitude == 0 && s.Longitude == 0 &&
		(s.Soil.Survey != "" || s.Climate.Climatology != "") {
		return fmt.Errorf("spatial soil or climate data need the field location")
	}
	if err := s.Baseline.check("baseline", s.Years); err != nil {
		return err
	}
	return s.Project.check("project", s.Years)
}

func (s *SoilSource) check() error {
	n := 0
	if s.CSV != "" {
		n++
	}
	if s.Survey != "" {
		n++
	}
	if s.Stock != 0 || s.Clay != 0 {
		n++
	}
	if n == 0 {
		return fmt.Errorf("the scenario does not say where its soil comes from")
	}
	if n > 1 {
		return fmt.Errorf("the scenario gives more than one soil source")
	}
	return nil
}

func (c *ClimateSource) check() error {
	if (c.CSV == "") == (c.Climatology == "") {
		return fmt.Errorf("the scenario needs exactly one climate source, a CSV table or a climatology raster")
	}
	if c.PET && c.CSV == "" {
		return fmt.Errorf("the pet switch applies only to CSV climate tables")
	}
	return nil
}

func (m *Management) check(name string, years int) error {
	if (m.CoverStart == 0) != (m.CoverEnd == 0) {
		return fmt.Errorf("the %s management gives only one end of its cover season", name)
	}
	if m.CoverStart < 0 || m.CoverStart > 12 || m.CoverEnd < 0 || m.CoverEnd > 12 {
		return fmt.Errorf("the %s management cover months must be between 1 and 12", name)
	}
	if m.FireInterval < 0 {
		return fmt.Errorf("the %s management fire interval is negative", name)
	}
	for _, y := range m.FireYears {
		if y < 0 || y >= years {
			return fmt.Errorf("the %s management burns in year %d, outside the %d year simulation",
				name, y, years)
		}
	}
	if len(m.Crops)+len(m.Trees)+len(m.Litter)+len(m.Fertilizer) == 0 {
		return fmt.Errorf("the %s management has no residue sources; a field that gets nothing can say so with an all-zero litter entry", name)
	}
	for i, c := range m.Crops {
		if err := c.check(years); err != nil {
			return fmt.Errorf("crop %d of the %s management: %v", i+1, name, err)
		}
	}
	for i, t := range m.Trees {
		if err := t.check(years); err != nil {
			return fmt.Errorf("tree cohort %d of the %s management: %v", i+1, name, err)
		}
	}
	return nil
}

func (c *CropSpec) check(years int) error {
	if c.Species == "" {
		return fmt.Errorf("no crop species is named")
	}
	if c.LeftInField < 0 || c.LeftInField > 1 {
		return fmt.Errorf("the fraction left in field must be in [0, 1] but is %g", c.LeftInField)
	}
	if len(c.Yields) > 0 {
		if c.Yield != 0 {
			return fmt.Errorf("the yield schedule and the constant yield are mutually exclusive")
		}
		if len(c.Yields) != years {
			return fmt.Errorf("the yield schedule covers %d years but the simulation runs %d",
				len(c.Yields), years)
		}
		return nil
	}
	if c.Yield < 0 {
		return fmt.Errorf("the yield is negative (%g t/ha)", c.Yield)
	}
	last := c.LastYear
	if last == 0 {
		last = years - 1
	}
	if c.FirstYear < 0 || c.FirstYear >= years {
		return fmt.Errorf("the cropping window starts in year %d, outside the %d year simulation",
			c.FirstYear, years)
	}
	if last >= years {
		return fmt.Errorf("the cropping window ends in year %d, outside the %d year simulation",
			last, years)
	}
	if last < c.FirstYear {
		return fmt.Errorf("the cropping window ends in year %d, before it starts in year %d",
			last, c.FirstYear)
	}
	return nil
}

func (t *TreeSpec) check(years int) error {
	if t.Species == "" {
		return fmt.Errorf("no tree species is named")
	}
	if t.YearPlanted < 0 || t.YearPlanted >= years {
		return fmt.Errorf("the cohort is planted in year %d, outside the %d year simulation",
			t.YearPlanted, years)
	}
	if t.StandDensity <= 0 {
		return fmt.Errorf("the stand density must be positive but is %g trees/ha", t.StandDensity)
	}
	if len(t.Biomass) > 0 && len(t.Diameters) > 0 {
		return fmt.Errorf("biomass and diameter measurements are mutually exclusive")
	}
	if len(t.Biomass) == 0 && len(t.Diameters) == 0 {
		return fmt.Errorf("the cohort has no growth measurements")
	}
	if _, err := allometric(t.Allometric); err != nil {
		return err
	}
	for y, frac := range t.Thinning {
		yr, err := strconv.Atoi(strings.TrimSpace(y))
		if err != nil || yr < 0 || yr > years {
			return fmt.Errorf("the thinning schedule names year %q, outside the %d year simulation",
				y, years)
		}
		if frac < 0 || frac > 1 {
			return fmt.Errorf("the fraction thinned in year %s must be in [0, 1] but is %g", y, frac)
		}
	}
	if t.Mortality < 0 || t.Mortality > 1 {
		return fmt.Errorf("the annual mortality must be in [0, 1] but is %g", t.Mortality)
	}
	if err := t.ThinningRetained.check("thinned"); err != nil {
		return err
	}
	return t.MortalityRetained.check("dead")
}

func (r *Retained) check(kind string) error {
	if r.Branches < 0 || r.Branches > 1 || r.Stems < 0 || r.Stems > 1 {
		return fmt.Errorf("the retained fractions of %s material must be in [0, 1]", kind)
	}
	return nil
}

// checkOutputVars removes end lines and expands environment
// variables in the output variables.
func checkOutputVars(vars map[string]string) (map[string]string, error) {
	if len(vars) == 0 {
		return nil, fmt.Errorf("there are no variables specified for output. Please fill in " +
			"the outvars configuration and try again.")
	}
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		v = strings.Replace(v, "\r\n", " ", -1)
		v = strings.Replace(v, "\n", " ", -1)
		out[os.ExpandEnv(k)] = os.ExpandEnv(v)
	}
	return out, nil
}

// checkOutputFile makes sure that the output file is specified and its
// directory exists, and expands any environment variables.
func checkOutputFile(f string) (string, error) {
	if f == "" {
		return "", fmt.Errorf(`you need to specify an output file configuration variable (for example: outfile="output.csv")`)
	}
	f = os.ExpandEnv(f)
	outdir := filepath.Dir(f)
	if _, err := os.Stat(outdir); err != nil {
		return f, fmt.Errorf("insocutil: the output file directory doesn't exist: %v", err)
	}
	return f, nil
}

// checkLogFile fills in a default value for the log file path if one
// isn't specified.
func checkLogFile(logFile, outputFile string) string {
	if logFile == "" {
		logFile = strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + ".log"
	}
	return os.ExpandEnv(logFile)
}

// GetStringMapString returns a map[string]string from a viper
// configuration, accounting for the fact that it might be a json
// object if it was set from a command line argument.
func GetStringMapString(varName string, cfg *viper.Viper) map[string]string {
	i := cfg.Get(varName)
	switch i.(type) {
	case map[string]string:
		return i.(map[string]string)
	case map[string]interface{}:
		return cast.ToStringMapString(i)
	case string:
		b := bytes.NewBuffer(([]byte)(i.(string)))
		d := json.NewDecoder(b)
		o := make(map[string]string)
		if err := d.Decode(&o); err != nil {
			panic(err)
		}
		return o
	default:
		panic(fmt.Errorf("invalid type for GetStringMapString variable %s: %#v", varName, i))
	}
}
