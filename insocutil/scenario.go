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

package insocutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spatialmodel/insoc"
	"github.com/spatialmodel/insoc/climdata"
	"github.com/spatialmodel/insoc/emissions"
	"github.com/spatialmodel/insoc/soildata"
	"github.com/spatialmodel/insoc/vegetation"
)

var allometrics = map[string]vegetation.Allometric{
	"":            vegetation.Ryan,
	"ryan":        vegetation.Ryan,
	"chave-dry":   vegetation.ChaveDry,
	"chave-moist": vegetation.ChaveMoist,
	"chave-wet":   vegetation.ChaveWet,
}

func allometric(name string) (vegetation.Allometric, error) {
	a, ok := allometrics[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("unknown allometric %q; the choices are ryan, chave-dry, chave-moist, and chave-wet", name)
	}
	return a, nil
}

func say(c chan string, msg string) {
	if c != nil {
		c <- msg
	}
}

// profile loads the scenario's soil, downloading remote datasets when
// needed.
func (s *Scenario) profile(msg chan string) (*insoc.SoilProfile, error) {
	switch {
	case s.Soil.CSV != "":
		f, err := os.Open(climdata.MaybeDownload(os.ExpandEnv(s.Soil.CSV), msg))
		if err != nil {
			return nil, fmt.Errorf("insocutil: opening soil table: %v", err)
		}
		defer f.Close()
		return soildata.FromCSV(f)
	case s.Soil.Survey != "":
		m, err := soildata.OpenSurveyMap(climdata.MaybeDownload(os.ExpandEnv(s.Soil.Survey), msg))
		if err != nil {
			return nil, err
		}
		return m.AtLocation(s.Latitude, s.Longitude)
	default:
		return insoc.NewSoilProfile(s.Soil.Clay, s.Soil.Stock), nil
	}
}

// climate loads the scenario's monthly climatology.
func (s *Scenario) climate(ctx context.Context, msg chan string) (*insoc.Climate, error) {
	if s.Climate.CSV != "" {
		f, err := os.Open(climdata.MaybeDownload(os.ExpandEnv(s.Climate.CSV), msg))
		if err != nil {
			return nil, fmt.Errorf("insocutil: opening climate table: %v", err)
		}
		defer f.Close()
		return climdata.FromCSV(f, s.Climate.PET)
	}
	c, err := climdata.OpenClimatology(climdata.MaybeDownload(os.ExpandEnv(s.Climate.Climatology), msg))
	if err != nil {
		return nil, err
	}
	return c.AtLocation(ctx, s.Latitude, s.Longitude)
}

// speciesTables resolves crop and tree species names, preferring any
// parameter files the scenario names over the built-in defaults.
type speciesTables struct {
	crops map[string]vegetation.CropParams
	trees map[string]vegetation.TreeParams
}

func (s *Scenario) species(msg chan string) (*speciesTables, error) {
	t := new(speciesTables)
	if s.CropParams != "" {
		f, err := os.Open(climdata.MaybeDownload(os.ExpandEnv(s.CropParams), msg))
		if err != nil {
			return nil, fmt.Errorf("insocutil: opening crop parameters: %v", err)
		}
		t.crops, err = vegetation.ReadCropParams(f)
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	if s.TreeParams != "" {
		f, err := os.Open(climdata.MaybeDownload(os.ExpandEnv(s.TreeParams), msg))
		if err != nil {
			return nil, fmt.Errorf("insocutil: opening tree parameters: %v", err)
		}
		t.trees, err = vegetation.ReadTreeParams(f)
		f.Close()
		if err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *speciesTables) crop(species string) (vegetation.CropParams, error) {
	if p, ok := t.crops[strings.ToLower(species)]; ok {
		return p, nil
	}
	return vegetation.DefaultCrop(species)
}

func (t *speciesTables) tree(species string) (vegetation.TreeParams, error) {
	if p, ok := t.trees[strings.ToLower(species)]; ok {
		return p, nil
	}
	return vegetation.DefaultTree(species)
}

// cover translates the management's growing season months into the
// engine's monthly cover schedule.
func (m *Management) cover() insoc.CoverSchedule {
	if m.CoverStart == 0 {
		return insoc.BareSoil()
	}
	var c insoc.CoverSchedule
	i := m.CoverStart - 1
	for {
		c[i] = true
		if i == m.CoverEnd-1 {
			return c
		}
		i = (i + 1) % 12
	}
}

// fire expands the management's burn interval and explicit burn years
// into a per-year schedule. Nil means the field never burns.
func (m *Management) fire(years int) []bool {
	if m.FireInterval == 0 && len(m.FireYears) == 0 {
		return nil
	}
	f := make([]bool, years)
	if m.FireInterval > 0 {
		for y := 0; y < years; y += m.FireInterval {
			f[y] = true
		}
	}
	for _, y := range m.FireYears {
		f[y] = true
	}
	return f
}

// landUse builds the residue models behind one management.
func (m *Management) landUse(years int, tables *speciesTables) (*emissions.LandUse, error) {
	u := &emissions.LandUse{Fire: m.fire(years), BurnOff: m.BurnOff}
	for i, c := range m.Crops {
		cm, err := c.model(years, tables)
		if err != nil {
			return nil, fmt.Errorf("insocutil: crop %d: %v", i+1, err)
		}
		u.Crops = append(u.Crops, cm)
	}
	for i, t := range m.Trees {
		tm, err := t.model(years, tables)
		if err != nil {
			return nil, fmt.Errorf("insocutil: tree cohort %d: %v", i+1, err)
		}
		u.Trees = append(u.Trees, tm)
	}
	for i, l := range m.Litter {
		lm, err := l.model(years)
		if err != nil {
			return nil, fmt.Errorf("insocutil: litter %d: %v", i+1, err)
		}
		u.Litter = append(u.Litter, lm)
	}
	for i, f := range m.Fertilizer {
		fm, err := vegetation.NewFertilizer(years, f.Interval, f.Quantity, f.Nitrogen)
		if err != nil {
			return nil, fmt.Errorf("insocutil: fertilizer %d: %v", i+1, err)
		}
		u.Fertilizer = append(u.Fertilizer, fm)
	}
	return u, nil
}

func (c *CropSpec) model(years int, tables *speciesTables) (*vegetation.CropModel, error) {
	params, err := tables.crop(c.Species)
	if err != nil {
		return nil, err
	}
	yields := c.Yields
	if len(yields) == 0 {
		last := c.LastYear
		if last == 0 {
			last = years - 1
		}
		yields = make([]float64, years)
		for y := c.FirstYear; y <= last; y++ {
			yields[y] = c.Yield
		}
	}
	return vegetation.NewCropModel(params, yields, c.LeftInField)
}

func (t *TreeSpec) model(years int, tables *speciesTables) (*vegetation.TreeModel, error) {
	params, err := tables.tree(t.Species)
	if err != nil {
		return nil, err
	}
	var growth *vegetation.TreeGrowth
	if len(t.Diameters) > 0 {
		allom, err := allometric(t.Allometric)
		if err != nil {
			return nil, err
		}
		growth, err = vegetation.NewTreeGrowthFromDiameters(t.Ages, t.Diameters, allom, params)
		if err != nil {
			return nil, err
		}
	} else {
		growth, err = vegetation.NewTreeGrowth(t.Ages, t.Biomass)
		if err != nil {
			return nil, err
		}
	}
	pools := vegetation.DefaultPoolParams(params)
	pools.ThinRetained[vegetation.Branch] = t.ThinningRetained.Branches
	pools.ThinRetained[vegetation.Stem] = t.ThinningRetained.Stems
	pools.MortRetained[vegetation.Branch] = t.MortalityRetained.Branches
	pools.MortRetained[vegetation.Stem] = t.MortalityRetained.Stems
	cfg := vegetation.TreeConfig{
		Years:        years,
		YearPlanted:  t.YearPlanted,
		StandDensity: t.StandDensity,
		Pools:        pools,
	}
	if len(t.Thinning) > 0 {
		thin := make([]float64, years+1)
		for y, frac := range t.Thinning {
			yr, err := strconv.Atoi(strings.TrimSpace(y))
			if err != nil {
				return nil, fmt.Errorf("the thinning schedule names year %q", y)
			}
			thin[yr] = frac
		}
		cfg.Thinning = thin
	}
	if t.Mortality > 0 {
		mort := make([]float64, years+1)
		for i := range mort {
			mort[i] = t.Mortality
		}
		cfg.Mortality = mort
	}
	return vegetation.NewTreeModel(params, growth, cfg)
}

func (l *LitterSpec) model(years int) (*vegetation.LitterModel, error) {
	params := vegetation.DefaultLitter()
	if l.Carbon != 0 {
		params.Carbon = l.Carbon
	}
	if l.Nitrogen != 0 {
		params.Nitrogen = l.Nitrogen
	}
	if len(l.Amounts) > 0 {
		if l.Quantity != 0 {
			return nil, fmt.Errorf("the amounts schedule and the periodic quantity are mutually exclusive")
		}
		if len(l.Amounts) != years {
			return nil, fmt.Errorf("the amounts schedule covers %d years but the simulation runs %d",
				len(l.Amounts), years)
		}
		return vegetation.NewLitterSchedule(params, l.Amounts), nil
	}
	return vegetation.NewLitterModel(params, years, l.Interval, l.Quantity)
}

// A ScenarioResult collects the models behind one finished scenario
// run.
type ScenarioResult struct {
	Equilibrium *insoc.Equilibrium
	SpinUp      *insoc.InSOC
	Baseline    *insoc.InSOC
	Project     *insoc.InSOC
	Report      *emissions.Report
}

// RunScenario runs the accounting chain of a scenario: solve for the
// equilibrium carbon input, spin the soil up to the measured stock
// under the baseline cropping, integrate the baseline and project
// land uses forward from the spun-up pools, and turn both runs into
// emission inventories. The emission report is written to outputFile
// and each arm's trajectory to a _baseline or _project sibling of it.
// Convergence progress is reported on cConverge, per-year progress on
// cLog, and everything else on msg; each may be nil.
func RunScenario(ctx context.Context, s *Scenario, substeps int, outputFile string, outputVars map[string]string, spinupFile string, cConverge chan insoc.ConvergenceStatus, cLog chan *insoc.SimulationStatus, msg chan string) (*ScenarioResult, error) {
	say(msg, "Loading scenario data...")
	profile, err := s.profile(msg)
	if err != nil {
		return nil, err
	}
	climate, err := s.climate(ctx, msg)
	if err != nil {
		return nil, err
	}
	tables, err := s.species(msg)
	if err != nil {
		return nil, err
	}
	baseUse, err := s.Baseline.landUse(s.Years, tables)
	if err != nil {
		return nil, err
	}
	projUse, err := s.Project.landUse(s.Years, tables)
	if err != nil {
		return nil, err
	}
	factors := emissions.DefaultFactors()
	rates := insoc.DefaultRateConstants()
	coverBase := s.Baseline.cover()
	result := new(ScenarioResult)

	say(msg, "Solving for the equilibrium input...")
	eq, err := insoc.SolveEquilibrium(profile, climate, coverBase, rates, cConverge)
	if err != nil {
		return nil, fmt.Errorf("insocutil: solving for the equilibrium input: %v", err)
	}
	result.Equilibrium = eq
	say(msg, fmt.Sprintf("The equilibrium stock of %.3g t C/ha needs a constant input of %.3g t C/ha/yr.",
		eq.Target, eq.Input))
	if eq.Status != insoc.EqConverged {
		say(msg, fmt.Sprintf("Equilibrium search: %v.", eq.Status))
	}

	// The spin-up runs the baseline cropping from the equilibrium
	// pools until the stock makes its closest approach to the
	// measured value; both arms of the comparison start from there.
	say(msg, "Spinning up the soil to the measured stock...")
	spinUse := &emissions.LandUse{Crops: baseUse.Crops, Fire: baseUse.Fire, BurnOff: baseUse.BurnOff}
	spinInputs := make([]insoc.AnnualInput, s.Years)
	if len(spinUse.Crops) > 0 {
		if spinInputs, err = spinUse.Reduce(factors); err != nil {
			return nil, err
		}
	}
	spin := &insoc.InSOC{
		InitFuncs: []insoc.ModelManipulator{
			insoc.Setup(profile, climate, coverBase, rates),
			insoc.InitialPools(eq.Pools),
			insoc.InputSeries(spinInputs),
			insoc.CheckDuration(1),
		},
		RunFuncs: []insoc.ModelManipulator{
			insoc.AdvanceYear(substeps),
			insoc.TargetStock(profile.InitialStock, cConverge),
		},
	}
	if spinupFile != "" {
		f, err := os.Create(spinupFile)
		if err != nil {
			return nil, fmt.Errorf("insocutil: creating spin-up file: %v", err)
		}
		defer f.Close()
		spin.CleanupFuncs = append(spin.CleanupFuncs, insoc.Save(f))
	}
	if err := run(spin); err != nil {
		return nil, fmt.Errorf("insocutil: spinning up the soil: %v", err)
	}
	result.SpinUp = spin
	if !spin.TargetReached() {
		say(msg, fmt.Sprintf("The spin-up did not reach the measured stock of %.3g t C/ha within %d years.",
			profile.InitialStock, s.Years))
	}
	say(msg, fmt.Sprintf("Year zero of the accounting is %.2f years after equilibrium.",
		spin.FractionalYear()))

	baseInputs, err := baseUse.Reduce(factors)
	if err != nil {
		return nil, err
	}
	projInputs, err := projUse.Reduce(factors)
	if err != nil {
		return nil, err
	}
	say(msg, "Running the baseline management...")
	result.Baseline, err = forwardRun(profile, climate, coverBase, rates, spin.Pools,
		baseInputs, substeps, trajectoryFile(outputFile, "baseline"), outputVars, cLog)
	if err != nil {
		return nil, fmt.Errorf("insocutil: running the baseline: %v", err)
	}
	say(msg, "Running the project management...")
	result.Project, err = forwardRun(profile, climate, s.Project.cover(), rates, spin.Pools,
		projInputs, substeps, trajectoryFile(outputFile, "project"), outputVars, cLog)
	if err != nil {
		return nil, fmt.Errorf("insocutil: running the project: %v", err)
	}

	say(msg, "Accounting emissions...")
	baseInv, err := emissions.NewInventory(factors, baseUse, result.Baseline.Trajectory(), s.AccountingYears)
	if err != nil {
		return nil, fmt.Errorf("insocutil: baseline inventory: %v", err)
	}
	projInv, err := emissions.NewInventory(factors, projUse, result.Project.Trajectory(), s.AccountingYears)
	if err != nil {
		return nil, fmt.Errorf("insocutil: project inventory: %v", err)
	}
	result.Report = &emissions.Report{Baseline: baseInv, Project: projInv}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, fmt.Errorf("insocutil: creating output file: %v", err)
	}
	if err := result.Report.Save(f); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	say(msg, fmt.Sprintf("The project changes net emissions by %.3g t CO2e/ha over the %d accounting years.",
		projInv.Cumulative()-baseInv.Cumulative(), s.AccountingYears))
	return result, nil
}

// forwardRun integrates one land use forward from the spun-up pools,
// writing its trajectory to fileName.
func forwardRun(profile *insoc.SoilProfile, climate *insoc.Climate, cover insoc.CoverSchedule, rates insoc.RateConstants, initial insoc.CarbonPools, inputs []insoc.AnnualInput, substeps int, fileName string, outputVars map[string]string, cLog chan *insoc.SimulationStatus) (*insoc.InSOC, error) {
	o, err := insoc.NewOutputter(fileName, outputVars, nil)
	if err != nil {
		return nil, err
	}
	years := len(inputs)
	m := &insoc.InSOC{
		InitFuncs: []insoc.ModelManipulator{
			insoc.Setup(profile, climate, cover, rates),
			insoc.InitialPools(initial),
			insoc.InputSeries(inputs),
			insoc.CheckDuration(years),
			o.CheckOutputVars(),
		},
		RunFuncs: []insoc.ModelManipulator{
			insoc.AdvanceYear(substeps),
			insoc.Log(cLog),
			insoc.FixedYears(years),
		},
		CleanupFuncs: []insoc.ModelManipulator{o.Output()},
	}
	if err := run(m); err != nil {
		return nil, err
	}
	return m, nil
}

func run(m *insoc.InSOC) error {
	if err := m.Init(); err != nil {
		return err
	}
	if err := m.Run(); err != nil {
		return err
	}
	return m.Cleanup()
}

// trajectoryFile derives the per-arm trajectory file names from the
// output file: out.csv becomes out_baseline.csv and out_project.csv.
func trajectoryFile(outputFile, arm string) string {
	ext := filepath.Ext(outputFile)
	return strings.TrimSuffix(outputFile, ext) + "_" + arm + ext
}
