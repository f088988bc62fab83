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
	"math"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ctessum/requestcache"
	"github.com/tealeg/xlsx"
)

// excelCache holds previously opened Microsoft Excel files
// to avoid reading the same file multiple times.
var excelCache *requestcache.Cache

var loadExcelCacheOnce sync.Once

// loadExcelFile loads a Microsoft Excel file from disk, utilizing
// a cache to avoid loading the same file more than once.
func loadExcelFile(fileName string) (*xlsx.File, error) {
	// Create a request cache to avoid loading files more than once.
	loadExcelCacheOnce.Do(func() {
		excelCache = requestcache.NewCache(func(ctx context.Context, req interface{}) (interface{}, error) {
			filename := req.(string)
			f, err := xlsx.OpenFile(filename)
			if err != nil {
				return nil, fmt.Errorf("insocutil: opening xlsx file: %v", err)
			}
			return f, nil
		}, runtime.GOMAXPROCS(-1), requestcache.Memory(100))
	})
	// Get the file from the cache or generate it.
	r := excelCache.NewRequest(context.Background(), fileName, fileName)
	fI, err := r.Result()
	if err != nil {
		return nil, err
	}
	return fI.(*xlsx.File), nil
}

// cellText returns the trimmed contents of cell i of the given row,
// treating cells beyond the end of the row as empty.
func cellText(row *xlsx.Row, i int) string {
	if row == nil || i >= len(row.Cells) {
		return ""
	}
	return strings.TrimSpace(row.Cells[i].Value)
}

// A questionnaireRow holds one plot's answers from the input sheet of
// a questionnaire workbook, keyed by the header row.
type questionnaireRow struct {
	cells map[string]string
	plot  int
}

// readQuestionnaireRow reads one plot row from the input sheet of the
// given workbook. The first sheet row holds the answer names; plot 1
// is the first row below it.
func readQuestionnaireRow(fileName string, plot int) (*questionnaireRow, error) {
	f, err := loadExcelFile(fileName)
	if err != nil {
		return nil, err
	}
	s, ok := f.Sheet["input"]
	if !ok {
		return nil, fmt.Errorf("insocutil: questionnaire %s has no input sheet", fileName)
	}
	if plot < 1 || plot >= len(s.Rows) {
		return nil, fmt.Errorf("insocutil: questionnaire %s has no plot %d", fileName, plot)
	}
	r := &questionnaireRow{cells: make(map[string]string), plot: plot}
	header := s.Rows[0]
	row := s.Rows[plot]
	for i := range header.Cells {
		key := cellText(header, i)
		if key == "" {
			continue
		}
		r.cells[key] = cellText(row, i)
	}
	return r, nil
}

// has reports whether the input sheet has a column with the given
// name, filled in or not.
func (r *questionnaireRow) has(key string) bool {
	_, ok := r.cells[key]
	return ok
}

// text returns the answer in the named column. A blank cell is an
// empty string; a missing column is an error.
func (r *questionnaireRow) text(key string) (string, error) {
	v, ok := r.cells[key]
	if !ok {
		return "", fmt.Errorf("insocutil: questionnaire plot %d has no %s column", r.plot, key)
	}
	return v, nil
}

// number returns the answer in the named column as a number. A blank
// cell is zero.
func (r *questionnaireRow) number(key string) (float64, error) {
	v, err := r.text(key)
	if err != nil || v == "" {
		return 0, err
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("insocutil: questionnaire plot %d: parsing %s: %v", r.plot, key, err)
	}
	return f, nil
}

// count returns the answer in the named column as a whole number.
func (r *questionnaireRow) count(key string) (int, error) {
	f, err := r.number(key)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("insocutil: questionnaire plot %d: %s must be a whole number but is %g",
			r.plot, key, f)
	}
	return int(f), nil
}

// growthColumn reads the age and stem diameter measurements for the
// named tree cohort from the growth sheet of the given workbook. Ages
// are in the first column; each cohort has a named column of diameters.
// The series ends at the first blank diameter cell.
func growthColumn(fileName, cohort string) (ages, diameters []float64, err error) {
	f, err := loadExcelFile(fileName)
	if err != nil {
		return nil, nil, err
	}
	s, ok := f.Sheet["growth"]
	if !ok {
		return nil, nil, fmt.Errorf("insocutil: questionnaire %s has no growth sheet", fileName)
	}
	if len(s.Rows) == 0 {
		return nil, nil, fmt.Errorf("insocutil: the growth sheet of %s is empty", fileName)
	}
	col := -1
	header := s.Rows[0]
	for i := range header.Cells {
		if cellText(header, i) == cohort {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, nil, fmt.Errorf("insocutil: the growth sheet of %s has no %s column", fileName, cohort)
	}
	for j := 1; j < len(s.Rows); j++ {
		v := cellText(s.Rows[j], col)
		if v == "" {
			break
		}
		d, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("insocutil: growth sheet %s column, row %d: %v", cohort, j+1, err)
		}
		a := cellText(s.Rows[j], 0)
		age, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, nil, fmt.Errorf("insocutil: growth sheet age column, row %d: %v", j+1, err)
		}
		ages = append(ages, age)
		diameters = append(diameters, d)
	}
	if len(ages) == 0 {
		return nil, nil, fmt.Errorf("insocutil: the growth sheet of %s has no measurements for the %s cohort",
			fileName, cohort)
	}
	return ages, diameters, nil
}

// ReadQuestionnaire converts one plot of a filled field questionnaire
// workbook into a scenario. The workbook's input sheet holds one
// header row of answer names and one row per plot; its growth sheet
// holds per-cohort tree measurements. The survey and climatology
// arguments name the soil survey shapefile and gridded climatology the
// scenario should read its site data from; the survey is only used
// when the workbook carries no soil measurements of its own.
func ReadQuestionnaire(fileName string, plot int, survey, climatology string) (*Scenario, error) {
	r, err := readQuestionnaireRow(fileName, plot)
	if err != nil {
		return nil, err
	}
	s := &Scenario{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Climate:   ClimateSource{Climatology: climatology},
	}
	no, err := r.text("analysis_no")
	if err != nil {
		return nil, err
	}
	if no == "" {
		no = strconv.Itoa(plot)
	}
	s.Name = "analysis " + no
	if s.Latitude, err = r.number("lat"); err != nil {
		return nil, err
	}
	if s.Longitude, err = r.number("lon"); err != nil {
		return nil, err
	}
	if s.Years, err = r.count("yrs_proj"); err != nil {
		return nil, err
	}
	if s.AccountingYears, err = r.count("yrs_acct"); err != nil {
		return nil, err
	}
	if err = r.soil(&s.Soil, survey); err != nil {
		return nil, err
	}
	allom := ""
	if r.has("allom") {
		if allom, err = r.text("allom"); err != nil {
			return nil, err
		}
	}
	years := s.Years
	if years == 0 {
		years = DefaultYears
	}
	if s.Baseline, err = r.management("base", fileName, allom, years); err != nil {
		return nil, err
	}
	if s.Project, err = r.management("proj", fileName, allom, years); err != nil {
		return nil, err
	}
	if err := s.check(); err != nil {
		return nil, fmt.Errorf("insocutil: questionnaire %s plot %d: %v", fileName, plot, err)
	}
	return s, nil
}

// soil fills in the scenario soil source. Workbooks from sites with
// their own soil sampling carry soc and clay columns; when those are
// absent or blank the soil comes from the survey map instead.
func (r *questionnaireRow) soil(s *SoilSource, survey string) error {
	if r.has("soc") && r.has("clay") {
		stock, err := r.number("soc")
		if err != nil {
			return err
		}
		clay, err := r.number("clay")
		if err != nil {
			return err
		}
		if stock != 0 || clay != 0 {
			s.Stock = stock
			s.Clay = clay
			return nil
		}
	}
	s.Survey = survey
	return nil
}

// management assembles one arm of the comparison from the answer
// columns carrying the given prefix, base or proj.
func (r *questionnaireRow) management(arm, fileName, allom string, years int) (Management, error) {
	var m Management
	if err := r.cover(arm, &m); err != nil {
		return m, err
	}
	if err := r.fire(arm, &m); err != nil {
		return m, err
	}
	if err := r.crops(arm, years, &m); err != nil {
		return m, err
	}
	if err := r.trees(arm, fileName, allom, &m); err != nil {
		return m, err
	}
	// Every plot answers the litter questions, so an all-zero entry
	// here doubles as the no-residue marker bare managements need.
	lit := LitterSpec{}
	var err error
	if lit.Interval, err = r.count(arm + "_lit_int"); err != nil {
		return m, err
	}
	if lit.Quantity, err = r.number(arm + "_lit_qty"); err != nil {
		return m, err
	}
	m.Litter = append(m.Litter, lit)
	fert := FertilizerSpec{}
	if fert.Interval, err = r.count(arm + "_sf_int"); err != nil {
		return m, err
	}
	if fert.Quantity, err = r.number(arm + "_sf_qty"); err != nil {
		return m, err
	}
	if fert.Nitrogen, err = r.number(arm + "_sf_n"); err != nil {
		return m, err
	}
	if fert.Quantity != 0 {
		m.Fertilizer = append(m.Fertilizer, fert)
	}
	return m, nil
}

// cover converts the zero-based, exclusive cover month span of the
// questionnaire into the one-based, inclusive months of a scenario.
func (r *questionnaireRow) cover(arm string, m *Management) error {
	pres, err := r.number(arm + "_cvr_pres")
	if err != nil {
		return err
	}
	start, err := r.count(arm + "_cvr_mth_st")
	if err != nil {
		return err
	}
	end, err := r.count(arm + "_cvr_mth_en")
	if err != nil {
		return err
	}
	if pres == 0 || end <= start {
		return nil
	}
	m.CoverStart = start + 1
	m.CoverEnd = end
	return nil
}

func (r *questionnaireRow) fire(arm string, m *Management) error {
	pres, err := r.number("fire_pres_" + arm)
	if err != nil {
		return err
	}
	interval, err := r.count("fire_int_" + arm)
	if err != nil {
		return err
	}
	if pres != 0 {
		m.FireInterval = interval
	}
	return nil
}

// crops reads the numbered cropping slots, crop_<arm>_spp1 onward. An
// unnamed slot is unused; the questionnaire yield window end year is
// exclusive where the scenario's is inclusive.
func (r *questionnaireRow) crops(arm string, years int, m *Management) error {
	for i := 1; r.has(fmt.Sprintf("crop_%s_spp%d", arm, i)); i++ {
		species, err := r.text(fmt.Sprintf("crop_%s_spp%d", arm, i))
		if err != nil {
			return err
		}
		if species == "" {
			continue
		}
		c := CropSpec{Species: species}
		if c.Yield, err = r.number(fmt.Sprintf("crop_%s_yd%d", arm, i)); err != nil {
			return err
		}
		if c.FirstYear, err = r.count(fmt.Sprintf("crop_%s_start%d", arm, i)); err != nil {
			return err
		}
		end, err := r.count(fmt.Sprintf("crop_%s_end%d", arm, i))
		if err != nil {
			return err
		}
		switch {
		case end <= c.FirstYear:
			// An empty yield window grows nothing.
			continue
		case end == 1 && c.FirstYear == 0:
			// A zero last_year already means the final simulation year,
			// so a window covering only year zero needs the explicit
			// schedule.
			c.Yields = make([]float64, years)
			c.Yields[0] = c.Yield
			c.Yield = 0
		default:
			c.LastYear = end - 1
		}
		if c.LeftInField, err = r.number(fmt.Sprintf("crop_%s_left%d", arm, i)); err != nil {
			return err
		}
		m.Crops = append(m.Crops, c)
	}
	return nil
}

// trees reads the tree cohorts. The baseline has a single cohort,
// species_base planted in year zero; the project has numbered cohorts
// species1 onward with their own planting years and densities. All
// cohorts of an arm share its thinning, mortality, and retention
// answers, which are only consulted when the arm plants trees.
func (r *questionnaireRow) trees(arm, fileName, allom string, m *Management) error {
	type cohort struct {
		species, growthCol string
		planted            int
		density            float64
	}
	var cohorts []cohort
	if arm == "base" {
		if r.has("species_base") {
			species, err := r.text("species_base")
			if err != nil {
				return err
			}
			density, err := r.number("base_plant_dens")
			if err != nil {
				return err
			}
			if species != "" && density != 0 {
				cohorts = append(cohorts, cohort{species, "base", 0, density})
			}
		}
	} else {
		for i := 1; r.has(fmt.Sprintf("species%d", i)); i++ {
			species, err := r.text(fmt.Sprintf("species%d", i))
			if err != nil {
				return err
			}
			density, err := r.number(fmt.Sprintf("proj_plant_dens%d", i))
			if err != nil {
				return err
			}
			if species == "" || density == 0 {
				continue
			}
			planted, err := r.count(fmt.Sprintf("proj_plant_yr%d", i))
			if err != nil {
				return err
			}
			cohorts = append(cohorts, cohort{species, fmt.Sprintf("proj%d", i), planted, density})
		}
	}
	if len(cohorts) == 0 {
		return nil
	}
	thinning, err := r.thinning(arm)
	if err != nil {
		return err
	}
	mort, err := r.number(arm + "_mort")
	if err != nil {
		return err
	}
	thinRet, err := r.retained("thin_" + arm)
	if err != nil {
		return err
	}
	mortRet, err := r.retained("mort_" + arm)
	if err != nil {
		return err
	}
	for _, c := range cohorts {
		t := TreeSpec{
			Species:           c.species,
			YearPlanted:       c.planted,
			StandDensity:      c.density,
			Allometric:        allom,
			Thinning:          thinning,
			Mortality:         mort,
			ThinningRetained:  thinRet,
			MortalityRetained: mortRet,
		}
		if t.Ages, t.Diameters, err = growthColumn(fileName, c.growthCol); err != nil {
			return err
		}
		m.Trees = append(m.Trees, t)
	}
	return nil
}

// thinning collects the numbered thinning events, thin_<arm>_yr1 and
// thin_<arm>_pc1 onward, into a year to fraction schedule.
func (r *questionnaireRow) thinning(arm string) (map[string]float64, error) {
	var schedule map[string]float64
	for i := 1; r.has(fmt.Sprintf("thin_%s_yr%d", arm, i)); i++ {
		yr, err := r.count(fmt.Sprintf("thin_%s_yr%d", arm, i))
		if err != nil {
			return nil, err
		}
		frac, err := r.number(fmt.Sprintf("thin_%s_pc%d", arm, i))
		if err != nil {
			return nil, err
		}
		if frac == 0 {
			continue
		}
		if schedule == nil {
			schedule = make(map[string]float64)
		}
		schedule[strconv.Itoa(yr)] = frac
	}
	return schedule, nil
}

// retained reads the branch and stem retention answers carrying the
// given prefix, for example thin_base or mort_proj.
func (r *questionnaireRow) retained(prefix string) (Retained, error) {
	var ret Retained
	var err error
	if ret.Branches, err = r.number(prefix + "_br"); err != nil {
		return ret, err
	}
	ret.Stems, err = r.number(prefix + "_st")
	return ret, err
}
