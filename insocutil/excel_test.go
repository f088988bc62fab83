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
	"os"
	"reflect"
	"strings"
	"testing"

	"github.com/tealeg/xlsx"
)

// writeQuestionnaire writes a workbook with two plots: plot 1 carries
// its own soil measurements, plot 2 leaves them blank.
func writeQuestionnaire(t *testing.T, fileName string) {
	t.Helper()
	f := xlsx.NewFile()
	input, err := f.AddSheet("input")
	if err != nil {
		t.Fatal(err)
	}
	cols := []struct {
		key, plot1, plot2 string
	}{
		{"analysis_no", "7", "8"},
		{"lat", "0.45", "0.45"},
		{"lon", "32.85", "32.85"},
		{"yrs_proj", "6", "6"},
		{"yrs_acct", "4", "4"},
		{"soc", "35", ""},
		{"clay", "23", ""},
		{"base_cvr_pres", "1", "1"},
		{"base_cvr_mth_st", "3", "3"},
		{"base_cvr_mth_en", "8", "8"},
		{"proj_cvr_pres", "0", "0"},
		{"proj_cvr_mth_st", "0", "0"},
		{"proj_cvr_mth_en", "0", "0"},
		{"fire_pres_base", "1", "1"},
		{"fire_int_base", "2", "2"},
		{"fire_pres_proj", "0", "0"},
		{"fire_int_proj", "0", "0"},
		{"crop_base_spp1", "maize", "maize"},
		{"crop_base_yd1", "1.5", "1.5"},
		{"crop_base_start1", "0", "0"},
		{"crop_base_end1", "6", "6"},
		{"crop_base_left1", "0.3", "0.3"},
		{"crop_base_spp2", "", ""},
		{"crop_base_yd2", "", ""},
		{"crop_base_start2", "", ""},
		{"crop_base_end2", "", ""},
		{"crop_base_left2", "", ""},
		{"crop_proj_spp1", "maize", "maize"},
		{"crop_proj_yd1", "1.8", "1.8"},
		{"crop_proj_start1", "1", "1"},
		{"crop_proj_end1", "6", "6"},
		{"crop_proj_left1", "0.5", "0.5"},
		{"species_base", "", ""},
		{"base_plant_dens", "0", "0"},
		{"species1", "grevillea robusta", "grevillea robusta"},
		{"proj_plant_yr1", "0", "0"},
		{"proj_plant_dens1", "400", "400"},
		{"species2", "", ""},
		{"proj_plant_yr2", "0", "0"},
		{"proj_plant_dens2", "0", "0"},
		{"thin_proj_yr1", "3", "3"},
		{"thin_proj_pc1", "0.5", "0.5"},
		{"thin_proj_yr2", "0", "0"},
		{"thin_proj_pc2", "0", "0"},
		{"proj_mort", "0.02", "0.02"},
		{"thin_proj_br", "0.5", "0.5"},
		{"thin_proj_st", "0", "0"},
		{"mort_proj_br", "1", "1"},
		{"mort_proj_st", "1", "1"},
		{"base_lit_int", "0", "0"},
		{"base_lit_qty", "0", "0"},
		{"base_sf_int", "0", "0"},
		{"base_sf_qty", "0", "0"},
		{"base_sf_n", "0", "0"},
		{"proj_lit_int", "1", "1"},
		{"proj_lit_qty", "0.5", "0.5"},
		{"proj_sf_int", "1", "1"},
		{"proj_sf_qty", "0.1", "0.1"},
		{"proj_sf_n", "0.46", "0.46"},
	}
	header := input.AddRow()
	plot1 := input.AddRow()
	plot2 := input.AddRow()
	for _, c := range cols {
		header.AddCell().Value = c.key
		plot1.AddCell().Value = c.plot1
		plot2.AddCell().Value = c.plot2
	}
	growth, err := f.AddSheet("growth")
	if err != nil {
		t.Fatal(err)
	}
	h := growth.AddRow()
	h.AddCell().Value = "age"
	h.AddCell().Value = "proj1"
	for _, m := range [][2]string{{"1", "2"}, {"3", "6"}, {"5", "9"}} {
		row := growth.AddRow()
		row.AddCell().Value = m[0]
		row.AddCell().Value = m[1]
	}
	if err := f.Save(fileName); err != nil {
		t.Fatal(err)
	}
}

func TestReadQuestionnaire(t *testing.T) {
	writeQuestionnaire(t, "tmp_questionnaire.xlsx")
	defer os.Remove("tmp_questionnaire.xlsx")

	s, err := ReadQuestionnaire("tmp_questionnaire.xlsx", 1, "survey.shp", "clim.ncf")
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "analysis 7" {
		t.Errorf("name is %q", s.Name)
	}
	if s.Years != 6 || s.AccountingYears != 4 {
		t.Errorf("years are (%d, %d), want (6, 4)", s.Years, s.AccountingYears)
	}
	if s.Latitude != 0.45 || s.Longitude != 32.85 {
		t.Errorf("location is (%g, %g)", s.Latitude, s.Longitude)
	}
	if s.Soil.Stock != 35 || s.Soil.Clay != 23 || s.Soil.Survey != "" {
		t.Errorf("soil is %+v; the workbook measurements should win", s.Soil)
	}
	if s.Climate.Climatology != "clim.ncf" {
		t.Errorf("climate is %+v", s.Climate)
	}

	b := s.Baseline
	if b.CoverStart != 4 || b.CoverEnd != 8 {
		t.Errorf("baseline cover is %d to %d, want 4 to 8", b.CoverStart, b.CoverEnd)
	}
	if b.FireInterval != 2 {
		t.Errorf("baseline fire interval is %d, want 2", b.FireInterval)
	}
	wantCrop := CropSpec{Species: "maize", Yield: 1.5, FirstYear: 0, LastYear: 5, LeftInField: 0.3}
	if len(b.Crops) != 1 || !reflect.DeepEqual(b.Crops[0], wantCrop) {
		t.Errorf("baseline crops are %+v, want [%+v]", b.Crops, wantCrop)
	}
	if len(b.Trees) != 0 {
		t.Errorf("the baseline has %d tree cohorts, want none", len(b.Trees))
	}
	if len(b.Litter) != 1 || !reflect.DeepEqual(b.Litter[0], LitterSpec{}) {
		t.Errorf("the baseline should carry one all-zero litter entry but has %+v", b.Litter)
	}
	if len(b.Fertilizer) != 0 {
		t.Errorf("baseline fertilizer is %+v", b.Fertilizer)
	}

	p := s.Project
	if p.CoverStart != 0 || p.CoverEnd != 0 {
		t.Errorf("project cover is %d to %d, want bare", p.CoverStart, p.CoverEnd)
	}
	if p.FireInterval != 0 {
		t.Errorf("project fire interval is %d, want 0", p.FireInterval)
	}
	if len(p.Trees) != 1 {
		t.Fatalf("the project has %d tree cohorts, want 1", len(p.Trees))
	}
	tree := p.Trees[0]
	if tree.Species != "grevillea robusta" || tree.StandDensity != 400 || tree.YearPlanted != 0 {
		t.Errorf("project cohort is %+v", tree)
	}
	if !reflect.DeepEqual(tree.Ages, []float64{1, 3, 5}) ||
		!reflect.DeepEqual(tree.Diameters, []float64{2, 6, 9}) {
		t.Errorf("growth measurements are %v at %v", tree.Diameters, tree.Ages)
	}
	if !reflect.DeepEqual(tree.Thinning, map[string]float64{"3": 0.5}) {
		t.Errorf("thinning schedule is %v; zero events should be dropped", tree.Thinning)
	}
	if tree.Mortality != 0.02 {
		t.Errorf("mortality is %g", tree.Mortality)
	}
	if tree.ThinningRetained != (Retained{Branches: 0.5}) ||
		tree.MortalityRetained != (Retained{Branches: 1, Stems: 1}) {
		t.Errorf("retention is %+v and %+v", tree.ThinningRetained, tree.MortalityRetained)
	}
	if len(p.Litter) != 1 || !reflect.DeepEqual(p.Litter[0], LitterSpec{Quantity: 0.5, Interval: 1}) {
		t.Errorf("project litter is %+v", p.Litter)
	}
	if len(p.Fertilizer) != 1 || p.Fertilizer[0] != (FertilizerSpec{Quantity: 0.1, Interval: 1, Nitrogen: 0.46}) {
		t.Errorf("project fertilizer is %+v", p.Fertilizer)
	}

	t.Run("survey fallback", func(t *testing.T) {
		s, err := ReadQuestionnaire("tmp_questionnaire.xlsx", 2, "survey.shp", "clim.ncf")
		if err != nil {
			t.Fatal(err)
		}
		if s.Soil.Survey != "survey.shp" || s.Soil.Stock != 0 || s.Soil.Clay != 0 {
			t.Errorf("soil is %+v; blank measurements should fall back to the survey", s.Soil)
		}
		if s.Name != "analysis 8" {
			t.Errorf("name is %q", s.Name)
		}
	})

	t.Run("no such plot", func(t *testing.T) {
		_, err := ReadQuestionnaire("tmp_questionnaire.xlsx", 3, "survey.shp", "clim.ncf")
		if err == nil || !strings.Contains(err.Error(), "no plot 3") {
			t.Fatalf("error %v does not mention the missing plot", err)
		}
	})
}

func TestReadQuestionnaireMissingColumn(t *testing.T) {
	f := xlsx.NewFile()
	input, err := f.AddSheet("input")
	if err != nil {
		t.Fatal(err)
	}
	header := input.AddRow()
	header.AddCell().Value = "analysis_no"
	input.AddRow().AddCell().Value = "1"
	if err := f.Save("tmp_questionnaire_bad.xlsx"); err != nil {
		t.Fatal(err)
	}
	defer os.Remove("tmp_questionnaire_bad.xlsx")
	_, err = ReadQuestionnaire("tmp_questionnaire_bad.xlsx", 1, "", "clim.ncf")
	if err == nil || !strings.Contains(err.Error(), "no lat column") {
		t.Fatalf("error %v does not mention the missing column", err)
	}
}

func TestQuestionnaireCmd(t *testing.T) {
	writeQuestionnaire(t, "tmp_questionnaire_cmd.xlsx")
	defer os.Remove("tmp_questionnaire_cmd.xlsx")
	defer os.Remove("tmp_converted.toml")
	Cfg.Set("Questionnaire.InputFile", "tmp_questionnaire_cmd.xlsx")
	Cfg.Set("Questionnaire.Plot", 1)
	Cfg.Set("Questionnaire.Climatology", "clim.ncf")
	Cfg.Set("Questionnaire.OutputFile", "tmp_converted.toml")
	Root.SetArgs([]string{"questionnaire"})
	if err := Root.Execute(); err != nil {
		t.Fatal(err)
	}
	s, err := ReadScenario("tmp_converted.toml")
	if err != nil {
		t.Fatal(err)
	}
	if s.Name != "analysis 7" || s.Years != 6 {
		t.Errorf("converted scenario is %q over %d years", s.Name, s.Years)
	}
	if len(s.Project.Trees) != 1 || s.Project.Trees[0].Species != "grevillea robusta" {
		t.Errorf("converted project trees are %+v", s.Project.Trees)
	}
}
