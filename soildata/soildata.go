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

// Package soildata provides the initial carbon stock and texture of a
// project site, either from a small CSV table or by querying a
// mapping-unit soil survey shapefile.
package soildata

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/shp"
	"github.com/ctessum/geom/index/rtree"
	"github.com/ctessum/geom/proj"
	"github.com/spatialmodel/insoc"
)

// FromCSV reads a two-value soil table: measured carbon stock
// [t C ha⁻¹] followed by clay content [%]. The values may be on one
// row or spread over several, and a header row is skipped.
func FromCSV(r io.Reader) (*insoc.SoilProfile, error) {
	rows, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("soildata: reading soil table: %v", err)
	}
	var vals []float64
	for i, row := range rows {
		for j, field := range row {
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				if i == 0 { // header row
					vals = vals[:0]
					break
				}
				return nil, fmt.Errorf("soildata: soil table row %d column %d: %v", i+1, j+1, err)
			}
			vals = append(vals, v)
		}
	}
	if len(vals) != 2 {
		return nil, fmt.Errorf("soildata: a soil table needs 2 values (stock, clay) but has %d", len(vals))
	}
	return insoc.NewSoilProfile(vals[1], vals[0]), nil
}

// Survey attribute names follow the Harmonized World Soil Database
// export convention.
var surveyFields = []string{"MU", "SHARE", "T_C", "T_CLAY"}

// component is one soil type within a mapping unit. All components of
// a unit share the unit's polygon; their shares sum to 100.
type component struct {
	geom.Polygonal
	unit  int     // mapping unit identifier
	share float64 // fraction of the unit occupied by this soil type [%]
	stock float64 // topsoil organic carbon [t C ha⁻¹]
	clay  float64 // topsoil clay content [%]
}

// SurveyMap looks locations up in a soil survey shapefile in which
// each record is one component of a mapping unit, with attribute
// columns MU, SHARE, T_C, and T_CLAY.
type SurveyMap struct {
	tree *rtree.Rtree

	// trans converts WGS84 longitude/latitude to the survey's
	// spatial reference.
	trans proj.Transformer
}

// OpenSurveyMap reads the named soil survey shapefile into a spatial
// index.
func OpenSurveyMap(filename string) (*SurveyMap, error) {
	d, err := shp.NewDecoder(filename)
	if err != nil {
		return nil, fmt.Errorf("soildata: opening soil survey: %v", err)
	}
	defer d.Close()
	surveySR, err := d.SR()
	if err != nil {
		return nil, fmt.Errorf("soildata: reading soil survey projection: %v", err)
	}
	inputSR, err := proj.Parse("+proj=longlat")
	if err != nil {
		return nil, err
	}
	trans, err := inputSR.NewTransform(surveySR)
	if err != nil {
		return nil, fmt.Errorf("soildata: projecting to soil survey: %v", err)
	}
	m := &SurveyMap{tree: rtree.NewTree(25, 50), trans: trans}
	for {
		g, fields, more := d.DecodeRowFields(surveyFields...)
		if !more {
			break
		}
		c := new(component)
		for _, name := range surveyFields {
			s, ok := fields[name]
			if !ok {
				return nil, fmt.Errorf("soildata: the soil survey is missing the %s column", name)
			}
			v, err := s2f(s)
			if err != nil {
				return nil, fmt.Errorf("soildata: soil survey column %s: %v", name, err)
			}
			switch name {
			case "MU":
				c.unit = int(v)
			case "SHARE":
				c.share = v
			case "T_C":
				c.stock = v
			case "T_CLAY":
				c.clay = v
			}
		}
		p, ok := g.(geom.Polygonal)
		if !ok {
			return nil, fmt.Errorf("soildata: soil survey shapes must be polygons but are %T", g)
		}
		c.Polygonal = p
		m.tree.Insert(c)
	}
	if err := d.Error(); err != nil {
		return nil, fmt.Errorf("soildata: reading soil survey: %v", err)
	}
	return m, nil
}

// AtLocation returns the soil profile of the mapping unit covering the
// given location, share-weighting the unit's components. Locations the
// survey does not cover are reported and get a zero profile.
func (m *SurveyMap) AtLocation(lat, lon float64) (*insoc.SoilProfile, error) {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return nil, fmt.Errorf("soildata: latitude %g is outside [-90, 90]", lat)
	}
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("soildata: longitude %g is outside [-180, 180]", lon)
	}
	g, err := geom.Point{X: lon, Y: lat}.Transform(m.trans)
	if err != nil {
		return nil, fmt.Errorf("soildata: locating (%g, %g): %v", lat, lon, err)
	}
	p := g.(geom.Point)
	unit := -1
	var stock, clay float64
	for _, cI := range m.tree.SearchIntersect(p.Bounds()) {
		c := cI.(*component)
		if p.Within(c.Polygonal) == geom.Outside {
			continue
		}
		if unit < 0 {
			unit = c.unit
		}
		if c.unit != unit {
			continue
		}
		stock += c.stock * c.share / 100
		clay += c.clay * c.share / 100
	}
	if unit < 0 {
		log.Printf("soildata: no mapping unit covers (%g, %g)", lat, lon)
	}
	return insoc.NewSoilProfile(clay, stock), nil
}

func s2f(s string) (float64, error) {
	s = strings.Trim(s, "\x00 ")
	if strings.Contains(s, "*") { // null value
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}
