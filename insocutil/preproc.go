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
	"fmt"
	"log"
	"os"

	"github.com/spatialmodel/insoc/climdata"
)

// Preproc converts a CSV dump of station climate normals into the
// gridded NetCDF climatology format that scenario runs look locations
// up in.
//
// Stations is the path to the station table: one row per station and
// month with latitude, longitude, month number, mean temperature,
// precipitation, and potential evapotranspiration.
//
// OutputFile is the path where the gridded climatology should be
// written.
func Preproc(Stations, OutputFile string) error {
	log.Println("Reading station data...")
	f, err := os.Open(Stations)
	if err != nil {
		return fmt.Errorf("insocutil: problem opening station data: %v", err)
	}
	defer f.Close()
	ra, err := climdata.ReadStations(f)
	if err != nil {
		return err
	}
	log.Println("Writing gridded climatology...")
	w, err := os.Create(OutputFile)
	if err != nil {
		return fmt.Errorf("insocutil: problem creating climatology file: %v", err)
	}
	if err := ra.Write(w); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}
