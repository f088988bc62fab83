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
	"io"
	"log"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/spatialmodel/insoc"
	"github.com/spf13/cobra"
)

// Run runs the accounting chain of a scenario and writes the emission
// report and per-arm trajectories to outputFile and its siblings.
//
// CobraCommand is the cobra.Command instance where Run is called
// from; log output is teed to its standard output and to LogFile.
//
// OutputVariables specifies which model variables should be included
// in the trajectory output files.
//
// SpinupFile, if non-empty, is where the spun-up model state is saved
// for later inspection or reuse.
//
// Substeps is the number of integration steps per model year.
func Run(CobraCommand *cobra.Command, LogFile string, OutputFile string, OutputVariables map[string]string, s *Scenario, SpinupFile string, Substeps int) error {
	startTime := time.Now()

	// Start a function to receive and print log messages.
	logfile, err := os.Create(LogFile)
	if err != nil {
		return fmt.Errorf("insocutil: problem creating log file: %v", err)
	}
	mw := io.MultiWriter(CobraCommand.OutOrStdout(), logfile)
	log.SetOutput(mw)
	cConverge := make(chan insoc.ConvergenceStatus)
	cLog := make(chan *insoc.SimulationStatus)
	cLogTick := time.Tick(2 * time.Second)
	msgLog := make(chan string)
	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		for msg := range cConverge {
			log.Println(msg.String())
		}
		wg.Done()
	}()
	go func() {
		for msg := range cLog {
			select {
			case <-cLogTick:
				log.Println(msg.String())
			default:
				runtime.Gosched()
			}
		}
		wg.Done()
	}()
	go func() {
		for msg := range msgLog {
			log.Println(msg)
		}
		wg.Done()
	}()

	defer func() { // Wait for the logging to finish.
		close(cConverge)
		close(cLog)
		close(msgLog)
		wg.Wait()
		logfile.Close()
	}()

	result, err := RunScenario(context.TODO(), s, Substeps, OutputFile, OutputVariables,
		SpinupFile, cConverge, cLog, msgLog)
	if err != nil {
		return err
	}

	log.Printf("Baseline net emissions: %.4g t CO2e/ha", result.Report.Baseline.Cumulative())
	log.Printf("Project net emissions: %.4g t CO2e/ha", result.Report.Project.Cumulative())

	elapsedTime := time.Since(startTime)
	log.Printf("Elapsed time: %f hours", elapsedTime.Hours())

	return nil
}

// Equilibrium runs only the inverse mode of a scenario: it solves for
// the constant annual carbon input that holds the soil of the
// scenario site at its equilibrium stock and prints the result.
func Equilibrium(CobraCommand *cobra.Command, s *Scenario) error {
	log.SetOutput(CobraCommand.OutOrStdout())
	cConverge := make(chan insoc.ConvergenceStatus)
	msgLog := make(chan string)
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		for msg := range cConverge {
			log.Println(msg.String())
		}
		wg.Done()
	}()
	go func() {
		for msg := range msgLog {
			log.Println(msg)
		}
		wg.Done()
	}()
	defer func() {
		close(cConverge)
		close(msgLog)
		wg.Wait()
	}()

	profile, err := s.profile(msgLog)
	if err != nil {
		return err
	}
	climate, err := s.climate(context.TODO(), msgLog)
	if err != nil {
		return err
	}
	eq, err := insoc.SolveEquilibrium(profile, climate, s.Baseline.cover(),
		insoc.DefaultRateConstants(), cConverge)
	if err != nil {
		return fmt.Errorf("insocutil: solving for the equilibrium input: %v", err)
	}
	log.Printf("Equilibrium input: %.4g t C/ha/yr", eq.Input)
	log.Printf("Steady-state pools: DPM %.4g, RPM %.4g, BIO %.4g, HUM %.4g t C/ha",
		eq.Pools[insoc.DPM], eq.Pools[insoc.RPM], eq.Pools[insoc.BIO], eq.Pools[insoc.HUM])
	log.Printf("Inert organic matter: %.4g t C/ha", profile.InertMatter())
	log.Printf("Total stock: %.4g t C/ha against a target of %.4g t C/ha", eq.Stock, eq.Target)
	if eq.Status != insoc.EqConverged {
		log.Printf("Search status: %v", eq.Status)
	}
	return nil
}
