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
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spatialmodel/insoc"
	"github.com/spatialmodel/insoc/climdata"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Cfg holds configuration information.
var Cfg *viper.Viper

var options []struct {
	name, usage, shorthand string
	defaultVal             interface{}
	flagsets               []*pflag.FlagSet
}

func init() {
	// Options are the configuration options available to InSOC.
	options = []struct {
		name, usage, shorthand string
		defaultVal             interface{}
		flagsets               []*pflag.FlagSet
	}{
		{
			name: "config",
			usage: `
              config specifies the configuration file location.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{Root.PersistentFlags()},
		},
		{
			name: "scenario",
			usage: `
              scenario is the path to the TOML scenario file describing the
              analysis to run. It can include environment variables, and it
              can be a http:// address.`,
			shorthand:  "s",
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags(), equilibriumCmd.Flags()},
		},
		{
			name: "outfile",
			usage: `
              outfile is the path where the emission report should be written.
              The baseline and project stock trajectories are written next to
              it with _baseline and _project appended to its name. It can
              include environment variables.`,
			defaultVal: "insoc_output.csv",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "logfile",
			usage: `
              logfile is the path to the desired logfile location. It can include
              environment variables. If logfile is left blank, the logfile will be
              saved in the same location as outfile.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "outvars",
			usage: `
              outvars names the per-year variables to include in the trajectory
              output files, as expressions over the model variables.`,
			defaultVal: map[string]string{
				"Year": "Year",
				"DPM":  "DPM",
				"RPM":  "RPM",
				"BIO":  "BIO",
				"HUM":  "HUM",
				"IOM":  "IOM",
				"SOC":  "SOC",
			},
			flagsets: []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "substeps",
			usage: `
              substeps is the number of integration steps per model year.`,
			defaultVal: insoc.DefaultSubsteps,
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "spinup",
			usage: `
              spinup is a path where the spun-up model state should be saved
              for later inspection or reuse. If it is left blank, the state is
              not saved.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{runCmd.Flags()},
		},
		{
			name: "Preproc.Stations",
			usage: `
              Preproc.Stations is the path to the CSV table of station climate
              normals to grid. It can be a http:// address.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{preprocCmd.Flags()},
		},
		{
			name: "Preproc.OutputFile",
			usage: `
              Preproc.OutputFile is the path where the gridded climatology
              should be written.`,
			defaultVal: "climatology.ncf",
			flagsets:   []*pflag.FlagSet{preprocCmd.Flags()},
		},
		{
			name: "Questionnaire.InputFile",
			usage: `
              Questionnaire.InputFile is the path to the filled questionnaire
              workbook (.xlsx) to convert. It can be a http:// address.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{questionnaireCmd.Flags()},
		},
		{
			name: "Questionnaire.Plot",
			usage: `
              Questionnaire.Plot is the plot row of the workbook input sheet
              to convert, counting from 1.`,
			defaultVal: 1,
			flagsets:   []*pflag.FlagSet{questionnaireCmd.Flags()},
		},
		{
			name: "Questionnaire.Survey",
			usage: `
              Questionnaire.Survey is the soil survey shapefile the converted
              scenario should read its soil from when the workbook carries no
              soil measurements.`,
			defaultVal: "",
			flagsets:   []*pflag.FlagSet{questionnaireCmd.Flags()},
		},
		{
			name: "Questionnaire.Climatology",
			usage: `
              Questionnaire.Climatology is the gridded climatology the
              converted scenario should read its climate from.`,
			defaultVal: "climatology.ncf",
			flagsets:   []*pflag.FlagSet{questionnaireCmd.Flags()},
		},
		{
			name: "Questionnaire.OutputFile",
			usage: `
              Questionnaire.OutputFile is the path where the converted TOML
              scenario should be written.`,
			defaultVal: "scenario.toml",
			flagsets:   []*pflag.FlagSet{questionnaireCmd.Flags()},
		},
	}

	Cfg = viper.New()

	// Set the prefix for configuration environment variables.
	Cfg.SetEnvPrefix("INSOC")

	for _, option := range options {
		for i, set := range option.flagsets {
			if i != 0 { // We don't want to create the same flag twice.
				set.AddFlag(option.flagsets[0].Lookup(option.name))
				continue
			}
			switch option.defaultVal.(type) {
			case string:
				if option.shorthand == "" {
					set.String(option.name, option.defaultVal.(string), option.usage)
				} else {
					set.StringP(option.name, option.shorthand, option.defaultVal.(string), option.usage)
				}
			case bool:
				if option.shorthand == "" {
					set.Bool(option.name, option.defaultVal.(bool), option.usage)
				} else {
					set.BoolP(option.name, option.shorthand, option.defaultVal.(bool), option.usage)
				}
			case int:
				if option.shorthand == "" {
					set.Int(option.name, option.defaultVal.(int), option.usage)
				} else {
					set.IntP(option.name, option.shorthand, option.defaultVal.(int), option.usage)
				}
			case float64:
				if option.shorthand == "" {
					set.Float64(option.name, option.defaultVal.(float64), option.usage)
				} else {
					set.Float64P(option.name, option.shorthand, option.defaultVal.(float64), option.usage)
				}
			case map[string]string:
				b := bytes.NewBuffer(nil)
				e := json.NewEncoder(b)
				e.Encode(option.defaultVal)
				s := string(b.Bytes())
				if option.shorthand == "" {
					set.String(option.name, s, option.usage)
				} else {
					set.StringP(option.name, option.shorthand, s, option.usage)
				}
			default:
				panic("invalid argument type")
			}
			Cfg.BindPFlag(option.name, set.Lookup(option.name))
		}
	}
}

func init() {
	// Link the commands together.
	Root.AddCommand(versionCmd)
	Root.AddCommand(runCmd)
	Root.AddCommand(equilibriumCmd)
	Root.AddCommand(preprocCmd)
	Root.AddCommand(questionnaireCmd)
}

// outChan returns a channel printing to standard output.
func outChan() chan string {
	outChan := make(chan string)
	go func() {
		for {
			msg := <-outChan
			fmt.Print(msg)
		}
	}()
	return outChan
}

// setConfig finds and reads in the configuration file, if there is one.
func setConfig() error {
	if cfgpath := Cfg.GetString("config"); cfgpath != "" {
		Cfg.SetConfigFile(cfgpath)
		if err := Cfg.ReadInConfig(); err != nil {
			return fmt.Errorf("insoc: problem reading configuration file: %v", err)
		}
	}
	return nil
}

// Root is the main command.
var Root = &cobra.Command{
	Use:   "insoc",
	Short: "A soil organic carbon accounting model.",
	Long: `InSOC models the effect of smallholder land management on soil organic
carbon and greenhouse gas emissions.
Use the subcommands specified below to access the model functionality.

Refer to the subcommand documentation for configuration options and default settings.
Configuration can be changed by using a configuration file (and providing the
path to the file using the --config flag), by using command-line arguments,
or by setting environment variables in the format 'INSOC_var' where 'var' is the
name of the variable to be set. Many configuration variables are additionally
allowed to contain environment variables within them.
Refer to https://github.com/spf13/viper for additional configuration information.`,
	DisableAutoGenTag: true,
	PersistentPreRunE: func(*cobra.Command, []string) error { return setConfig() },
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Long:  "version prints the version number of this version of InSOC.",
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Printf("InSOC v%s\n", insoc.Version)
	},
	DisableAutoGenTag: true,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a scenario.",
	Long: `run runs the full accounting chain of a scenario: the equilibrium solve,
the spin-up to the measured carbon stock, the baseline and project forward
runs, and the emission inventories comparing the two.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outChan := outChan()

		outputFile, err := checkOutputFile(Cfg.GetString("outfile"))
		if err != nil {
			return err
		}
		outputVars, err := checkOutputVars(GetStringMapString("outvars", Cfg))
		if err != nil {
			return err
		}
		scenarioFile := os.ExpandEnv(Cfg.GetString("scenario"))
		if scenarioFile == "" {
			return fmt.Errorf(`you need to specify a scenario file (for example: --scenario=scenario.toml)`)
		}
		scenario, err := ReadScenario(climdata.MaybeDownload(scenarioFile, outChan))
		if err != nil {
			return err
		}
		return Run(
			cmd,
			checkLogFile(Cfg.GetString("logfile"), outputFile),
			outputFile,
			outputVars,
			scenario,
			os.ExpandEnv(Cfg.GetString("spinup")),
			Cfg.GetInt("substeps"))
	},
	DisableAutoGenTag: true,
}

var equilibriumCmd = &cobra.Command{
	Use:   "equilibrium",
	Short: "Solve the inverse problem only.",
	Long: `equilibrium runs only the inverse mode of a scenario: it solves for the
constant annual carbon input that holds the scenario site's soil at its
equilibrium stock and prints the result together with the steady-state
pool contents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outChan := outChan()

		scenarioFile := os.ExpandEnv(Cfg.GetString("scenario"))
		if scenarioFile == "" {
			return fmt.Errorf(`you need to specify a scenario file (for example: --scenario=scenario.toml)`)
		}
		scenario, err := ReadScenario(climdata.MaybeDownload(scenarioFile, outChan))
		if err != nil {
			return err
		}
		return Equilibrium(cmd, scenario)
	},
	DisableAutoGenTag: true,
}

var preprocCmd = &cobra.Command{
	Use:   "preproc",
	Short: "Preprocess station climate data",
	Long: `preproc converts a CSV table of station climate normals into the gridded
NetCDF climatology that scenario runs look locations up in.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outChan := outChan()

		return Preproc(
			climdata.MaybeDownload(os.ExpandEnv(Cfg.GetString("Preproc.Stations")), outChan),
			os.ExpandEnv(Cfg.GetString("Preproc.OutputFile")))
	},
	DisableAutoGenTag: true,
}

var questionnaireCmd = &cobra.Command{
	Use:   "questionnaire",
	Short: "Convert a questionnaire workbook to a scenario.",
	Long: `questionnaire converts one plot of a filled field questionnaire workbook
into a TOML scenario file that the run and equilibrium commands can use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		outChan := outChan()

		workbook := os.ExpandEnv(Cfg.GetString("Questionnaire.InputFile"))
		if workbook == "" {
			return fmt.Errorf(`you need to specify a questionnaire workbook (for example: --Questionnaire.InputFile=plots.xlsx)`)
		}
		scenario, err := ReadQuestionnaire(
			climdata.MaybeDownload(workbook, outChan),
			Cfg.GetInt("Questionnaire.Plot"),
			os.ExpandEnv(Cfg.GetString("Questionnaire.Survey")),
			os.ExpandEnv(Cfg.GetString("Questionnaire.Climatology")))
		if err != nil {
			return err
		}
		return WriteScenario(os.ExpandEnv(Cfg.GetString("Questionnaire.OutputFile")), scenario)
	},
	DisableAutoGenTag: true,
}
