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
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/Knetic/govaluate"
)

// Outputter is a holder for output parameters.
//
// fileName contains the path where the output will be saved.
//
// outputVariables maps the names of the variables for which data
// should be returned to expressions that define how the requested data
// should be calculated. These expressions can utilize variables built
// into the model, user-defined variables, and functions.
//
// modelVariables is automatically generated based on the model
// variables that are required to calculate the requested output
// variables.
//
// Functions are defined in the outputFunctions variable.
type Outputter struct {
	fileName        string
	outputVariables map[string]string
	modelVariables  []string
	outputFunctions map[string]govaluate.ExpressionFunction
}

// NewOutputter initializes a new Outputter holder and adds a set of
// default output functions. Default functions include:
//
// 'exp(x)' which applies the exponential function e^x.
//
// 'log(x)' which applies the natural logarithm.
//
// 'min(x, y, …)' and 'max(x, y, …)' which take the smallest and
// largest of their arguments.
//
// 'sum(x, y, …)' which adds its arguments.
func NewOutputter(fileName string, outputVariables map[string]string, outputFunctions map[string]govaluate.ExpressionFunction) (*Outputter, error) {
	defaultOutputFuncs := map[string]govaluate.ExpressionFunction{
		"exp": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("insoc: got %d arguments for function 'exp', but needs 1", len(arg))
			}
			return (float64)(math.Exp(arg[0].(float64))), nil
		},
		"log": func(arg ...interface{}) (interface{}, error) {
			if len(arg) != 1 {
				return nil, fmt.Errorf("insoc: got %d arguments for function 'log', but needs 1", len(arg))
			}
			return (float64)(math.Log(arg[0].(float64))), nil
		},
		"min": func(args ...interface{}) (interface{}, error) {
			if len(args) == 0 {
				return nil, fmt.Errorf("insoc: function 'min' needs at least 1 argument")
			}
			v := args[0].(float64)
			for _, a := range args[1:] {
				v = math.Min(v, a.(float64))
			}
			return v, nil
		},
		"max": func(args ...interface{}) (interface{}, error) {
			if len(args) == 0 {
				return nil, fmt.Errorf("insoc: function 'max' needs at least 1 argument")
			}
			v := args[0].(float64)
			for _, a := range args[1:] {
				v = math.Max(v, a.(float64))
			}
			return v, nil
		},
		"sum": func(args ...interface{}) (interface{}, error) {
			v := 0.0
			for _, a := range args {
				v += a.(float64)
			}
			return v, nil
		},
	}

	for key, val := range outputFunctions {
		defaultOutputFuncs[key] = val
	}

	o := Outputter{
		fileName:        fileName,
		outputVariables: make(map[string]string, len(outputVariables)),
		outputFunctions: defaultOutputFuncs,
	}
	for key, val := range outputVariables {
		o.outputVariables[key] = val
	}

	err := o.checkForDerivatives()
	return &o, err
}

// removeDuplicates removes all duplicated strings from a slice,
// returning a slice that contains only unique strings.
func removeDuplicates(s []string) []string {
	result := make([]string, 0, len(s))
	seen := make(map[string]string)
	for _, val := range s {
		if _, ok := seen[val]; !ok {
			result = append(result, val)
			seen[val] = val
		}
	}
	return result
}

func checkPrefix(s string) (bool, error) {
	var isPrefix bool
	var err error
	if string(s) != "" {
		isPrefix, err = regexp.MatchString("[a-zA-Z0-9_]", string(s[0]))
		if err != nil {
			return false, err
		}
	} else {
		isPrefix = false
	}
	return isPrefix, nil
}

func checkSuffix(s string) (bool, error) {
	var isSuffix bool
	var err error
	if string(s) != "" {
		isSuffix, err = regexp.MatchString("[a-zA-Z0-9_]", string(s[len(s)-1]))
		if err != nil {
			return false, err
		}
	} else {
		isSuffix = false
	}
	return isSuffix, nil
}

// checkForDerivatives identifies the unique model variables that are
// required to calculate the requested output variables. Any
// user-defined output variable showing up in a subsequent expression
// is replaced by its corresponding user-defined expression, so output
// variables can be built from each other.
func (o *Outputter) checkForDerivatives() error {
	o.modelVariables = make([]string, 0, len(o.outputVariables))
	for key, val := range o.outputVariables {
		expression, err := govaluate.NewEvaluableExpressionWithFunctions(val, o.outputFunctions)
		if err != nil {
			return fmt.Errorf("insoc o.outputVariables: %v", err)
		}
		uniqueVars := removeDuplicates(expression.Vars())
		o.modelVariables = append(o.modelVariables, uniqueVars...)
		// For each variable name identified in an output variable
		// expression, check if the variable is defined in terms of other
		// variables within a separate expression. If so, any instance of
		// the variable name in the current expression will be replaced by
		// the expression that defines it.
		var isSuffix bool
		var isPrefix bool
		for _, uniqueVar := range uniqueVars {
			if o.outputVariables[uniqueVar] != "" && o.outputVariables[uniqueVar] != uniqueVar {
				// In order to verify that an instance of a variable name is
				// not part of a longer variable name, the text preceding and
				// following the variable name is analyzed. For example, 'HUM'
				// is not a standalone variable in an expression if it appears
				// as 'HUMFrac'.
				splitVal := strings.Split(val, uniqueVar)
				for i := 0; i < len(splitVal)-1; i++ {
					isSuffix, err = checkSuffix(splitVal[i])
					if err != nil {
						return fmt.Errorf("insoc o.outputVariables: %v", err)
					}
					isPrefix, err = checkPrefix(splitVal[i+1])
					if err != nil {
						return fmt.Errorf("insoc o.outputVariables: %v", err)
					}
					splitVal[i] = splitVal[i] + uniqueVar
					// For every instance of the variable name that is not part
					// of a longer variable name, replace it by the expression
					// that defines it.
					if !isSuffix && !isPrefix {
						splitVal[i] = strings.Replace(splitVal[i], uniqueVar, "("+o.outputVariables[uniqueVar]+")", -1)
					}
				}
				o.outputVariables[key] = strings.Join(splitVal, "")
				return o.checkForDerivatives()
			}
		}
	}
	o.modelVariables = removeDuplicates(o.modelVariables)
	return nil
}

// OutputOptions returns the names of the built-in per-year variables
// that can be used in output variable expressions, along with
// descriptions and units.
func (m *InSOC) OutputOptions() ([]string, []string, []string) {
	names := []string{"Year", "DPM", "RPM", "BIO", "HUM", "IOM", "SOC", "CropIn", "TreeIn"}
	descriptions := []string{
		"Time since the start of the run",
		"Decomposable plant material",
		"Resistant plant material",
		"Microbial biomass",
		"Humified organic matter",
		"Inert organic matter",
		"Total soil organic carbon",
		"Crop residue carbon input during the preceding year",
		"Woody residue carbon input during the preceding year",
	}
	units := []string{"yr", "t C/ha", "t C/ha", "t C/ha", "t C/ha", "t C/ha", "t C/ha", "t C/ha/yr", "t C/ha/yr"}
	return names, descriptions, units
}

// checkModelVars checks whether the unique model variables required to
// calculate the user-requested output variables are available.
func (m *InSOC) checkModelVars(g ...string) error {
	outputOps, _, _ := m.OutputOptions()
	mapOutputOps := make(map[string]uint8)
	for _, n := range outputOps {
		mapOutputOps[n] = 0
	}
	for _, v := range g {
		if _, ok := mapOutputOps[v]; !ok {
			return fmt.Errorf("insoc: undefined variable name '%s'", v)
		}
	}
	return nil
}

// Results returns the requested output variables, one value per
// trajectory entry. For runs that stopped at a target stock, the Year
// variable of the final entry is the fractional year of the closest
// approach.
func (m *InSOC) Results(o *Outputter) (map[string][]float64, error) {
	expressions := make(map[string]*govaluate.EvaluableExpression, len(o.outputVariables))
	for name, expr := range o.outputVariables {
		e, err := govaluate.NewEvaluableExpressionWithFunctions(expr, o.outputFunctions)
		if err != nil {
			return nil, fmt.Errorf("insoc o.outputVariables: %v", err)
		}
		expressions[name] = e
	}

	iom := m.Profile.InertMatter()
	rows := len(m.trajectory)
	results := make(map[string][]float64, len(o.outputVariables))
	for name := range o.outputVariables {
		results[name] = make([]float64, rows)
	}
	for i, p := range m.trajectory {
		params := map[string]interface{}{
			"Year":   float64(i),
			"DPM":    p[DPM],
			"RPM":    p[RPM],
			"BIO":    p[BIO],
			"HUM":    p[HUM],
			"IOM":    iom,
			"SOC":    p.Total() + iom,
			"CropIn": 0.0,
			"TreeIn": 0.0,
		}
		if m.targeted && i == rows-1 {
			params["Year"] = m.fracYear
		}
		if i > 0 {
			params["CropIn"] = m.Inputs[i-1].Crop
			params["TreeIn"] = m.Inputs[i-1].Tree
		}
		for name, e := range expressions {
			v, err := e.Evaluate(params)
			if err != nil {
				return nil, fmt.Errorf("insoc: evaluating output variable %s: %v", name, err)
			}
			vf, ok := v.(float64)
			if !ok {
				return nil, fmt.Errorf("insoc: output variable %s evaluates to %T; need float64", name, v)
			}
			results[name][i] = vf
		}
	}
	return results, nil
}

// CheckOutputVars ensures the output variables can be calculated.
func (o *Outputter) CheckOutputVars() ModelManipulator {
	return func(m *InSOC) error {
		return m.checkModelVars(o.modelVariables...)
	}
}

// Output returns a function that writes the output variables to the
// output file as CSV, one row per trajectory entry with columns in
// alphabetical order.
func (o *Outputter) Output() ModelManipulator {
	return func(m *InSOC) error {
		results, err := m.Results(o)
		if err != nil {
			return err
		}

		vars := make([]string, 0, len(results))
		for v := range results {
			vars = append(vars, v)
		}
		sort.Strings(vars)

		f, err := os.Create(o.fileName)
		if err != nil {
			return fmt.Errorf("insoc: creating output file: %v", err)
		}
		w := csv.NewWriter(f)
		if err := w.Write(vars); err != nil {
			f.Close()
			return fmt.Errorf("insoc: writing output header: %v", err)
		}
		row := make([]string, len(vars))
		for i := 0; i < len(m.trajectory); i++ {
			for j, v := range vars {
				row[j] = strconv.FormatFloat(results[v][i], 'g', -1, 64)
			}
			if err := w.Write(row); err != nil {
				f.Close()
				return fmt.Errorf("insoc: writing output row %d: %v", i, err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return fmt.Errorf("insoc: writing output: %v", err)
		}
		return f.Close()
	}
}
