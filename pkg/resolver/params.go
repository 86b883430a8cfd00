package resolver

import (
	"fmt"
	"strings"

	"github.com/k0sproject/dig"
)

// shellMetacharacters are rejected in parameter values: the parameter set is
// eventually rendered into helm invocations and must never be able to break
// out of them.
const shellMetacharacters = ";&|$`\\<>()'\"\n"

// Param is a single chart override: a dotted parameter path and its value.
type Param struct {
	Path  string
	Value string
}

// ChartParameterSet is an ordered mapping from dotted parameter paths to
// string values, applied on top of the chart defaults during install or
// upgrade. Paths are unique; insertion order is preserved.
type ChartParameterSet struct {
	params []Param
	index  map[string]int

	// valuesFiles are external values files handed to helm untouched.
	valuesFiles []string
}

func NewChartParameterSet() *ChartParameterSet {
	return &ChartParameterSet{index: map[string]int{}}
}

// Set records a parameter override. Duplicate paths and values containing
// shell metacharacters are rejected.
func (s *ChartParameterSet) Set(path, value string) error {
	if path == "" {
		return fmt.Errorf("empty parameter path")
	}
	if _, ok := s.index[path]; ok {
		return fmt.Errorf("duplicate parameter %q", path)
	}
	if strings.ContainsAny(value, shellMetacharacters) {
		return fmt.Errorf("parameter %q value %q contains shell metacharacters", path, value)
	}
	s.index[path] = len(s.params)
	s.params = append(s.params, Param{Path: path, Value: value})
	return nil
}

// Get returns the value recorded for path.
func (s *ChartParameterSet) Get(path string) (string, bool) {
	i, ok := s.index[path]
	if !ok {
		return "", false
	}
	return s.params[i].Value, true
}

// Params returns the overrides in insertion order.
func (s *ChartParameterSet) Params() []Param {
	out := make([]Param, len(s.params))
	copy(out, s.params)
	return out
}

// AddValuesFile appends an external values file reference. The file is read
// by helm, not by this package.
func (s *ChartParameterSet) AddValuesFile(path string) {
	s.valuesFiles = append(s.valuesFiles, path)
}

// ValuesFiles returns the external values file references in order.
func (s *ChartParameterSet) ValuesFiles() []string {
	out := make([]string, len(s.valuesFiles))
	copy(out, s.valuesFiles)
	return out
}

// Values expands the dotted paths into the nested map helm consumes.
func (s *ChartParameterSet) Values() dig.Mapping {
	values := dig.Mapping{}
	for _, p := range s.params {
		keys := strings.Split(p.Path, ".")
		if len(keys) == 1 {
			values[p.Path] = p.Value
			continue
		}
		values.DigMapping(keys[:len(keys)-1]...)[keys[len(keys)-1]] = p.Value
	}
	return values
}
