package models

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Hyperparameter is one entry of the hyperparameter space. Exactly one of the
// three forms is set:
//
//	lr_schedule: constant          # Const
//	lr_max: [1e-5, 3e-5]           # Values (categorical search dimension)
//	batch_size: {min: 16, max: 64} # Range (numeric search dimension)
type Hyperparameter struct {
	Const  interface{}
	Values []interface{}
	Range  *RangeParam
}

// RangeParam is a numeric search dimension. Count discretizes the range for
// grid search; LogBase samples the exponent instead of the value.
type RangeParam struct {
	Min     float64 `yaml:"min"`
	Max     float64 `yaml:"max"`
	LogBase float64 `yaml:"log_base,omitempty"`
	Count   int     `yaml:"count,omitempty"`
	Int     bool    `yaml:"int,omitempty"`
}

// IsSearch reports whether the parameter spans more than a single value.
func (p Hyperparameter) IsSearch() bool {
	return len(p.Values) > 0 || p.Range != nil
}

func (p *Hyperparameter) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		var v interface{}
		if err := node.Decode(&v); err != nil {
			return err
		}
		p.Const = v
	case yaml.SequenceNode:
		var vals []interface{}
		if err := node.Decode(&vals); err != nil {
			return err
		}
		p.Values = vals
	case yaml.MappingNode:
		var r RangeParam
		if err := node.Decode(&r); err != nil {
			return err
		}
		p.Range = &r
	default:
		return fmt.Errorf("unsupported hyperparameter node kind: %v", node.Kind)
	}
	return nil
}

func (p Hyperparameter) MarshalYAML() (interface{}, error) {
	switch {
	case p.Range != nil:
		return p.Range, nil
	case len(p.Values) > 0:
		return p.Values, nil
	default:
		return p.Const, nil
	}
}

func (p Hyperparameter) validate() error {
	set := 0
	if p.Const != nil {
		set++
	}
	if len(p.Values) > 0 {
		set++
	}
	if p.Range != nil {
		set++
	}
	if set > 1 {
		return fmt.Errorf("only one of value, list, or range may be given")
	}
	if r := p.Range; r != nil {
		if r.Min >= r.Max {
			return fmt.Errorf("range min %v must be below max %v", r.Min, r.Max)
		}
		if r.LogBase != 0 && r.LogBase <= 1 {
			return fmt.Errorf("log_base must be greater than 1")
		}
		if r.Count < 0 {
			return fmt.Errorf("count must not be negative")
		}
	}
	return nil
}
