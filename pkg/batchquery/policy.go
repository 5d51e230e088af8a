/*
 * Copyright (C) 2023  Intergral GmbH
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program.  If not, see <https://www.gnu.org/licenses/>.
 */

package batchquery

import (
	"fmt"
	"strings"
)

// FailurePolicy decides what a failed per-trace query does to the run.
type FailurePolicy byte

const (
	// RaiseError fails the whole run on the first trace whose query errors.
	RaiseError FailurePolicy = iota
	// IncrementStat records the failure and keeps going without the trace.
	IncrementStat
)

// SupportedFailurePolicies is a slice of all policies a config may name.
var SupportedFailurePolicies = []FailurePolicy{
	RaiseError,
	IncrementStat,
}

func (p FailurePolicy) String() string {
	switch p {
	case RaiseError:
		return "raise-error"
	case IncrementStat:
		return "increment-stat"
	default:
		return "unsupported"
	}
}

// UnmarshalYAML implements the Unmarshaler interface of the yaml pkg.
func (p *FailurePolicy) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var policyString string
	err := unmarshal(&policyString)
	if err != nil {
		return err
	}

	*p, err = ParseFailurePolicy(policyString)
	if err != nil {
		return err
	}

	return nil
}

// MarshalYAML implements the Marshaler interface of the yaml pkg
func (p FailurePolicy) MarshalYAML() (interface{}, error) {
	return p.String(), nil
}

// ParseFailurePolicy parses a failure policy by its name.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	for _, p := range SupportedFailurePolicies {
		if strings.EqualFold(p.String(), s) {
			return p, nil
		}
	}
	return RaiseError, fmt.Errorf("invalid failure policy: %s, supported: %s", s, SupportedFailurePoliciesString())
}

// SupportedFailurePoliciesString returns the list of supported policies.
func SupportedFailurePoliciesString() string {
	var sb strings.Builder
	for i := range SupportedFailurePolicies {
		sb.WriteString(SupportedFailurePolicies[i].String())
		if i != len(SupportedFailurePolicies)-1 {
			sb.WriteString(", ")
		}
	}
	return sb.String()
}
