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

package main

import (
	"context"
	"fmt"
)

type schemesCmd struct {
	Output string `help:"output format" enum:"plain,json,yaml" default:"plain"`
}

func (cmd *schemesCmd) Run(opts *globalOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(context.Background(), cfg)
	if err != nil {
		return err
	}

	schemes := registry.Schemes()

	switch cmd.Output {
	case "json":
		return printAsJSON(schemes)
	case "yaml":
		return printAsYAML(schemes)
	default:
		for _, scheme := range schemes {
			fmt.Println(scheme)
		}
		return nil
	}
}
