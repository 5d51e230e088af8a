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
	"os"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"

	"github.com/intergral/tracequery/pkg/boundedwaitgroup"
	"github.com/intergral/tracequery/pkg/traceuri"
)

type resolveCmd struct {
	URI   string `arg:"" help:"trace URI or path to resolve"`
	Drain bool   `help:"read every resolved trace to measure its size"`
}

func (cmd *resolveCmd) Run(opts *globalOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	ctx := context.Background()
	registry, err := buildRegistry(ctx, cfg)
	if err != nil {
		return err
	}

	resolved, err := registry.Resolve(ctx, traceuri.RefString(cmd.URI))
	if err != nil {
		return err
	}

	fmt.Printf("resolved %d traces\n", len(resolved))

	sizes := make([]string, len(resolved))
	for i := range sizes {
		sizes[i] = "-"
	}

	if cmd.Drain {
		if err := drainAll(ctx, resolved, sizes); err != nil {
			return err
		}
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Index", "Bytes", "Metadata"})
	for i, trace := range resolved {
		table.Append([]string{strconv.Itoa(i), sizes[i], formatMetadata(trace.Metadata)})
	}
	table.Render()
	return nil
}

// drainAll reads the resolved traces in parallel and records the humanized
// byte count per slot.
func drainAll(ctx context.Context, resolved []traceuri.ResolvedTrace, sizes []string) error {
	wg := boundedwaitgroup.New(20)
	errs := make([]error, len(resolved))

	for i := range resolved {
		wg.Add(1)

		go func(i int) {
			defer wg.Done()

			buf, err := traceuri.ReadAll(ctx, resolved[i].Chunks)
			if err != nil {
				errs[i] = errors.Wrapf(err, "draining trace %d", i)
				return
			}
			sizes[i] = humanize.Bytes(uint64(len(buf)))
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
