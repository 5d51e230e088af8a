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
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	tracequery_io "github.com/intergral/tracequery/pkg/io"
	"github.com/intergral/tracequery/pkg/queryres"
)

type decodeCmd struct {
	File     string `arg:"" help:"file containing a serialized query result, or - for stdin"`
	Strategy string `help:"decode strategy (vectorized/scalar)" default:"vectorized"`
	Output   string `help:"output format" enum:"table,json,yaml" default:"table"`
	Limit    int    `help:"maximum number of rows to print, 0 prints all" default:"0"`
}

func (cmd *decodeCmd) Run(_ *globalOptions) error {
	buf, err := readInput(cmd.File)
	if err != nil {
		return err
	}

	strategy, err := queryres.ParseDecodeStrategy(cmd.Strategy)
	if err != nil {
		return err
	}

	opts := queryres.DefaultResultOptions()
	opts.Strategy = strategy

	res, err := queryres.NewResultFromWire(buf, opts)
	if err != nil {
		return err
	}

	fmt.Printf("decoded %s into %s rows, %d columns\n",
		humanize.Bytes(uint64(len(buf))), humanize.Comma(int64(res.RowCount())), len(res.Columns()))

	limit := cmd.Limit
	if limit <= 0 || limit > res.RowCount() {
		limit = res.RowCount()
	}

	switch cmd.Output {
	case "json":
		rows := make([]queryres.Row, 0, limit)
		for len(rows) < limit && res.Next() {
			rows = append(rows, res.Row())
		}
		return printAsJSON(rows)

	case "yaml":
		rows := make([]map[string]interface{}, 0, limit)
		for len(rows) < limit && res.Next() {
			rows = append(rows, rowToMap(res.Row()))
		}
		return printAsYAML(rows)

	default:
		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader(res.Columns())

		printed := 0
		for printed < limit && res.Next() {
			row := res.Row()
			cells := make([]string, 0, len(res.Columns()))
			for i := range res.Columns() {
				cells = append(cells, row.Cell(i).String())
			}
			table.Append(cells)
			printed++
		}

		table.Render()
		return nil
	}
}

func readInput(file string) ([]byte, error) {
	if file == "-" {
		return tracequery_io.ReadAllWithEstimate(os.Stdin, 0)
	}

	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	return tracequery_io.ReadAllWithEstimate(f, stat.Size())
}
