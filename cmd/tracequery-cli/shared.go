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
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/drone/envsubst"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/intergral/tracequery/pkg/batchquery"
	"github.com/intergral/tracequery/pkg/queryres"
	"github.com/intergral/tracequery/pkg/traceuri"
	"github.com/intergral/tracequery/pkg/traceuri/azure"
	"github.com/intergral/tracequery/pkg/traceuri/gcs"
	"github.com/intergral/tracequery/pkg/traceuri/httpuri"
	"github.com/intergral/tracequery/pkg/traceuri/s3"
)

type cliConfig struct {
	Resolver resolverConfig    `yaml:"resolver"`
	Batch    batchquery.Config `yaml:"batch"`
}

// resolverConfig holds one optional section per store. Only configured
// stores are registered, http/https are always available.
type resolverConfig struct {
	S3    *s3.Config      `yaml:"s3"`
	GCS   *gcs.Config     `yaml:"gcs"`
	Azure *azure.Config   `yaml:"azure"`
	HTTP  *httpuri.Config `yaml:"http"`
}

func loadConfig(opts *globalOptions) (*cliConfig, error) {
	cfg := &cliConfig{Batch: batchquery.DefaultConfig()}
	if opts.ConfigFile == "" {
		return cfg, nil
	}

	buff, err := os.ReadFile(opts.ConfigFile)
	if err != nil {
		return nil, errors.Wrapf(err, "reading config file %s", opts.ConfigFile)
	}

	expanded, err := envsubst.EvalEnv(string(buff))
	if err != nil {
		return nil, errors.Wrap(err, "expanding env vars in config file")
	}

	if err := yaml.UnmarshalStrict([]byte(expanded), cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing config file %s", opts.ConfigFile)
	}
	return cfg, nil
}

func buildRegistry(ctx context.Context, cfg *cliConfig) (*traceuri.Registry, error) {
	var factories []traceuri.Factory

	httpCfg := cfg.Resolver.HTTP
	if httpCfg == nil {
		httpCfg = &httpuri.Config{}
	}
	for _, scheme := range []string{"http", "https"} {
		f, err := httpuri.NewFactory(httpCfg, scheme)
		if err != nil {
			return nil, err
		}
		factories = append(factories, f)
	}

	if cfg.Resolver.S3 != nil {
		f, err := s3.NewFactory(cfg.Resolver.S3)
		if err != nil {
			return nil, err
		}
		factories = append(factories, f)
	}

	if cfg.Resolver.GCS != nil {
		f, err := gcs.NewFactory(ctx, cfg.Resolver.GCS)
		if err != nil {
			return nil, err
		}
		factories = append(factories, f)
	}

	if cfg.Resolver.Azure != nil {
		f, err := azure.NewFactory(ctx, cfg.Resolver.Azure)
		if err != nil {
			return nil, err
		}
		factories = append(factories, f)
	}

	return traceuri.NewRegistry(factories...), nil
}

func printAsJSON(value interface{}) error {
	out, err := json.Marshal(value)
	if err != nil {
		return err
	}

	fmt.Println(string(out))
	return nil
}

func printAsYAML(value interface{}) error {
	out, err := yamlv3.Marshal(value)
	if err != nil {
		return err
	}

	fmt.Print(string(out))
	return nil
}

// rowToMap flattens a row for the structured output formats. Name access is
// keep-last for duplicated columns, matching Row.Get.
func rowToMap(row queryres.Row) map[string]interface{} {
	m := make(map[string]interface{}, len(row.Columns()))
	for _, name := range row.Columns() {
		if cell, ok := row.Get(name); ok {
			m[name] = cell.Value()
		}
	}
	return m
}

func formatMetadata(md map[string]string) string {
	keys := maps.Keys(md)
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+md[k])
	}
	return strings.Join(parts, " ")
}
