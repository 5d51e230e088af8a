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
	"github.com/alecthomas/kong"
	"github.com/go-kit/log/level"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"
	jaegercfg "github.com/uber/jaeger-client-go/config"

	"github.com/intergral/tracequery/pkg/build"
	"github.com/intergral/tracequery/pkg/util/log"
)

type globalOptions struct {
	ConfigFile string `name:"config" type:"path" short:"c" help:"Path to tracequery config file"`
	LogLevel   string `name:"log-level" help:"Log level (debug/info/warn/error)" default:"info"`
	Tracing    bool   `help:"Install a Jaeger tracer configured from the environment"`
}

var cli struct {
	globalOptions

	Decode  decodeCmd  `cmd:"" help:"Decode a serialized query result"`
	Resolve resolveCmd `cmd:"" help:"Resolve a trace URI into the traces it refers to"`
	Schemes schemesCmd `cmd:"" help:"List the registered resolver schemes"`
	Version versionCmd `cmd:"" help:"Print version information"`
}

func main() {
	ctx := kong.Parse(&cli,
		kong.Name("tracequery-cli"),
		kong.Description("TraceQuery CLI utilities"),
		kong.UsageOnError(),
	)

	err := log.Init(cli.LogLevel)
	ctx.FatalIfErrorf(err)

	level.Debug(log.Logger).Log("msg", "tracequery-cli starting", "version", build.Info())

	if cli.Tracing {
		shutdown, err := installOpenTracingTracer("tracequery-cli")
		ctx.FatalIfErrorf(err)
		defer shutdown()
	}

	err = ctx.Run(&cli.globalOptions)
	ctx.FatalIfErrorf(err)
}

// installOpenTracingTracer registers a global Jaeger tracer. Setting the
// environment variable JAEGER_AGENT_HOST enables trace shipping.
func installOpenTracingTracer(serviceName string) (func(), error) {
	level.Info(log.Logger).Log("msg", "initialising OpenTracing tracer")

	cfg, err := jaegercfg.FromEnv()
	if err != nil {
		return nil, errors.Wrap(err, "reading jaeger config from environment")
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = serviceName
	}

	tracer, closer, err := cfg.NewTracer()
	if err != nil {
		return nil, errors.Wrap(err, "initialising tracer")
	}
	opentracing.SetGlobalTracer(tracer)

	return func() {
		if err := closer.Close(); err != nil {
			level.Error(log.Logger).Log("msg", "error closing tracing", "err", err)
		}
	}, nil
}
