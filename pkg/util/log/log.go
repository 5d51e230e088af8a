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

package log

import (
	"fmt"
	"os"

	kitlog "github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Logger is the global logger. It defaults to a nop logger so library
// consumers that never call Init stay silent.
var Logger = kitlog.NewNopLogger()

// Init builds the global logger at the given level. Level is one of
// debug, info, warn, error.
func Init(logLevel string) error {
	var lvl level.Option

	switch logLevel {
	case "debug":
		lvl = level.AllowDebug()
	case "info":
		lvl = level.AllowInfo()
	case "warn":
		lvl = level.AllowWarn()
	case "error":
		lvl = level.AllowError()
	default:
		return fmt.Errorf("invalid log level: %s", logLevel)
	}

	l := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	l = level.NewFilter(l, lvl)
	Logger = kitlog.With(l, "ts", kitlog.DefaultTimestampUTC, "caller", kitlog.DefaultCaller)

	return nil
}
