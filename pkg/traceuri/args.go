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

package traceuri

import (
	"strings"

	"github.com/pkg/errors"
)

// ParseArgs splits a key=value;key2=value2 remainder into a map. An empty
// remainder yields an empty map, later duplicate keys win.
func ParseArgs(remainder string) (map[string]string, error) {
	args := make(map[string]string)
	if remainder == "" {
		return args, nil
	}

	for _, kv := range strings.Split(remainder, ";") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || key == "" {
			return nil, errors.Wrapf(ErrInvalidURI, "malformed argument %q", kv)
		}
		args[key] = value
	}
	return args, nil
}
