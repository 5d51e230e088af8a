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

package gcs

import (
	"time"
)

// Config selects the bucket the gcs resolver reads traces from. Credentials
// come from the ambient Google auth chain, Insecure turns auth off for test
// endpoints. BucketName is the default bucket and may be overridden per URI
// with a bucket= argument.
type Config struct {
	BucketName string `yaml:"bucket_name"`
	Endpoint   string `yaml:"endpoint"`
	Insecure   bool   `yaml:"insecure"`

	// ChunkBufferSize is the object download chunk size in bytes. Zero uses
	// the resolver default.
	ChunkBufferSize int `yaml:"chunk_buffer_size"`

	// Hedging applies to object reads only. Zero disables it.
	HedgeRequestsAt   time.Duration `yaml:"hedge_requests_at"`
	HedgeRequestsUpTo int           `yaml:"hedge_requests_up_to"`
}
