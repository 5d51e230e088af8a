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

package s3

import (
	"time"

	"github.com/grafana/dskit/flagext"
)

// Config selects the bucket the s3 resolver reads traces from and how to
// authenticate against it. Static keys are optional; when absent the client
// falls through IAM, env and EC2 role credentials. Bucket is the default
// bucket and may be overridden per URI with a bucket= argument.
type Config struct {
	Bucket       string         `yaml:"bucket"`
	Endpoint     string         `yaml:"endpoint"`
	Region       string         `yaml:"region"`
	AccessKey    string         `yaml:"access_key"`
	SecretKey    flagext.Secret `yaml:"secret_key"`
	SessionToken flagext.Secret `yaml:"session_token"`

	// Insecure switches to plain http, InsecureSkipVerify keeps https but
	// trusts any certificate.
	Insecure           bool `yaml:"insecure"`
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`

	// SignatureV2 signs requests with the legacy V2 scheme instead of V4.
	SignatureV2 bool `yaml:"signature_v2"`

	// ForcePathStyle and BucketLookupType control whether the bucket goes
	// in the path or the host, for stores that only speak one form.
	ForcePathStyle   bool `yaml:"forcepathstyle"`
	BucketLookupType int  `yaml:"bucket_lookup_type"`

	// Hedging applies to object reads only. Zero disables it.
	HedgeRequestsAt   time.Duration `yaml:"hedge_requests_at"`
	HedgeRequestsUpTo int           `yaml:"hedge_requests_up_to"`
}
