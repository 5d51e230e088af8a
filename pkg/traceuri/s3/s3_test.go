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
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intergral/tracequery/pkg/traceuri"
)

func TestNewResolverArgs(t *testing.T) {
	f := &Factory{cfg: &Config{Bucket: "default-bucket"}}

	tests := []struct {
		name       string
		remainder  string
		wantErr    bool
		wantBucket string
		wantObject string
		wantPrefix string
	}{
		{name: "object", remainder: "object=traces/a.pb", wantBucket: "default-bucket", wantObject: "traces/a.pb"},
		{name: "prefix", remainder: "prefix=traces/", wantBucket: "default-bucket", wantPrefix: "traces/"},
		{name: "bucket override", remainder: "object=a.pb;bucket=other", wantBucket: "other", wantObject: "a.pb"},
		{name: "both object and prefix", remainder: "object=a;prefix=b", wantErr: true},
		{name: "neither", remainder: "", wantErr: true},
		{name: "malformed args", remainder: "object", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := f.FromTraceURI(tc.remainder)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, traceuri.ErrInvalidURI))
				return
			}
			require.NoError(t, err)

			r := res.(*resolver)
			assert.Equal(t, tc.wantBucket, r.bucket)
			assert.Equal(t, tc.wantObject, r.object)
			assert.Equal(t, tc.wantPrefix, r.prefix)
		})
	}
}

func TestNewResolverNoBucket(t *testing.T) {
	f := &Factory{cfg: &Config{}}

	_, err := f.FromTraceURI("object=a.pb")
	require.Error(t, err)
	assert.True(t, errors.Is(err, traceuri.ErrInvalidURI))
	assert.Contains(t, err.Error(), "bucket")
}

func TestObjectResultMetadata(t *testing.T) {
	f := &Factory{cfg: &Config{Bucket: "mybucket"}}

	r, err := f.FromTraceURI("object=traces/a.pb")
	require.NoError(t, err)

	results, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, map[string]string{MetadataObject: "mybucket/traces/a.pb"}, results[0].Metadata)
}

func TestScheme(t *testing.T) {
	assert.Equal(t, "s3", (&Factory{}).Scheme())
}
