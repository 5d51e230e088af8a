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

package azure

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intergral/tracequery/pkg/traceuri"
)

func TestNewResolverArgs(t *testing.T) {
	f := &Factory{cfg: &Config{ContainerName: "default-container"}}

	res, err := f.FromTraceURI("object=traces/a.pb")
	require.NoError(t, err)
	r := res.(*resolver)
	assert.Equal(t, "default-container", r.container)
	assert.Equal(t, "traces/a.pb", r.object)

	res, err = f.FromTraceURI("prefix=traces/;container=other")
	require.NoError(t, err)
	r = res.(*resolver)
	assert.Equal(t, "other", r.container)
	assert.Equal(t, "traces/", r.prefix)

	_, err = f.FromTraceURI("object=a;prefix=b")
	require.Error(t, err)
	assert.True(t, errors.Is(err, traceuri.ErrInvalidURI))

	_, err = f.FromTraceURI("")
	require.Error(t, err)
	assert.True(t, errors.Is(err, traceuri.ErrInvalidURI))
}

func TestNewResolverNoContainer(t *testing.T) {
	f := &Factory{cfg: &Config{}}

	_, err := f.FromTraceURI("object=a.pb")
	require.Error(t, err)
	assert.True(t, errors.Is(err, traceuri.ErrInvalidURI))
	assert.Contains(t, err.Error(), "container")
}

func TestObjectResultMetadata(t *testing.T) {
	f := &Factory{cfg: &Config{ContainerName: "mycontainer"}}

	r, err := f.FromTraceURI("object=traces/a.pb")
	require.NoError(t, err)

	results, err := r.Resolve(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, map[string]string{MetadataObject: "mycontainer/traces/a.pb"}, results[0].Metadata)
}

func TestGetEndpointSuffix(t *testing.T) {
	assert.Equal(t, "blob.core.windows.net", getEndpointSuffix(&Config{}))
	assert.Equal(t, "localhost:10000", getEndpointSuffix(&Config{Endpoint: "localhost:10000"}))
}

func TestScheme(t *testing.T) {
	assert.Equal(t, "azure", (&Factory{}).Scheme())
}
