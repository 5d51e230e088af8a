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

package httpuri

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/intergral/tracequery/pkg/traceuri"
)

func newTestRegistry(t *testing.T) *traceuri.Registry {
	f, err := NewFactory(&Config{}, "http")
	require.NoError(t, err)
	return traceuri.NewRegistry(f)
}

func TestResolveFetchesURL(t *testing.T) {
	fetched := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fetched++
		_, _ = w.Write([]byte("trace-bytes"))
	}))
	defer srv.Close()

	reg := newTestRegistry(t)
	resolved, err := reg.Resolve(context.Background(), traceuri.RefString(srv.URL))
	require.NoError(t, err)
	require.Len(t, resolved, 1)
	assert.Equal(t, map[string]string{MetadataURL: srv.URL}, resolved[0].Metadata)
	assert.Equal(t, 0, fetched, "resolution must not fetch")

	buf, err := traceuri.ReadAll(context.Background(), resolved[0].Chunks)
	require.NoError(t, err)
	assert.Equal(t, []byte("trace-bytes"), buf)
	assert.Equal(t, 1, fetched)
}

func TestResolveStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	reg := newTestRegistry(t)
	resolved, err := reg.Resolve(context.Background(), traceuri.RefString(srv.URL))
	require.NoError(t, err)
	require.Len(t, resolved, 1)

	_, err = resolved[0].Chunks.NextChunk(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "404")
}

func TestFromTraceURIInvalid(t *testing.T) {
	f, err := NewFactory(&Config{}, "http")
	require.NoError(t, err)

	_, err = f.FromTraceURI("//")
	require.Error(t, err)
	assert.True(t, errors.Is(err, traceuri.ErrInvalidURI))
}

func TestNewFactoryRejectsOtherSchemes(t *testing.T) {
	_, err := NewFactory(&Config{}, "ftp")
	require.Error(t, err)
}

func TestScheme(t *testing.T) {
	f, err := NewFactory(&Config{}, "https")
	require.NoError(t, err)
	assert.Equal(t, "https", f.Scheme())
}
