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

package io

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAllWithEstimate(t *testing.T) {
	payload := make([]byte, 10)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	tests := []struct {
		name     string
		estimate int64
	}{
		{name: "exact estimate", estimate: int64(len(payload))},
		{name: "zero estimate", estimate: 0},
		{name: "negative estimate", estimate: -1},
		{name: "undersized estimate", estimate: 3},
		{name: "oversized estimate", estimate: 100},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := ReadAllWithEstimate(bytes.NewReader(payload), tc.estimate)
			assert.NoError(t, err)
			assert.Equal(t, payload, actual)
		})
	}
}

func TestReadAllWithEstimateExactDoesNotGrow(t *testing.T) {
	payload := make([]byte, 10)
	_, err := rand.Read(payload)
	require.NoError(t, err)

	actual, err := ReadAllWithEstimate(bytes.NewReader(payload), int64(len(payload)))
	assert.NoError(t, err)
	assert.Equal(t, len(payload), len(actual))
	assert.Equal(t, len(payload)+1, cap(actual)) // the spare byte, nothing more
}

func TestReadAllWithEstimateEmptyReader(t *testing.T) {
	actual, err := ReadAllWithEstimate(bytes.NewReader(nil), 0)
	assert.NoError(t, err)
	assert.Empty(t, actual)
}
