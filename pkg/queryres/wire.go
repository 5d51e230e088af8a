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

package queryres

import (
	"math"

	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"
)

// Wire field numbers of the QueryResult message. The engine serializes the
// message by hand, so these are decoded by hand too, no generated code.
const (
	fieldColumnNames              = 1
	fieldError                    = 2
	fieldBatch                    = 3
	fieldStatementCount           = 4
	fieldStatementWithOutputCount = 5
	fieldLastStatementSQL         = 6
)

// Wire field numbers of the CellsBatch message. Senders append one unknown
// padding field after is_last_batch, it is skipped like any other unknown
// field.
const (
	fieldCells        = 1
	fieldVarintCells  = 2
	fieldFloat64Cells = 3
	fieldStringCells  = 4
	fieldBlobCells    = 5
	fieldIsLastBatch  = 6
)

// CellsBatch is one bounded chunk of a query result: a tag per cell plus
// four parallel typed arrays. StringCells holds every string cell of the
// batch NUL-joined, with every string NUL-terminated including the last.
type CellsBatch struct {
	Cells        []CellType
	VarintCells  []int64
	Float64Cells []float64
	StringCells  []byte
	BlobCells    [][]byte
	IsLastBatch  bool
}

// QueryResult is the per-query wire message: the column names once, then
// the batches in arrival order. A non-empty Error means the query failed
// engine-side and no batch content is trustworthy.
type QueryResult struct {
	ColumnNames              []string
	Error                    string
	Batches                  []*CellsBatch
	StatementCount           uint32
	StatementWithOutputCount uint32
	LastStatementSQL         string
}

// UnmarshalQueryResult decodes the serialized QueryResult message from raw
// wire bytes. Unknown fields are skipped.
func UnmarshalQueryResult(buf []byte) (*QueryResult, error) {
	qr := &QueryResult{}

	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return nil, errors.Wrapf(ErrProtocolViolation, "malformed field tag: %v", protowire.ParseError(n))
		}
		buf = buf[n:]

		switch num {
		case fieldColumnNames:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return nil, errors.Wrapf(ErrProtocolViolation, "column_names: %v", protowire.ParseError(n))
			}
			qr.ColumnNames = append(qr.ColumnNames, string(v))
			buf = buf[n:]
		case fieldError:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return nil, errors.Wrapf(ErrProtocolViolation, "error: %v", protowire.ParseError(n))
			}
			qr.Error = string(v)
			buf = buf[n:]
		case fieldBatch:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return nil, errors.Wrapf(ErrProtocolViolation, "batch: %v", protowire.ParseError(n))
			}
			batch, err := UnmarshalCellsBatch(v)
			if err != nil {
				return nil, errors.Wrapf(err, "batch %d", len(qr.Batches))
			}
			qr.Batches = append(qr.Batches, batch)
			buf = buf[n:]
		case fieldStatementCount:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return nil, errors.Wrapf(ErrProtocolViolation, "statement_count: %v", protowire.ParseError(n))
			}
			qr.StatementCount = uint32(v)
			buf = buf[n:]
		case fieldStatementWithOutputCount:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return nil, errors.Wrapf(ErrProtocolViolation, "statement_with_output_count: %v", protowire.ParseError(n))
			}
			qr.StatementWithOutputCount = uint32(v)
			buf = buf[n:]
		case fieldLastStatementSQL:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return nil, errors.Wrapf(ErrProtocolViolation, "last_statement_sql: %v", protowire.ParseError(n))
			}
			qr.LastStatementSQL = string(v)
			buf = buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return nil, errors.Wrapf(ErrProtocolViolation, "field %d: %v", num, protowire.ParseError(n))
			}
			buf = buf[n:]
		}
	}

	return qr, nil
}

// UnmarshalCellsBatch decodes one serialized CellsBatch message. Packed and
// unpacked encodings of the repeated numeric fields are both accepted.
func UnmarshalCellsBatch(buf []byte) (*CellsBatch, error) {
	batch := &CellsBatch{}

	for len(buf) > 0 {
		num, typ, n := protowire.ConsumeTag(buf)
		if n < 0 {
			return nil, errors.Wrapf(ErrProtocolViolation, "malformed field tag: %v", protowire.ParseError(n))
		}
		buf = buf[n:]

		switch num {
		case fieldCells:
			if typ == protowire.BytesType {
				v, n := protowire.ConsumeBytes(buf)
				if n < 0 {
					return nil, errors.Wrapf(ErrProtocolViolation, "cells: %v", protowire.ParseError(n))
				}
				if batch.Cells == nil {
					batch.Cells = make([]CellType, 0, len(v))
				}
				for len(v) > 0 {
					c, n := protowire.ConsumeVarint(v)
					if n < 0 {
						return nil, errors.Wrapf(ErrProtocolViolation, "cells: %v", protowire.ParseError(n))
					}
					batch.Cells = append(batch.Cells, cellTypeFromWire(c))
					v = v[n:]
				}
				buf = buf[n:]
			} else {
				c, n := protowire.ConsumeVarint(buf)
				if n < 0 {
					return nil, errors.Wrapf(ErrProtocolViolation, "cells: %v", protowire.ParseError(n))
				}
				batch.Cells = append(batch.Cells, cellTypeFromWire(c))
				buf = buf[n:]
			}
		case fieldVarintCells:
			if typ == protowire.BytesType {
				v, n := protowire.ConsumeBytes(buf)
				if n < 0 {
					return nil, errors.Wrapf(ErrProtocolViolation, "varint_cells: %v", protowire.ParseError(n))
				}
				for len(v) > 0 {
					u, n := protowire.ConsumeVarint(v)
					if n < 0 {
						return nil, errors.Wrapf(ErrProtocolViolation, "varint_cells: %v", protowire.ParseError(n))
					}
					batch.VarintCells = append(batch.VarintCells, int64(u))
					v = v[n:]
				}
				buf = buf[n:]
			} else {
				u, n := protowire.ConsumeVarint(buf)
				if n < 0 {
					return nil, errors.Wrapf(ErrProtocolViolation, "varint_cells: %v", protowire.ParseError(n))
				}
				batch.VarintCells = append(batch.VarintCells, int64(u))
				buf = buf[n:]
			}
		case fieldFloat64Cells:
			if typ == protowire.BytesType {
				v, n := protowire.ConsumeBytes(buf)
				if n < 0 {
					return nil, errors.Wrapf(ErrProtocolViolation, "float64_cells: %v", protowire.ParseError(n))
				}
				for len(v) > 0 {
					u, n := protowire.ConsumeFixed64(v)
					if n < 0 {
						return nil, errors.Wrapf(ErrProtocolViolation, "float64_cells: %v", protowire.ParseError(n))
					}
					batch.Float64Cells = append(batch.Float64Cells, math.Float64frombits(u))
					v = v[n:]
				}
				buf = buf[n:]
			} else {
				u, n := protowire.ConsumeFixed64(buf)
				if n < 0 {
					return nil, errors.Wrapf(ErrProtocolViolation, "float64_cells: %v", protowire.ParseError(n))
				}
				batch.Float64Cells = append(batch.Float64Cells, math.Float64frombits(u))
				buf = buf[n:]
			}
		case fieldStringCells:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return nil, errors.Wrapf(ErrProtocolViolation, "string_cells: %v", protowire.ParseError(n))
			}
			batch.StringCells = append([]byte(nil), v...)
			buf = buf[n:]
		case fieldBlobCells:
			v, n := protowire.ConsumeBytes(buf)
			if n < 0 {
				return nil, errors.Wrapf(ErrProtocolViolation, "blob_cells: %v", protowire.ParseError(n))
			}
			batch.BlobCells = append(batch.BlobCells, append([]byte(nil), v...))
			buf = buf[n:]
		case fieldIsLastBatch:
			v, n := protowire.ConsumeVarint(buf)
			if n < 0 {
				return nil, errors.Wrapf(ErrProtocolViolation, "is_last_batch: %v", protowire.ParseError(n))
			}
			batch.IsLastBatch = v != 0
			buf = buf[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, buf)
			if n < 0 {
				return nil, errors.Wrapf(ErrProtocolViolation, "field %d: %v", num, protowire.ParseError(n))
			}
			buf = buf[n:]
		}
	}

	return batch, nil
}

// cellTypeFromWire maps a raw varint to a CellType without ever aliasing an
// out-of-range value onto a valid tag.
func cellTypeFromWire(v uint64) CellType {
	if v > uint64(CellBlob) {
		return CellInvalid
	}
	return CellType(v)
}
