// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package history

import (
	"encoding/binary"
	"math"

	"github.com/coffeepid/thermo/errors"
)

type (
	// Sample is an absolute reading as produced by the sampling source and as
	// reconstructed from the store.
	Sample struct {
		Time        uint64  // milliseconds since boot
		Temperature float64 // degrees
		Power       float64 // instantaneous duty in [0, 1]
		MeanPower   float64 // smoothed duty in [0, 1]
	}

	// Record is the compact stored form of a sample. Time and temperature are
	// deltas from the previously stored record.
	Record struct {
		TimeDelta uint16 // milliseconds
		TempDelta int8   // hundredths of a degree
		Power     uint8  // duty scaled to 0-255
		MeanPower uint8  // smoothed duty scaled to 0-255
	}
)

// RecordSize is the encoded width of a Record in bytes.
const RecordSize = 5

// AppendBinary appends the little-endian wire form of the record to b.
func (r Record) AppendBinary(b []byte) []byte {
	b = binary.LittleEndian.AppendUint16(b, r.TimeDelta)
	return append(b, byte(r.TempDelta), r.Power, r.MeanPower)
}

// DecodeRecords parses a payload produced by AppendBinary.
func DecodeRecords(b []byte) ([]Record, error) {
	if len(b)%RecordSize != 0 {
		return nil, &errors.Error{
			Message:       "payload is not a whole number of records",
			Kind:          errors.PayloadInvalid,
			PropertyName:  "length",
			PropertyValue: len(b),
		}
	}
	recs := make([]Record, 0, len(b)/RecordSize)
	for ; len(b) > 0; b = b[RecordSize:] {
		recs = append(recs, Record{
			TimeDelta: binary.LittleEndian.Uint16(b),
			TempDelta: int8(b[2]),
			Power:     b[3],
			MeanPower: b[4],
		})
	}
	return recs, nil
}

// Hundredths of a degree, the stored temperature resolution.
func centi(temp float64) int64 {
	return int64(math.Round(temp * 100))
}

func fromCenti(c int64) float64 {
	return float64(c) / 100
}

func quantize(duty float64) uint8 {
	return uint8(math.Round(min(max(duty, 0), 1) * math.MaxUint8))
}

func dequantize(q uint8) float64 {
	return float64(q) / math.MaxUint8
}

// Deltas saturate rather than wrap: the reference then advances by the stored
// value and the next record absorbs the remainder.
func timeDelta(now, prev uint64) uint16 {
	if now <= prev {
		return 0
	}
	return uint16(min(now-prev, math.MaxUint16))
}

func tempDelta(now, prev int64) int8 {
	return int8(min(max(now-prev, math.MinInt8), math.MaxInt8))
}
