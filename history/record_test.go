// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package history_test

import (
	"testing"

	"github.com/coffeepid/thermo/errors"
	"github.com/coffeepid/thermo/history"
	"github.com/stretchr/testify/require"
)

func TestRecordWireLayout(t *testing.T) {
	rec := history.Record{
		TimeDelta: 0x1234,
		TempDelta: -2,
		Power:     255,
		MeanPower: 7,
	}
	b := rec.AppendBinary(nil)
	require.Equal(t, []byte{0x34, 0x12, 0xfe, 0xff, 0x07}, b)
	require.Len(t, b, history.RecordSize)

	recs, err := history.DecodeRecords(b)
	require.NoError(t, err)
	require.Equal(t, []history.Record{rec}, recs)
}

func TestDecodeRecordsRejectsPartial(t *testing.T) {
	_, err := history.DecodeRecords(make([]byte, 7))
	require.True(t, errors.IsKind(err, errors.PayloadInvalid))
}

func TestReassemblerLengthMismatch(t *testing.T) {
	var r history.Reassembler
	_, err := r.Add(&history.Transfer{Length: 2}, make([]byte, history.RecordSize))
	require.True(t, errors.IsKind(err, errors.PayloadInvalid))
	require.False(t, r.Done())

	r.Reset()
	require.Empty(t, r.Samples())
}

func TestPowerQuantization(t *testing.T) {
	s := history.NewStore(2, nil)
	s.Push(history.Sample{Time: 1, Power: 1.5, MeanPower: -1})
	s.Push(history.Sample{Time: 2, Power: 0.5, MeanPower: 1})

	first, _ := s.Front()
	require.Equal(t, 1.0, first.Power)
	require.Equal(t, 0.0, first.MeanPower)

	back, _ := s.Back()
	require.InDelta(t, 0.5, back.Power, 1.0/255)
	require.Equal(t, 1.0, back.MeanPower)
}
