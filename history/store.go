// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.

// Package history records temperature and heater power samples in a compact
// delta-encoded ring and replays arbitrary sub-ranges to remote consumers.
//
// A Store is driven from a single polling goroutine: ServiceTick transmits the
// pending replay tasks and then makes one admission attempt. Nothing in this
// package blocks or locks.
package history

import (
	"iter"
	"log/slog"
	"math"

	"github.com/coffeepid/thermo/internal/log"
	"github.com/coffeepid/thermo/ring"
)

// Store is a fixed-capacity history of delta-encoded samples.
//
// The absolute time and temperature of the record preceding the oldest
// retained record is kept as the front reference; adding the deltas of every
// retained record to it reproduces each stored absolute value. The back
// reference is the absolute value of the newest record.
type Store struct {
	records *ring.Buffer[Record]

	frontTime, backTime uint64
	frontTemp, backTemp int64

	interval  uint64
	threshold float64
	nextAdmit uint64
	scheduled bool
	lastTemp  float64

	transport Transport
	tasks     []task
	scratch   []byte

	log log.Logger
}

// Absolute comparison slack so a change of exactly the threshold admits
// despite binary rounding (0.3-0.2 < 0.1 in float64).
const thresholdSlack = 1e-9

// NewStore creates a store holding capacity records that delivers replays
// through transport. A nil transport discards replay tasks.
func NewStore(
	capacity int,
	transport Transport,
	opt ...StoreOption,
) *Store {
	var opts StoreOptions
	opts.Apply(opt)

	if opts.AdmitInterval <= 0 {
		opts.AdmitInterval = DefaultAdmitInterval
	}
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}

	return &Store{
		records:   ring.New[Record](capacity),
		interval:  max(uint64(opts.AdmitInterval.Milliseconds()), 1),
		threshold: opts.Threshold,
		nextAdmit: math.MaxUint64,
		transport: transport,
		log:       log.Wrap(opts.Logger),
	}
}

// Len returns the number of retained records.
func (s *Store) Len() int {
	return s.records.Len()
}

// Cap returns the fixed record capacity.
func (s *Store) Cap() int {
	return s.records.Cap()
}

// Empty returns whether no records are retained.
func (s *Store) Empty() bool {
	return s.records.Empty()
}

// Full returns whether the next push evicts the oldest record.
func (s *Store) Full() bool {
	return s.records.Full()
}

// FrontReference returns the absolute time (ms) and temperature (hundredths
// of a degree) that the oldest record's deltas are relative to.
func (s *Store) FrontReference() (uint64, int64) {
	return s.frontTime, s.frontTemp
}

// Schedule aligns scheduled admissions to whole intervals, starting with the
// interval boundary at or before now. Until Schedule is called only the change
// threshold admits samples.
func (s *Store) Schedule(now uint64) {
	s.nextAdmit = now - now%s.interval
	s.scheduled = true
}

// Admit appends the sample if a scheduled admission is due or if its
// temperature moved at least the threshold away from the last admitted one.
// The first sample into an empty store is always admitted. It reports whether
// the sample was stored.
//
// A due admission advances the schedule by exactly one interval, so delayed
// ticks catch up one interval per call rather than snapping to now.
func (s *Store) Admit(smp Sample) bool {
	due := s.scheduled && smp.Time >= s.nextAdmit
	changed := s.records.Empty() ||
		math.Abs(smp.Temperature-s.lastTemp) >= s.threshold-thresholdSlack
	if !due && !changed {
		return false
	}

	s.Push(smp)
	s.lastTemp = smp.Temperature
	if due {
		s.nextAdmit += s.interval
	}
	return true
}

// Push encodes and appends the sample unconditionally, evicting the oldest
// record when full.
func (s *Store) Push(smp Sample) {
	rec := Record{
		Power:     quantize(smp.Power),
		MeanPower: quantize(smp.MeanPower),
	}
	temp := centi(smp.Temperature)

	if s.records.Empty() {
		s.frontTime, s.backTime = smp.Time, smp.Time
		s.frontTemp, s.backTemp = temp, temp
	} else {
		rec.TimeDelta = timeDelta(smp.Time, s.backTime)
		rec.TempDelta = tempDelta(temp, s.backTemp)
		s.backTime += uint64(rec.TimeDelta)
		s.backTemp += int64(rec.TempDelta)
	}

	if s.records.Full() {
		s.PopFront()
	}
	s.records.PushBack(rec)
}

// PopFront evicts the oldest record and advances the front reference past
// it. It returns the zero record and false if the store is empty.
func (s *Store) PopFront() (Record, bool) {
	rec, ok := s.records.PopFront()
	if !ok {
		return rec, false
	}
	s.frontTime += uint64(rec.TimeDelta)
	s.frontTemp += int64(rec.TempDelta)
	return rec, true
}

// Clear drops every record and every pending replay task.
func (s *Store) Clear() {
	s.records.Clear()
	s.tasks = s.tasks[:0]
	s.frontTime, s.backTime = 0, 0
	s.frontTemp, s.backTemp = 0, 0
}

// Front reconstructs the oldest retained sample. It returns the zero sample
// and false if the store is empty.
func (s *Store) Front() (Sample, bool) {
	rec, ok := s.records.Front()
	if !ok {
		return Sample{}, false
	}
	return decode(rec, s.frontTime+uint64(rec.TimeDelta),
		s.frontTemp+int64(rec.TempDelta)), true
}

// Back returns the newest retained sample. It returns the zero sample and
// false if the store is empty.
func (s *Store) Back() (Sample, bool) {
	rec, ok := s.records.Back()
	if !ok {
		return Sample{}, false
	}
	return decode(rec, s.backTime, s.backTemp), true
}

// At reconstructs the sample at logical index i (0 is the oldest) by walking
// the deltas from the front, so it costs O(i). Use All to read many samples.
// It returns the zero sample and false if i is out of range.
func (s *Store) At(i int) (Sample, bool) {
	if i < 0 || i >= s.records.Len() {
		return Sample{}, false
	}
	time, temp := s.absolute(i)
	return decode(s.records.At(i), time, temp), true
}

// All reconstructs every retained sample, oldest first, in one forward walk.
func (s *Store) All() iter.Seq2[int, Sample] {
	return func(yield func(int, Sample) bool) {
		time, temp := s.frontTime, s.frontTemp
		for i, rec := range s.records.All() {
			time += uint64(rec.TimeDelta)
			temp += int64(rec.TempDelta)
			if !yield(i, decode(rec, time, temp)) {
				return
			}
		}
	}
}

// absolute sums the deltas of records [0, i] onto the front reference.
func (s *Store) absolute(i int) (uint64, int64) {
	time, temp := s.frontTime, s.frontTemp
	for c := s.records.Begin(); c.Pos() <= i; c = c.Next() {
		rec, ok := c.Value()
		if !ok {
			break
		}
		time += uint64(rec.TimeDelta)
		temp += int64(rec.TempDelta)
	}
	return time, temp
}

func decode(rec Record, time uint64, temp int64) Sample {
	return Sample{
		Time:        time,
		Temperature: fromCenti(temp),
		Power:       dequantize(rec.Power),
		MeanPower:   dequantize(rec.MeanPower),
	}
}

func (s *Store) attrs() []slog.Attr {
	return []slog.Attr{
		slog.Int("size", s.records.Len()),
		slog.Int("pending", len(s.tasks)),
	}
}
