// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package history

import (
	"context"
	"log/slog"
	"slices"
)

type (
	// ConsumerID identifies the remote recipient of a replay.
	ConsumerID string

	// Request asks for the samples between two absolute times (ms) to be
	// replayed to a consumer. A zero From starts at the oldest retained
	// sample; a zero To runs through the newest sample at transmission time.
	Request struct {
		Consumer ConsumerID
		From     uint64
		To       uint64
	}

	// Transfer is the metadata sent ahead of each binary payload. FrontTime
	// and FrontTemperature (hundredths of a degree) are the absolute values
	// the payload's first deltas are relative to.
	Transfer struct {
		Consumer         ConsumerID `json:"-"`
		Length           int        `json:"length"`
		FrontTime        uint64     `json:"frontTime"`
		FrontTemperature int64      `json:"frontTemperature"`
		LastPart         bool       `json:"lastPart"`
	}

	// Transport delivers a transfer's metadata followed by its payload of
	// Length*RecordSize bytes. The payload is only valid for the duration of
	// the call; implementations must copy or transmit it before returning.
	// Errors are logged by the store and never retried.
	Transport interface {
		Transfer(ctx context.Context, t *Transfer, payload []byte) error
	}

	// LivenessChecker is optionally implemented by a Transport to let the
	// store drop tasks for consumers that have gone away.
	LivenessChecker interface {
		Alive(ConsumerID) bool
	}

	// Logical indices into the store at creation time; toLatest defers the
	// end to the newest record at transmission time.
	task struct {
		consumer ConsumerID
		start    int
		end      int
		toLatest bool
	}
)

// RequestRange queues a replay of the samples between from and to for the
// consumer. It reports whether a task was queued: nothing is queued if the
// store is empty, if no retained sample is at or after from, or if the same
// consumer already has an identical task pending.
func (s *Store) RequestRange(consumer ConsumerID, from, to uint64) bool {
	if s.records.Empty() {
		return false
	}

	cur := s.records.Begin()
	rec, _ := cur.Value()
	at := s.frontTime + uint64(rec.TimeDelta)

	for from != 0 && at < from {
		cur = cur.Next()
		rec, ok := cur.Value()
		if !ok {
			s.log.Debug(context.Background(), "replay start beyond history",
				slog.String("consumer", string(consumer)),
				slog.Uint64("from", from),
				slog.Uint64("newest", at))
			return false
		}
		at += uint64(rec.TimeDelta)
	}

	t := task{consumer: consumer, start: cur.Pos(), toLatest: true}

	if to != 0 {
		for at < to {
			cur = cur.Next()
			rec, ok := cur.Value()
			if !ok {
				break
			}
			at += uint64(rec.TimeDelta)
		}
		if cur.Less(s.records.End()) {
			t.end = cur.Pos()
			t.toLatest = false
		}
	}

	if slices.Contains(s.tasks, t) {
		s.log.Debug(context.Background(), "replay already pending",
			slog.String("consumer", string(consumer)),
			slog.Int("start", t.start))
		return false
	}
	s.tasks = append(s.tasks, t)

	s.log.Debug(context.Background(), "replay queued",
		slog.String("consumer", string(consumer)),
		slog.Int("start", t.start),
		slog.Int("end", t.end),
		slog.Bool("to_latest", t.toLatest))
	return true
}

// Pending returns the number of queued replay tasks.
func (s *Store) Pending() int {
	return len(s.tasks)
}

// ServiceTick transmits every pending replay task and then makes one
// admission attempt with the sample, reporting whether it was admitted.
func (s *Store) ServiceTick(ctx context.Context, smp Sample) bool {
	s.Replay(ctx)
	return s.Admit(smp)
}

// Replay transmits every pending replay task, oldest first. If ctx is done
// the remaining tasks stay queued, in order, for the next call.
func (s *Store) Replay(ctx context.Context) {
	done := 0
	for _, t := range s.tasks {
		if ctx.Err() != nil {
			break
		}
		s.send(ctx, t)
		done++
	}
	s.tasks = slices.Delete(s.tasks, 0, done)
}

func (s *Store) send(ctx context.Context, t task) {
	last := t.end
	if t.toLatest {
		last = s.records.Len() - 1
	}
	if t.start > last || last >= s.records.Len() {
		s.log.Debug(ctx, "replay range no longer retained",
			append(s.attrs(), slog.String("consumer", string(t.consumer)))...)
		return
	}
	if s.transport == nil {
		return
	}
	if lc, ok := s.transport.(LivenessChecker); ok && !lc.Alive(t.consumer) {
		s.log.Debug(ctx, "replay consumer gone",
			slog.String("consumer", string(t.consumer)))
		return
	}

	var ref Transfer
	ref.Consumer = t.consumer
	if t.start == 0 {
		ref.FrontTime, ref.FrontTemperature = s.frontTime, s.frontTemp
	} else {
		ref.FrontTime, ref.FrontTemperature = s.absolute(t.start - 1)
	}

	startPos := s.records.Physical(t.start)
	lastPos := s.records.Physical(last)
	if lastPos >= startPos {
		s.transfer(ctx, ref, startPos, lastPos, true)
		return
	}

	// The range wraps past the end of storage: send the tail of storage,
	// then its head, as two parts of the same replay. A consumer must never
	// see the final part of a replay it did not receive whole.
	ref, ok := s.transfer(ctx, ref, startPos, s.records.Cap()-1, false)
	if !ok {
		s.log.Warn(ctx, "replay abandoned after failed part",
			slog.String("consumer", string(t.consumer)))
		return
	}
	s.transfer(ctx, ref, 0, lastPos, true)
}

// transfer sends the physical slots [from, to] and returns the reference for
// a following part, along with whether the transport accepted this one.
func (s *Store) transfer(
	ctx context.Context,
	ref Transfer,
	from, to int,
	last bool,
) (Transfer, bool) {
	next := ref
	sent := false
	s.records.View(from, to, func(recs []Record) {
		s.scratch = s.scratch[:0]
		for _, rec := range recs {
			s.scratch = rec.AppendBinary(s.scratch)
			next.FrontTime += uint64(rec.TimeDelta)
			next.FrontTemperature += int64(rec.TempDelta)
		}

		t := ref
		t.Length = len(recs)
		t.LastPart = last
		if err := s.transport.Transfer(ctx, &t, s.scratch); err != nil {
			s.log.Err(ctx, err,
				slog.String("consumer", string(t.Consumer)),
				slog.Int("length", t.Length))
			return
		}
		sent = true
		s.log.Debug(ctx, "replay part sent",
			slog.String("consumer", string(t.Consumer)),
			slog.Int("length", t.Length),
			slog.Bool("last_part", t.LastPart))
	})
	return next, sent
}
