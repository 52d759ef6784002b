// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package history

import "github.com/coffeepid/thermo/errors"

// Reassembler rebuilds absolute samples on the consumer side from the
// transfers of one replay.
type Reassembler struct {
	samples []Sample
	done    bool
}

// Add decodes one transfer. It reports whether this was the final part.
func (r *Reassembler) Add(t *Transfer, payload []byte) (bool, error) {
	recs, err := DecodeRecords(payload)
	if err != nil {
		return false, err
	}
	if len(recs) != t.Length {
		return false, &errors.Error{
			Message:       "payload length does not match transfer metadata",
			Kind:          errors.PayloadInvalid,
			PropertyName:  "length",
			PropertyValue: len(recs),
			ConsumerID:    string(t.Consumer),
		}
	}

	time, temp := t.FrontTime, t.FrontTemperature
	for _, rec := range recs {
		time += uint64(rec.TimeDelta)
		temp += int64(rec.TempDelta)
		r.samples = append(r.samples, decode(rec, time, temp))
	}
	r.done = t.LastPart
	return r.done, nil
}

// Done reports whether the final part has been received.
func (r *Reassembler) Done() bool {
	return r.done
}

// Samples returns the samples reassembled so far.
func (r *Reassembler) Samples() []Sample {
	return r.samples
}

// Reset discards all reassembled samples.
func (r *Reassembler) Reset() {
	r.samples = nil
	r.done = false
}
