// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package options

import "iter"

// Apply yields every non-nil option from both lists that satisfies the
// requested option type, in order. Options of other types are skipped, which
// lets a shared option (e.g. a logger) be passed to several constructors.
func Apply[O any, I any](opts []I, rest ...I) iter.Seq[O] {
	return func(yield func(O) bool) {
		for _, list := range [][]I{opts, rest} {
			for _, o := range list {
				opt, ok := any(o).(O)
				if !ok {
					continue
				}
				if !yield(opt) {
					return
				}
			}
		}
	}
}
