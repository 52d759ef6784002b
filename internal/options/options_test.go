// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package options_test

import (
	"testing"

	"github.com/coffeepid/thermo/internal/options"
	"github.com/stretchr/testify/require"
)

type (
	option    interface{ apply(*[]string) }
	other     interface{ skip() }
	withName  string
	withOther struct{}
)

func (o withName) apply(s *[]string) { *s = append(*s, string(o)) }
func (withOther) skip()                {}

func TestApplyOrder(t *testing.T) {
	var names []string
	for opt := range options.Apply[option](
		[]any{withName("a"), withOther{}, nil},
		any(withName("b")),
	) {
		opt.apply(&names)
	}
	require.Equal(t, []string{"a", "b"}, names)
}

func TestApplyStop(t *testing.T) {
	var seen int
	for range options.Apply[option]([]option{withName("a"), withName("b")}) {
		seen++
		break
	}
	require.Equal(t, 1, seen)
}
