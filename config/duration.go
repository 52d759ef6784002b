// Copyright (c) Microsoft Corporation.
// Licensed under the MIT License.
package config

import (
	"time"

	"github.com/sosodev/duration"
	"gopkg.in/yaml.v3"
)

// Duration accepts either an ISO 8601 duration ("PT1.5S") or a Go duration
// string ("1500ms").
type Duration time.Duration

// ParseDuration parses an ISO 8601 or Go duration string.
func ParseDuration(s string) (time.Duration, error) {
	if d, err := duration.Parse(s); err == nil {
		return d.ToTimeDuration(), nil
	}
	return time.ParseDuration(s)
}

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the duration as a time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}
