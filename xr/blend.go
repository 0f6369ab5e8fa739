// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package xr

import "slices"

// DefaultBlendPreference is the selection order used when a caller does not
// supply one: transparent overlays first, opaque last.
var DefaultBlendPreference = []EnvironmentBlendMode{
	BlendModeAlphaBlend,
	BlendModeAdditive,
	BlendModeOpaque,
}

// SelectBlendMode returns the first mode of preference that the runtime
// lists in available. A nil preference uses DefaultBlendPreference.
func SelectBlendMode(available, preference []EnvironmentBlendMode) (EnvironmentBlendMode, error) {
	if preference == nil {
		preference = DefaultBlendPreference
	}
	for _, want := range preference {
		if slices.Contains(available, want) {
			return want, nil
		}
	}
	return 0, ErrorEnvironmentBlendModeUnsupported
}
