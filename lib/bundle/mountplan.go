// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package bundle

// MountPlan is the compiled subset of a composed bundle handed to the
// session runtime: exactly session, providers, tools, hooks, and
// agents. Includes are consumed during loading; context and
// instruction feed the mention-resolution path instead of the mount
// plan.
type MountPlan struct {
	Session   map[string]any `yaml:"session" json:"session"`
	Providers []any          `yaml:"providers" json:"providers"`
	Tools     []any          `yaml:"tools" json:"tools"`
	Hooks     []any          `yaml:"hooks" json:"hooks"`
	Agents    map[string]any `yaml:"agents" json:"agents"`
}

// MountPlan compiles the bundle into its mount plan. The plan holds
// deep copies: mutating it afterwards does not reach back into the
// bundle.
func (b *Bundle) MountPlan() MountPlan {
	composed := b.clone()
	return MountPlan{
		Session:   composed.Session,
		Providers: composed.Providers,
		Tools:     composed.Tools,
		Hooks:     composed.Hooks,
		Agents:    composed.Agents,
	}
}
