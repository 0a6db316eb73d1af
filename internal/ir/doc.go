// Package ir defines the target-agnostic intermediate representation
// compiled schemas lower to.
//
// This package contains type definitions and identity helpers only.
// All other internal packages import ir; ir imports nothing internal.
// This ensures IR remains the foundational layer with no circular
// dependencies.
//
// Key design constraints:
//   - All JSON tags use snake_case
//   - Slices preserve source declaration order; nothing reorders
//   - Schema fingerprints are computed over canonical JSON only
package ir
