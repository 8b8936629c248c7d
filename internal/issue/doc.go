// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// suggested fixes. The issue catalog holds longer Markdown help pages, rendered
// with glamour, for the failures a CI user is most likely to hit.
package issue
