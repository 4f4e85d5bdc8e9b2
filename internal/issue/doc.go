// SPDX-License-Identifier: MPL-2.0

// Package issue turns build and verification failures into user-facing
// messages: ActionableError carries the failed operation, the resource and
// suggestions, and the Issue catalog holds Markdown guidance rendered with
// glamour.
package issue
