// Package sections holds the navigation section tree and the pure transforms applied to it:
// flattening, include/exclude filtering and regrouping into sidebar menu categories.
//
// All functions return new values and never modify their input.
package sections
