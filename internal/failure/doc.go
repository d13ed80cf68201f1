// Package failure defines the closed set of failure kinds reported by the
// calendar tools and the classifier that maps raw osascript error text onto
// them.
//
// Classification is a pure, case-insensitive substring match with a fixed
// precedence: permission problems win over missing targets, which win over
// the runner's timeout marker. Anything else is Unknown.
package failure
