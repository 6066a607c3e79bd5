// Package events carries user-visible notices from the library core to the
// host. Every failure path in the core ends in a notice rather than a
// process-terminating fault; the host decides how to show them (e.g. a
// transient tooltip).
package events
