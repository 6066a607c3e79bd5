// Package service implements the display-time selection policy: deciding
// which cached variant to show and whether to request a new one. It is the
// only entry point the host invokes on every display, and it never blocks
// on network I/O.
package service
