//go:build !ecsim_debug

package ecsim

// debugBuild is false for an ordinary build (no `-tags ecsim_debug`).
const debugBuild = false
