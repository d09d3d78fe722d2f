//go:build ecsim_debug

package ecsim

// debugBuild is true when the module is built with `-tags ecsim_debug`.
// It governs the two debug/release splits §6/§7 name: ValidateEveryTick's
// default and whether a system's per-update statistics are recorded
// without it opting in via EnableStatistics.
const debugBuild = true
