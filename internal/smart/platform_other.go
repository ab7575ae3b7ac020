//go:build !windows

package smart

// No management API bindings off Windows; the strategy reports unsupported
// and the cascade moves on to smartctl and basic enumeration.
func newPlatformMgmtQuerier() mgmtQuerier { return nil }

// Raw device I/O control is only wired up on Windows.
func newPlatformDevicePort() devicePort { return nil }
