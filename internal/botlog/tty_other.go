//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd && !dragonfly && !windows

package botlog

func isTerminal(uintptr) bool { return false }
