//go:build !darwin && !linux

package preview

func platformLauncher() Launcher { return nil }
