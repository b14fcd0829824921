//go:build linux

package engine

import "golang.org/x/sys/unix"

// pinToCore 将当前线程绑定到指定CPU核（需先 LockOSThread）。
func pinToCore(core int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(core)
	return unix.SchedSetaffinity(0, &set)
}
