//go:build linux

package nodeset

import (
	"runtime"
	"unsafe"

	"golang.org/x/sys/unix"
)

// discoverNodeCount estimates the NUMA node count from the calling
// thread's scheduler affinity mask: CPUs per node is assumed uniform, so
// nodeCount = affinity-mask CPUs (runtime.NumCPU if the mask reports
// none) / coresPerNodeGuess, floored at 1.
// A real deployment would read /sys/devices/system/node; §1 scopes NUMA
// topology discovery as a host concern this core consumes, so a coarse
// but real syscall-backed estimate is enough to exercise the linux path
// golang.org/x/sys/unix provides.
func discoverNodeCount() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err != nil {
		return 1
	}
	cpus := set.Count()
	if cpus <= 0 {
		cpus = runtime.NumCPU()
	}
	const coresPerNodeGuess = 4
	n := cpus / coresPerNodeGuess
	if n < 1 {
		n = 1
	}
	return n
}

// currentCPUNode returns the NUMA node the calling OS thread is currently
// running on, via the getcpu(2) syscall. Returns 0 if the syscall is
// unavailable or fails, matching the single-node degradation of §6.
func currentCPUNode() int {
	var cpu, node uint32
	_, _, errno := unix.Syscall(unix.SYS_GETCPU, uintptr(unsafe.Pointer(&cpu)), uintptr(unsafe.Pointer(&node)), 0)
	if errno != 0 {
		return 0
	}
	return int(node)
}
