//go:build !linux

package nodeset

// discoverNodeCount degrades to single-node mode on platforms without a
// NUMA-aware scheduler affinity query (§6: "if the platform advertises no
// NUMA, the system degrades to a single-node mode").
func discoverNodeCount() int { return 1 }

// currentCPUNode always reports node 0 outside linux.
func currentCPUNode() int { return 0 }
