package engine

import gopsmem "github.com/shirou/gopsutil/v3/mem"

// totalSystemMemKB returns total system memory in KB, used to express a
// job's RSS as a percentage of system memory (ExecMetrics.MemUsage).
// Returns 0 on error, which callers treat as "percentage unavailable".
func totalSystemMemKB() uint64 {
	vm, err := gopsmem.VirtualMemory()
	if err != nil {
		return 0
	}
	return vm.Total / 1024
}
