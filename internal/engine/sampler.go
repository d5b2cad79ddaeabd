package engine

import (
	"context"
	"time"

	gopsprocess "github.com/shirou/gopsutil/v3/process"
)

// sampleInterval is how often the resource sampler polls a running step's
// child process.
const sampleInterval = 100 * time.Millisecond

// sample is one CPU%/RSS observation.
type sample struct {
	cpuPercent float64
	memKB      uint64
}

// sampleProcess polls pid every sampleInterval until ctx is done or the
// process exits, returning the mean CPU% and peak RSS observed. Runs in its
// own goroutine alongside the step's exec.Cmd.Wait(), reporting back through
// a channel the step runner reads once sampling stops.
func sampleProcess(ctx context.Context, pid int32) (meanCPU float64, peakMemKB uint64) {
	proc, err := gopsprocess.NewProcess(pid)
	if err != nil {
		return 0, 0
	}

	var (
		sumCPU float64
		count  int
	)
	ticker := time.NewTicker(sampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return meanOf(sumCPU, count), peakMemKB
		case <-ticker.C:
			cpu, err := proc.CPUPercent()
			if err != nil {
				return meanOf(sumCPU, count), peakMemKB
			}
			mem, err := proc.MemoryInfo()
			if err != nil {
				return meanOf(sumCPU, count), peakMemKB
			}
			sumCPU += cpu
			count++
			rssKB := mem.RSS / 1024
			if rssKB > peakMemKB {
				peakMemKB = rssKB
			}
		}
	}
}

func meanOf(sum float64, n int) float64 {
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
