// Package stats aggregates per-project NDJSON metrics into summary rows for
// `fleet stats`. An interactive terminal UI is treated as an out-of-scope
// external collaborator; this package only produces the rows.
package stats

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/re-cinq/fleetd/internal/engine"
	"github.com/re-cinq/fleetd/internal/fileutil"
	"github.com/re-cinq/fleetd/internal/logging"
)

// ProjectStats is one row of the aggregated stats table.
type ProjectStats struct {
	ID            string
	Name          string
	LastDuration  string
	AvgCPU        float64
	AvgMem        float64
	MaxCPU        float64
	MaxMem        float64
	AvgMemKB      uint64
	Runs          int
	LastLogLines  []string
}

// LoadAll reads every project's NDJSON metrics file, grouping runs by
// project id, and returns one row per project sorted by most recent run
// duration descending.
func LoadAll() ([]ProjectStats, error) {
	dir := fileutil.MetricsDir()
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	byProject := make(map[string][]*engine.ExecMetrics)
	for _, entry := range entries {
		if !strings.HasSuffix(entry.Name(), ".ndjson") {
			continue
		}
		runs, err := readRuns(filepath.Join(dir, entry.Name()))
		if err != nil {
			continue
		}
		for _, run := range runs {
			byProject[run.ProjectID] = append(byProject[run.ProjectID], run)
		}
	}

	var out []ProjectStats
	var lastDurations []int64
	for id, runsForProject := range byProject {
		if len(runsForProject) == 0 {
			continue
		}
		ps, lastMs := summarize(id, runsForProject)
		out = append(out, ps)
		lastDurations = append(lastDurations, lastMs)
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(i, j int) bool { return lastDurations[idx[i]] > lastDurations[idx[j]] })
	sorted := make([]ProjectStats, len(out))
	for i, j := range idx {
		sorted[i] = out[j]
	}
	return sorted, nil
}

func summarize(id string, rs []*engine.ExecMetrics) (ProjectStats, int64) {
	var sumCPU, sumMem float64
	var sumMemKB uint64
	var latest *engine.ExecMetrics
	for _, r := range rs {
		sumCPU += r.CPUUsage
		sumMem += r.MemUsage
		sumMemKB += r.MemUsageKB
		if latest == nil || r.FinishedAt.After(latest.FinishedAt) {
			latest = r
		}
	}
	n := float64(len(rs))

	lastLogs, err := logging.Tail(id, 5)
	if err != nil {
		lastLogs = []string{"error: " + err.Error()}
	}

	return ProjectStats{
		ID:           id,
		Name:         latest.ProjectName,
		LastDuration: durationString(latest.DurationMs),
		AvgCPU:       sumCPU / n,
		AvgMem:       sumMem / n,
		MaxCPU:       latest.MaxCPU,
		MaxMem:       latest.MaxMem,
		AvgMemKB:     sumMemKB / uint64(len(rs)),
		Runs:         len(rs),
		LastLogLines: lastLogs,
	}, latest.DurationMs
}

func durationString(ms int64) string {
	return strconv.FormatInt(ms, 10) + " ms"
}

func readRuns(path string) ([]*engine.ExecMetrics, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []*engine.ExecMetrics
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var m engine.ExecMetrics
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			continue
		}
		out = append(out, &m)
	}
	return out, scanner.Err()
}
