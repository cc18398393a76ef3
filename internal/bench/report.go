package bench

import (
	"encoding/json"
	"io"
	"math"
	"runtime"
	"slices"
	"time"
)

// Report is the JSON result of a run.
type Report struct {
	Version  string       `json:"version"`
	Run      RunInfo      `json:"run"`
	Workload WorkloadInfo `json:"workload"`
	Cases    []CaseResult `json:"cases"`
}

type RunInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
}

type WorkloadInfo struct {
	Items  int    `json:"items"`
	Rounds int    `json:"rounds"`
	Seed   uint64 `json:"seed"`
}

// CaseResult holds the timings and mutation counts of one case.
type CaseResult struct {
	Name      string      `json:"name"`
	LatencyMS LatencyInfo `json:"latency_ms"`

	MutationsPerRound float64 `json:"mutations_per_round"`
	InsertsPerRound   float64 `json:"inserts_per_round"`
	RemovesPerRound   float64 `json:"removes_per_round"`
}

type LatencyInfo struct {
	Min  float64 `json:"min"`
	Mean float64 `json:"mean"`
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	Max  float64 `json:"max"`
}

func newReport(opts Options) *Report {
	return &Report{
		Version: "1",
		Run: RunInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
		},
		Workload: WorkloadInfo{
			Items:  opts.Items,
			Rounds: opts.Rounds,
			Seed:   opts.Seed,
		},
	}
}

func newCaseResult(name string, latencies []time.Duration, counts mutationCounts) CaseResult {
	res := CaseResult{Name: name}
	if len(latencies) == 0 {
		return res
	}

	sorted := slices.Clone(latencies)
	slices.Sort(sorted)
	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	rounds := float64(len(sorted))

	res.LatencyMS = LatencyInfo{
		Min:  ms(sorted[0]),
		Mean: ms(total) / rounds,
		P50:  ms(percentile(sorted, 0.50)),
		P95:  ms(percentile(sorted, 0.95)),
		Max:  ms(sorted[len(sorted)-1]),
	}
	res.MutationsPerRound = float64(counts.total) / rounds
	res.InsertsPerRound = float64(counts.inserts) / rounds
	res.RemovesPerRound = float64(counts.removes) / rounds
	return res
}

// Case returns the result with the given name.
func (r *Report) Case(name string) (CaseResult, bool) {
	for _, c := range r.Cases {
		if c.Name == name {
			return c, true
		}
	}
	return CaseResult{}, false
}

// WriteJSON writes the indented report.
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 1 {
		return sorted[len(sorted)-1]
	}
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
