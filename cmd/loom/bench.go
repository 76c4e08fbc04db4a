package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/loomkit/loom"
)

type benchProfile struct {
	Name     string
	Writers  int
	Effects  int
	Keys     int
	Duration time.Duration
}

var benchProfiles = map[string]benchProfile{
	"fast": {
		Name:     "fast",
		Writers:  4,
		Effects:  100,
		Keys:     32,
		Duration: 5 * time.Second,
	},
	"standard": {
		Name:     "standard",
		Writers:  8,
		Effects:  500,
		Keys:     128,
		Duration: 15 * time.Second,
	},
	"stress": {
		Name:     "stress",
		Writers:  16,
		Effects:  2000,
		Keys:     512,
		Duration: 30 * time.Second,
	},
}

type benchConfig struct {
	Profile    string
	Writers    int
	Effects    int
	Keys       int
	Duration   time.Duration
	JSONOutput string
}

func benchCmd() *cobra.Command {
	var (
		profileName string
		writers     int
		effects     int
		keys        int
		durationStr string
		jsonOut     string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure effect and trigger throughput",
		Long: `Drive concurrent writers against a shared reactive record while a
population of effects subscribes to its keys, then report write
throughput, effect runs/sec and trigger counts.

Set latency covers the full synchronous span of a write: the store,
the trigger, and every subscriber that re-ran before Set returned.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveBenchConfig(profileName, writers, effects, keys, durationStr, jsonOut)
			if err != nil {
				return err
			}
			return runBench(cfg)
		},
	}

	cmd.Flags().StringVar(&profileName, "profile", "standard", "profile: fast|standard|stress")
	cmd.Flags().IntVar(&writers, "writers", -1, "number of concurrent writer goroutines")
	cmd.Flags().IntVar(&effects, "effects", -1, "number of subscribed effects")
	cmd.Flags().IntVar(&keys, "keys", -1, "number of keys in the shared record")
	cmd.Flags().StringVar(&durationStr, "duration", "", "benchmark duration, e.g. 30s")
	cmd.Flags().StringVar(&jsonOut, "json", "-", "JSON output path ('-' for stdout)")

	return cmd
}

func resolveBenchConfig(profileName string, writers, effects, keys int, durationStr, jsonOut string) (benchConfig, error) {
	name := strings.ToLower(strings.TrimSpace(profileName))
	if name == "" {
		name = "standard"
	}

	base, ok := benchProfiles[name]
	if !ok {
		return benchConfig{}, fmt.Errorf("unknown profile %q", name)
	}

	cfg := benchConfig{
		Profile:    base.Name,
		Writers:    base.Writers,
		Effects:    base.Effects,
		Keys:       base.Keys,
		Duration:   base.Duration,
		JSONOutput: strings.TrimSpace(jsonOut),
	}

	if writers != -1 {
		cfg.Writers = writers
	}
	if effects != -1 {
		cfg.Effects = effects
	}
	if keys != -1 {
		cfg.Keys = keys
	}
	if durationStr != "" {
		d, err := time.ParseDuration(durationStr)
		if err != nil {
			return benchConfig{}, fmt.Errorf("invalid --duration: %w", err)
		}
		cfg.Duration = d
	}
	if cfg.JSONOutput == "" {
		cfg.JSONOutput = "-"
	}

	if cfg.Writers <= 0 {
		return benchConfig{}, errors.New("--writers must be > 0")
	}
	if cfg.Effects <= 0 {
		return benchConfig{}, errors.New("--effects must be > 0")
	}
	if cfg.Keys <= 0 {
		return benchConfig{}, errors.New("--keys must be > 0")
	}
	if cfg.Duration <= 0 {
		return benchConfig{}, errors.New("--duration must be > 0")
	}

	return cfg, nil
}

func runBench(cfg benchConfig) error {
	target := make(map[string]any, cfg.Keys)
	for i := 0; i < cfg.Keys; i++ {
		target[benchKey(i)] = 0
	}
	record := loom.Reactive(target).(*loom.Map)

	// Each effect subscribes to three keys spread over the record.
	scope := loom.NewScope(nil)
	scope.Run(func() {
		for i := 0; i < cfg.Effects; i++ {
			a := benchKey(i % cfg.Keys)
			b := benchKey((i*7 + 1) % cfg.Keys)
			c := benchKey((i*13 + 5) % cfg.Keys)
			loom.NewEffect(func() any {
				return asInt(record.Get(a)) + asInt(record.Get(b)) + asInt(record.Get(c))
			})
		}
	})
	defer scope.Stop()

	samplesCh := make(chan time.Duration, cfg.Writers*256)
	var samples []time.Duration
	collectorDone := make(chan struct{})
	go func() {
		defer close(collectorDone)
		for d := range samplesCh {
			samples = append(samples, d)
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var before runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&before)
	statsBefore := loom.CurrentStats()

	start := time.Now()
	writeCounts := make([]uint64, cfg.Writers)
	var wg sync.WaitGroup
	wg.Add(cfg.Writers)
	for w := 0; w < cfg.Writers; w++ {
		w := w
		go func() {
			defer wg.Done()
			var n uint64
			for {
				select {
				case <-ctx.Done():
					writeCounts[w] = n
					return
				default:
				}

				n++
				key := benchKey(int((uint64(w)*31 + n*17) % uint64(cfg.Keys)))
				if n%64 == 0 {
					t0 := time.Now()
					record.Set(key, int(n))
					samplesCh <- time.Since(t0)
				} else {
					record.Set(key, int(n))
				}
			}
		}()
	}

	wg.Wait()
	close(samplesCh)
	<-collectorDone

	elapsed := time.Since(start)
	statsAfter := loom.CurrentStats()

	var after runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&after)

	var writesTotal uint64
	for _, n := range writeCounts {
		writesTotal += n
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	report := buildBenchReport(cfg, elapsed, writesTotal, samples, statsBefore, statsAfter, before, after)
	writeBenchSummary(os.Stderr, report)
	return writeBenchJSON(cfg.JSONOutput, report)
}

func benchKey(i int) string {
	return "k" + fmt.Sprint(i)
}

func asInt(v any) int {
	n, _ := v.(int)
	return n
}

type benchReport struct {
	Version    string          `json:"version"`
	Run        benchRunInfo    `json:"run"`
	Workload   benchWorkload   `json:"workload"`
	Throughput benchThroughput `json:"throughput"`
	LatencyUS  benchLatency    `json:"set_latency_us"`
	Graph      benchGraph      `json:"graph"`
	GC         benchGC         `json:"gc"`
}

type benchRunInfo struct {
	Timestamp string `json:"timestamp"`
	Go        string `json:"go"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	CPUCount  int    `json:"cpu_count"`
}

type benchWorkload struct {
	Profile    string `json:"profile"`
	Writers    int    `json:"writers"`
	Effects    int    `json:"effects"`
	Keys       int    `json:"keys"`
	DurationMS int64  `json:"duration_ms"`
}

type benchThroughput struct {
	WritesTotal      uint64  `json:"writes_total"`
	WritesPerSec     float64 `json:"writes_per_sec"`
	EffectRunsTotal  uint64  `json:"effect_runs_total"`
	EffectRunsPerSec float64 `json:"effect_runs_per_sec"`
	TriggersTotal    uint64  `json:"triggers_total"`
	TriggersPerSec   float64 `json:"triggers_per_sec"`
	TracksTotal      uint64  `json:"tracks_total"`
}

type benchLatency struct {
	Min float64 `json:"min"`
	P50 float64 `json:"p50"`
	P95 float64 `json:"p95"`
	P99 float64 `json:"p99"`
	Max float64 `json:"max"`
}

type benchGraph struct {
	Targets        int `json:"targets"`
	DependencySets int `json:"dependency_sets"`
}

type benchGC struct {
	AllocMB      float64 `json:"alloc_mb"`
	HeapLiveMB   float64 `json:"heap_live_mb"`
	NumGC        uint32  `json:"num_gc"`
	PauseTotalMS float64 `json:"pause_total_ms"`
	PauseAvgMS   float64 `json:"pause_avg_ms"`
}

func buildBenchReport(
	cfg benchConfig,
	elapsed time.Duration,
	writesTotal uint64,
	samples []time.Duration,
	statsBefore, statsAfter loom.Stats,
	before, after runtime.MemStats,
) benchReport {
	elapsedSeconds := math.Max(0.001, elapsed.Seconds())

	effectRuns := statsAfter.EffectRuns - statsBefore.EffectRuns
	triggers := statsAfter.Triggers - statsBefore.Triggers
	tracks := statsAfter.Tracks - statsBefore.Tracks

	latency := benchLatency{}
	if len(samples) > 0 {
		latency = benchLatency{
			Min: us(samples[0]),
			P50: us(benchPercentile(samples, 0.50)),
			P95: us(benchPercentile(samples, 0.95)),
			P99: us(benchPercentile(samples, 0.99)),
			Max: us(samples[len(samples)-1]),
		}
	}

	pauseTotal := time.Duration(after.PauseTotalNs - before.PauseTotalNs)
	var pauseAvg time.Duration
	if gcCount := after.NumGC - before.NumGC; gcCount > 0 {
		pauseAvg = pauseTotal / time.Duration(gcCount)
	}

	return benchReport{
		Version: "1",
		Run: benchRunInfo{
			Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			Go:        runtime.Version(),
			OS:        runtime.GOOS,
			Arch:      runtime.GOARCH,
			CPUCount:  runtime.NumCPU(),
		},
		Workload: benchWorkload{
			Profile:    cfg.Profile,
			Writers:    cfg.Writers,
			Effects:    cfg.Effects,
			Keys:       cfg.Keys,
			DurationMS: cfg.Duration.Milliseconds(),
		},
		Throughput: benchThroughput{
			WritesTotal:      writesTotal,
			WritesPerSec:     float64(writesTotal) / elapsedSeconds,
			EffectRunsTotal:  effectRuns,
			EffectRunsPerSec: float64(effectRuns) / elapsedSeconds,
			TriggersTotal:    triggers,
			TriggersPerSec:   float64(triggers) / elapsedSeconds,
			TracksTotal:      tracks,
		},
		LatencyUS: latency,
		Graph: benchGraph{
			Targets:        statsAfter.Targets,
			DependencySets: statsAfter.DependencySets,
		},
		GC: benchGC{
			AllocMB:      float64(after.TotalAlloc-before.TotalAlloc) / (1024 * 1024),
			HeapLiveMB:   float64(after.HeapAlloc) / (1024 * 1024),
			NumGC:        after.NumGC - before.NumGC,
			PauseTotalMS: float64(pauseTotal) / float64(time.Millisecond),
			PauseAvgMS:   float64(pauseAvg) / float64(time.Millisecond),
		},
	}
}

func us(d time.Duration) float64 {
	return float64(d) / float64(time.Microsecond)
}

func benchPercentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
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

func writeBenchSummary(w io.Writer, report benchReport) {
	fmt.Fprintln(w, "=== Loom Engine Benchmark ===")
	fmt.Fprintf(w, "Profile: %s\n", report.Workload.Profile)
	fmt.Fprintf(w, "Writers: %d\n", report.Workload.Writers)
	fmt.Fprintf(w, "Effects: %d\n", report.Workload.Effects)
	fmt.Fprintf(w, "Keys: %d\n", report.Workload.Keys)
	fmt.Fprintf(w, "Duration: %s\n", time.Duration(report.Workload.DurationMS)*time.Millisecond)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Writes: %d (%.0f/s)\n", report.Throughput.WritesTotal, report.Throughput.WritesPerSec)
	fmt.Fprintf(w, "Effect runs: %d (%.0f/s)\n", report.Throughput.EffectRunsTotal, report.Throughput.EffectRunsPerSec)
	fmt.Fprintf(w, "Triggers: %d (%.0f/s)\n", report.Throughput.TriggersTotal, report.Throughput.TriggersPerSec)
	fmt.Fprintf(w, "Tracks: %d\n", report.Throughput.TracksTotal)
	fmt.Fprintln(w)

	if report.LatencyUS.Max == 0 {
		fmt.Fprintln(w, "No latency samples recorded.")
	} else {
		fmt.Fprintln(w, "Set latency (store + trigger + subscribers):")
		fmt.Fprintf(w, "  min: %.1f µs\n", report.LatencyUS.Min)
		fmt.Fprintf(w, "  p50: %.1f µs\n", report.LatencyUS.P50)
		fmt.Fprintf(w, "  p95: %.1f µs\n", report.LatencyUS.P95)
		fmt.Fprintf(w, "  p99: %.1f µs\n", report.LatencyUS.P99)
		fmt.Fprintf(w, "  max: %.1f µs\n", report.LatencyUS.Max)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Go runtime / GC:")
	fmt.Fprintf(w, "  alloc:     %.2f MB\n", report.GC.AllocMB)
	fmt.Fprintf(w, "  heap_live: %.2f MB\n", report.GC.HeapLiveMB)
	fmt.Fprintf(w, "  num_gc:    %d\n", report.GC.NumGC)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (total)\n", report.GC.PauseTotalMS)
	fmt.Fprintf(w, "  gc_pause:  %.2f ms (avg)\n", report.GC.PauseAvgMS)
}

func writeBenchJSON(path string, report benchReport) error {
	var out io.Writer
	if path == "-" {
		out = os.Stdout
	} else {
		file, err := os.Create(path)
		if err != nil {
			return err
		}
		defer file.Close()
		out = file
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
