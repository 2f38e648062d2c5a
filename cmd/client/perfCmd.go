package client

import (
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/dEcho/cmd/util"
	"github.com/ValentinKolb/dEcho/rpc/client"
	"github.com/ValentinKolb/dEcho/rpc/common"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for dEcho servers",
		Long:    "Runs parallel echo and add load against a server. Every worker uses its own connection",
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfNumThreads       = 10
	perfLargeContentSize = 256
	perfSkip             = make([]string, 0)
)

// perfResult is the outcome of one benchmark
type perfResult struct {
	name   string
	bench  testing.BenchmarkResult
	timer  gometrics.Timer
	errors gometrics.Meter
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. echo,add)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of workers per CPU to use for the benchmark"))
	key = "large-content-size"
	perfTestCmd.Flags().Int(key, 256, util.WrapString("How large the content for the echo-large test should be (in bytes). With raw framing it must fit into the read buffer of the server"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeContentSize = viper.GetInt("large-content-size")
	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfNumThreads < 1 {
		return fmt.Errorf("threads must be at least 1, got %d", perfNumThreads)
	}
	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {

	fmt.Println("Performance testing tool for dEcho servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(clientConfig.String())
	fmt.Printf("Serializer: %s, Transport: %s, Framing: %s\n", viper.GetString("serializer"), viper.GetString("transport"), viper.GetString("framing"))
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	largeContent := strings.Repeat("x", perfLargeContentSize)

	benchmarks := []struct {
		name string
		op   func(c *client.Client, i int) error
	}{
		{"echo", func(c *client.Client, _ int) error {
			return expectEcho(c, "ping")
		}},
		{"echo-large", func(c *client.Client, _ int) error {
			return expectEcho(c, largeContent)
		}},
		{"add", func(c *client.Client, i int) error {
			return expectAdd(c, int32(i), 1)
		}},
		{"mixed", func(c *client.Client, i int) error {
			if i%2 == 0 {
				return expectEcho(c, "ping")
			}
			return expectAdd(c, int32(i), int32(i))
		}},
	}

	results := make([]perfResult, 0, len(benchmarks))
	for _, bm := range benchmarks {
		result := runBenchmark(bm.name, bm.op)
		results = append(results, result)
		printResult(result)
	}

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, clientConfig); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// runBenchmark runs op in parallel, each worker on its own connection.
// Latencies of successful calls go into the timer, failures into the error meter
func runBenchmark(name string, op func(c *client.Client, i int) error) perfResult {
	result := perfResult{
		name:   name,
		timer:  gometrics.NewTimer(),
		errors: gometrics.NewMeter(),
	}
	if shouldSkip(name) {
		return result
	}

	result.bench = testing.Benchmark(func(b *testing.B) {
		b.SetParallelism(perfNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			c, err := newClient()
			if err != nil {
				log.Printf("(%s) - error connecting: %v\n", name, err)
				result.errors.Mark(1)
				return
			}
			defer c.Close()

			counter := 0
			for pb.Next() {
				start := time.Now()
				if err := op(c, counter); err != nil {
					result.errors.Mark(1)
					log.Printf("(%s) - error: %v\n", name, err)
				} else {
					result.timer.UpdateSince(start)
				}
				counter++
			}
		})
	})

	return result
}

func expectEcho(c *client.Client, content string) error {
	echo, err := c.Echo(content)
	if err != nil {
		return err
	}
	if echo != content {
		return fmt.Errorf("echo mismatch: sent %d bytes, got %d bytes", len(content), len(echo))
	}
	return nil
}

func expectAdd(c *client.Client, a, b int32) error {
	sum, err := c.Add(a, b)
	if err != nil {
		return err
	}
	if sum != a+b {
		return fmt.Errorf("add mismatch: %d + %d = %d, got %d", a, b, a+b, sum)
	}
	return nil
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// latencies returns the median and the 99th percentile of the timer
func latencies(timer gometrics.Timer) (p50, p99 time.Duration) {
	ps := timer.Percentiles([]float64{0.5, 0.99})
	return time.Duration(ps[0]), time.Duration(ps[1])
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(result perfResult) {
	if result.bench.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", result.name)
		return
	}

	nsPerOp := math.Max(float64(result.bench.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	p50, p99 := latencies(result.timer)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50 %s\tp99 %s\terrors %d\n",
		result.name, nsPerOp, time.Duration(nsPerOp), opsPerSec, p50, p99, result.errors.Count())
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []perfResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "P50", "P99", "Errors", "Skipped",
		"Endpoint", "TimeoutSec", "Serializer", "Transport", "Framing",
		"Threads", "LargeContentSize",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for _, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.bench.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.bench.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}
		p50, p99 := latencies(result.timer)

		row := []string{
			result.name,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			p50.String(),
			p99.String(),
			strconv.FormatInt(result.errors.Count(), 10),
			skipped,
			config.Endpoint,
			strconv.Itoa(config.TimeoutSecond),
			viper.GetString("serializer"),
			viper.GetString("transport"),
			viper.GetString("framing"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeContentSize),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", result.name, err)
		}
	}

	return nil
}
