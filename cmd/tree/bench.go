package tree

import (
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/dKV-connector/cmd/util"
	"github.com/ValentinKolb/dKV-connector/connector"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"log"
	"math"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"
	"time"
)

var (
	benchCmd = &cobra.Command{
		Use:   "bench",
		Short: "Measures connector operations against a dKV server",
		RunE:  runBench,
	}
	benchKey              = "__bench"
	benchLargeValueSizeKB = 100
	benchNumThreads       = 10
	benchKeySpread        = 100
	benchSkip             = make([]string, 0)
)

// benchmark is one measured connector operation. op is called with the bench
// tree and the set next to it and the iteration counter.
type benchmark struct {
	name string
	op   func(tree *connector.Tree, set *connector.Set, i int) error
}

func init() {
	key := "skip"
	benchCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. tree-set,root-uncached)"))
	key = "threads"
	benchCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	benchCmd.Flags().Int(key, 100, util.WrapString("How large the value for the tree-set-large test should be (in KB)"))
	key = "keys"
	benchCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	benchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	benchLargeValueSizeKB = viper.GetInt("large-value-size")
	benchKeySpread = max(1, viper.GetInt("keys"))
	benchNumThreads = max(1, viper.GetInt("threads"))
	benchSkip = util.SplitPath(strings.ReplaceAll(viper.GetString("skip"), ",", "/"))
	return nil
}

func benchmarks() []benchmark {
	largeValue := make([]byte, benchLargeValueSizeKB*1024)

	return []benchmark{
		{"tree-set", func(tree *connector.Tree, _ *connector.Set, i int) error {
			return tree.Set(benchKeyName(i), []byte("test"))
		}},
		{"tree-set-large", func(tree *connector.Tree, _ *connector.Set, i int) error {
			return tree.Set(benchKeyName(i), largeValue)
		}},
		{"tree-get", func(tree *connector.Tree, _ *connector.Set, i int) error {
			_, _, err := tree.Get(benchKeyName(i))
			return err
		}},
		{"set-add", func(_ *connector.Tree, set *connector.Set, i int) error {
			_, err := set.Add(benchKeyName(i))
			return err
		}},
		{"root-cached", func(_ *connector.Tree, _ *connector.Set, _ int) error {
			_, err := session.Root(true)
			return err
		}},
		{"root-uncached", func(_ *connector.Tree, _ *connector.Set, _ int) error {
			root, err := session.Root(false)
			if err != nil {
				return err
			}
			return root.Connection().Close()
		}},
	}
}

func runBench(_ *cobra.Command, _ []string) error {
	defer session.Invalidate()

	config, err := util.LoadConfig()
	if err != nil {
		return err
	}

	fmt.Println("Performance testing tool for the dKV connector")
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d\n", benchNumThreads)
	fmt.Println()

	benchTree, err := session.KeyedTree(benchKey, true)
	if err != nil {
		return err
	}
	benchSet := connector.NewSet()
	if err := benchTree.Put("members", benchSet); err != nil {
		return err
	}

	defer func() {
		root, err := session.Root(true)
		if err == nil {
			_, err = root.Delete(benchKey)
		}
		if err != nil {
			log.Printf("error removing bench data: %v\n", err)
		}
	}()

	fmt.Println("starting tests...")

	results := make(map[string]testing.BenchmarkResult)
	for _, bm := range benchmarks() {
		if slices.Contains(benchSkip, bm.name) {
			results[bm.name] = testing.BenchmarkResult{}
			printResult(bm.name, results[bm.name])
			continue
		}

		result := testing.Benchmark(func(b *testing.B) {
			b.SetParallelism(benchNumThreads)
			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				counter := 0
				for pb.Next() {
					if err := bm.op(benchTree, benchSet, counter); err != nil {
						log.Printf("(%s) - error: %v\n", bm.name, err)
					}
					counter++
				}
			})
		})

		results[bm.name] = result
		printResult(bm.name, result)
	}

	if csvPath := viper.GetString("csv"); csvPath != "" {
		if err := writeResultsToCSV(csvPath, results, config); err != nil {
			return err
		}
		fmt.Printf("results written to %s\n", csvPath)
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// benchKeyName returns the key used by iteration i (with wraparound)
func benchKeyName(i int) string {
	return "key-" + strconv.Itoa(i%benchKeySpread)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1)
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config connector.Config) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "OpsPerSec", "Skipped",
		"Endpoints", "Transport", "Serializer", "Shard",
		"Threads", "LargeValueSizeKB", "Keys",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, test := range names {
		result := results[test]
		nsPerOp, opsPerSec, skipped := 0.0, 0.0, "true"
		if result.NsPerOp() != 0 {
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
			skipped = "false"
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			strings.Join(config.Client.Transport.Endpoints, ";"),
			config.Transport,
			config.Serializer,
			strconv.FormatUint(config.Shard, 10),
			strconv.Itoa(benchNumThreads),
			strconv.Itoa(benchLargeValueSizeKB),
			strconv.Itoa(benchKeySpread),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %w", test, err)
		}
	}
	return nil
}
