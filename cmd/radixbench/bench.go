package main

import (
	"fmt"
	"io"
	"math/rand"
	"os"
	"reflect"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"
)

const keyAlphabet = "abcdefghijklmnopqrstuvwxyz"

type benchConfig struct {
	Keys      int
	MaxKeyLen int
	Prefixes  int
	PrefixLen int
	Readers   int
	Seed      int64

	Badger    bool
	BadgerDir string
}

type benchResult struct {
	Backend     string
	Insert      time.Duration
	Get         time.Duration
	Prefix      time.Duration
	ParallelGet time.Duration
	Matches     int
}

// generateKeys returns random keys of 1 to maxLen letters. Short keys over a
// small alphabet give the tree plenty of shared prefixes.
func generateKeys(r *rand.Rand, n, maxLen int) []string {
	keys := make([]string, n)
	for i := range keys {
		b := make([]byte, 1+r.Intn(maxLen))
		for j := range b {
			b[j] = keyAlphabet[r.Intn(len(keyAlphabet))]
		}
		keys[i] = string(b)
	}
	return keys
}

func generatePrefixes(r *rand.Rand, keys []string, n, maxLen int) []string {
	prefixes := make([]string, n)
	for i := range prefixes {
		k := keys[r.Intn(len(keys))]
		l := 1 + r.Intn(maxLen)
		if l > len(k) {
			l = len(k)
		}
		prefixes[i] = k[:l]
	}
	return prefixes
}

func parallelGet(b backend, keys []string, readers int) error {
	if readers < 1 {
		readers = 1
	}
	chunkSize := (len(keys) + readers - 1) / readers
	if chunkSize == 0 {
		return nil
	}

	var g errgroup.Group
	g.SetLimit(readers)
	for _, chunk := range lo.Chunk(keys, chunkSize) {
		chunk := chunk
		g.Go(func() error {
			for _, k := range chunk {
				if _, ok, err := b.Get(k); err != nil {
					return err
				} else if !ok {
					return fmt.Errorf("%s: key %q not found", b.Name(), k)
				}
			}
			return nil
		})
	}
	return g.Wait()
}

// benchBackend runs every phase against b. The prefix query results are
// returned so that backends can be checked against each other.
func benchBackend(b backend, keys, prefixes []string, readers int) (benchResult, [][]string, error) {
	res := benchResult{Backend: b.Name()}
	log := logrus.WithField("backend", b.Name())

	start := time.Now()
	for _, k := range keys {
		if err := b.Insert(k, k); err != nil {
			return res, nil, fmt.Errorf("%s: insert %q: %w", b.Name(), k, err)
		}
	}
	res.Insert = time.Since(start)
	log.WithField("duration", res.Insert).Debugln("Insert done")

	start = time.Now()
	for _, k := range keys {
		v, ok, err := b.Get(k)
		if err != nil {
			return res, nil, fmt.Errorf("%s: get %q: %w", b.Name(), k, err)
		} else if !ok || v != k {
			return res, nil, fmt.Errorf("%s: get %q returned (%q, %v)", b.Name(), k, v, ok)
		}
	}
	res.Get = time.Since(start)
	log.WithField("duration", res.Get).Debugln("Get done")

	results := make([][]string, len(prefixes))
	start = time.Now()
	for i, p := range prefixes {
		matches, err := b.PrefixKeys(p)
		if err != nil {
			return res, nil, fmt.Errorf("%s: prefix %q: %w", b.Name(), p, err)
		}
		results[i] = matches
		res.Matches += len(matches)
	}
	res.Prefix = time.Since(start)
	log.WithField("duration", res.Prefix).Debugln("Prefix queries done")

	start = time.Now()
	if err := parallelGet(b, keys, readers); err != nil {
		return res, nil, err
	}
	res.ParallelGet = time.Since(start)
	log.WithField("duration", res.ParallelGet).Debugln("Parallel get done")

	return res, results, nil
}

// runBench benchmarks each backend in turn and checks that they all agree on
// every prefix query.
func runBench(cfg benchConfig, backends []backend) ([]benchResult, error) {
	r := rand.New(rand.NewSource(cfg.Seed))
	keys := generateKeys(r, cfg.Keys, cfg.MaxKeyLen)
	prefixes := generatePrefixes(r, keys, cfg.Prefixes, cfg.PrefixLen)
	logrus.WithFields(logrus.Fields{
		"keys":     len(keys),
		"distinct": len(lo.Uniq(keys)),
		"prefixes": len(prefixes),
		"seed":     cfg.Seed,
	}).Println("Generated workload")

	var results []benchResult
	var reference [][]string
	var referenceName string
	for _, b := range backends {
		res, matches, err := benchBackend(b, keys, prefixes, cfg.Readers)
		if err != nil {
			return nil, err
		}
		if reference == nil {
			reference, referenceName = matches, b.Name()
		} else {
			for i, p := range prefixes {
				if len(matches[i]) == 0 && len(reference[i]) == 0 {
					continue
				}
				if !reflect.DeepEqual(matches[i], reference[i]) {
					return nil, fmt.Errorf("prefix %q: %s returned %d keys, %s returned %d",
						p, b.Name(), len(matches[i]), referenceName, len(reference[i]))
				}
			}
		}
		results = append(results, res)
	}
	return results, nil
}

func renderResults(w io.Writer, results []benchResult) {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"Backend", "Insert", "Get", "Prefix", "Parallel get", "Prefix matches"})
	for _, r := range results {
		t.AppendRow(table.Row{
			r.Backend,
			r.Insert.Round(time.Microsecond),
			r.Get.Round(time.Microsecond),
			r.Prefix.Round(time.Microsecond),
			r.ParallelGet.Round(time.Microsecond),
			r.Matches,
		})
	}
	fmt.Fprintln(w, t.Render())
}

func openBackends(cfg benchConfig) ([]backend, func(), error) {
	backends := []backend{
		&treeBackend{},
		newMapBackend(),
		newRadixKVBackend(),
	}
	cleanup := func() {
		for _, b := range backends {
			b.Close()
		}
	}
	if !cfg.Badger {
		return backends, cleanup, nil
	}

	dir := cfg.BadgerDir
	removeDir := false
	if dir == "" {
		var err error
		dir, err = os.MkdirTemp("", "radixbench-")
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		removeDir = true
	}
	bb, err := newBadgerKVBackend(dir, logrus.StandardLogger())
	if err != nil {
		cleanup()
		if removeDir {
			os.RemoveAll(dir)
		}
		return nil, nil, err
	}
	backends = append(backends, bb)
	logrus.WithField("dir", dir).Debugln("Opened badger store")

	return backends, func() {
		cleanup()
		if removeDir {
			os.RemoveAll(dir)
		}
	}, nil
}

func benchCommand() cli.Command {
	return cli.Command{
		Name:  "bench",
		Usage: "compare the radix tree against a map and libkv stores",
		Flags: []cli.Flag{
			cli.IntFlag{Name: "keys", Value: 100000, Usage: "number of keys to insert", EnvVar: "RADIXBENCH_KEYS"},
			cli.IntFlag{Name: "max-key-len", Value: 8, Usage: "maximum key length", EnvVar: "RADIXBENCH_MAX_KEY_LEN"},
			cli.IntFlag{Name: "prefixes", Value: 1000, Usage: "number of prefix queries", EnvVar: "RADIXBENCH_PREFIXES"},
			cli.IntFlag{Name: "prefix-len", Value: 3, Usage: "maximum prefix length", EnvVar: "RADIXBENCH_PREFIX_LEN"},
			cli.IntFlag{Name: "readers", Value: 4, Usage: "goroutines for the parallel get phase", EnvVar: "RADIXBENCH_READERS"},
			cli.Int64Flag{Name: "seed", Value: 1, Usage: "random seed", EnvVar: "RADIXBENCH_SEED"},
			cli.BoolFlag{Name: "badger", Usage: "also benchmark a Badger store", EnvVar: "RADIXBENCH_BADGER"},
			cli.StringFlag{Name: "badger-dir", Usage: "directory for the Badger store (default: temporary)", EnvVar: "RADIXBENCH_BADGER_DIR"},
		},
		Action: func(c *cli.Context) error {
			cfg := benchConfig{
				Keys:      c.Int("keys"),
				MaxKeyLen: c.Int("max-key-len"),
				Prefixes:  c.Int("prefixes"),
				PrefixLen: c.Int("prefix-len"),
				Readers:   c.Int("readers"),
				Seed:      c.Int64("seed"),
				Badger:    c.Bool("badger"),
				BadgerDir: c.String("badger-dir"),
			}
			if cfg.Keys < 1 || cfg.MaxKeyLen < 1 || cfg.PrefixLen < 1 {
				return fmt.Errorf("keys, max-key-len and prefix-len must be positive")
			}
			if cfg.Prefixes < 0 {
				return fmt.Errorf("prefixes must not be negative")
			}

			backends, cleanup, err := openBackends(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			results, err := runBench(cfg, backends)
			if err != nil {
				return err
			}
			renderResults(c.App.Writer, results)
			return nil
		},
	}
}
