package main

import (
	"bytes"
	"math/rand"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDemo(t *testing.T) {
	var out bytes.Buffer
	tree, err := runDemo(&out)
	require.NoError(t, err)

	v, ok := tree.Get("abba")
	assert.True(t, ok)
	assert.Equal(t, "abba_", v)
	_, ok = tree.Get("abbaaa")
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "ab", "abba", "abc", "abd", "b", "c"}, tree.Keys())

	assert.Contains(t, out.String(), "All entries")
	assert.Contains(t, out.String(), "abba_")
}

func TestGenerateKeys(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	keys := generateKeys(r, 100, 5)
	require.Len(t, keys, 100)
	for _, k := range keys {
		assert.True(t, len(k) >= 1 && len(k) <= 5, "key %q", k)
		assert.Equal(t, "", strings.Trim(k, keyAlphabet))
	}

	prefixes := generatePrefixes(r, keys, 50, 3)
	require.Len(t, prefixes, 50)
	for _, p := range prefixes {
		assert.True(t, len(p) >= 1 && len(p) <= 3, "prefix %q", p)
	}
}

func TestBackendsAgree(t *testing.T) {
	backends := []backend{&treeBackend{}, newMapBackend(), newRadixKVBackend()}
	for _, b := range backends {
		for _, k := range []string{"a", "b", "abba", "ab", "abc", "abd", "abc123"} {
			require.NoError(t, b.Insert(k, k+"_"))
		}
	}

	for _, prefix := range []string{"", "a", "ab", "abc", "abc1", "abx", "b"} {
		expected, err := backends[0].PrefixKeys(prefix)
		require.NoError(t, err)
		for _, b := range backends[1:] {
			actual, err := b.PrefixKeys(prefix)
			require.NoError(t, err)
			if len(expected) == 0 {
				assert.Empty(t, actual, "%s prefix %q", b.Name(), prefix)
				continue
			}
			assert.Equal(t, expected, actual, "%s prefix %q", b.Name(), prefix)
		}
	}

	for _, b := range backends {
		v, ok, err := b.Get("abc")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "abc_", v)

		_, ok, err = b.Get("abb")
		require.NoError(t, err)
		assert.False(t, ok, b.Name())
		b.Close()
	}
}

func TestRunBench(t *testing.T) {
	logrus.SetLevel(logrus.WarnLevel)

	cfg := benchConfig{
		Keys:      2000,
		MaxKeyLen: 6,
		Prefixes:  100,
		PrefixLen: 3,
		Readers:   3,
		Seed:      1,
		Badger:    true,
		BadgerDir: t.TempDir(),
	}
	backends, cleanup, err := openBackends(cfg)
	require.NoError(t, err)
	defer cleanup()
	require.Len(t, backends, 4)

	results, err := runBench(cfg, backends)
	require.NoError(t, err)
	require.Len(t, results, len(backends))
	for _, r := range results[1:] {
		assert.Equal(t, results[0].Matches, r.Matches, r.Backend)
	}
	assert.NotZero(t, results[0].Matches)

	var out bytes.Buffer
	renderResults(&out, results)
	assert.Contains(t, out.String(), "radix.Tree")
	assert.Contains(t, out.String(), "badgerkv")
}

func TestBenchCommand(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	err := app.Run([]string{"radixbench", "--log-level", "warn", "bench", "--keys", "500", "--prefixes", "20"})
	require.NoError(t, err)
	assert.Contains(t, out.String(), "radixkv")

	err = app.Run([]string{"radixbench", "bench", "--keys", "0"})
	assert.Error(t, err)
}

func TestLogLevel(t *testing.T) {
	defer logrus.SetLevel(logrus.InfoLevel)

	run := func(args ...string) error {
		app := newApp()
		app.Writer = &bytes.Buffer{}
		return app.Run(append([]string{"radixbench"}, args...))
	}

	require.NoError(t, run("demo"))
	assert.Equal(t, defaultLogLevel, logrus.GetLevel())

	require.NoError(t, run("--debug", "demo"))
	assert.Equal(t, logrus.DebugLevel, logrus.GetLevel())

	require.NoError(t, run("-l", "error", "--debug", "demo"))
	assert.Equal(t, logrus.ErrorLevel, logrus.GetLevel())

	assert.Error(t, run("--log-level", "bogus", "demo"))
}
