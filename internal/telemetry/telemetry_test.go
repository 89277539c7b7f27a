package telemetry

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/baldhumanity/nnest/neat"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(&buf, "warn", "json")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "generation", 3)
	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.Contains(t, out, `"generation":3`)

	buf.Reset()
	logger, err = NewLogger(&buf, "DEBUG", "")
	require.NoError(t, err)
	logger.Debug("details")
	assert.Contains(t, buf.String(), "msg=details")
}

func TestNewLoggerErrors(t *testing.T) {
	_, err := NewLogger(io.Discard, "loud", "text")
	assert.ErrorContains(t, err, "invalid log level")
	_, err = NewLogger(io.Discard, "info", "xml")
	assert.ErrorContains(t, err, "invalid log format")
}

func TestMetricsReporter(t *testing.T) {
	m := NewMetrics()
	ss := neat.NewSpeciesSet(&neat.SpeciesSetConfig{}, nil)
	ss.Species[1] = neat.NewSpecies(1, 0)
	ss.Species[2] = neat.NewSpecies(2, 0)
	ss.Species[3] = neat.NewSpecies(3, 0)
	pop := map[int]*neat.Genome{1: {Key: 1, Fitness: -1}, 2: {Key: 2, Fitness: -3}}

	m.StartGeneration(0)
	m.PostEvaluate(nil, pop, ss, pop[1])
	m.SpeciesStagnant(2, ss.Species[2])
	m.EndGeneration(nil, pop, ss)
	m.CompleteExtinction()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.generations))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.evaluations))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.extinctions))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.stagnantSpecies))
	assert.Equal(t, -1.0, testutil.ToFloat64(m.bestFitness))
	assert.Equal(t, -2.0, testutil.ToFloat64(m.meanFitness))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.species))

	n, err := testutil.GatherAndCount(m.Registry(), "nnest_generation_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	expected := `
# HELP nnest_generations_total Completed generations.
# TYPE nnest_generations_total counter
nnest_generations_total 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "nnest_generations_total"))
}

func TestServe(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	m := NewMetrics()
	m.CompleteExtinction()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, addr, m, slog.New(slog.NewTextHandler(io.Discard, nil))) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		b, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		body = string(b)
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)
	assert.Contains(t, body, "nnest_extinctions_total 1")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
