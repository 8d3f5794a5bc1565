package database

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func describeAll(c *PoolStatsCollector) []string {
	ch := make(chan *prometheus.Desc, 20)
	c.Describe(ch)
	close(ch)

	var names []string
	for d := range ch {
		names = append(names, d.String())
	}
	return names
}

func TestNewPoolStatsCollector(t *testing.T) {
	c := NewPoolStatsCollector(nil, "account")

	require.NotNil(t, c)
	assert.Equal(t, "account", c.service)

	var _ prometheus.Collector = c
}

func TestPoolStatsCollector_DescribesEveryStat(t *testing.T) {
	c := NewPoolStatsCollector(nil, "account")

	descs := describeAll(c)
	require.Len(t, descs, 12)

	for _, want := range []string{
		"db_pool_acquired_connections",
		"db_pool_idle_connections",
		"db_pool_total_connections",
		"db_pool_max_connections",
		"db_pool_constructing_connections",
		"db_pool_acquire_count_total",
		"db_pool_acquire_duration_seconds_total",
		"db_pool_canceled_acquire_count_total",
		"db_pool_empty_acquire_count_total",
		"db_pool_new_connections_total",
		"db_pool_max_lifetime_destroy_total",
		"db_pool_max_idle_destroy_total",
	} {
		found := false
		for _, d := range descs {
			if strings.Contains(d, want) {
				found = true
				break
			}
		}
		assert.True(t, found, "missing descriptor %q", want)
	}
}

func TestPoolStatsCollector_ServiceLabel(t *testing.T) {
	c := NewPoolStatsCollector(nil, "account")

	for _, d := range describeAll(c) {
		assert.Contains(t, d, "service")
	}
}
