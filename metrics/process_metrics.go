// Copyright (c) 2026 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

//go:build linux

package metrics

import (
	"bufio"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// ioStats holds the process I/O counters read from /proc/self/io.
type ioStats struct {
	readSyscalls  int64
	writeSyscalls int64
	readBytes     int64
	writeBytes    int64
}

// IOCollector exports the process I/O counters as prometheus metrics.
type IOCollector struct {
	readSyscallsDesc  *prometheus.Desc
	writeSyscallsDesc *prometheus.Desc
	readBytesDesc     *prometheus.Desc
	writeBytesDesc    *prometheus.Desc
}

// NewIOCollector creates a collector reading /proc/self/io.
func NewIOCollector() *IOCollector {
	return &IOCollector{
		readSyscallsDesc: prometheus.NewDesc(
			namespace+"_process_read_syscalls_total",
			"Total number of read I/O operations (syscalls)",
			nil, nil,
		),
		writeSyscallsDesc: prometheus.NewDesc(
			namespace+"_process_write_syscalls_total",
			"Total number of write I/O operations (syscalls)",
			nil, nil,
		),
		readBytesDesc: prometheus.NewDesc(
			namespace+"_process_read_bytes_total",
			"Total number of bytes read from storage",
			nil, nil,
		),
		writeBytesDesc: prometheus.NewDesc(
			namespace+"_process_write_bytes_total",
			"Total number of bytes written to storage",
			nil, nil,
		),
	}
}

// NewProcessCollector creates the process-level collector.
func NewProcessCollector() *IOCollector {
	return NewIOCollector()
}

// Describe implements prometheus.Collector.
func (c *IOCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.readSyscallsDesc
	ch <- c.writeSyscallsDesc
	ch <- c.readBytesDesc
	ch <- c.writeBytesDesc
}

// Collect implements prometheus.Collector.
func (c *IOCollector) Collect(ch chan<- prometheus.Metric) {
	io, err := c.getIOStats()
	if err != nil {
		return
	}

	ch <- prometheus.MustNewConstMetric(c.readSyscallsDesc, prometheus.CounterValue, float64(io.readSyscalls))
	ch <- prometheus.MustNewConstMetric(c.writeSyscallsDesc, prometheus.CounterValue, float64(io.writeSyscalls))
	ch <- prometheus.MustNewConstMetric(c.readBytesDesc, prometheus.CounterValue, float64(io.readBytes))
	ch <- prometheus.MustNewConstMetric(c.writeBytesDesc, prometheus.CounterValue, float64(io.writeBytes))
}

func (c *IOCollector) getIOStats() (*ioStats, error) {
	file, err := os.Open("/proc/self/io")
	if err != nil {
		return nil, errors.Wrap(err, "open /proc/self/io")
	}
	defer file.Close()

	stats := &ioStats{}
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		fields := strings.SplitN(scanner.Text(), ":", 2)
		if len(fields) != 2 {
			continue
		}
		value, err := strconv.ParseInt(strings.TrimSpace(fields[1]), 10, 64)
		if err != nil {
			continue
		}
		switch fields[0] {
		case "syscr":
			stats.readSyscalls = value
		case "syscw":
			stats.writeSyscalls = value
		case "read_bytes":
			stats.readBytes = value
		case "write_bytes":
			stats.writeBytes = value
		}
	}
	return stats, scanner.Err()
}
