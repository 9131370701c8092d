package main

import (
	"runtime"
	"runtime/metrics"
	"syscall"
	"time"
)

const heapObjectsMetric = "/memory/classes/heap/objects:bytes"

// peakUsage is the growth of heap objects and max RSS over a baseline.
type peakUsage struct {
	heap uint64
	rss  uint64
}

// sampler polls heap and RSS usage on a ticker. runtime/metrics is read
// instead of ReadMemStats so sampling does not stop the world.
type sampler struct {
	baseline peakUsage
	peak     peakUsage
	done     chan struct{}
	result   chan peakUsage
}

func startSampler(every time.Duration) *sampler {
	runtime.GC()
	s := &sampler{
		done:   make(chan struct{}),
		result: make(chan peakUsage, 1),
	}
	s.baseline = s.read()
	s.peak = s.baseline

	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-s.done:
				s.observe()
				s.result <- s.peak
				return
			case <-ticker.C:
				s.observe()
			}
		}
	}()
	return s
}

func (s *sampler) observe() {
	cur := s.read()
	s.peak.heap = max(s.peak.heap, cur.heap)
	s.peak.rss = max(s.peak.rss, cur.rss)
}

func (s *sampler) read() peakUsage {
	samples := []metrics.Sample{{Name: heapObjectsMetric}}
	metrics.Read(samples)
	return peakUsage{heap: samples[0].Value.Uint64(), rss: maxRSS()}
}

// stop ends sampling and returns the peak growth over the baseline.
func (s *sampler) stop() peakUsage {
	close(s.done)
	peak := <-s.result
	return peakUsage{
		heap: peak.heap - min(peak.heap, s.baseline.heap),
		rss:  peak.rss - min(peak.rss, s.baseline.rss),
	}
}

// maxRSS returns the peak resident set size of the process in bytes.
func maxRSS() uint64 {
	var ru syscall.Rusage
	if err := syscall.Getrusage(syscall.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	// Linux reports kilobytes, macOS bytes.
	if runtime.GOOS == "linux" {
		return uint64(ru.Maxrss) * 1024
	}
	return uint64(ru.Maxrss)
}
