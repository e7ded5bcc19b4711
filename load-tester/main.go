package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL     string
	Total       int
	Rate        int
	Concurrency int
	WindowHours int
}

func parseFlags() *Config {
	c := &Config{}
	flag.StringVar(&c.BaseURL, "base-url", "", "Service base URL (required)")
	flag.IntVar(&c.Total, "total", 10000, "Total requests")
	flag.IntVar(&c.Rate, "rate", 500, "Requests per second")
	flag.IntVar(&c.Concurrency, "concurrency", 0, "Worker count (0=auto)")
	flag.IntVar(&c.WindowHours, "window-hours", 24, "Query window size in hours")
	flag.Parse()

	if c.BaseURL == "" {
		fmt.Fprintln(os.Stderr, "Error: -base-url is required")
		flag.Usage()
		os.Exit(1)
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")

	if c.Concurrency == 0 {
		c.Concurrency = c.Rate / 20 // Auto-scale workers
		if c.Concurrency < 50 {
			c.Concurrency = 50
		}
	}

	return c
}

type Stats struct {
	ok      uint64
	errors  uint64
	latency int64 // microseconds
}

func (s *Stats) AddOK(duration time.Duration) {
	atomic.AddUint64(&s.ok, 1)
	atomic.AddInt64(&s.latency, duration.Microseconds())
}

func (s *Stats) AddError() {
	atomic.AddUint64(&s.errors, 1)
}

func (s *Stats) StartLogger(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	var lastOK, lastErr uint64

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ok := atomic.LoadUint64(&s.ok)
			errs := atomic.LoadUint64(&s.errors)
			latTotal := atomic.LoadInt64(&s.latency)

			curOK := ok - lastOK
			curErr := errs - lastErr
			lastOK, lastErr = ok, errs

			avgLat := 0.0
			if ok > 0 {
				avgLat = float64(latTotal) / float64(ok) / 1000.0
			}

			log.Printf("[STATS] 1s -> OK: %d | ERR: %d | AvgLat: %.2fms | Total OK: %d", curOK, curErr, avgLat, ok)
		}
	}
}

func main() {
	cfg := parseFlags()
	stats := &Stats{}

	// High-performance HTTP Client
	client := &http.Client{
		Timeout: 30 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency,
			MaxIdleConnsPerHost: cfg.Concurrency, // Critical: Keep as many connections open as there are workers.
			IdleConnTimeout:     90 * time.Second,
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
		},
	}

	log.Printf("Starting Load Test: Target=%s Rate=%d/s Total=%d Workers=%d", cfg.BaseURL, cfg.Rate, cfg.Total, cfg.Concurrency)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stats Logger
	go stats.StartLogger(ctx)

	// Job Queue
	jobs := make(chan struct{}, cfg.Rate*2)
	var wg sync.WaitGroup
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	rngs := make([]*rand.Rand, cfg.Concurrency)
	for i := 0; i < cfg.Concurrency; i++ {
		rngs[i] = rand.New(rand.NewSource(rng.Int63()))
	}

	// Workers
	for i := 0; i < cfg.Concurrency; i++ {
		wg.Add(1)
		go startWorker(client, cfg, jobs, stats, rngs[i], &wg)
	}

	// Rate Limiter (Main Loop)
	remaining := cfg.Total
	for remaining > 0 {
		start := time.Now()
		batch := cfg.Rate
		if remaining < batch {
			batch = remaining
		}

		for i := 0; i < batch; i++ {
			jobs <- struct{}{}
		}
		remaining -= batch

		elapsed := time.Since(start)
		if elapsed < time.Second {
			time.Sleep(time.Second - elapsed)
		}
	}

	close(jobs)
	wg.Wait()

	log.Printf("DONE. Total OK: %d | Total Errors: %d", atomic.LoadUint64(&stats.ok), atomic.LoadUint64(&stats.errors))
}

func startWorker(client *http.Client, cfg *Config, jobs <-chan struct{}, stats *Stats, rng *rand.Rand, wg *sync.WaitGroup) {
	defer wg.Done()

	for range jobs {
		target := randomQuery(rng, cfg)
		start := time.Now()

		if err := sendQuery(client, target); err != nil {
			stats.AddError()
		} else {
			stats.AddOK(time.Since(start))
		}
	}
}

func sendQuery(client *http.Client, target string) error {
	resp, err := client.Get(target)
	if err != nil {
		return err
	}

	// Performance Hack: Read and discard the Body so the connection can be reused (Keep-Alive)
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("http status: %d", resp.StatusCode)
	}
	return nil
}

// Each endpoint is paired with the models it is typically queried with.
var endpoints = []struct {
	path   string
	models []string
}{
	{"/series/range", []string{"project", "group", "release", "project_total_received", "key_total_received"}},
	{"/distinct/series", []string{"users_affected_by_group", "users_affected_by_project"}},
	{"/distinct/totals", []string{"users_affected_by_group", "users_affected_by_project"}},
	{"/distinct/union", []string{"users_affected_by_group"}},
	{"/frequent", []string{"frequent_releases_by_group", "frequent_environments_by_group"}},
	{"/frequent/series", []string{"frequent_releases_by_group"}},
	{"/frequency/series", []string{"frequent_issues_by_project"}},
	{"/frequency/totals", []string{"frequent_issues_by_project"}},
}

var rollups = []int64{60, 3600, 86400}

func randomQuery(rng *rand.Rand, cfg *Config) string {
	ep := endpoints[rng.Intn(len(endpoints))]

	keys := make([]string, 1+rng.Intn(5))
	for i := range keys {
		keys[i] = strconv.Itoa(1 + rng.Intn(1000))
	}

	end := time.Now().Unix()
	start := end - int64(cfg.WindowHours)*3600

	q := url.Values{}
	q.Set("model", ep.models[rng.Intn(len(ep.models))])
	q.Set("keys", strings.Join(keys, ","))
	q.Set("start", strconv.FormatInt(start, 10))
	q.Set("end", strconv.FormatInt(end, 10))
	q.Set("rollup", strconv.FormatInt(rollups[rng.Intn(len(rollups))], 10))

	return cfg.BaseURL + ep.path + "?" + q.Encode()
}
