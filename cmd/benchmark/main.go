package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Config holds the benchmark settings
var (
	targetURL   string
	concurrency int
	duration    time.Duration
	batchSize   int
	workload    string
)

// Metrics
var (
	totalBatches uint64
	cleanBatches uint64 // every command succeeded
	errorBatches uint64 // at least one command failed
	timeouts     uint64
	failOther    uint64
)

func init() {
	flag.StringVar(&targetURL, "url", "http://localhost:8080", "API Base URL")
	flag.IntVar(&concurrency, "workers", 10, "Number of concurrent workers")
	flag.DurationVar(&duration, "duration", 30*time.Second, "Test duration")
	flag.IntVar(&batchSize, "batch", 5, "Commands per batch")
	flag.StringVar(&workload, "workload", "uniform", "Workload type: uniform | hotspot")
}

func main() {
	flag.Parse()
	log.Printf("Starting Benchmark: %s | Workers: %d | Batch: %d | Duration: %s",
		workload, concurrency, batchSize, duration)

	start := time.Now()
	var wg sync.WaitGroup
	wg.Add(concurrency)

	for i := 0; i < concurrency; i++ {
		go worker(&wg, start)
	}

	wg.Wait()
	printResults(time.Since(start))
}

func worker(wg *sync.WaitGroup, start time.Time) {
	defer wg.Done()
	client := &http.Client{Timeout: 60 * time.Second}

	for time.Since(start) < duration {
		batch := make([]map[string]interface{}, 0, batchSize)
		for i := 0; i < batchSize; i++ {
			batch = append(batch, randomCommand())
		}
		body, _ := json.Marshal(batch)

		req, _ := http.NewRequest("POST", targetURL+"/transactions", bytes.NewBuffer(body))
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			atomic.AddUint64(&failOther, 1)
			continue
		}

		atomic.AddUint64(&totalBatches, 1)
		switch resp.StatusCode {
		case 200:
			var out struct {
				Status string            `json:"status"`
				Errors []json.RawMessage `json:"errors"`
			}
			json.NewDecoder(resp.Body).Decode(&out)
			if len(out.Errors) == 0 {
				atomic.AddUint64(&cleanBatches, 1)
			} else {
				atomic.AddUint64(&errorBatches, 1)
			}
		case 504:
			atomic.AddUint64(&timeouts, 1)
		default:
			atomic.AddUint64(&failOther, 1)
		}
		resp.Body.Close()
	}
}

func randomCommand() map[string]interface{} {
	from, to := generateAccounts()

	switch rand.Intn(4) {
	case 0:
		return map[string]interface{}{"cmd": "DEPOSIT", "accountId": from, "amount": "25.00"}
	case 1:
		return map[string]interface{}{"cmd": "WITHDRAW", "accountId": from, "amount": "10.00"}
	default:
		return map[string]interface{}{"cmd": "XFER", "fromId": from, "toId": to, "amount": "1.00"}
	}
}

func generateAccounts() (string, string) {
	// Assumes 1000 accounts seeded (acct-0001..acct-1000)
	totalAccounts := 1000

	if workload == "hotspot" {
		// Hotspot: 90% of traffic goes to the first two accounts
		if rand.Float32() < 0.90 {
			if rand.Float32() < 0.5 {
				return "acct-0001", "acct-0002"
			}
			return "acct-0002", "acct-0001"
		}
	}

	a := rand.Intn(totalAccounts) + 1
	b := rand.Intn(totalAccounts) + 1
	for a == b {
		b = rand.Intn(totalAccounts) + 1
	}
	return fmt.Sprintf("acct-%04d", a), fmt.Sprintf("acct-%04d", b)
}

func printResults(d time.Duration) {
	total := atomic.LoadUint64(&totalBatches)
	clean := atomic.LoadUint64(&cleanBatches)
	withErr := atomic.LoadUint64(&errorBatches)
	timedOut := atomic.LoadUint64(&timeouts)
	fErr := atomic.LoadUint64(&failOther)

	bps := float64(total) / d.Seconds()

	results := map[string]interface{}{
		"workload":       workload,
		"duration_sec":   d.Seconds(),
		"total_batches":  total,
		"throughput_bps": bps,
		"clean_batches":  clean,
		"error_batches":  withErr,
		"timeouts":       timedOut,
		"errors":         fErr,
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(results)

	filename := fmt.Sprintf("results_%s.json", workload)
	file, _ := os.Create(filename)
	defer file.Close()
	json.NewEncoder(file).Encode(results)
}
