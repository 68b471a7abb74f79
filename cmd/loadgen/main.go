package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ahmadzakiakmal/internnft-chain/config"
)

type Result struct {
	TotalRequests  int64
	SuccessfulReqs int64
	FailedReqs     int64
	FailedByStage  map[string]int64
	Duration       time.Duration
	TPS            float64
	AvgLatency     time.Duration
	MinLatency     time.Duration
	MaxLatency     time.Duration
}

func main() {
	cfg, err := config.LoadLoadgenConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	nodes := flag.Int("nodes", 4, "Number of validator nodes, recorded in the output")
	flag.IntVar(&cfg.Workers, "workers", cfg.Workers, "Number of concurrent workers")
	flag.DurationVar(&cfg.Duration, "duration", cfg.Duration, "Test duration")
	flag.StringVar(&cfg.APIEndpoint, "api", cfg.APIEndpoint, "Game API endpoint")
	flag.Parse()

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	os.MkdirAll(cfg.RecordsDir, 0755)
	timestamp := time.Now().Format("2006-01-02_15-04-05")
	filename := filepath.Join(cfg.RecordsDir, fmt.Sprintf(
		"loadgen_%s_w%d_d%s_n%d_%s.csv",
		timestamp, cfg.Workers, cfg.Duration, *nodes, cfg.StakingType,
	))

	fmt.Println("========================================")
	fmt.Println("   INTERN LOAD GENERATOR")
	fmt.Println("========================================")
	fmt.Printf("Nodes:        %d\n", *nodes)
	fmt.Printf("Workers:      %d\n", cfg.Workers)
	fmt.Printf("Duration:     %s\n", cfg.Duration)
	fmt.Printf("API:          %s\n", cfg.APIEndpoint)
	fmt.Printf("Staking type: %s\n", cfg.StakingType)
	fmt.Printf("Output:       %s\n", filename)
	fmt.Println("========================================")
	fmt.Println("")

	stopChan := make(chan struct{})
	resultsChan := make(chan WorkflowResult, cfg.Workers*10)

	var wg sync.WaitGroup
	fmt.Println("Starting workers...")
	for i := 0; i < cfg.Workers; i++ {
		wg.Add(1)
		go worker(NewWorkflow(NewHTTPClient(cfg.APIEndpoint, 30*time.Second), cfg), stopChan, resultsChan, &wg)
	}

	startTime := time.Now()
	collected := make(chan Result, 1)
	go func() {
		collected <- collect(resultsChan, startTime)
	}()

	fmt.Printf("Running load for %s...\n", cfg.Duration)
	time.Sleep(cfg.Duration)

	close(stopChan)
	wg.Wait()
	close(resultsChan)
	result := <-collected
	result.Duration = time.Since(startTime)
	if result.Duration > 0 {
		result.TPS = float64(result.TotalRequests) / result.Duration.Seconds()
	}

	fmt.Println("\n\n========================================")
	fmt.Println("   LOAD RESULTS")
	fmt.Println("========================================")
	fmt.Printf("Total Workflows:   %d\n", result.TotalRequests)
	fmt.Printf("Successful:        %d (%.2f%%)\n", result.SuccessfulReqs, percent(result.SuccessfulReqs, result.TotalRequests))
	fmt.Printf("Failed:            %d (%.2f%%)\n", result.FailedReqs, percent(result.FailedReqs, result.TotalRequests))
	for stage, n := range result.FailedByStage {
		fmt.Printf("  at %-14s %d\n", stage+":", n)
	}
	fmt.Printf("Duration:          %v\n", result.Duration)
	fmt.Printf("Throughput (WPS):  %.2f\n", result.TPS)
	fmt.Printf("Avg Latency:       %v\n", result.AvgLatency)
	fmt.Printf("Min Latency:       %v\n", result.MinLatency)
	fmt.Printf("Max Latency:       %v\n", result.MaxLatency)
	fmt.Println("========================================")

	if err := writeCSV(filename, *nodes, cfg, result); err != nil {
		fmt.Printf("Error writing results: %v\n", err)
		return
	}
	fmt.Printf("\nResults saved to: %s\n", filename)
}

func worker(workflow *Workflow, stopChan chan struct{}, resultsChan chan WorkflowResult, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		select {
		case <-stopChan:
			return
		default:
			start := time.Now()
			stage, err := workflow.Run()
			result := WorkflowResult{
				Success: err == nil,
				Latency: time.Since(start),
				Stage:   stage,
			}
			if err != nil {
				result.ErrorMsg = err.Error()
			}
			resultsChan <- result
		}
	}
}

// collect drains results until the channel is closed
func collect(resultsChan <-chan WorkflowResult, startTime time.Time) Result {
	result := Result{FailedByStage: make(map[string]int64)}
	var totalLatency time.Duration

	for r := range resultsChan {
		result.TotalRequests++
		if !r.Success {
			result.FailedReqs++
			result.FailedByStage[r.Stage]++
			continue
		}

		result.SuccessfulReqs++
		totalLatency += r.Latency
		if result.MinLatency == 0 || r.Latency < result.MinLatency {
			result.MinLatency = r.Latency
		}
		if r.Latency > result.MaxLatency {
			result.MaxLatency = r.Latency
		}

		// Progress indicator
		if result.TotalRequests%10 == 0 {
			fmt.Printf("\rWorkflows: %d | Success: %d | Failed: %d | WPS: %.2f",
				result.TotalRequests, result.SuccessfulReqs, result.FailedReqs,
				float64(result.TotalRequests)/time.Since(startTime).Seconds())
		}
	}

	if result.SuccessfulReqs > 0 {
		result.AvgLatency = totalLatency / time.Duration(result.SuccessfulReqs)
	}
	return result
}

func percent(n, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) / float64(total) * 100
}

func writeCSV(filename string, nodes int, cfg *config.LoadgenConfig, result Result) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	writer.Write([]string{
		"Nodes", "Workers", "Duration_s", "Staking_Type",
		"Total_Workflows", "Successful", "Failed",
		"Failed_Mint", "Failed_Stake", "Failed_Withdraw",
		"WPS", "Avg_Latency_ms", "Min_Latency_ms", "Max_Latency_ms",
	})
	writer.Write([]string{
		fmt.Sprintf("%d", nodes),
		fmt.Sprintf("%d", cfg.Workers),
		fmt.Sprintf("%.0f", cfg.Duration.Seconds()),
		cfg.StakingType,
		fmt.Sprintf("%d", result.TotalRequests),
		fmt.Sprintf("%d", result.SuccessfulReqs),
		fmt.Sprintf("%d", result.FailedReqs),
		fmt.Sprintf("%d", result.FailedByStage["mint"]),
		fmt.Sprintf("%d", result.FailedByStage["stake"]),
		fmt.Sprintf("%d", result.FailedByStage["withdraw"]),
		fmt.Sprintf("%.2f", result.TPS),
		fmt.Sprintf("%.2f", float64(result.AvgLatency.Microseconds())/1000),
		fmt.Sprintf("%.2f", float64(result.MinLatency.Microseconds())/1000),
		fmt.Sprintf("%.2f", float64(result.MaxLatency.Microseconds())/1000),
	})
	writer.Flush()
	return writer.Error()
}
