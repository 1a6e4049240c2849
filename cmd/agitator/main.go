// Package main - agitator
// Load generator for the game server: many websocket clients spamming
// CLICK, BUY and SAVE actions at a fixed interval.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/MRamiBalles/IdleAbsurditree/internal/network"
	"github.com/MRamiBalles/IdleAbsurditree/internal/platform/logger"
)

var log = logger.NewLogger()

// Config for the agitator
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	Generators     int
	ResultsPath    string
}

// Stats tracks performance metrics
type Stats struct {
	MessagesSent     int64
	MessagesReceived int64
	StateUpdates     int64
	ServerErrors     int64 // "error" frames, rate limiting included
	Errors           int64 // Connection and write failures
	Latencies        []time.Duration
	mu               sync.Mutex
}

func main() {
	serverURL := flag.String("url", "ws://localhost:8080/ws", "WebSocket server URL")
	numClients := flag.Int("clients", 50, "Number of concurrent clients")
	interval := flag.Duration("interval", 100*time.Millisecond, "Action interval per client")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	generators := flag.Int("generators", 2, "Generator indices to try buying")
	results := flag.String("out", "stress_test_results.json", "Where to write the JSON results")
	flag.Parse()
	defer func() { _ = log.Sync() }()

	config := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
		Generators:     *generators,
		ResultsPath:    *results,
	}

	fmt.Println("=========================================")
	fmt.Println("AGITATOR - IdleAbsurditree stress test")
	fmt.Println("=========================================")
	fmt.Printf("Server: %s\n", config.ServerURL)
	fmt.Printf("Clients: %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	stats := runStressTest(ctx, config)
	printResults(stats, config)
}

func runStressTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup

	fmt.Println("\nStarting clients...")

	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("All %d clients started\n\n", config.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Printf("Progress: sent=%d recv=%d server_errors=%d errors=%d\n",
					atomic.LoadInt64(&stats.MessagesSent),
					atomic.LoadInt64(&stats.MessagesReceived),
					atomic.LoadInt64(&stats.ServerErrors),
					atomic.LoadInt64(&stats.Errors))
			}
		}
	}()

	wg.Wait()
	return stats
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, config.ServerURL, nil)
	if err != nil {
		log.Warn("Client connection failed", zap.Int("client", clientID), zap.Error(err))
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	rng := rand.New(rand.NewSource(int64(clientID) + 1))

	go func() {
		for {
			var msg network.ServerMessage
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			stats.record(msg)
		}
	}()

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			action := generateRandomAction(rng, config.Generators)
			start := time.Now()

			if err := conn.WriteJSON(action); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}

			latency := time.Since(start)
			atomic.AddInt64(&stats.MessagesSent, 1)

			stats.mu.Lock()
			stats.Latencies = append(stats.Latencies, latency)
			stats.mu.Unlock()
		}
	}
}

func (s *Stats) record(msg network.ServerMessage) {
	atomic.AddInt64(&s.MessagesReceived, 1)
	switch msg.Type {
	case network.MessageState:
		atomic.AddInt64(&s.StateUpdates, 1)
	case network.MessageError:
		atomic.AddInt64(&s.ServerErrors, 1)
	}
}

// generateRandomAction is mostly clicks, some purchases and the odd save.
func generateRandomAction(rng *rand.Rand, generators int) network.PlayerAction {
	switch n := rng.Intn(100); {
	case n < 85 || generators <= 0:
		return network.PlayerAction{Type: network.ActionClick}
	case n < 95:
		return network.PlayerAction{Type: network.ActionBuy, Generator: rng.Intn(generators)}
	case n < 98:
		return network.PlayerAction{Type: network.ActionBuy, Generator: rng.Intn(generators), Max: true}
	default:
		return network.PlayerAction{Type: network.ActionSave}
	}
}

func printResults(stats *Stats, config Config) {
	fmt.Println("\n=========================================")
	fmt.Println("STRESS TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.MessagesSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	states := atomic.LoadInt64(&stats.StateUpdates)
	serverErrs := atomic.LoadInt64(&stats.ServerErrors)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Messages Sent:     %d\n", sent)
	fmt.Printf("Messages Received: %d (%d state updates)\n", recv, states)
	fmt.Printf("Server Errors:     %d\n", serverErrs)
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Error Rate:        %.2f%%\n", float64(errs)/float64(sent+1)*100)

	throughput := float64(sent) / config.TestDuration.Seconds()
	fmt.Printf("Throughput:        %.2f msg/sec\n", throughput)

	stats.mu.Lock()
	minL, avgL, maxL := latencySummary(stats.Latencies)
	stats.mu.Unlock()
	if maxL > 0 {
		fmt.Printf("\nLatency:\n")
		fmt.Printf("  Min: %v\n", minL)
		fmt.Printf("  Avg: %v\n", avgL)
		fmt.Printf("  Max: %v\n", maxL)
	}

	fmt.Println("\n-----------------------------------------")
	switch {
	case errs == 0:
		fmt.Println("TEST PASSED: System handled the load")
	case float64(errs)/float64(sent+1) < 0.05:
		fmt.Println("TEST WARNING: Some errors detected")
	default:
		fmt.Println("TEST FAILED: High error rate")
	}
	fmt.Println("=========================================")

	results := map[string]interface{}{
		"messages_sent":      sent,
		"messages_received":  recv,
		"state_updates":      states,
		"server_errors":      serverErrs,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}

	jsonData, _ := json.MarshalIndent(results, "", "  ")
	if err := os.WriteFile(config.ResultsPath, jsonData, 0o644); err != nil {
		log.Error("Failed to write results", zap.String("path", config.ResultsPath), zap.Error(err))
		return
	}
	fmt.Printf("\nResults saved to %s\n", config.ResultsPath)
}

func latencySummary(ls []time.Duration) (min, avg, max time.Duration) {
	if len(ls) == 0 {
		return 0, 0, 0
	}
	min, max = ls[0], ls[0]
	var total time.Duration
	for _, l := range ls {
		total += l
		if l < min {
			min = l
		}
		if l > max {
			max = l
		}
	}
	return min, total / time.Duration(len(ls)), max
}
