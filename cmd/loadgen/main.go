// Package main - loadgen
// Load generator for stress testing the station server.
// Simulates concurrent players spamming build orders over WebSocket.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Config for the load generator
type Config struct {
	ServerURL      string
	NumClients     int
	ActionInterval time.Duration
	TestDuration   time.Duration
	RunID          string
}

// Stats tracks performance metrics
type Stats struct {
	OrdersSent       int64
	MessagesReceived int64
	TicksReceived    int64
	OrdersAccepted   int64
	OrdersRejected   int64
	Errors           int64
	Latencies        []time.Duration
	mu               sync.Mutex
}

// Modules the generator tries to build. Most orders are expected to be
// rejected (insufficient materials, build in progress); that is the point,
// the validator path is the hot path under load.
var moduleIDs = []string{
	"solar_array_1",
	"habitat_pod_1",
	"storage_bay_1",
	"docking_clamp_1",
	"scanner_array_1",
	"basic_refinery_1",
	"workshop_1",
	"shield_emitter_1",
	"point_defense_1",
}

func main() {
	serverURL := flag.String("url", "http://localhost:8080", "Server base URL")
	numClients := flag.Int("clients", 50, "Number of concurrent clients")
	interval := flag.Duration("interval", 500*time.Millisecond, "Order interval per client")
	duration := flag.Duration("duration", 60*time.Second, "Test duration")
	runID := flag.String("run", fmt.Sprintf("%d", time.Now().Unix()%100000), "Run ID used in generated usernames")
	flag.Parse()

	config := Config{
		ServerURL:      *serverURL,
		NumClients:     *numClients,
		ActionInterval: *interval,
		TestDuration:   *duration,
		RunID:          *runID,
	}

	fmt.Println("=========================================")
	fmt.Println("🔥 STATION LOADGEN - Stress Test Tool")
	fmt.Println("=========================================")
	fmt.Printf("Server: %s\n", config.ServerURL)
	fmt.Printf("Clients: %d\n", config.NumClients)
	fmt.Printf("Interval: %v\n", config.ActionInterval)
	fmt.Printf("Duration: %v\n", config.TestDuration)
	fmt.Println("=========================================")

	ctx, cancel := context.WithTimeout(context.Background(), config.TestDuration)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)
	go func() {
		<-sigChan
		fmt.Println("\n⚠️ Interrupt received, stopping...")
		cancel()
	}()

	stats := runStressTest(ctx, config)
	printResults(stats, config)
}

func runStressTest(ctx context.Context, config Config) *Stats {
	stats := &Stats{
		Latencies: make([]time.Duration, 0, 10000),
	}

	var wg sync.WaitGroup

	fmt.Println("\n🚀 Starting clients...")

	for i := 0; i < config.NumClients; i++ {
		wg.Add(1)
		go func(clientID int) {
			defer wg.Done()
			runClient(ctx, clientID, config, stats)
		}(i)

		// Stagger client starts to avoid thundering herd
		time.Sleep(10 * time.Millisecond)
	}

	fmt.Printf("✅ All %d clients started\n\n", config.NumClients)

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sent := atomic.LoadInt64(&stats.OrdersSent)
				recv := atomic.LoadInt64(&stats.MessagesReceived)
				errs := atomic.LoadInt64(&stats.Errors)
				fmt.Printf("📊 Progress: Orders=%d Recv=%d Errors=%d\n", sent, recv, errs)
			}
		}
	}()

	wg.Wait()
	return stats
}

// login registers (or re-logs) a generated account, returns the station ID
// and a cookie jar holding the session.
func login(ctx context.Context, clientID int, config Config) (int64, *cookiejar.Jar, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return 0, nil, err
	}
	httpClient := &http.Client{Jar: jar, Timeout: 10 * time.Second}

	creds, _ := json.Marshal(map[string]string{
		"username": fmt.Sprintf("loadgen_%s_%03d", config.RunID, clientID),
		"password": "loadgen-password",
	})

	for _, endpoint := range []string{"/api/auth/register", "/api/auth/login"} {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.ServerURL+endpoint, bytes.NewReader(creds))
		if err != nil {
			return 0, nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := httpClient.Do(req)
		if err != nil {
			return 0, nil, err
		}
		if resp.StatusCode == http.StatusOK {
			var body struct {
				StationID int64 `json:"station_id"`
			}
			err := json.NewDecoder(resp.Body).Decode(&body)
			resp.Body.Close()
			return body.StationID, jar, err
		}
		resp.Body.Close()
		// Register fails with 409 on reruns; fall through to login.
	}
	return 0, nil, fmt.Errorf("client %d: could not authenticate", clientID)
}

func runClient(ctx context.Context, clientID int, config Config, stats *Stats) {
	stationID, jar, err := login(ctx, clientID, config)
	if err != nil {
		log.Printf("Client %d: login failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}

	wsURL, err := url.Parse(config.ServerURL)
	if err != nil {
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	switch wsURL.Scheme {
	case "https":
		wsURL.Scheme = "wss"
	default:
		wsURL.Scheme = "ws"
	}
	wsURL.Path = "/ws"

	dialer := websocket.Dialer{Jar: jar}
	conn, _, err := dialer.DialContext(ctx, wsURL.String(), nil)
	if err != nil {
		log.Printf("Client %d: connection failed: %v", clientID, err)
		atomic.AddInt64(&stats.Errors, 1)
		return
	}
	defer conn.Close()

	// Receiver goroutine: counts ticks and order outcomes.
	go func() {
		for {
			_, raw, err := conn.ReadMessage()
			if err != nil {
				return
			}
			atomic.AddInt64(&stats.MessagesReceived, 1)

			var msg struct {
				Type string `json:"type"`
			}
			if err := json.Unmarshal(raw, &msg); err != nil {
				continue
			}
			switch msg.Type {
			case "tick":
				atomic.AddInt64(&stats.TicksReceived, 1)
			case "order_ack":
				atomic.AddInt64(&stats.OrdersAccepted, 1)
			case "error":
				atomic.AddInt64(&stats.OrdersRejected, 1)
			}
		}
	}()

	ticker := time.NewTicker(config.ActionInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			order := map[string]interface{}{
				"type": "build_module",
				"payload": map[string]interface{}{
					"station_id": stationID,
					"module_id":  moduleIDs[rand.Intn(len(moduleIDs))],
				},
			}
			start := time.Now()

			if err := conn.WriteJSON(order); err != nil {
				atomic.AddInt64(&stats.Errors, 1)
				return
			}

			latency := time.Since(start)
			atomic.AddInt64(&stats.OrdersSent, 1)

			stats.mu.Lock()
			stats.Latencies = append(stats.Latencies, latency)
			stats.mu.Unlock()
		}
	}
}

func printResults(stats *Stats, config Config) {
	fmt.Println("\n=========================================")
	fmt.Println("📊 STRESS TEST RESULTS")
	fmt.Println("=========================================")

	sent := atomic.LoadInt64(&stats.OrdersSent)
	recv := atomic.LoadInt64(&stats.MessagesReceived)
	ticks := atomic.LoadInt64(&stats.TicksReceived)
	accepted := atomic.LoadInt64(&stats.OrdersAccepted)
	rejected := atomic.LoadInt64(&stats.OrdersRejected)
	errs := atomic.LoadInt64(&stats.Errors)

	fmt.Printf("Orders Sent:       %d\n", sent)
	fmt.Printf("Orders Accepted:   %d\n", accepted)
	fmt.Printf("Orders Rejected:   %d\n", rejected)
	fmt.Printf("Ticks Received:    %d\n", ticks)
	fmt.Printf("Messages Received: %d\n", recv)
	fmt.Printf("Errors:            %d\n", errs)
	fmt.Printf("Error Rate:        %.2f%%\n", float64(errs)/float64(sent+1)*100)

	throughput := float64(sent) / config.TestDuration.Seconds()
	fmt.Printf("Throughput:        %.2f orders/sec\n", throughput)

	if len(stats.Latencies) > 0 {
		var total time.Duration
		var min, max time.Duration = stats.Latencies[0], stats.Latencies[0]

		for _, l := range stats.Latencies {
			total += l
			if l < min {
				min = l
			}
			if l > max {
				max = l
			}
		}

		avg := total / time.Duration(len(stats.Latencies))

		fmt.Printf("\nWrite latency:\n")
		fmt.Printf("  Min: %v\n", min)
		fmt.Printf("  Avg: %v\n", avg)
		fmt.Printf("  Max: %v\n", max)
	}

	fmt.Println("\n-----------------------------------------")
	if errs == 0 && ticks > 0 {
		fmt.Println("✅ TEST PASSED: System handled the load")
	} else if float64(errs)/float64(sent+1) < 0.05 {
		fmt.Println("⚠️ TEST WARNING: Some errors detected")
	} else {
		fmt.Println("❌ TEST FAILED: High error rate")
	}
	fmt.Println("=========================================")

	results := map[string]interface{}{
		"orders_sent":        sent,
		"orders_accepted":    accepted,
		"orders_rejected":    rejected,
		"ticks_received":     ticks,
		"messages_received":  recv,
		"errors":             errs,
		"throughput_per_sec": throughput,
		"config": map[string]interface{}{
			"clients":  config.NumClients,
			"interval": config.ActionInterval.String(),
			"duration": config.TestDuration.String(),
		},
	}

	jsonData, _ := json.MarshalIndent(results, "", "  ")
	os.WriteFile("stress_test_results.json", jsonData, 0644)
	fmt.Println("\n📁 Results saved to stress_test_results.json")
}
