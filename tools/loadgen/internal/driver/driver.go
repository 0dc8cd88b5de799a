// Package driver generates inventory submission traffic against a running
// backend and aggregates latency and outcome statistics.
package driver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config controls one load run.
type Config struct {
	BaseURL  string
	Token    string
	TenantID string

	// Assets and forms to spread submissions across. Both must be
	// provisioned in the target environment beforehand.
	AssetIDs []uuid.UUID
	FormID   uuid.UUID

	Workers  int
	Duration time.Duration

	// AnomalyRate is the fraction of submissions that carry a deliberate
	// digit error, exercising the detection path. 0.05 means one in twenty.
	AnomalyRate float64

	Client *http.Client
}

type submitBody struct {
	AssetID   string            `json:"asset_id"`
	FormID    string            `json:"form_id"`
	EventType string            `json:"event_type"`
	Values    map[string]string `json:"values"`
	Notes     string            `json:"notes"`
}

// Result aggregates one run.
type Result struct {
	Total     int
	ByStatus  map[int]int
	Flagged   int
	Errors    int
	latencies []time.Duration
	mu        sync.Mutex
}

func (r *Result) record(status int, flagged bool, latency time.Duration, failed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Total++
	if failed {
		r.Errors++
		return
	}
	r.ByStatus[status]++
	if flagged {
		r.Flagged++
	}
	r.latencies = append(r.latencies, latency)
}

// Percentile returns the q-th latency percentile of successful requests.
func (r *Result) Percentile(q float64) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.latencies) == 0 {
		return 0
	}
	sorted := make([]time.Duration, len(r.latencies))
	copy(sorted, r.latencies)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := int(float64(len(sorted)-1) * q)
	return sorted[idx]
}

// Summary renders the run for the console.
func (r *Result) Summary() string {
	r.mu.Lock()
	total, errors, flagged := r.Total, r.Errors, r.Flagged
	statuses := make(map[int]int, len(r.ByStatus))
	for k, v := range r.ByStatus {
		statuses[k] = v
	}
	r.mu.Unlock()

	out := fmt.Sprintf("requests=%d errors=%d flagged=%d\n", total, errors, flagged)
	for status, count := range statuses {
		out += fmt.Sprintf("  HTTP %d: %d\n", status, count)
	}
	out += fmt.Sprintf("  p50=%s p95=%s p99=%s\n",
		r.Percentile(0.50), r.Percentile(0.95), r.Percentile(0.99))
	return out
}

// Run drives submissions until the context is done or the configured
// duration elapses, whichever is first.
func Run(ctx context.Context, cfg Config) (*Result, error) {
	if len(cfg.AssetIDs) == 0 {
		return nil, fmt.Errorf("no asset ids configured")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Duration)
		defer cancel()
	}

	result := &Result{ByStatus: make(map[int]int)}
	var wg sync.WaitGroup
	for w := 0; w < cfg.Workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for ctx.Err() == nil {
				submitOnce(ctx, cfg, rng, result)
			}
		}(time.Now().UnixNano() + int64(w))
	}
	wg.Wait()
	return result, nil
}

func submitOnce(ctx context.Context, cfg Config, rng *rand.Rand, result *Result) {
	asset := cfg.AssetIDs[rng.Intn(len(cfg.AssetIDs))]
	body := submitBody{
		AssetID:   asset.String(),
		FormID:    cfg.FormID.String(),
		EventType: "periodic_check",
		Values:    map[string]string{"counted_quantity": strconv.Itoa(NextCount(rng, cfg.AnomalyRate))},
		Notes:     "generated load",
	}

	payload, err := json.Marshal(body)
	if err != nil {
		result.record(0, false, 0, true)
		return
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		cfg.BaseURL+"/api/v1/inventory/submissions", bytes.NewReader(payload))
	if err != nil {
		result.record(0, false, 0, true)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+cfg.Token)
	}
	if cfg.TenantID != "" {
		req.Header.Set("X-Tenant-ID", cfg.TenantID)
	}

	start := time.Now()
	resp, err := cfg.Client.Do(req)
	if err != nil {
		if ctx.Err() == nil {
			result.record(0, false, 0, true)
		}
		return
	}
	defer resp.Body.Close()

	var envelope struct {
		Data struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&envelope)
	result.record(resp.StatusCode, envelope.Data.Status == "flagged", time.Since(start), false)
}

// NextCount produces a plausible counted quantity, with the configured
// fraction of counts inflated tenfold to look like a typing error.
func NextCount(rng *rand.Rand, anomalyRate float64) int {
	count := 40 + rng.Intn(60)
	if anomalyRate > 0 && rng.Float64() < anomalyRate {
		return count * 10
	}
	return count
}
