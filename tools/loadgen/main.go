// Command loadgen floods an asset tracking backend with inventory count
// submissions to size the reconciliation pipeline under load.
//
// The target assets and form template must already exist; pass their ids
// explicitly so runs are repeatable:
//
//	loadgen -url http://localhost:8080 -tenant <uuid> -form <uuid> \
//	        -assets <uuid>,<uuid> -workers 8 -duration 30s -anomaly-rate 0.05
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/assettrack/tools/loadgen/internal/driver"
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:8080", "Base URL of the backend")
		token       = flag.String("token", "", "Bearer token (optional when auth is disabled)")
		tenant      = flag.String("tenant", "", "Tenant ID header value")
		form        = flag.String("form", "", "Form template ID to submit against")
		assets      = flag.String("assets", "", "Comma separated asset IDs to spread load across")
		workers     = flag.Int("workers", 4, "Concurrent submitters")
		duration    = flag.Duration("duration", 30*time.Second, "How long to run")
		anomalyRate = flag.Float64("anomaly-rate", 0.05, "Fraction of submissions carrying a deliberate tenfold count")
	)
	flag.Parse()

	assetIDs, err := parseAssetIDs(*assets)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	formID, err := uuid.Parse(*form)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -form: %v\n", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result, err := driver.Run(ctx, driver.Config{
		BaseURL:     strings.TrimRight(*baseURL, "/"),
		Token:       *token,
		TenantID:    *tenant,
		AssetIDs:    assetIDs,
		FormID:      formID,
		Workers:     *workers,
		Duration:    *duration,
		AnomalyRate: *anomalyRate,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	fmt.Print(result.Summary())
}

func parseAssetIDs(raw string) ([]uuid.UUID, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, fmt.Errorf("-assets is required (comma separated uuids)")
	}
	parts := strings.Split(raw, ",")
	ids := make([]uuid.UUID, 0, len(parts))
	for _, p := range parts {
		id, err := uuid.Parse(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid asset id %q: %w", p, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
