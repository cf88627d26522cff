package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/aopmap/kemapper/internal/bootstrap"
	"github.com/aopmap/kemapper/internal/config"
	"github.com/aopmap/kemapper/internal/core/domain"
	"github.com/aopmap/kemapper/internal/observability/logging"
)

// One-shot suggestion run: score a single key event against the pathway or
// GO catalog and print the ranked result as JSON on stdout.
func main() {
	var (
		keID        = flag.String("ke", "", "key event identifier, e.g. https://identifiers.org/aop.events/55")
		title       = flag.String("title", "", "key event title")
		description = flag.String("description", "", "key event description")
		level       = flag.String("level", "", "biological level of organization (Molecular, Cellular, Tissue, Organ, Individual, Population)")
		domainName  = flag.String("domain", "pathway", "candidate domain: pathway or go")
		method      = flag.String("method", "all", "signal filter: all, text or gene")
	)
	flag.Parse()

	if *keID == "" || *title == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	logger := logging.NewTextLogger("kemapper-suggest", cfg.LogLevel)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.NewLocal(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("bootstrap error: %v", err)
	}
	defer app.Close()

	svc := app.PathwaySvc
	if *domainName == "go" {
		svc = app.GoSvc
	}

	ke := domain.KeyEvent{
		ID:          *keID,
		Title:       *title,
		Description: *description,
		Level:       domain.ParseBiologicalLevel(*level),
	}

	result := svc.Suggest(ctx, ke, domain.ParseMethodFilter(*method))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		log.Fatalf("encode result: %v", err)
	}
	if result.Error != "" {
		os.Exit(1)
	}
}
