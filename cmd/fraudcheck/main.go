package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"os"
	"time"

	"github.com/horizontego/job-ingest/internal/common/store"
	"github.com/horizontego/job-ingest/internal/config"
	"github.com/horizontego/job-ingest/internal/fraud"
)

func main() {
	id := flag.Int64("id", 0, "stored job id to check")
	country := flag.String("country", "", "without -id: check recent jobs of this country code (e.g. NOR)")
	source := flag.String("source", "", "without -id: check recent jobs of this source name")
	limit := flag.Int("limit", store.DefaultSearchLimit, "without -id: maximum jobs to check")
	rulesPath := flag.String("rules", "", "YAML rules file (default: FRAUD_RULES_PATH or built-in rules)")
	flag.Parse()

	log.SetFlags(log.LstdFlags | log.Lshortfile)

	cfg := config.Load()
	if *rulesPath == "" {
		*rulesPath = cfg.Fraud.RulesPath
	}

	var engine *fraud.Engine
	if *rulesPath != "" {
		rules, err := fraud.LoadRules(*rulesPath)
		if err != nil {
			log.Fatalf("Load fraud rules failed: %v", err)
		}
		engine = fraud.NewEngine(rules)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	jobStore, err := store.NewPostgresStore(ctx, cfg.Postgres.ConnectionString, cfg.Postgres.TableName)
	if err != nil {
		log.Fatalf("PostgreSQL connection failed: %v", err)
	}
	defer jobStore.Close()

	svc := fraud.NewService(jobStore, engine)

	var out any
	if *id > 0 {
		report, err := svc.Check(ctx, *id)
		if errors.Is(err, store.ErrNotFound) {
			log.Fatalf("Job %d not found", *id)
		}
		if err != nil {
			log.Fatalf("Fraud check failed: %v", err)
		}
		out = report
	} else {
		filter := store.Filter{SourceName: *source, Limit: *limit}
		if *country != "" {
			if filter.CountryID, err = jobStore.ResolveCountry(ctx, *country); err != nil {
				log.Fatalf("Unknown country %s: %v", *country, err)
			}
		}
		reports, err := svc.CheckMatching(ctx, filter)
		if err != nil {
			log.Fatalf("Fraud check failed: %v", err)
		}
		out = reports
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		log.Fatalf("Encode report failed: %v", err)
	}
}
