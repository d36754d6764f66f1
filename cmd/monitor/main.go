package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nightwatch/monitor/pkg/agent"
	"github.com/nightwatch/monitor/pkg/config"
	"github.com/nightwatch/monitor/pkg/exporter"
	"github.com/nightwatch/monitor/pkg/killswitch"
	"github.com/nightwatch/monitor/pkg/monitorerr"
	"github.com/nightwatch/monitor/pkg/probe"
	"github.com/nightwatch/monitor/pkg/scheduler"
	"github.com/nightwatch/monitor/pkg/store"
)

func main() {
	log.Println("🔍 Starting availability monitor...")

	configPath := flag.String("config_path", "services.json", "path to the JSON service descriptor configuration")
	opsConfigPath := flag.String("ops_config_path", "", "optional path to a YAML daemon-defaults configuration")
	exportBatchSize := flag.Int("export_batch_size", 0, "outcomes per export batch (0 = use ops config default)")
	exportInterval := flag.Int("export_interval", 0, "seconds between export attempts (0 = use ops config default)")
	notifySystemd := flag.Bool("notify_systemd", false, "send READY=1 to the systemd notify socket once the agent starts")
	flag.Parse()

	ops, err := config.LoadOpsConfig(*opsConfigPath)
	if err != nil {
		log.Fatalf("❌ failed to load ops config: %v", err)
	}

	batchSize := ops.ExportBatchSize
	if *exportBatchSize != 0 {
		batchSize = *exportBatchSize
	}
	if err := config.ValidateExportBatchSize(batchSize); err != nil {
		log.Fatalf("❌ invalid export batch size %d: %v", batchSize, err)
	}

	intervalSeconds := ops.ExportIntervalS
	if *exportInterval != 0 {
		intervalSeconds = *exportInterval
	}
	if err := config.ValidateExportInterval(intervalSeconds); err != nil {
		log.Fatalf("❌ invalid export interval %d: %v", intervalSeconds, err)
	}

	dsn := os.Getenv("DATABASE_URI")
	if dsn == "" {
		log.Fatalf("❌ %v", monitorerr.ErrMissingDSN)
	}

	cfg, err := config.LoadServices(*configPath)
	if err != nil {
		log.Fatalf("❌ failed to load service configuration: %v", err)
	}
	if len(cfg.Services) == 0 {
		log.Fatalf("❌ %v", monitorerr.ErrNoServices)
	}

	log.Printf("📋 loaded %d service descriptors", len(cfg.Services))
	for _, svc := range cfg.Sorted() {
		log.Printf("    - %s %s every %ds", svc.Method, svc.URL, svc.IntervalSec)
	}

	total, avg := config.EstimateWorkload(cfg.Services)
	log.Printf("📈 estimated workload: %.3f req/s total, %.3f req/s average", total, avg)

	ks := killswitch.New()
	sched := scheduler.New(cfg.Services)
	results := agent.NewResultChannel(len(cfg.Services))

	probeClient := probe.NewClient()
	ag := agent.New(sched, probeClient, results, ks)

	sqlStore := store.New(dsn)
	exp := exporter.New(sqlStore, results, ks, batchSize, time.Duration(intervalSeconds)*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	agentDone := make(chan struct{})
	exporterDone := make(chan struct{})

	go func() {
		ag.Run(ctx)
		close(agentDone)
	}()
	go func() {
		exp.Run(ctx)
		close(exporterDone)
	}()

	if *notifySystemd {
		if err := config.NotifySystemd(true); err != nil {
			log.Printf("⚠️  systemd notification failed: %v", err)
		}
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	fatal := false
	select {
	case <-quit:
		log.Println("🛑 shutdown signal received")
		ks.Engage()
	case <-agentDone:
		log.Println("🛑 agent loop exited unexpectedly")
		ks.Engage()
		fatal = true
	case <-exporterDone:
		log.Println("🛑 exporter loop exited unexpectedly")
		ks.Engage()
		fatal = true
	}

	<-agentDone
	<-exporterDone

	if fatal {
		log.Println("❌ exiting after unrecoverable export or scheduling failure")
		os.Exit(1)
	}
	log.Println("✅ shutdown complete")
}
