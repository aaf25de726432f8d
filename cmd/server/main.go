package main

import (
	"flag"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ems_simulator/internal/config"
	"ems_simulator/internal/export"
	"ems_simulator/internal/generator"
	"ems_simulator/internal/hierarchy"
	"ems_simulator/internal/model"
	"ems_simulator/internal/simulator"
	"ems_simulator/internal/timeengine"
	"ems_simulator/internal/ws"
	"ems_simulator/pkg/metrics"
)

func main() {
	addr := flag.String("addr", ":8080", "listen address")
	definitionPath := flag.String("definition", "", "path to a JSON site definition (built-in campus when empty)")
	tick := flag.Duration("tick", timeengine.DefaultTickInterval, "wall-clock tick interval")
	mode := flag.String("mode", "live", "scenario mode: live, historical or simulation")
	speed := flag.Float64("speed", 1, "speed multiplier for non-live modes")
	start := flag.String("start", "", "scenario start time (RFC3339), non-live modes only")
	kafkaBrokers := flag.String("kafka-brokers", "", "comma-separated Kafka brokers for metric export (disabled when empty)")
	kafkaTopic := flag.String("kafka-topic", "ems.telemetry", "Kafka topic for metric export")
	flag.Parse()

	// Load the site definition
	def := config.Default()
	if *definitionPath != "" {
		loaded, err := config.Load(*definitionPath)
		if err != nil {
			log.Fatalf("Failed to load definition: %v", err)
		}
		def = loaded
	}
	log.Printf("Definition loaded: site %s with %d spaces", def.Site.ID, len(def.Spaces))

	// Master scenario clock
	scenario := model.ScenarioConfig{
		Mode:            model.ScenarioMode(*mode),
		SpeedMultiplier: *speed,
	}
	if *start != "" {
		t, err := time.Parse(time.RFC3339, *start)
		if err != nil {
			log.Fatalf("Invalid -start: %v", err)
		}
		scenario.StartTime = t
	}
	engine := timeengine.New(scenario, *tick)

	// Hierarchy manager over the per-leaf simulators
	sims := simulator.BuildSimulators(def.Site, def.Spaces)
	mgr := hierarchy.NewManager(def.Spaces, sims, hierarchy.NewAggregator(nil), engine, *tick/2)
	log.Printf("Built %d leaf simulators", len(sims))

	collector := metrics.NewCollector("ems")

	// WebSocket hub and the generator driving it
	hub := ws.NewHub()
	hub.OnCountChange = func(n int) { collector.WSClients.Set(float64(n)) }
	bridge := ws.NewBridge(hub)

	var publisher *export.Publisher
	if *kafkaBrokers != "" {
		publisher = export.NewPublisher(strings.Split(*kafkaBrokers, ","), *kafkaTopic)
		publisher.OnPublish = func() { collector.ExportPublishesTotal.Inc() }
		publisher.OnError = func() { collector.ExportErrorsTotal.Inc() }
		log.Printf("Exporting telemetry to %s (topic %s)", *kafkaBrokers, *kafkaTopic)
	}

	gen := generator.New(mgr, engine, def.Site, generator.Options{
		Callback:  bridge,
		Publisher: publisher,
		Metrics:   collector,
	})
	gen.Start()
	defer gen.Close()

	engine.Start()
	defer engine.Stop()

	// Routes
	api := newAPI(mgr, engine, gen)
	r := mux.NewRouter()
	r.HandleFunc("/health", api.health).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.Handle("/ws", ws.NewHandler(hub, engine))
	r.HandleFunc("/api/spaces", api.listSpaces).Methods(http.MethodGet)
	r.HandleFunc("/api/spaces/{id}", api.getSpace).Methods(http.MethodGet)
	r.HandleFunc("/api/spaces/{id}/children", api.getChildren).Methods(http.MethodGet)
	r.HandleFunc("/api/summary", api.getSummary).Methods(http.MethodGet)
	r.HandleFunc("/api/scenario", api.getScenario).Methods(http.MethodGet)
	r.HandleFunc("/api/kpis", api.getKPIs).Methods(http.MethodGet)
	r.HandleFunc("/api/alerts", api.getAlerts).Methods(http.MethodGet)
	r.HandleFunc("/api/series/{metric}", api.getSeries).Methods(http.MethodGet)

	log.Printf("Starting server on %s", *addr)
	if err := http.ListenAndServe(*addr, r); err != nil {
		log.Fatal(err)
	}
}
