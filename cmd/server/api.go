package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"ems_simulator/internal/generator"
	"ems_simulator/internal/hierarchy"
	"ems_simulator/internal/model"
	"ems_simulator/internal/timeengine"
	"ems_simulator/internal/timeseries"
)

// api exposes read-only dashboard queries over HTTP; all scenario control
// goes through the WebSocket handler.
type api struct {
	mgr    *hierarchy.Manager
	engine *timeengine.Engine
	gen    *generator.Generator
}

func newAPI(mgr *hierarchy.Manager, engine *timeengine.Engine, gen *generator.Generator) *api {
	return &api{mgr: mgr, engine: engine, gen: gen}
}

func (a *api) health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (a *api) listSpaces(w http.ResponseWriter, r *http.Request) {
	if tp := r.URL.Query().Get("type"); tp != "" {
		writeJSON(w, a.mgr.GetSpacesByType(model.SpaceType(tp)))
		return
	}
	writeJSON(w, a.mgr.GetAllSpaces())
}

func (a *api) getSpace(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	space, ok := a.mgr.GetSpace(id)
	if !ok {
		http.Error(w, "space not found", http.StatusNotFound)
		return
	}
	writeJSON(w, space)
}

func (a *api) getChildren(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, ok := a.mgr.GetSpace(id); !ok {
		http.Error(w, "space not found", http.StatusNotFound)
		return
	}
	children := a.mgr.GetChildren(id)
	if children == nil {
		children = []model.HierarchicalSpace{}
	}
	writeJSON(w, children)
}

func (a *api) getSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.mgr.GetSummary())
}

func (a *api) getScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.engine.GetStatus())
}

func (a *api) getKPIs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, a.gen.KPIs())
}

func (a *api) getAlerts(w http.ResponseWriter, r *http.Request) {
	alerts := a.gen.Alerts()
	if alerts == nil {
		alerts = []generator.Alert{}
	}
	writeJSON(w, alerts)
}

// getSeries serves range queries over one metric stream. Supported query
// parameters: start, end (RFC3339), max_points and agg.
func (a *api) getSeries(w http.ResponseWriter, r *http.Request) {
	metric := mux.Vars(r)["metric"]
	store := a.gen.Series(metric)
	if store == nil {
		http.Error(w, "unknown metric", http.StatusNotFound)
		return
	}

	var q timeseries.Query
	qs := r.URL.Query()
	if s := qs.Get("start"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, "invalid start", http.StatusBadRequest)
			return
		}
		q.Start = t
	}
	if s := qs.Get("end"); s != "" {
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			http.Error(w, "invalid end", http.StatusBadRequest)
			return
		}
		q.End = t
	}
	if s := qs.Get("max_points"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			http.Error(w, "invalid max_points", http.StatusBadRequest)
			return
		}
		q.MaxPoints = n
	}
	q.Aggregation = timeseries.Aggregation(qs.Get("agg"))

	writeJSON(w, store.QueryRange(q))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}
