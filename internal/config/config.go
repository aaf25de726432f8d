// Package config loads the static site and hierarchy definitions the engine
// is constructed from, and validates the tree shape once at startup.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"ems_simulator/internal/model"
)

// Definition is the full static input: one site config plus its space tree.
type Definition struct {
	Site   model.SiteConfig          `json:"site"`
	Spaces []model.HierarchicalSpace `json:"spaces"`
}

// Load reads and validates a definition from a JSON file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading definition: %w", err)
	}
	var def Definition
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("parsing definition: %w", err)
	}
	if errs := model.ValidateSiteConfig(def.Site); len(errs) > 0 {
		return nil, fmt.Errorf("invalid site config: %v", errs)
	}
	if err := ValidateTree(def.Spaces); err != nil {
		return nil, err
	}
	return &def, nil
}

// ValidateTree checks that parent and child references resolve and point back
// at each other in both directions, and that the tree is acyclic. A node whose
// parent does not list it among its children would silently fall out of
// aggregation, so the linkage must be symmetric.
func ValidateTree(spaces []model.HierarchicalSpace) error {
	byID := make(map[string]*model.HierarchicalSpace, len(spaces))
	for i := range spaces {
		node := &spaces[i]
		if node.ID == "" {
			return fmt.Errorf("space %d has an empty id", i)
		}
		if byID[node.ID] != nil {
			return fmt.Errorf("duplicate space id %q", node.ID)
		}
		byID[node.ID] = node
	}

	for i := range spaces {
		node := &spaces[i]
		for _, childID := range node.ChildIDs {
			child := byID[childID]
			if child == nil {
				return fmt.Errorf("space %q references missing child %q", node.ID, childID)
			}
			if child.ParentID != node.ID {
				return fmt.Errorf("space %q lists child %q whose parent is %q", node.ID, childID, child.ParentID)
			}
		}
		if node.ParentID != "" {
			parent := byID[node.ParentID]
			if parent == nil {
				return fmt.Errorf("space %q references missing parent %q", node.ID, node.ParentID)
			}
			if !containsID(parent.ChildIDs, node.ID) {
				return fmt.Errorf("space %q has parent %q which does not list it as a child", node.ID, node.ParentID)
			}
		}
	}

	// Walking up from every node must terminate at a root.
	for i := range spaces {
		seen := map[string]bool{}
		for cur := &spaces[i]; cur.ParentID != ""; cur = byID[cur.ParentID] {
			if seen[cur.ID] {
				return fmt.Errorf("cycle detected at space %q", cur.ID)
			}
			seen[cur.ID] = true
		}
	}

	return nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func f(v float64) *float64 { return &v }

// Default returns a built-in single-site campus definition used when no
// definition file is supplied: one site, two buildings, floors and leaf
// zones with mixed solar/battery equipment.
func Default() *Definition {
	return &Definition{
		Site: model.SiteConfig{
			ID:   "site-munich",
			Name: "Munich Campus",
			Location: model.Location{
				Latitude:  48.137,
				Longitude: 11.575,
				AltitudeM: 520,
			},
			Solar: model.SolarConfig{
				CapacityKW:        250,
				PanelTiltDeg:      30,
				PanelAzimuthDeg:   180,
				PanelEfficiency:   0.21,
				TempCoefficient:   -0.004,
				SystemDegradation: 0.03,
			},
			Storage: model.StorageConfig{
				CapacityKWh:         500,
				MaxPowerKW:          150,
				MinSOCPercent:       10,
				MaxSOCPercent:       95,
				InitialSOCPercent:   60,
				RoundTripEfficiency: 0.92,
				RampRateKWPerSec:    25,
				Strategy:            model.BatteryStrategy{Kind: model.StrategySelfConsumption},
			},
			Load: model.LoadConfig{
				BaseLoadKW:       120,
				SetpointC:        22,
				ThermalMassCoeff: 0.9,
				CyclicalUnits: []model.CyclicalUnit{
					{PowerKW: 8, CycleMinutes: 20},
					{PowerKW: 5, CycleMinutes: 35},
				},
				LightingOccupancyFactor: 0.8,
			},
			Climate: model.ClimateConfig{
				AvgTempC:           10,
				SeasonalAmplitudeC: 11,
				DiurnalAmplitudeC:  6,
				BaseCloudCover:     0.45,
				BaseWindMS:         3.5,
			},
			Tariff: model.TariffConfig{
				PeakRate:      0.38,
				NormalRate:    0.30,
				OffPeakRate:   0.22,
				PeakStartHour: 17,
				PeakEndHour:   21,
			},
			BusinessHours: model.BusinessHours{StartHour: 8, EndHour: 18},
		},
		Spaces: []model.HierarchicalSpace{
			{
				ID: "site-munich", Name: "Munich Campus", Type: model.SpaceSite,
				ChildIDs: []string{"bldg-a", "bldg-b"},
				Status:   model.StatusOnline,
			},
			{
				ID: "bldg-a", Name: "Building A", Type: model.SpaceBuilding,
				ParentID: "site-munich", ChildIDs: []string{"a-f1", "a-f2"},
				Status: model.StatusOnline,
			},
			{
				ID: "a-f1", Name: "A / Ground Floor", Type: model.SpaceFloor,
				ParentID: "bldg-a", ChildIDs: []string{"a-f1-lobby", "a-f1-lab"},
				Status: model.StatusOnline,
			},
			{
				ID: "a-f1-lobby", Name: "Lobby", Type: model.SpaceZone, ParentID: "a-f1",
				Equipment: model.Equipment{
					LoadCapacityKW: f(25),
					AreaM2:         f(300),
				},
				Status: model.StatusOnline,
			},
			{
				ID: "a-f1-lab", Name: "Test Lab", Type: model.SpaceZone, ParentID: "a-f1",
				Equipment: model.Equipment{
					LoadCapacityKW:      f(60),
					EquipmentCapacityKW: f(40),
					AreaM2:              f(450),
				},
				Status: model.StatusOnline,
			},
			{
				ID: "a-f2", Name: "A / Office Floor", Type: model.SpaceFloor,
				ParentID: "bldg-a", ChildIDs: []string{"a-f2-office"},
				Status: model.StatusOnline,
			},
			{
				ID: "a-f2-office", Name: "Open Office", Type: model.SpaceZone, ParentID: "a-f2",
				Equipment: model.Equipment{
					LoadCapacityKW:     f(45),
					LightingCapacityKW: f(12),
					AreaM2:             f(800),
				},
				Status: model.StatusOnline,
			},
			{
				ID: "bldg-b", Name: "Building B", Type: model.SpaceBuilding,
				ParentID: "site-munich", ChildIDs: []string{"b-roof", "b-hall"},
				Status: model.StatusOnline,
			},
			{
				ID: "b-roof", Name: "B / Rooftop Plant", Type: model.SpaceZone, ParentID: "bldg-b",
				Equipment: model.Equipment{
					SolarCapacityKW:    f(200),
					BatteryCapacityKWh: f(400),
					BatteryPowerKW:     f(120),
					LoadCapacityKW:     f(10),
				},
				Status: model.StatusOnline,
			},
			{
				ID: "b-hall", Name: "B / Production Hall", Type: model.SpaceZone, ParentID: "bldg-b",
				Equipment: model.Equipment{
					SolarCapacityKW:    f(50),
					BatteryCapacityKWh: f(100),
					LoadCapacityKW:     f(90),
					HVACCapacityKW:     f(35),
					AreaM2:             f(1500),
				},
				Status: model.StatusOnline,
			},
		},
	}
}
