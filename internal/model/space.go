package model

import "time"

// SpaceType identifies a level in the site hierarchy.
type SpaceType string

const (
	SpaceSite     SpaceType = "site"
	SpaceBuilding SpaceType = "building"
	SpaceFloor    SpaceType = "floor"
	SpaceZone     SpaceType = "zone"
)

// SpaceStatus reflects the operational state shown on the dashboard.
type SpaceStatus string

const (
	StatusOnline  SpaceStatus = "online"
	StatusWarning SpaceStatus = "warning"
	StatusOffline SpaceStatus = "offline"
)

// Equipment describes the capacities installed at a space. A nil field means
// the capability does not exist at this node, which is different from a
// present-but-zero value.
type Equipment struct {
	SolarCapacityKW     *float64 `json:"solar_capacity_kw,omitempty"`
	BatteryCapacityKWh  *float64 `json:"battery_capacity_kwh,omitempty"`
	BatteryPowerKW      *float64 `json:"battery_power_kw,omitempty"`
	LoadCapacityKW      *float64 `json:"load_capacity_kw,omitempty"`
	HVACCapacityKW      *float64 `json:"hvac_capacity_kw,omitempty"`
	LightingCapacityKW  *float64 `json:"lighting_capacity_kw,omitempty"`
	EquipmentCapacityKW *float64 `json:"equipment_capacity_kw,omitempty"`
	AreaM2              *float64 `json:"area_m2,omitempty"`
}

// Breakdown splits consumption into its dashboard categories (kW).
type Breakdown struct {
	HVACKW      float64 `json:"hvac_kw"`
	LightingKW  float64 `json:"lighting_kw"`
	EquipmentKW float64 `json:"equipment_kw"`
	OtherKW     float64 `json:"other_kw"`
}

// SpaceMetrics is one telemetry sample for a space. Sign conventions: grid
// power positive = import, negative = export; battery power positive =
// charging, negative = discharging.
type SpaceMetrics struct {
	SolarPowerKW       float64    `json:"solar_power_kw"`
	ConsumptionPowerKW float64    `json:"consumption_power_kw"`
	BatteryPowerKW     float64    `json:"battery_power_kw"`
	GridPowerKW        float64    `json:"grid_power_kw"`
	BatterySOC         *float64   `json:"battery_soc,omitempty"` // 0..100
	Efficiency         *float64   `json:"efficiency,omitempty"`  // 0..1
	Breakdown          *Breakdown `json:"breakdown,omitempty"`
	Timestamp          time.Time  `json:"timestamp"`
}

// HierarchicalSpace is one node of the site tree. Parent/child links are by
// id, never by pointer. Leaf nodes (no children) own a live simulator;
// internal nodes only ever hold aggregated metrics.
type HierarchicalSpace struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Type      SpaceType    `json:"type"`
	ParentID  string       `json:"parent_id,omitempty"`
	ChildIDs  []string     `json:"child_ids,omitempty"`
	Equipment Equipment    `json:"equipment"`
	Metrics   SpaceMetrics `json:"metrics"`
	Status    SpaceStatus  `json:"status"`
}

// IsLeaf reports whether the node has no children.
func (s *HierarchicalSpace) IsLeaf() bool {
	return len(s.ChildIDs) == 0
}
