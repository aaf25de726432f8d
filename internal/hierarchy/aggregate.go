// Package hierarchy rolls leaf telemetry up through the space tree and keeps
// every parent consistent with its children.
package hierarchy

import (
	"fmt"
	"math"

	"ems_simulator/internal/model"
)

// Method is a per-metric aggregation method.
type Method string

const (
	MethodSum             Method = "sum"
	MethodAverage         Method = "average"
	MethodMin             Method = "min"
	MethodMax             Method = "max"
	MethodWeightedAverage Method = "weighted_average"
)

// WeightBy selects the weighting quantity for weighted averages.
type WeightBy string

const (
	WeightByArea    WeightBy = "area"
	WeightByLoad    WeightBy = "capacity"
	WeightBySolar   WeightBy = "solar"
	WeightByBattery WeightBy = "battery"
)

// Rule binds one metric to its aggregation method.
type Rule struct {
	Metric   string
	Method   Method
	WeightBy WeightBy
}

// ValidationTolerance is the absolute drift allowed between a parent metric
// and the aggregate of its children.
const ValidationTolerance = 0.01

// metric accessor tables; adding a metric means adding it to both.
var metricGetters = map[string]func(m *model.SpaceMetrics) float64{
	"solar_power":       func(m *model.SpaceMetrics) float64 { return m.SolarPowerKW },
	"consumption_power": func(m *model.SpaceMetrics) float64 { return m.ConsumptionPowerKW },
	"battery_power":     func(m *model.SpaceMetrics) float64 { return m.BatteryPowerKW },
	"grid_power":        func(m *model.SpaceMetrics) float64 { return m.GridPowerKW },
}

var metricSetters = map[string]func(m *model.SpaceMetrics, v float64){
	"solar_power":       func(m *model.SpaceMetrics, v float64) { m.SolarPowerKW = v },
	"consumption_power": func(m *model.SpaceMetrics, v float64) { m.ConsumptionPowerKW = v },
	"battery_power":     func(m *model.SpaceMetrics, v float64) { m.BatteryPowerKW = v },
	"grid_power":        func(m *model.SpaceMetrics, v float64) { m.GridPowerKW = v },
}

// DefaultRules aggregates every power metric by sum.
func DefaultRules() []Rule {
	return []Rule{
		{Metric: "solar_power", Method: MethodSum},
		{Metric: "consumption_power", Method: MethodSum},
		{Metric: "battery_power", Method: MethodSum},
		{Metric: "grid_power", Method: MethodSum},
	}
}

// Aggregator applies a configured rule set to roll children's metrics into
// their parent.
type Aggregator struct {
	rules []Rule
}

// NewAggregator builds an aggregator; nil rules means DefaultRules.
func NewAggregator(rules []Rule) *Aggregator {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Aggregator{rules: rules}
}

// AggregateMetrics combines the children's metrics per the configured rules.
// Battery SOC is always a weighted average by battery capacity, skipping
// children without a battery. Breakdowns are summed when present. An empty
// child list yields zero metrics.
func (a *Aggregator) AggregateMetrics(children []*model.HierarchicalSpace) model.SpaceMetrics {
	var out model.SpaceMetrics
	if len(children) == 0 {
		return out
	}
	out.Timestamp = children[0].Metrics.Timestamp

	for _, rule := range a.rules {
		get, ok := metricGetters[rule.Metric]
		if !ok {
			continue
		}
		set := metricSetters[rule.Metric]
		set(&out, a.applyRule(rule, children, get))
	}

	// SOC: capacity-weighted average over battery-bearing children.
	var socSum, capSum float64
	for _, child := range children {
		if child.Metrics.BatterySOC == nil || child.Equipment.BatteryCapacityKWh == nil {
			continue
		}
		w := *child.Equipment.BatteryCapacityKWh
		socSum += *child.Metrics.BatterySOC * w
		capSum += w
	}
	if capSum > 0 {
		soc := socSum / capSum
		out.BatterySOC = &soc
	}

	// Breakdown: summed across the children that report one.
	var bd model.Breakdown
	hasBreakdown := false
	for _, child := range children {
		if child.Metrics.Breakdown == nil {
			continue
		}
		hasBreakdown = true
		bd.HVACKW += child.Metrics.Breakdown.HVACKW
		bd.LightingKW += child.Metrics.Breakdown.LightingKW
		bd.EquipmentKW += child.Metrics.Breakdown.EquipmentKW
		bd.OtherKW += child.Metrics.Breakdown.OtherKW
	}
	if hasBreakdown {
		out.Breakdown = &bd
	}

	return out
}

func (a *Aggregator) applyRule(rule Rule, children []*model.HierarchicalSpace, get func(*model.SpaceMetrics) float64) float64 {
	switch rule.Method {
	case MethodSum:
		var sum float64
		for _, c := range children {
			sum += get(&c.Metrics)
		}
		return sum

	case MethodAverage:
		var sum float64
		for _, c := range children {
			sum += get(&c.Metrics)
		}
		return sum / float64(len(children))

	case MethodMin:
		min := get(&children[0].Metrics)
		for _, c := range children[1:] {
			if v := get(&c.Metrics); v < min {
				min = v
			}
		}
		return min

	case MethodMax:
		max := get(&children[0].Metrics)
		for _, c := range children[1:] {
			if v := get(&c.Metrics); v > max {
				max = v
			}
		}
		return max

	case MethodWeightedAverage:
		var weighted, weights float64
		for _, c := range children {
			w := weightOf(c, rule.WeightBy)
			weighted += get(&c.Metrics) * w
			weights += w
		}
		if weights == 0 {
			return 0
		}
		return weighted / weights

	default:
		return 0
	}
}

func weightOf(node *model.HierarchicalSpace, by WeightBy) float64 {
	deref := func(p *float64) float64 {
		if p == nil {
			return 0
		}
		return *p
	}
	switch by {
	case WeightByArea:
		return deref(node.Equipment.AreaM2)
	case WeightByLoad:
		return deref(node.Equipment.LoadCapacityKW)
	case WeightBySolar:
		return deref(node.Equipment.SolarCapacityKW)
	case WeightByBattery:
		return deref(node.Equipment.BatteryCapacityKWh)
	default:
		return 1
	}
}

// AggregateHierarchy recomputes every internal node's metrics bottom-up.
// Nodes are grouped into BFS levels from the roots and processed deepest
// first, so each parent sees finalized children.
func (a *Aggregator) AggregateHierarchy(nodes map[string]*model.HierarchicalSpace) {
	levels := levelize(nodes)
	for depth := len(levels) - 1; depth >= 0; depth-- {
		for _, node := range levels[depth] {
			if node.IsLeaf() {
				continue
			}
			children := childrenOf(node, nodes)
			node.Metrics = a.AggregateMetrics(children)
			rollupEquipment(node, children)
		}
	}
}

// rollupEquipment sums the children's installed capacities into the parent,
// so capacity-weighted rules keep working at every level of the tree.
func rollupEquipment(parent *model.HierarchicalSpace, children []*model.HierarchicalSpace) {
	sum := func(get func(*model.Equipment) *float64) *float64 {
		var total float64
		any := false
		for _, c := range children {
			if v := get(&c.Equipment); v != nil {
				total += *v
				any = true
			}
		}
		if !any {
			return nil
		}
		return &total
	}

	parent.Equipment.SolarCapacityKW = sum(func(e *model.Equipment) *float64 { return e.SolarCapacityKW })
	parent.Equipment.BatteryCapacityKWh = sum(func(e *model.Equipment) *float64 { return e.BatteryCapacityKWh })
	parent.Equipment.BatteryPowerKW = sum(func(e *model.Equipment) *float64 { return e.BatteryPowerKW })
	parent.Equipment.LoadCapacityKW = sum(func(e *model.Equipment) *float64 { return e.LoadCapacityKW })
	parent.Equipment.AreaM2 = sum(func(e *model.Equipment) *float64 { return e.AreaM2 })
}

// ValidateAggregation recomputes the parent's aggregate and reports every
// metric drifting beyond the tolerance. Mismatches are warnings for
// telemetry, never fatal.
func (a *Aggregator) ValidateAggregation(parent *model.HierarchicalSpace, children []*model.HierarchicalSpace) []string {
	if len(children) == 0 {
		return nil
	}
	expected := a.AggregateMetrics(children)

	var problems []string
	for _, rule := range a.rules {
		get, ok := metricGetters[rule.Metric]
		if !ok {
			continue
		}
		want := get(&expected)
		got := get(&parent.Metrics)
		if math.Abs(want-got) > ValidationTolerance {
			problems = append(problems, fmt.Sprintf(
				"space %s: %s is %.4f but children aggregate to %.4f",
				parent.ID, rule.Metric, got, want))
		}
	}
	return problems
}

// levelize assigns each node a BFS depth starting from the roots.
func levelize(nodes map[string]*model.HierarchicalSpace) [][]*model.HierarchicalSpace {
	depths := make(map[string]int, len(nodes))
	var queue []*model.HierarchicalSpace
	for _, node := range nodes {
		if node.ParentID == "" || nodes[node.ParentID] == nil {
			depths[node.ID] = 0
			queue = append(queue, node)
		}
	}

	var levels [][]*model.HierarchicalSpace
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		d := depths[node.ID]
		for len(levels) <= d {
			levels = append(levels, nil)
		}
		levels[d] = append(levels[d], node)

		for _, childID := range node.ChildIDs {
			child := nodes[childID]
			if child == nil {
				continue
			}
			if _, seen := depths[childID]; seen {
				continue
			}
			depths[childID] = d + 1
			queue = append(queue, child)
		}
	}
	return levels
}

func childrenOf(node *model.HierarchicalSpace, nodes map[string]*model.HierarchicalSpace) []*model.HierarchicalSpace {
	children := make([]*model.HierarchicalSpace, 0, len(node.ChildIDs))
	for _, id := range node.ChildIDs {
		if child := nodes[id]; child != nil {
			children = append(children, child)
		}
	}
	return children
}
