package hierarchy

import (
	"log"
	"sort"
	"sync"
	"time"

	"ems_simulator/internal/model"
	"ems_simulator/internal/simulator"
)

// Clock is the manager's view of the master scenario clock.
type Clock interface {
	CurrentTime() time.Time
}

// Summary is a coarse snapshot of the tree for the dashboard header.
type Summary struct {
	CountsByType   map[model.SpaceType]int `json:"counts_by_type"`
	SimulatorCount int                     `json:"simulator_count"`
	LastUpdate     time.Time               `json:"last_update"`
}

// Manager owns the space tree and the per-leaf simulators and orchestrates
// one tick: simulate every leaf, aggregate upward, validate. Update runs to
// completion under the lock, so queries never observe a half-finished tick.
type Manager struct {
	mu sync.Mutex

	nodes map[string]*model.HierarchicalSpace
	order []string // stable iteration order for leaves and queries
	sims  map[string]*simulator.SpaceSimulator
	agg   *Aggregator
	clock Clock

	minInterval time.Duration
	lastUpdate  time.Time // wall-clock, for debouncing
	lastSimTime time.Time

	// OnMismatch, when set, receives every validation warning in addition to
	// the log.
	OnMismatch func(problem string)
}

// NewManager builds a manager over a space tree and its leaf simulators.
func NewManager(spaces []model.HierarchicalSpace, sims map[string]*simulator.SpaceSimulator, agg *Aggregator, clock Clock, minInterval time.Duration) *Manager {
	nodes := make(map[string]*model.HierarchicalSpace, len(spaces))
	order := make([]string, 0, len(spaces))
	for i := range spaces {
		node := spaces[i]
		nodes[node.ID] = &node
		order = append(order, node.ID)
	}
	if agg == nil {
		agg = NewAggregator(nil)
	}
	return &Manager{
		nodes:       nodes,
		order:       order,
		sims:        sims,
		agg:         agg,
		clock:       clock,
		minInterval: minInterval,
	}
}

// Update runs one full simulation-and-aggregation pass unless one already
// ran within the debounce interval. Validation problems are logged, never
// returned as failures.
func (m *Manager) Update() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateLocked()
}

func (m *Manager) updateLocked() {
	now := time.Now()
	if m.minInterval > 0 && now.Sub(m.lastUpdate) < m.minInterval {
		return
	}
	m.lastUpdate = now

	simTime := m.clock.CurrentTime()
	m.lastSimTime = simTime

	// Phase 1: every leaf simulates before anything aggregates.
	for _, id := range m.order {
		sim, ok := m.sims[id]
		if !ok {
			continue
		}
		m.nodes[id].Metrics = sim.Simulate(simTime)
	}

	// Phase 2: roll up, deepest level first.
	m.agg.AggregateHierarchy(m.nodes)

	// Phase 3: validate every internal node.
	for _, id := range m.order {
		node := m.nodes[id]
		if node.IsLeaf() {
			continue
		}
		for _, problem := range m.agg.ValidateAggregation(node, childrenOf(node, m.nodes)) {
			log.Printf("aggregation mismatch: %s", problem)
			if m.OnMismatch != nil {
				m.OnMismatch(problem)
			}
		}
	}
}

// GetSpace returns a copy of one node. Forces a refresh first.
func (m *Manager) GetSpace(id string) (model.HierarchicalSpace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateLocked()
	node, ok := m.nodes[id]
	if !ok {
		return model.HierarchicalSpace{}, false
	}
	return *node, true
}

// GetAllSpaces returns copies of every node in definition order.
func (m *Manager) GetAllSpaces() []model.HierarchicalSpace {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateLocked()
	out := make([]model.HierarchicalSpace, 0, len(m.order))
	for _, id := range m.order {
		out = append(out, *m.nodes[id])
	}
	return out
}

// GetChildren returns copies of a node's children in declared order.
func (m *Manager) GetChildren(id string) []model.HierarchicalSpace {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateLocked()
	node, ok := m.nodes[id]
	if !ok {
		return nil
	}
	out := make([]model.HierarchicalSpace, 0, len(node.ChildIDs))
	for _, childID := range node.ChildIDs {
		if child := m.nodes[childID]; child != nil {
			out = append(out, *child)
		}
	}
	return out
}

// GetParent returns a copy of a node's parent, if it has one.
func (m *Manager) GetParent(id string) (model.HierarchicalSpace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateLocked()
	node, ok := m.nodes[id]
	if !ok || node.ParentID == "" {
		return model.HierarchicalSpace{}, false
	}
	parent, ok := m.nodes[node.ParentID]
	if !ok {
		return model.HierarchicalSpace{}, false
	}
	return *parent, true
}

// GetSpacesByType returns copies of every node of the given type, sorted by
// id for stable output.
func (m *Manager) GetSpacesByType(tp model.SpaceType) []model.HierarchicalSpace {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateLocked()
	var out []model.HierarchicalSpace
	for _, id := range m.order {
		if node := m.nodes[id]; node.Type == tp {
			out = append(out, *node)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// GetSummary returns per-type counts, the simulator count and the sim time
// of the last completed update.
func (m *Manager) GetSummary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateLocked()
	counts := make(map[model.SpaceType]int)
	for _, node := range m.nodes {
		counts[node.Type]++
	}
	return Summary{
		CountsByType:   counts,
		SimulatorCount: len(m.sims),
		LastUpdate:     m.lastSimTime,
	}
}
