// Package timeseries implements a bounded in-memory store for metric
// samples: a fixed-capacity circular buffer with retention-based eviction,
// range queries and bucketed downsampling.
package timeseries

import (
	"sync"
	"time"
)

// Aggregation selects how a downsampling bucket collapses to one point.
type Aggregation string

const (
	AggFirst   Aggregation = "first"
	AggLast    Aggregation = "last"
	AggMin     Aggregation = "min"
	AggMax     Aggregation = "max"
	AggAverage Aggregation = "average"
	AggSum     Aggregation = "sum"
)

// Point is one timestamped sample.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
}

// Config bounds the store. The store never holds more than MaxPoints
// entries, and no entry older than Retention relative to now survives a
// cleanup pass.
type Config struct {
	MaxPoints   int           `json:"max_points"`
	Retention   time.Duration `json:"retention"`
	Aggregation Aggregation   `json:"aggregation"`
}

// ConfigUpdate is a partial config change; nil fields keep current values.
type ConfigUpdate struct {
	MaxPoints   *int           `json:"max_points,omitempty"`
	Retention   *time.Duration `json:"retention,omitempty"`
	Aggregation *Aggregation   `json:"aggregation,omitempty"`
}

// Query selects a range and an optional downsampling budget. Zero Start/End
// mean unbounded on that side; MaxPoints 0 means no downsampling; empty
// Aggregation falls back to the store's configured method.
type Query struct {
	Start       time.Time
	End         time.Time
	MaxPoints   int
	Aggregation Aggregation
}

// Result carries the selected points plus whether downsampling happened and
// how many points matched before it.
type Result struct {
	Points             []Point `json:"points"`
	Downsampled        bool    `json:"downsampled"`
	OriginalPointCount int     `json:"original_point_count"`
}

// Stats summarizes the store's occupancy.
type Stats struct {
	PointCount int       `json:"point_count"`
	MaxPoints  int       `json:"max_points"`
	Oldest     time.Time `json:"oldest,omitempty"`
	Newest     time.Time `json:"newest,omitempty"`
}

// Store is a fixed-capacity circular buffer of points, single-writer and
// multi-reader. Writes overwrite the oldest slot once at capacity; reads
// reconstruct chronological order from the write cursor.
type Store struct {
	mu   sync.RWMutex
	cfg  Config
	buf  []Point
	head int // index of the oldest point
	size int

	now func() time.Time // injectable for retention tests
}

// New creates a store. MaxPoints must be positive; a zero Retention
// disables age-based eviction.
func New(cfg Config) *Store {
	if cfg.MaxPoints <= 0 {
		cfg.MaxPoints = 1
	}
	if cfg.Aggregation == "" {
		cfg.Aggregation = AggAverage
	}
	return &Store{
		cfg: cfg,
		buf: make([]Point, cfg.MaxPoints),
		now: time.Now,
	}
}

// AddPoint appends one sample, overwriting the oldest slot when at
// capacity, then applies retention relative to the current wall clock.
func (s *Store) AddPoint(p Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addLocked(p)
	s.evictLocked()
}

// AddPoints appends samples in order.
func (s *Store) AddPoints(points []Point) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range points {
		s.addLocked(p)
	}
	s.evictLocked()
}

func (s *Store) addLocked(p Point) {
	if s.size < len(s.buf) {
		s.buf[(s.head+s.size)%len(s.buf)] = p
		s.size++
		return
	}
	// Full: overwrite the oldest slot and advance the head.
	s.buf[s.head] = p
	s.head = (s.head + 1) % len(s.buf)
}

// evictLocked drops points older than the retention window, measured from
// now rather than from the newest write. The store may shrink below
// capacity here.
func (s *Store) evictLocked() {
	if s.cfg.Retention <= 0 {
		return
	}
	cutoff := s.now().Add(-s.cfg.Retention)
	for s.size > 0 {
		oldest := s.buf[s.head]
		if !oldest.Timestamp.Before(cutoff) {
			break
		}
		s.head = (s.head + 1) % len(s.buf)
		s.size--
	}
}

// snapshotLocked rebuilds chronological order from the ring.
func (s *Store) snapshotLocked() []Point {
	out := make([]Point, s.size)
	for i := 0; i < s.size; i++ {
		out[i] = s.buf[(s.head+i)%len(s.buf)]
	}
	return out
}

// QueryRange filters to the requested range and downsamples with fixed-size
// buckets when the match exceeds the query's point budget.
func (s *Store) QueryRange(q Query) Result {
	s.mu.RLock()
	points := s.snapshotLocked()
	agg := s.cfg.Aggregation
	s.mu.RUnlock()

	if q.Aggregation != "" {
		agg = q.Aggregation
	}

	filtered := points[:0:0]
	for _, p := range points {
		if !q.Start.IsZero() && p.Timestamp.Before(q.Start) {
			continue
		}
		if !q.End.IsZero() && p.Timestamp.After(q.End) {
			continue
		}
		filtered = append(filtered, p)
	}

	original := len(filtered)
	if q.MaxPoints <= 0 || original <= q.MaxPoints {
		return Result{Points: filtered, OriginalPointCount: original}
	}

	return Result{
		Points:             downsample(filtered, q.MaxPoints, agg),
		Downsampled:        true,
		OriginalPointCount: original,
	}
}

// downsample collapses points into at most maxPoints fixed-size buckets,
// each labeled with its middle point's timestamp.
func downsample(points []Point, maxPoints int, agg Aggregation) []Point {
	bucketSize := (len(points) + maxPoints - 1) / maxPoints

	out := make([]Point, 0, maxPoints)
	for start := 0; start < len(points); start += bucketSize {
		end := start + bucketSize
		if end > len(points) {
			end = len(points)
		}
		bucket := points[start:end]
		mid := bucket[len(bucket)/2]
		out = append(out, Point{
			Timestamp: mid.Timestamp,
			Value:     aggregate(bucket, agg),
		})
	}
	return out
}

func aggregate(bucket []Point, agg Aggregation) float64 {
	if len(bucket) == 0 {
		return 0
	}
	switch agg {
	case AggFirst:
		return bucket[0].Value
	case AggLast:
		return bucket[len(bucket)-1].Value
	case AggMin:
		min := bucket[0].Value
		for _, p := range bucket[1:] {
			if p.Value < min {
				min = p.Value
			}
		}
		return min
	case AggMax:
		max := bucket[0].Value
		for _, p := range bucket[1:] {
			if p.Value > max {
				max = p.Value
			}
		}
		return max
	case AggSum:
		var sum float64
		for _, p := range bucket {
			sum += p.Value
		}
		return sum
	default: // AggAverage
		var sum float64
		for _, p := range bucket {
			sum += p.Value
		}
		return sum / float64(len(bucket))
	}
}

// GetStats reports occupancy and the covered time range.
func (s *Store) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := Stats{PointCount: s.size, MaxPoints: s.cfg.MaxPoints}
	if s.size > 0 {
		st.Oldest = s.buf[s.head].Timestamp
		st.Newest = s.buf[(s.head+s.size-1)%len(s.buf)].Timestamp
	}
	return st
}

// GetLatest returns the newest point.
func (s *Store) GetLatest() (Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.size == 0 {
		return Point{}, false
	}
	return s.buf[(s.head+s.size-1)%len(s.buf)], true
}

// GetOldest returns the oldest surviving point.
func (s *Store) GetOldest() (Point, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.size == 0 {
		return Point{}, false
	}
	return s.buf[s.head], true
}

// Clear drops every point without changing configuration.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.head = 0
	s.size = 0
}

// UpdateConfig applies a partial config change. Shrinking MaxPoints keeps
// the newest points.
func (s *Store) UpdateConfig(update ConfigUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if update.Retention != nil {
		s.cfg.Retention = *update.Retention
	}
	if update.Aggregation != nil {
		s.cfg.Aggregation = *update.Aggregation
	}
	if update.MaxPoints != nil && *update.MaxPoints > 0 && *update.MaxPoints != s.cfg.MaxPoints {
		points := s.snapshotLocked()
		if len(points) > *update.MaxPoints {
			points = points[len(points)-*update.MaxPoints:]
		}
		s.cfg.MaxPoints = *update.MaxPoints
		s.buf = make([]Point, s.cfg.MaxPoints)
		s.head = 0
		s.size = copy(s.buf, points)
	}
	s.evictLocked()
}
