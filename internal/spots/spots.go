package spots

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/pmorvan/tregorweather/internal/docstore"
)

const (
	spotsKey = "spots:v1"

	// MaxSpots caps the collection size.
	MaxSpots = 100

	// ExportVersion identifies the export document format.
	ExportVersion = 1
)

var (
	// ErrCapacityExceeded is returned when adding would push the collection
	// past MaxSpots.
	ErrCapacityExceeded = errors.New("spot collection is at capacity")

	// ErrSpotNotFound is returned when no spot has the requested id.
	ErrSpotNotFound = errors.New("spot not found")
)

var validate = validator.New()

// Spot is a user-authored point of interest, distinct from the fixed
// weather-monitored cities.
type Spot struct {
	ID       string  `json:"id"`
	Name     string  `json:"name" validate:"required,max=80"`
	Category string  `json:"category" validate:"required,oneof=viewpoint beach hike picnic harbor heritage"`
	Lat      float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon      float64 `json:"lon" validate:"gte=-180,lte=180"`

	Description      string   `json:"description,omitempty" validate:"max=1000"`
	AccessNotes      string   `json:"accessNotes,omitempty" validate:"max=1000"`
	WeatherSensitive bool     `json:"weatherSensitive"`
	BestTime         string   `json:"bestTime" validate:"required,oneof=morning midday evening any"`
	Tags             []string `json:"tags,omitempty" validate:"dive,max=40"`

	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	LastVisited *time.Time `json:"lastVisited,omitempty"`
	VisitCount  int        `json:"visitCount"`
}

// ExportDocument is the downloadable/re-importable spot collection format.
type ExportDocument struct {
	Version    int       `json:"version"`
	ExportDate time.Time `json:"exportDate"`
	Spots      []Spot    `json:"spots"`
}

// ImportReport summarizes an ImportMerge run.
type ImportReport struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// Store holds the spot collection and persists it as a single JSON array.
// Every mutation is all-or-nothing: the candidate collection is built in
// memory, persisted in full, and rolled back when the write fails.
type Store struct {
	docs *docstore.Store

	mu    sync.RWMutex
	spots []Spot
}

// NewStore loads the persisted collection. A corrupt stored array is
// quarantined under a backup key and the store starts empty.
func NewStore(docs *docstore.Store) (*Store, error) {
	s := &Store{docs: docs}

	data, _, err := docs.Get(spotsKey)
	if errors.Is(err, docstore.ErrNoDocument) {
		return s, nil
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, &s.spots); err != nil {
		log.Printf("corrupt spot collection, quarantining: %v", err)
		if qErr := docs.Quarantine(spotsKey); qErr != nil {
			return nil, fmt.Errorf("quarantining corrupt spot collection: %w", qErr)
		}
		s.spots = nil
	}

	return s, nil
}

// Add validates the spot, assigns it a fresh immutable id, and persists the
// grown collection. The caller's ID, timestamps and visit counter are
// ignored.
func (s *Store) Add(spot Spot) (Spot, error) {
	if err := validate.Struct(spot); err != nil {
		return Spot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.spots) >= MaxSpots {
		return Spot{}, ErrCapacityExceeded
	}

	now := time.Now().UTC()
	spot.ID = uuid.NewString()
	spot.CreatedAt = now
	spot.UpdatedAt = now
	spot.LastVisited = nil
	spot.VisitCount = 0

	candidate := append(s.snapshotLocked(), spot)
	if err := s.persistLocked(candidate); err != nil {
		return Spot{}, err
	}
	s.spots = candidate
	return spot, nil
}

// Update replaces the mutable fields of the spot with the given id. The id
// and creation timestamp are immutable.
func (s *Store) Update(id string, updated Spot) (Spot, error) {
	if err := validate.Struct(updated); err != nil {
		return Spot{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return Spot{}, ErrSpotNotFound
	}

	candidate := s.snapshotLocked()
	existing := candidate[idx]

	updated.ID = existing.ID
	updated.CreatedAt = existing.CreatedAt
	updated.LastVisited = existing.LastVisited
	updated.VisitCount = existing.VisitCount
	updated.UpdatedAt = time.Now().UTC()
	candidate[idx] = updated

	if err := s.persistLocked(candidate); err != nil {
		return Spot{}, err
	}
	s.spots = candidate
	return updated, nil
}

// Remove deletes the spot with the given id.
func (s *Store) Remove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return ErrSpotNotFound
	}

	candidate := s.snapshotLocked()
	candidate = append(candidate[:idx], candidate[idx+1:]...)

	if err := s.persistLocked(candidate); err != nil {
		return err
	}
	s.spots = candidate
	return nil
}

// MarkVisited stamps the spot as visited now and increments its counter.
func (s *Store) MarkVisited(id string) (Spot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOfLocked(id)
	if idx < 0 {
		return Spot{}, ErrSpotNotFound
	}

	candidate := s.snapshotLocked()
	now := time.Now().UTC()
	candidate[idx].LastVisited = &now
	candidate[idx].VisitCount++
	candidate[idx].UpdatedAt = now

	if err := s.persistLocked(candidate); err != nil {
		return Spot{}, err
	}
	s.spots = candidate
	return candidate[idx], nil
}

// List returns all spots in insertion order.
func (s *Store) List() []Spot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// ListByTag returns spots carrying the given tag.
func (s *Store) ListByTag(tag string) []Spot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Spot
	for _, spot := range s.spots {
		for _, t := range spot.Tags {
			if t == tag {
				out = append(out, spot)
				break
			}
		}
	}
	return out
}

// ListNearby returns spots within radiusKm of the given point, closest
// first.
func (s *Store) ListNearby(lat, lon, radiusKm float64) []Spot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		spot Spot
		dist float64
	}
	var matches []scored
	for _, spot := range s.spots {
		d := haversineKm(lat, lon, spot.Lat, spot.Lon)
		if d <= radiusKm {
			matches = append(matches, scored{spot: spot, dist: d})
		}
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].dist < matches[j].dist })

	out := make([]Spot, 0, len(matches))
	for _, m := range matches {
		out = append(out, m.spot)
	}
	return out
}

// ExportAll produces the full collection as a versioned export document.
func (s *Store) ExportAll() ExportDocument {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return ExportDocument{
		Version:    ExportVersion,
		ExportDate: time.Now().UTC(),
		Spots:      s.snapshotLocked(),
	}
}

// ImportMerge adds spots from the document whose ids are not present yet.
// Existing spots are never overwritten. Incoming records keep their ids and
// lifecycle metadata so an export/import round trip is lossless.
func (s *Store) ImportMerge(doc ExportDocument) (ImportReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make(map[string]bool, len(s.spots))
	for _, spot := range s.spots {
		existing[spot.ID] = true
	}

	var report ImportReport
	candidate := s.snapshotLocked()
	for _, spot := range doc.Spots {
		if spot.ID == "" || existing[spot.ID] {
			report.Skipped++
			continue
		}
		if err := validate.Struct(spot); err != nil {
			report.Skipped++
			continue
		}
		if len(candidate) >= MaxSpots {
			report.Skipped++
			continue
		}
		candidate = append(candidate, spot)
		existing[spot.ID] = true
		report.Added++
	}

	if report.Added == 0 {
		return report, nil
	}

	if err := s.persistLocked(candidate); err != nil {
		return ImportReport{}, err
	}
	s.spots = candidate
	return report, nil
}

// Count returns the number of stored spots.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.spots)
}

func (s *Store) indexOfLocked(id string) int {
	for i, spot := range s.spots {
		if spot.ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() []Spot {
	out := make([]Spot, len(s.spots))
	copy(out, s.spots)
	return out
}

// persistLocked writes the candidate collection as a whole document. The
// in-memory state is untouched on failure; callers only commit the
// candidate after a successful write.
func (s *Store) persistLocked(candidate []Spot) error {
	data, err := json.Marshal(candidate)
	if err != nil {
		return err
	}
	return s.docs.Put(spotsKey, data)
}

const earthRadiusKm = 6371.0

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKm * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
