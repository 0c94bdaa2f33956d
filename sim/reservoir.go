// Defines the Reservoir: a Store combined with stage-volume-area geometry,
// a spillway weir and an Allocator holding its outflow requests.

package sim

import (
	"fmt"
	"math"

	"github.com/sirupsen/logrus"
)

// Names of the requests every Reservoir carries, in rationing order.
const (
	RequestEvaporation = "evaporation"
	RequestFlood       = "flood"
	RequestSpillway    = "spillway"
)

// Geometry describes the physical shape and outlet works of a reservoir.
type Geometry struct {
	ElevVolume    LookupTable // elevation (x) -> stored volume (y)
	VolumeArea    LookupTable // stored volume (x) -> water surface area (y)
	Bottom        float64     // elevation of the reservoir floor
	SpillwayCrest float64     // elevation at which the weir starts to discharge
	OutletElev    float64     // elevation of the outlet intake
	WeirCoef      float64     // weir discharge coefficient
	WeirLength    float64     // effective crest length
}

// DefaultGeometry returns the reference reservoir: elevations [0, 10, 20]
// storing [0, 175, 590] with surface areas [0, 35, 48], a broad weir of
// unit length at elevation 10.
func DefaultGeometry() Geometry {
	return Geometry{
		ElevVolume:    MustTable([]float64{0, 10, 20}, []float64{0, 175, 590}, Extrapolate),
		VolumeArea:    MustTable([]float64{0, 175, 590}, []float64{0, 35, 48}, Clamp),
		Bottom:        0,
		SpillwayCrest: 10,
		OutletElev:    3.75,
		WeirCoef:      3.2,
		WeirLength:    1,
	}
}

// Validate checks the geometry for missing tables and negative weir terms.
func (g Geometry) Validate() error {
	if g.ElevVolume == nil {
		return fmt.Errorf("reservoir geometry: elevation-volume table is required")
	}
	if g.VolumeArea == nil {
		return fmt.Errorf("reservoir geometry: volume-area table is required")
	}
	if g.WeirCoef < 0 || g.WeirLength < 0 {
		return fmt.Errorf("reservoir geometry: weir coefficient and length must be >= 0, got %g and %g", g.WeirCoef, g.WeirLength)
	}
	return nil
}

// ReservoirConfig groups construction parameters for NewReservoir.
type ReservoirConfig struct {
	Name          string
	InitialVolume float64
	Capacity      float64 // 0 = largest volume in the elevation table
	Geometry      Geometry
	IDs           IDSource // nil = DefaultIDs
}

// Reservoir is a bounded store with geometry, spillway hydraulics and
// prioritized outflow requests. Volume is an alias view over the store's
// quantity, not a separate field.
//
// Two regimes are keyed on water level: below the spillway crest all
// outflow comes from Allocator requests; above it CalcOverflow also
// discharges over the weir.
type Reservoir struct {
	store     *Store
	geometry  Geometry
	allocator *Allocator

	spillwayVolume float64 // cached at construction, see RefreshSpillwayVolume
	inflow         float64 // pending inflow for the next Step
	pendingDemand  float64 // allocator total recorded by SetEvaporation
	lastGrants     []Allocation
	lastSpill      float64
}

// NewReservoir creates a Reservoir with evaporation, flood and spillway
// requests (priorities 0, 1, 2).
func NewReservoir(cfg ReservoirConfig) (*Reservoir, error) {
	if err := cfg.Geometry.Validate(); err != nil {
		return nil, err
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = tableMaxY(cfg.Geometry.ElevVolume)
	}
	name := cfg.Name
	if name == "" {
		name = "reservoir"
	}

	alloc, err := NewAllocator(
		NewRequest(RequestEvaporation, 0),
		NewRequest(RequestFlood, 1),
		NewRequest(RequestSpillway, 2),
	)
	if err != nil {
		return nil, err
	}

	r := &Reservoir{
		store:     NewStore(name, cfg.InitialVolume, capacity, cfg.IDs),
		geometry:  cfg.Geometry,
		allocator: alloc,
	}
	r.spillwayVolume = r.geometry.ElevVolume.LookupY(r.geometry.SpillwayCrest)
	return r, nil
}

// Name returns the reservoir name.
func (r *Reservoir) Name() string { return r.store.Name }

// ID returns the instance identifier.
func (r *Reservoir) ID() int64 { return r.store.ID }

// Store exposes the underlying storage capability.
func (r *Reservoir) Store() *Store { return r.store }

// Allocator exposes the outflow requests.
func (r *Reservoir) Allocator() *Allocator { return r.allocator }

// Geometry returns the reservoir geometry.
func (r *Reservoir) Geometry() Geometry { return r.geometry }

// Volume returns the stored volume (the store's quantity).
func (r *Reservoir) Volume() float64 { return r.store.Quantity() }

// Capacity returns the storage capacity.
func (r *Reservoir) Capacity() float64 { return r.store.Capacity() }

// SetCapacity changes the capacity; a volume above it is clamped immediately.
func (r *Reservoir) SetCapacity(capacity float64) { r.store.SetCapacity(capacity) }

// SetSpillwayCrest moves the crest. The cached spillway volume is NOT
// refreshed; call RefreshSpillwayVolume for that.
func (r *Reservoir) SetSpillwayCrest(crest float64) { r.geometry.SpillwayCrest = crest }

// SpillwayVolume returns the volume at the spillway crest as cached at
// construction (or at the last RefreshSpillwayVolume).
func (r *Reservoir) SpillwayVolume() float64 { return r.spillwayVolume }

// RefreshSpillwayVolume recomputes the cached spillway volume from the
// current crest and elevation table.
func (r *Reservoir) RefreshSpillwayVolume() float64 {
	r.spillwayVolume = r.geometry.ElevVolume.LookupY(r.geometry.SpillwayCrest)
	return r.spillwayVolume
}

// WaterLevel returns the water surface elevation for the current volume.
func (r *Reservoir) WaterLevel() float64 {
	return r.geometry.ElevVolume.LookupX(r.Volume())
}

// SetWaterLevel imposes a target level: the volume is back-solved from the
// elevation table and a full Step runs afterwards, drawing any pending
// inflow and requests.
func (r *Reservoir) SetWaterLevel(level float64) {
	r.store.SetQuantity(r.geometry.ElevVolume.LookupY(level))
	r.Step()
}

// Area returns the water surface area for the current volume; zero when
// the level is at or below the bottom.
func (r *Reservoir) Area() float64 {
	if r.WaterLevel() <= r.geometry.Bottom {
		return 0
	}
	return math.Max(r.geometry.VolumeArea.LookupY(r.Volume()), 0)
}

// Evaporation returns the current evaporation request amount.
func (r *Reservoir) Evaporation() float64 {
	return r.mustRequest(RequestEvaporation).Amount
}

// SetEvaporation converts an evaporation rate (length/time) into a volume
// over the current surface area, stores it in the evaporation request and
// records the allocator's total as the pending demand. Returns the volume.
func (r *Reservoir) SetEvaporation(rate float64) float64 {
	evaporation := rate * r.Area()
	r.mustRequest(RequestEvaporation).Amount = evaporation
	r.pendingDemand = r.allocator.Total()
	return evaporation
}

// SetRelease sets the amount of a named request (flood or spillway gate
// releases, or any request added by the caller).
func (r *Reservoir) SetRelease(name string, amount float64) error {
	req, err := r.allocator.Request(name)
	if err != nil {
		return err
	}
	req.Amount = amount
	r.pendingDemand = r.allocator.Total()
	return nil
}

// PendingDemand returns the allocator total recorded at the last request change.
func (r *Reservoir) PendingDemand() float64 { return r.pendingDemand }

// Inflow returns the pending inflow for the next Step.
func (r *Reservoir) Inflow() float64 { return r.inflow }

// SetInflow sets the inflow drawn by subsequent Steps.
func (r *Reservoir) SetInflow(v float64) { r.inflow = v }

// Step runs one update cycle with the pending inflow and no extra release.
func (r *Reservoir) Step() float64 {
	return r.Update(r.inflow, 0)
}

// Update runs one update cycle: the allocator's requests are rationed
// against the volume available after inflow, then release is served from
// what neither the grants nor the reservations claim. Returns the outflow
// actually delivered. The net request is never negative, so a cycle with no
// inflow never raises the volume.
func (r *Reservoir) Update(inflow, release float64) float64 {
	available := r.Volume() + inflow
	r.lastGrants = r.allocator.Ration(available)
	granted := Granted(r.lastGrants)
	if release > 0 {
		release = math.Min(release, math.Max(available-granted-Reserved(r.lastGrants), 0))
	} else {
		release = 0
	}
	out := r.store.Update(inflow, math.Max(granted+release, 0))
	logrus.Debugf("reservoir %s: inflow=%g demand=%g granted=%g release=%g out=%g volume=%g",
		r.Name(), inflow, r.allocator.Total(), granted, release, out, r.Volume())
	return out
}

// LastAllocations returns the rationing result of the most recent cycle.
func (r *Reservoir) LastAllocations() []Allocation { return r.lastGrants }

// LastSpill returns the weir discharge of the most recent CalcOverflow.
func (r *Reservoir) LastSpill() float64 { return r.lastSpill }

// CalcOverflow discharges over the spillway weir when the water level is
// above the crest:
//
//	q = WeirCoef * WeirLength * h^1.5,  h = level - crest
//
// q never exceeds the volume stored above the spillway volume. Returns the
// discharged volume (0 at or below the crest).
func (r *Reservoir) CalcOverflow() float64 {
	r.lastSpill = 0
	level := r.WaterLevel()
	if level <= r.geometry.SpillwayCrest {
		return 0
	}
	h := level - r.geometry.SpillwayCrest
	q := r.geometry.WeirCoef * r.geometry.WeirLength * math.Pow(h, 1.5)
	q = math.Min(q, math.Max(r.Volume()-r.spillwayVolume, 0))

	r.lastSpill = r.store.Update(0, q)
	logrus.Debugf("reservoir %s: spill head=%g q=%g level=%g", r.Name(), h, r.lastSpill, r.WaterLevel())
	return r.lastSpill
}

// String returns a human-readable representation of the Reservoir.
func (r *Reservoir) String() string {
	return fmt.Sprintf("Reservoir: (Name: %s, Volume: %g, Level: %g, Capacity: %g)", r.Name(), r.Volume(), r.WaterLevel(), r.Capacity())
}

func (r *Reservoir) mustRequest(name string) *Request {
	req, err := r.allocator.Request(name)
	if err != nil {
		// The built-in requests are created by NewReservoir and never removed.
		panic(err)
	}
	return req
}

func tableMaxY(t LookupTable) float64 {
	if mt, ok := t.(interface{ MaxY() float64 }); ok {
		return mt.MaxY()
	}
	return math.Inf(1)
}
