package rangetable

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/henderiw/rangecollection/pkg/rangecollection"
	"k8s.io/apimachinery/pkg/labels"
)

// Table hands out IDs from [0, size) as labeled range claims. The claimed
// and free IDs are tracked as two complementary range collections.
type Table interface {
	Get(id int64) (labels.Set, error)
	Claim(id int64, d labels.Set) error
	ClaimDynamic(d labels.Set) (int64, error)
	ClaimRange(r rangecollection.Range, d labels.Set) error
	ClaimSize(size int64, d labels.Set) (rangecollection.Range, error)
	Release(id int64) error
	ReleaseRange(r rangecollection.Range) error
	Update(id int64, d labels.Set) error

	Iterate() *Iterator

	Count() int64
	Size() int64
	Has(id int64) bool

	IsFree(id int64) bool
	FindFree() (int64, error)
	FindFreeSize(size int64) (rangecollection.Range, error)

	GetAll() Claims
	GetByLabel(selector labels.Selector) Claims

	Used() string
	Free() string
}

// ValidationFn is called on every claimed, released or updated range except
// the init entries.
type ValidationFn func(r rangecollection.Range) error

func NewTable(size int64, initEntries Claims, v ValidationFn) (Table, error) {
	if size <= 0 {
		return nil, fmt.Errorf("table size %d must be bigger then 0", size)
	}
	free, err := rangecollection.New(rangecollection.RangeFrom(0, size))
	if err != nil {
		return nil, err
	}
	used, err := rangecollection.New()
	if err != nil {
		return nil, err
	}
	r := &table{
		m:          new(sync.RWMutex),
		size:       size,
		used:       used,
		free:       free,
		validateFn: v,
	}

	var errm error
	for _, c := range initEntries {
		if err := r.add(c.Range, c.Labels, true); err != nil {
			errm = errors.Join(errm, err)
		}
	}
	return r, errm
}

type table struct {
	m          *sync.RWMutex
	size       int64
	claims     Claims
	used       *rangecollection.RangeCollection
	free       *rangecollection.RangeCollection
	validateFn ValidationFn
}

func (r *table) validateBounds(rng rangecollection.Range) error {
	if err := rng.Validate(); err != nil {
		return err
	}
	if rng.Start < 0 || rng.End > r.size {
		return fmt.Errorf("range %s is outside of the table bounds [0, %d)", rng, r.size)
	}
	return nil
}

func (r *table) validate(rng rangecollection.Range, init bool) error {
	if err := r.validateBounds(rng); err != nil {
		return err
	}
	if r.validateFn != nil && !init {
		if err := r.validateFn(rng); err != nil {
			return err
		}
	}
	return nil
}

func (r *table) Get(id int64) (labels.Set, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	if err := r.validateBounds(rangecollection.RangeFrom(id, id+1)); err != nil {
		return nil, err
	}
	idx, ok := r.find(id)
	if !ok {
		return nil, fmt.Errorf("no match found for: %d", id)
	}
	return r.claims[idx].Labels, nil
}

func (r *table) Claim(id int64, d labels.Set) error {
	r.m.Lock()
	defer r.m.Unlock()

	return r.add(rangecollection.RangeFrom(id, id+1), d, false)
}

func (r *table) ClaimDynamic(d labels.Set) (int64, error) {
	rng, err := r.ClaimSize(1, d)
	if err != nil {
		return 0, err
	}
	return rng.Start, nil
}

func (r *table) ClaimRange(rng rangecollection.Range, d labels.Set) error {
	r.m.Lock()
	defer r.m.Unlock()

	return r.add(rng, d, false)
}

func (r *table) ClaimSize(size int64, d labels.Set) (rangecollection.Range, error) {
	r.m.Lock()
	defer r.m.Unlock()

	rng, err := r.findFreeSize(size)
	if err != nil {
		return rangecollection.Range{}, err
	}
	if err := r.add(rng, d, false); err != nil {
		return rangecollection.Range{}, err
	}
	return rng, nil
}

func (r *table) Release(id int64) error {
	r.m.Lock()
	defer r.m.Unlock()

	return r.delete(rangecollection.RangeFrom(id, id+1))
}

func (r *table) ReleaseRange(rng rangecollection.Range) error {
	r.m.Lock()
	defer r.m.Unlock()

	return r.delete(rng)
}

// Update replaces the labels of the claim holding id.
func (r *table) Update(id int64, d labels.Set) error {
	r.m.Lock()
	defer r.m.Unlock()

	if err := r.validate(rangecollection.RangeFrom(id, id+1), false); err != nil {
		return err
	}
	idx, ok := r.find(id)
	if !ok {
		return fmt.Errorf("entry %d not found", id)
	}
	r.claims[idx].Labels = d
	return nil
}

func (r *table) Iterate() *Iterator {
	r.m.RLock()
	defer r.m.RUnlock()

	return &Iterator{current: -1, claims: append(Claims{}, r.claims...)}
}

// Count returns the number of claimed IDs.
func (r *table) Count() int64 {
	r.m.RLock()
	defer r.m.RUnlock()

	return int64(r.used.Len())
}

func (r *table) Size() int64 {
	return r.size
}

func (r *table) Has(id int64) bool {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.used.Contains(id)
}

func (r *table) IsFree(id int64) bool {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.free.Contains(id)
}

func (r *table) FindFree() (int64, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	if r.free.IsEmpty() {
		return 0, fmt.Errorf("no free entry found")
	}
	return r.free.Ranges()[0].Start, nil
}

func (r *table) FindFreeSize(size int64) (rangecollection.Range, error) {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.findFreeSize(size)
}

// findFreeSize returns the first free range that fits size IDs.
func (r *table) findFreeSize(size int64) (rangecollection.Range, error) {
	if size <= 0 {
		return rangecollection.Range{}, fmt.Errorf("size %d must be bigger then 0", size)
	}
	if size > r.size {
		return rangecollection.Range{}, fmt.Errorf("size %d is bigger then max allowed entries: %d", size, r.size)
	}
	for _, rng := range r.free.Ranges() {
		if rng.Len() >= uint64(size) {
			return rangecollection.RangeFrom(rng.Start, rng.Start+size), nil
		}
	}
	return rangecollection.Range{}, fmt.Errorf("could not find free entries that fit in size %d", size)
}

func (r *table) GetAll() Claims {
	r.m.RLock()
	defer r.m.RUnlock()

	return append(Claims{}, r.claims...)
}

func (r *table) GetByLabel(selector labels.Selector) Claims {
	claims := Claims{}

	iter := r.Iterate()
	for iter.Next() {
		if selector.Matches(iter.Value().Labels) {
			claims = append(claims, iter.Value())
		}
	}
	return claims
}

func (r *table) Used() string {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.used.String()
}

func (r *table) Free() string {
	r.m.RLock()
	defer r.m.RUnlock()

	return r.free.String()
}

// find returns the index of the claim holding id.
func (r *table) find(id int64) (int, bool) {
	idx := sort.Search(len(r.claims), func(i int) bool {
		return r.claims[i].Range.End > id
	})
	if idx < len(r.claims) && r.claims[idx].Range.Contains(id) {
		return idx, true
	}
	return -1, false
}

func (r *table) add(rng rangecollection.Range, d labels.Set, init bool) error {
	if err := r.validate(rng, init); err != nil {
		return err
	}
	if rng.IsEmpty() {
		return nil
	}
	if !r.free.Covers(rng) {
		return fmt.Errorf("range %s overlaps claimed entries", rng)
	}
	if err := r.used.Add(rng); err != nil {
		return err
	}
	if err := r.free.Remove(rng); err != nil {
		return err
	}
	idx := sort.Search(len(r.claims), func(i int) bool {
		return r.claims[i].Range.Start >= rng.Start
	})
	r.claims = slices.Insert(r.claims, idx, NewClaim(rng, d))
	return nil
}

// delete releases every claimed ID in rng. Claims that are partly released
// keep their labels on the remaining pieces.
func (r *table) delete(rng rangecollection.Range) error {
	if err := r.validate(rng, false); err != nil {
		return err
	}
	if rng.IsEmpty() {
		return nil
	}
	claims := make(Claims, 0, len(r.claims)+1)
	for _, c := range r.claims {
		if c.Range.End <= rng.Start || c.Range.Start >= rng.End {
			claims = append(claims, c)
			continue
		}
		rest, err := rangecollection.New(c.Range)
		if err != nil {
			return err
		}
		if err := rest.Remove(rng); err != nil {
			return err
		}
		for _, piece := range rest.Ranges() {
			claims = append(claims, NewClaim(piece, c.Labels))
		}
	}
	if err := r.used.Remove(rng); err != nil {
		return err
	}
	if err := r.free.Add(rng); err != nil {
		return err
	}
	r.claims = claims
	return nil
}
