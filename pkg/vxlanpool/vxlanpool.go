package vxlanpool

import (
	"fmt"

	"github.com/henderiw/rangecollection/pkg/rangecollection"
	"github.com/henderiw/rangecollection/pkg/rangetable"
	"k8s.io/apimachinery/pkg/labels"
)

// VXLANPool hands out VNIs from [offset, max).
type VXLANPool interface {
	Get(id int64) (labels.Set, error)
	Claim(id int64, d labels.Set) error
	ClaimDynamic(d labels.Set) (int64, error)
	ClaimRange(r rangecollection.Range, d labels.Set) error
	Release(id int64) error
	Update(id int64, d labels.Set) error

	Count() int64
	Has(id int64) bool

	IsFree(id int64) bool
	FindFree() (int64, error)

	GetAll() rangetable.Claims
}

func New(offset, max int64) (VXLANPool, error) {
	if offset < 0 || max <= offset {
		return nil, fmt.Errorf("invalid vni range offset %d, max %d", offset, max)
	}
	t, err := rangetable.NewTable(max-offset, nil, nil)
	if err != nil {
		return nil, err
	}
	return &vxlanPool{
		table:  t,
		offset: offset,
		max:    max,
	}, nil
}

type vxlanPool struct {
	table  rangetable.Table
	offset int64
	max    int64
}

func (r *vxlanPool) Get(id int64) (labels.Set, error) {
	return r.table.Get(r.calculateIndex(id))
}

func (r *vxlanPool) Claim(id int64, d labels.Set) error {
	idx := r.calculateIndex(id)
	if r.table.Has(idx) {
		return fmt.Errorf("id %d is already claimed", id)
	}
	return r.table.Claim(idx, d)
}

func (r *vxlanPool) ClaimDynamic(d labels.Set) (int64, error) {
	id, err := r.table.ClaimDynamic(d)
	if err != nil {
		return -1, err
	}
	return id + r.offset, nil
}

func (r *vxlanPool) ClaimRange(rng rangecollection.Range, d labels.Set) error {
	return r.table.ClaimRange(rangecollection.RangeFrom(r.calculateIndex(rng.Start), r.calculateIndex(rng.End)), d)
}

func (r *vxlanPool) Release(id int64) error {
	return r.table.Release(r.calculateIndex(id))
}

func (r *vxlanPool) Update(id int64, d labels.Set) error {
	return r.table.Update(r.calculateIndex(id), d)
}

func (r *vxlanPool) Count() int64 {
	return r.table.Count()
}

func (r *vxlanPool) Has(id int64) bool {
	return r.table.Has(r.calculateIndex(id))
}

func (r *vxlanPool) IsFree(id int64) bool {
	return r.table.IsFree(r.calculateIndex(id))
}

func (r *vxlanPool) FindFree() (int64, error) {
	id, err := r.table.FindFree()
	if err != nil {
		return -1, err
	}
	return id + r.offset, nil
}

// GetAll returns the claims in VNI space.
func (r *vxlanPool) GetAll() rangetable.Claims {
	claims := r.table.GetAll()
	for i := range claims {
		claims[i].Range = rangecollection.RangeFrom(claims[i].Range.Start+r.offset, claims[i].Range.End+r.offset)
	}
	return claims
}

func (r *vxlanPool) calculateIndex(id int64) int64 {
	return id - r.offset
}
