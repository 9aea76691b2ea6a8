package vlanpool

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/henderiw/rangecollection/pkg/rangecollection"
	"github.com/henderiw/rangecollection/pkg/rangetable"
	"k8s.io/apimachinery/pkg/labels"
)

const (
	untaggedVLAN = 0
	defaultVLAN  = 1
	maxVLAN      = 4095
	vlanBitSize  = 12
)

type VLANPool interface {
	Get(id int64) (labels.Set, error)
	Claim(id int64, d labels.Set) error
	ClaimDynamic(d labels.Set) (int64, error)
	ClaimRange(s string, d labels.Set) error
	Release(id int64) error
	ReleaseRange(s string) error
	Update(id int64, d labels.Set) error

	Count() int64
	Has(id int64) bool

	IsFree(id int64) bool
	FindFree() (int64, error)

	GetAll() rangetable.Claims
	GetByLabel(selector labels.Selector) rangetable.Claims
	Free() string
}

var initEntries = rangetable.Claims{
	rangetable.NewClaim(rangecollection.RangeFrom(untaggedVLAN, defaultVLAN+1), map[string]string{"type": "untagged", "status": "reserved"}),
	rangetable.NewClaim(rangecollection.RangeFrom(maxVLAN, maxVLAN+1), map[string]string{"type": "reserved", "status": "reserved"}),
}

func New() (VLANPool, error) {
	t, err := rangetable.NewTable(
		maxVLAN+1,
		initEntries,
		func(r rangecollection.Range) error {
			switch {
			case r.Contains(untaggedVLAN):
				return fmt.Errorf("VLAN %d is the untagged VLAN, cannot be added to the database", untaggedVLAN)
			case r.Contains(defaultVLAN):
				return fmt.Errorf("VLAN %d is the default VLAN, cannot be added to the database", defaultVLAN)
			case r.Contains(maxVLAN):
				return fmt.Errorf("VLAN %d is reserved, cannot be added to the database", maxVLAN)
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	return &vlanPool{
		table: t,
	}, nil
}

type vlanPool struct {
	table rangetable.Table
}

// ParseRange parses an inclusive VLAN range such as "100-200" into the
// half-open range [100, 201).
func ParseRange(s string) (rangecollection.Range, error) {
	var r rangecollection.Range
	h := strings.IndexByte(s, '-')
	if h == -1 {
		return r, fmt.Errorf("no hyphen in range %q", s)
	}
	from, to := strings.TrimSpace(s[:h]), strings.TrimSpace(s[h+1:])
	fromID, err := strconv.ParseUint(from, 10, vlanBitSize)
	if err != nil {
		return r, fmt.Errorf("invalid from id %q in range %q: %w", from, s, rangecollection.ErrInvalidRange)
	}
	toID, err := strconv.ParseUint(to, 10, vlanBitSize)
	if err != nil {
		return r, fmt.Errorf("invalid to id %q in range %q: %w", to, s, rangecollection.ErrInvalidRange)
	}
	if fromID > toID {
		return r, fmt.Errorf("from id %d is bigger then to id %d: %w", fromID, toID, rangecollection.ErrInvalidRange)
	}
	return rangecollection.RangeFrom(int64(fromID), int64(toID)+1), nil
}

func (r *vlanPool) Get(id int64) (labels.Set, error) {
	return r.table.Get(id)
}

func (r *vlanPool) Claim(id int64, d labels.Set) error {
	if !r.table.IsFree(id) {
		return fmt.Errorf("id %d is already claimed", id)
	}
	return r.table.Claim(id, d)
}

func (r *vlanPool) ClaimDynamic(d labels.Set) (int64, error) {
	return r.table.ClaimDynamic(d)
}

func (r *vlanPool) ClaimRange(s string, d labels.Set) error {
	rng, err := ParseRange(s)
	if err != nil {
		return err
	}
	return r.table.ClaimRange(rng, d)
}

func (r *vlanPool) Release(id int64) error {
	return r.table.Release(id)
}

func (r *vlanPool) ReleaseRange(s string) error {
	rng, err := ParseRange(s)
	if err != nil {
		return err
	}
	return r.table.ReleaseRange(rng)
}

func (r *vlanPool) Update(id int64, d labels.Set) error {
	return r.table.Update(id, d)
}

func (r *vlanPool) Count() int64 {
	return r.table.Count()
}

func (r *vlanPool) Has(id int64) bool {
	return r.table.Has(id)
}

func (r *vlanPool) IsFree(id int64) bool {
	return r.table.IsFree(id)
}

func (r *vlanPool) FindFree() (int64, error) {
	return r.table.FindFree()
}

func (r *vlanPool) GetAll() rangetable.Claims {
	return r.table.GetAll()
}

func (r *vlanPool) GetByLabel(selector labels.Selector) rangetable.Claims {
	return r.table.GetByLabel(selector)
}

func (r *vlanPool) Free() string {
	return r.table.Free()
}
