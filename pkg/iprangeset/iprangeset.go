package iprangeset

import (
	"fmt"
	"math/big"
	"net/netip"
	"strings"

	"github.com/henderiw/rangecollection/pkg/rangecollection"
	"go4.org/netipx"
)

// IPRangeSet is a set of addresses inside a pool. Addresses are stored as
// offsets from the pool start in a range collection, so adjacent ranges
// merge and removals split exactly like integer ranges.
type IPRangeSet struct {
	pool netipx.IPRange
	rc   *rangecollection.RangeCollection
}

// New returns an empty set for the pool. The pool must not hold more than
// 2^63-1 addresses.
func New(pool netipx.IPRange) (*IPRangeSet, error) {
	if !pool.IsValid() {
		return nil, fmt.Errorf("pool %s is invalid: %w", pool.String(), rangecollection.ErrInvalidRange)
	}
	if !numIPs(pool.From(), pool.To()).IsInt64() {
		return nil, fmt.Errorf("pool %s holds too many addresses", pool.String())
	}
	rc, err := rangecollection.New()
	if err != nil {
		return nil, err
	}
	return &IPRangeSet{pool: pool, rc: rc}, nil
}

// Pool returns the address range the set was created for.
func (r *IPRangeSet) Pool() netipx.IPRange { return r.pool }

func (r *IPRangeSet) AddRange(ipRange netipx.IPRange) error {
	rng, err := r.toRange(ipRange)
	if err != nil {
		return err
	}
	return r.rc.Add(rng)
}

func (r *IPRangeSet) RemoveRange(ipRange netipx.IPRange) error {
	rng, err := r.toRange(ipRange)
	if err != nil {
		return err
	}
	return r.rc.Remove(rng)
}

func (r *IPRangeSet) AddPrefix(p netip.Prefix) error {
	return r.AddRange(netipx.RangeOfPrefix(p))
}

func (r *IPRangeSet) RemovePrefix(p netip.Prefix) error {
	return r.RemoveRange(netipx.RangeOfPrefix(p))
}

func (r *IPRangeSet) Contains(addr netip.Addr) bool {
	if !r.pool.Contains(addr) {
		return false
	}
	return r.rc.Contains(calculateIndex(addr, r.pool.From()))
}

// Count returns the number of addresses in the set.
func (r *IPRangeSet) Count() int64 {
	return int64(r.rc.Len())
}

func (r *IPRangeSet) Ranges() []netipx.IPRange {
	ranges := make([]netipx.IPRange, 0, r.rc.Count())
	for _, rng := range r.rc.Ranges() {
		ranges = append(ranges, netipx.IPRangeFrom(
			calculateIPFromIndex(r.pool.From(), rng.Start),
			calculateIPFromIndex(r.pool.From(), rng.End-1),
		))
	}
	return ranges
}

// IPSet returns the content of the set as a netipx.IPSet.
func (r *IPRangeSet) IPSet() (*netipx.IPSet, error) {
	var b netipx.IPSetBuilder
	for _, ipRange := range r.Ranges() {
		b.AddRange(ipRange)
	}
	return b.IPSet()
}

// String returns the ranges of the set, e.g. "10.0.0.1-10.0.0.4, 10.0.0.9-10.0.0.9".
func (r *IPRangeSet) String() string {
	ranges := r.Ranges()
	s := make([]string, 0, len(ranges))
	for _, ipRange := range ranges {
		s = append(s, ipRange.String())
	}
	return strings.Join(s, ", ")
}

// toRange converts the inclusive ip range into a half-open offset range.
func (r *IPRangeSet) toRange(ipRange netipx.IPRange) (rangecollection.Range, error) {
	if !ipRange.IsValid() {
		return rangecollection.Range{}, fmt.Errorf("ip range %s is invalid: %w", ipRange.String(), rangecollection.ErrInvalidRange)
	}
	if !r.pool.Contains(ipRange.From()) || !r.pool.Contains(ipRange.To()) {
		return rangecollection.Range{}, fmt.Errorf("ip range %s, does not fit in the range from %s to %s: %w",
			ipRange.String(), r.pool.From().String(), r.pool.To().String(), rangecollection.ErrInvalidRange)
	}
	return rangecollection.RangeFrom(
		calculateIndex(ipRange.From(), r.pool.From()),
		calculateIndex(ipRange.To(), r.pool.From())+1,
	), nil
}

func calculateIndex(ip, start netip.Addr) int64 {
	return new(big.Int).Sub(ipToInt(ip), ipToInt(start)).Int64()
}

func numIPs(startIP, endIP netip.Addr) *big.Int {
	diff := new(big.Int).Sub(ipToInt(endIP), ipToInt(startIP))
	return diff.Add(diff, big.NewInt(1))
}

func ipToInt(ip netip.Addr) *big.Int {
	bytes := ip.As16()
	return new(big.Int).SetBytes(bytes[:])
}

func calculateIPFromIndex(startIP netip.Addr, id int64) netip.Addr {
	ipBytes := new(big.Int).Add(ipToInt(startIP), big.NewInt(id)).Bytes()

	// left pad to 16 bytes
	var ip16 [16]byte
	copy(ip16[16-len(ipBytes):], ipBytes)

	if startIP.Is4() {
		return netip.AddrFrom4(netip.AddrFrom16(ip16).As4())
	}
	return netip.AddrFrom16(ip16)
}
