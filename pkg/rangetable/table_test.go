package rangetable

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/henderiw/rangecollection/pkg/rangecollection"
	"github.com/stretchr/testify/assert"
	"k8s.io/apimachinery/pkg/labels"
)

var initEntries = Claims{
	NewClaim(rangecollection.RangeFrom(0, 2), labels.Set{"status": "reserved"}),
	NewClaim(rangecollection.RangeFrom(999, 1000), labels.Set{"status": "reserved"}),
}

func TestNewTable(t *testing.T) {
	cases := map[string]struct {
		size            int64
		initEntries     Claims
		validation      ValidationFn
		expectedEntries int64
		expectedUsed    string
		expectedErr     bool
	}{

		"NewWithoutInitEntries": {
			size:            1000,
			initEntries:     nil,
			expectedEntries: 0,
		},
		"NewWithInitEntries": {
			size:            1000,
			initEntries:     initEntries,
			validation:      func(r rangecollection.Range) error { return errors.New("not called on init") },
			expectedEntries: 3,
			expectedUsed:    "[0, 2), [999, 1000)",
		},
		"NewErrorMaxEntries": {
			size:        100,
			initEntries: initEntries,
			expectedErr: true,
		},
		"NewErrorOverlap": {
			size: 100,
			initEntries: Claims{
				NewClaim(rangecollection.RangeFrom(0, 10), nil),
				NewClaim(rangecollection.RangeFrom(5, 15), nil),
			},
			expectedErr: true,
		},
		"NewErrorSize": {
			size:        0,
			expectedErr: true,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := NewTable(tc.size, tc.initEntries, tc.validation)
			if tc.expectedErr {
				assert.Error(t, err)
				return
			} else {
				assert.NoError(t, err)
			}
			if r.Count() != tc.expectedEntries {
				t.Errorf("%s: -want %d, +got: %d\n", name, tc.expectedEntries, r.Count())
			}
			assert.Equal(t, tc.expectedUsed, r.Used())
		})
	}
}

func TestClaim(t *testing.T) {
	cases := map[string]struct {
		size              int64
		initEntries       Claims
		newSuccessEntries map[int64]labels.Set
		newFailedEntries  map[int64]labels.Set
		expectedEntries   int64
		expectedFree      string
	}{

		"Normal": {
			size:        1000,
			initEntries: initEntries,
			newSuccessEntries: map[int64]labels.Set{
				10: {"a": "b"},
				11: {"a": "c"},
			},
			newFailedEntries: map[int64]labels.Set{
				1000: {},
				-1:   {},
				0:    {},
			},
			expectedEntries: 5,
			expectedFree:    "[2, 10), [12, 999)",
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := NewTable(tc.size, tc.initEntries, nil)
			assert.NoError(t, err)

			for id, d := range tc.newSuccessEntries {
				err := r.Claim(id, d)
				assert.NoError(t, err)
			}
			for id, d := range tc.newFailedEntries {
				err := r.Claim(id, d)
				assert.Error(t, err)
			}
			// check table
			for _, c := range tc.initEntries {
				if !r.Has(c.Range.Start) {
					t.Errorf("%s expecting initEntry: %s\n", name, c.Range)
				}
			}
			for id, d := range tc.newSuccessEntries {
				if !r.Has(id) {
					t.Errorf("%s expecting success claim entry: %d\n", name, id)
				}
				got, err := r.Get(id)
				assert.NoError(t, err)
				assert.Equal(t, d, got)
			}
			if r.Count() != tc.expectedEntries {
				t.Errorf("%s: -want %d, +got: %d\n", name, tc.expectedEntries, r.Count())
			}
			assert.Equal(t, tc.expectedFree, r.Free())
		})
	}
}

func TestRelease(t *testing.T) {
	cases := map[string]struct {
		size                 int64
		initEntries          Claims
		claims               Claims
		release              []rangecollection.Range
		expectedClaims       Claims
		expectedFree         string
		expectedReleaseError bool
	}{

		"Normal": {
			size:        1000,
			initEntries: initEntries,
			claims: Claims{
				NewClaim(rangecollection.RangeFrom(10, 11), labels.Set{"a": "b"}),
				NewClaim(rangecollection.RangeFrom(11, 12), labels.Set{"a": "c"}),
			},
			release: []rangecollection.Range{
				rangecollection.RangeFrom(0, 1),
				rangecollection.RangeFrom(10, 12),
				rangecollection.RangeFrom(20, 22),
			},
			expectedClaims: Claims{
				NewClaim(rangecollection.RangeFrom(1, 2), labels.Set{"status": "reserved"}),
				NewClaim(rangecollection.RangeFrom(999, 1000), labels.Set{"status": "reserved"}),
			},
			expectedFree: "[0, 1), [2, 999)",
		},
		"SplitClaim": {
			size: 100,
			claims: Claims{
				NewClaim(rangecollection.RangeFrom(10, 30), labels.Set{"owner": "x"}),
			},
			release: []rangecollection.Range{
				rangecollection.RangeFrom(15, 20),
			},
			expectedClaims: Claims{
				NewClaim(rangecollection.RangeFrom(10, 15), labels.Set{"owner": "x"}),
				NewClaim(rangecollection.RangeFrom(20, 30), labels.Set{"owner": "x"}),
			},
			expectedFree: "[0, 10), [15, 20), [30, 100)",
		},
		"SpanClaims": {
			size: 100,
			claims: Claims{
				NewClaim(rangecollection.RangeFrom(10, 20), labels.Set{"owner": "x"}),
				NewClaim(rangecollection.RangeFrom(20, 30), labels.Set{"owner": "y"}),
				NewClaim(rangecollection.RangeFrom(40, 50), labels.Set{"owner": "z"}),
			},
			release: []rangecollection.Range{
				rangecollection.RangeFrom(15, 45),
			},
			expectedClaims: Claims{
				NewClaim(rangecollection.RangeFrom(10, 15), labels.Set{"owner": "x"}),
				NewClaim(rangecollection.RangeFrom(45, 50), labels.Set{"owner": "z"}),
			},
			expectedFree: "[0, 10), [15, 45), [50, 100)",
		},
		"ErrorOutOfBounds": {
			size:                 100,
			release:              []rangecollection.Range{rangecollection.RangeFrom(90, 101)},
			expectedClaims:       Claims{},
			expectedFree:         "[0, 100)",
			expectedReleaseError: true,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := NewTable(tc.size, tc.initEntries, nil)
			assert.NoError(t, err)

			for _, c := range tc.claims {
				err := r.ClaimRange(c.Range, c.Labels)
				assert.NoError(t, err)
			}
			for _, rng := range tc.release {
				err := r.ReleaseRange(rng)
				if tc.expectedReleaseError {
					assert.Error(t, err)
				} else {
					assert.NoError(t, err)
				}
			}
			if diff := cmp.Diff(tc.expectedClaims, r.GetAll()); diff != "" {
				t.Errorf("%s: -want, +got:\n%s", name, diff)
			}
			assert.Equal(t, tc.expectedFree, r.Free())
		})
	}
}

func TestReleaseSingle(t *testing.T) {
	r, err := NewTable(1000, initEntries, nil)
	assert.NoError(t, err)

	assert.NoError(t, r.Claim(10, labels.Set{"a": "b"}))
	assert.NoError(t, r.Release(10))
	assert.NoError(t, r.Release(20))

	_, err = r.Get(10)
	assert.Error(t, err)
	assert.False(t, r.Has(10))
	assert.True(t, r.IsFree(10))
	assert.Equal(t, int64(3), r.Count())
}

func TestIterate(t *testing.T) {
	cases := map[string]struct {
		size        int64
		initEntries Claims
		ranges      []rangecollection.Range
		consecutive []bool
	}{

		"Normal": {
			size: 1000,
			initEntries: append(Claims{
				NewClaim(rangecollection.RangeFrom(2, 5), nil),
			}, initEntries...),
			ranges: []rangecollection.Range{
				rangecollection.RangeFrom(0, 2),
				rangecollection.RangeFrom(2, 5),
				rangecollection.RangeFrom(999, 1000),
			},
			consecutive: []bool{false, true, false},
		},
		"None": {
			size:        1000,
			initEntries: nil,
			ranges:      []rangecollection.Range{},
			consecutive: []bool{},
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := NewTable(tc.size, tc.initEntries, nil)
			assert.NoError(t, err)

			ranges := []rangecollection.Range{}
			consecutive := []bool{}
			all := r.GetAll()
			i := r.Iterate()
			for i.Next() {
				if !i.Value().Equal(all[len(ranges)]) {
					t.Errorf("%s: -want %s, +got: %s\n", name, all[len(ranges)], i.Value())
				}
				ranges = append(ranges, i.Value().Range)
				consecutive = append(consecutive, i.IsConsecutive())
			}
			if diff := cmp.Diff(tc.ranges, ranges); diff != "" {
				t.Errorf("%s: -want, +got:\n%s", name, diff)
			}
			if diff := cmp.Diff(tc.consecutive, consecutive); diff != "" {
				t.Errorf("%s: -want, +got:\n%s", name, diff)
			}
		})
	}
}

func TestClaimRange(t *testing.T) {
	cases := map[string]struct {
		size            int64
		initEntries     Claims
		rng             rangecollection.Range
		expectedEntries int64
		expectedErr     bool
	}{

		"Normal": {
			size:            10,
			initEntries:     nil,
			rng:             rangecollection.RangeFrom(5, 10),
			expectedEntries: 5,
		},
		"Empty": {
			size:            10,
			rng:             rangecollection.RangeFrom(5, 5),
			expectedEntries: 0,
		},
		"ErrorMax": {
			size:        10,
			initEntries: nil,
			rng:         rangecollection.RangeFrom(5, 11),
			expectedErr: true,
		},
		"ErrorReversed": {
			size:        10,
			rng:         rangecollection.RangeFrom(5, 3),
			expectedErr: true,
		},
		"ErrorOverlap": {
			size:        1000,
			initEntries: initEntries,
			rng:         rangecollection.RangeFrom(0, 5),
			expectedErr: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := NewTable(tc.size, tc.initEntries, nil)
			assert.NoError(t, err)

			err = r.ClaimRange(tc.rng, labels.Set{"a": "b"})
			if tc.expectedErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			for id := tc.rng.Start; id < tc.rng.End; id++ {
				if !r.Has(id) {
					t.Errorf("%s expecting entry: %d\n", name, id)
				}
			}

			if r.Count() != tc.expectedEntries {
				t.Errorf("%s: -want %d, +got: %d\n", name, tc.expectedEntries, r.Count())
			}
		})
	}
}

func TestClaimSize(t *testing.T) {
	cases := map[string]struct {
		size            int64
		initEntries     Claims
		total           int64
		expectedRange   rangecollection.Range
		expectedEntries int64
		expectedErr     bool
	}{

		"Normal": {
			size:            1000,
			total:           1000,
			expectedRange:   rangecollection.RangeFrom(0, 1000),
			expectedEntries: 1000,
		},
		"FirstFit": {
			size: 100,
			initEntries: Claims{
				NewClaim(rangecollection.RangeFrom(3, 5), nil),
				NewClaim(rangecollection.RangeFrom(10, 11), nil),
			},
			total:           4,
			expectedRange:   rangecollection.RangeFrom(5, 9),
			expectedEntries: 7,
		},
		"ErrorMax": {
			size:        10,
			total:       11,
			expectedErr: true,
		},
		"ErrorFragmented": {
			size: 10,
			initEntries: Claims{
				NewClaim(rangecollection.RangeFrom(4, 5), nil),
			},
			total:       6,
			expectedErr: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := NewTable(tc.size, tc.initEntries, nil)
			assert.NoError(t, err)

			rng, err := r.ClaimSize(tc.total, labels.Set{"a": "b"})
			if tc.expectedErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expectedRange, rng)

			if r.Count() != tc.expectedEntries {
				t.Errorf("%s: -want %d, +got: %d\n", name, tc.expectedEntries, r.Count())
			}
		})
	}
}

func TestFindFreeSize(t *testing.T) {
	cases := map[string]struct {
		size          int64
		initEntries   Claims
		total         int64
		expectedRange rangecollection.Range
		expectedErr   bool
	}{
		"Normal": {
			size:          1000,
			initEntries:   initEntries,
			total:         10,
			expectedRange: rangecollection.RangeFrom(2, 12),
		},
		"FirstFit": {
			size: 100,
			initEntries: Claims{
				NewClaim(rangecollection.RangeFrom(0, 2), nil),
				NewClaim(rangecollection.RangeFrom(5, 50), nil),
			},
			total:         5,
			expectedRange: rangecollection.RangeFrom(50, 55),
		},
		"ExactFit": {
			size: 10,
			initEntries: Claims{
				NewClaim(rangecollection.RangeFrom(0, 2), nil),
				NewClaim(rangecollection.RangeFrom(5, 10), nil),
			},
			total:         3,
			expectedRange: rangecollection.RangeFrom(2, 5),
		},
		"WholeTable": {
			size:          10,
			total:         10,
			expectedRange: rangecollection.RangeFrom(0, 10),
		},
		"ErrorFragmented": {
			size: 10,
			initEntries: Claims{
				NewClaim(rangecollection.RangeFrom(3, 4), nil),
				NewClaim(rangecollection.RangeFrom(7, 8), nil),
			},
			total:       4,
			expectedErr: true,
		},
		"ErrorBiggerThenTable": {
			size:        10,
			total:       11,
			expectedErr: true,
		},
		"ErrorFull": {
			size:        2,
			initEntries: Claims{NewClaim(rangecollection.RangeFrom(0, 2), nil)},
			total:       1,
			expectedErr: true,
		},
		"ErrorZero": {
			size:        10,
			total:       0,
			expectedErr: true,
		},
		"ErrorNegative": {
			size:        10,
			total:       -1,
			expectedErr: true,
		},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			r, err := NewTable(tc.size, tc.initEntries, nil)
			assert.NoError(t, err)
			assert.Equal(t, tc.size, r.Size())

			count, used := r.Count(), r.Used()
			rng, err := r.FindFreeSize(tc.total)
			if tc.expectedErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
				assert.Equal(t, tc.expectedRange, rng)
				assert.Equal(t, uint64(tc.total), rng.Len())
			}
			// finding a free range never claims it
			assert.Equal(t, count, r.Count())
			assert.Equal(t, used, r.Used())
		})
	}
}

func TestClaimEqual(t *testing.T) {
	c := NewClaim(rangecollection.RangeFrom(1, 5), labels.Set{"a": "b", "c": "d"})
	cases := map[string]struct {
		other    Claim
		expected bool
	}{
		"Same": {
			other:    NewClaim(rangecollection.RangeFrom(1, 5), labels.Set{"c": "d", "a": "b"}),
			expected: true,
		},
		"OtherRange": {
			other:    NewClaim(rangecollection.RangeFrom(1, 6), labels.Set{"a": "b", "c": "d"}),
			expected: false,
		},
		"OtherLabels": {
			other:    NewClaim(rangecollection.RangeFrom(1, 5), labels.Set{"a": "b"}),
			expected: false,
		},
		"NoLabels": {
			other:    NewClaim(rangecollection.RangeFrom(1, 5), nil),
			expected: false,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.expected, c.Equal(tc.other))
			assert.Equal(t, tc.expected, tc.other.Equal(c))
		})
	}
	assert.True(t, NewClaim(rangecollection.RangeFrom(0, 1), nil).Equal(NewClaim(rangecollection.RangeFrom(0, 1), labels.Set{})))
}

func TestClaimDynamic(t *testing.T) {
	r, err := NewTable(3, Claims{NewClaim(rangecollection.RangeFrom(0, 1), nil)}, nil)
	assert.NoError(t, err)

	id, err := r.ClaimDynamic(labels.Set{"a": "b"})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), id)

	free, err := r.FindFree()
	assert.NoError(t, err)
	assert.Equal(t, int64(2), free)

	_, err = r.ClaimDynamic(nil)
	assert.NoError(t, err)
	_, err = r.ClaimDynamic(nil)
	assert.Error(t, err)
	_, err = r.FindFree()
	assert.Error(t, err)
}

func TestUpdateAndGetByLabel(t *testing.T) {
	r, err := NewTable(100, nil, func(rng rangecollection.Range) error {
		if rng.Contains(50) {
			return errors.New("50 is reserved")
		}
		return nil
	})
	assert.NoError(t, err)

	assert.NoError(t, r.ClaimRange(rangecollection.RangeFrom(10, 20), labels.Set{"tenant": "a"}))
	assert.NoError(t, r.ClaimRange(rangecollection.RangeFrom(30, 35), labels.Set{"tenant": "b"}))
	assert.Error(t, r.ClaimRange(rangecollection.RangeFrom(45, 55), labels.Set{"tenant": "c"}))

	assert.NoError(t, r.Update(12, labels.Set{"tenant": "b"}))
	assert.Error(t, r.Update(25, labels.Set{"tenant": "b"}))

	selector, err := labels.Parse("tenant=b")
	assert.NoError(t, err)
	got := r.GetByLabel(selector)
	expected := Claims{
		NewClaim(rangecollection.RangeFrom(10, 20), labels.Set{"tenant": "b"}),
		NewClaim(rangecollection.RangeFrom(30, 35), labels.Set{"tenant": "b"}),
	}
	if diff := cmp.Diff(expected, got); diff != "" {
		t.Errorf("-want, +got:\n%s", diff)
	}
	assert.Equal(t, "[10, 20), [30, 35)", r.Used())
	for i := range expected {
		assert.True(t, got[i].Equal(expected[i]), "claim %d: %s", i, got[i])
	}
	assert.False(t, got[0].Equal(NewClaim(rangecollection.RangeFrom(10, 20), labels.Set{"tenant": "a"})))
}
