package rangetable

import (
	"fmt"

	"github.com/henderiw/rangecollection/pkg/rangecollection"
	"k8s.io/apimachinery/pkg/labels"
)

// Claim is a contiguous range of IDs owned by one set of labels.
type Claim struct {
	Range  rangecollection.Range
	Labels labels.Set
}

type Claims []Claim

func NewClaim(r rangecollection.Range, l labels.Set) Claim {
	return Claim{Range: r, Labels: l}
}

func (r Claim) String() string {
	return fmt.Sprintf("range: %s, labels: %s", r.Range, r.Labels.String())
}

func (r Claim) Equal(c2 Claim) bool {
	return r.Range == c2.Range && r.Labels.String() == c2.Labels.String()
}
