package domain

import (
	"sort"
	"strings"
	"unicode"
)

// AllocationEpsilon is the remaining weight below which a requirement counts as met
const AllocationEpsilon = 0.0001

// Candidate is a lot that may supply weight to a requirement
type Candidate struct {
	LotID       string
	InternalLot string
	Available   float64
	Priority    bool
}

// Take is the weight drawn from one lot
type Take struct {
	LotID  string  `json:"lotId"`
	Weight float64 `json:"weight"`
}

// Allocation is the outcome of drawing a required weight from candidates
type Allocation struct {
	Takes     []Take  `json:"takes"`
	Shortfall float64 `json:"shortfall"`
}

// Total is the weight actually drawn
func (a Allocation) Total() float64 {
	total := 0.0
	for _, t := range a.Takes {
		total += t.Weight
	}
	return total
}

// Allocate draws required from candidates greedily. Priority lots go first,
// then lots in natural order of their internal label. Under-supply is not an
// error; the missing weight is reported as Shortfall.
func Allocate(candidates []Candidate, required float64) Allocation {
	if required <= 0 {
		return Allocation{}
	}

	ordered := make([]Candidate, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		if a.Priority != b.Priority {
			return a.Priority
		}
		if c := naturalCompare(a.InternalLot, b.InternalLot); c != 0 {
			return c < 0
		}
		return a.LotID < b.LotID
	})

	var result Allocation
	remaining := required
	for _, c := range ordered {
		if remaining <= AllocationEpsilon {
			break
		}
		take := c.Available
		if take > remaining {
			take = remaining
		}
		if take <= 0 {
			continue
		}
		result.Takes = append(result.Takes, Take{LotID: c.LotID, Weight: take})
		remaining -= take
	}
	if remaining > AllocationEpsilon {
		result.Shortfall = remaining
	}
	return result
}

// Distributor allocates several requirements against one stock snapshot.
// Weight drawn by an earlier requirement is not available to later ones,
// so a lot listed under two roles is never overdrawn.
type Distributor struct {
	stock    map[string]*StockItem
	consumed map[string]float64
	order    []string
}

// NewDistributor builds a distributor over the given lots
func NewDistributor(stock []*StockItem) *Distributor {
	d := &Distributor{
		stock:    make(map[string]*StockItem, len(stock)),
		consumed: make(map[string]float64),
	}
	for _, s := range stock {
		d.stock[strings.TrimSpace(s.StockID)] = s
	}
	return d
}

// Distribute draws required from lotIDs. Unknown lots are skipped.
func (d *Distributor) Distribute(lotIDs []string, required float64) Allocation {
	candidates := make([]Candidate, 0, len(lotIDs))
	for _, id := range lotIDs {
		item, ok := d.stock[strings.TrimSpace(id)]
		if !ok {
			continue
		}
		available := item.RemainingQuantity - d.consumed[item.StockID]
		if available < 0 {
			available = 0
		}
		candidates = append(candidates, Candidate{
			LotID:       item.StockID,
			InternalLot: item.InternalLot,
			Available:   available,
			Priority:    item.IsTrussPriority(),
		})
	}

	alloc := Allocate(candidates, required)
	for _, t := range alloc.Takes {
		if _, seen := d.consumed[t.LotID]; !seen {
			d.order = append(d.order, t.LotID)
		}
		d.consumed[t.LotID] += t.Weight
	}
	return alloc
}

// Consumed returns the total drawn from lotID so far
func (d *Distributor) Consumed(lotID string) float64 {
	return d.consumed[lotID]
}

// ConsumedLots returns the lots drawn from, in first-touch order
func (d *Distributor) ConsumedLots() []string {
	return append([]string(nil), d.order...)
}

// naturalCompare orders strings so that embedded numbers compare by value,
// case-insensitively: "L2" < "L10".
func naturalCompare(a, b string) int {
	ar, br := []rune(a), []rune(b)
	i, j := 0, 0
	for i < len(ar) && j < len(br) {
		if unicode.IsDigit(ar[i]) && unicode.IsDigit(br[j]) {
			si := i
			for i < len(ar) && unicode.IsDigit(ar[i]) {
				i++
			}
			sj := j
			for j < len(br) && unicode.IsDigit(br[j]) {
				j++
			}
			na := strings.TrimLeft(string(ar[si:i]), "0")
			nb := strings.TrimLeft(string(br[sj:j]), "0")
			if len(na) != len(nb) {
				if len(na) < len(nb) {
					return -1
				}
				return 1
			}
			if na != nb {
				if na < nb {
					return -1
				}
				return 1
			}
			continue
		}
		ca, cb := unicode.ToLower(ar[i]), unicode.ToLower(br[j])
		if ca != cb {
			if ca < cb {
				return -1
			}
			return 1
		}
		i++
		j++
	}
	switch {
	case len(ar)-i < len(br)-j:
		return -1
	case len(ar)-i > len(br)-j:
		return 1
	default:
		return 0
	}
}
