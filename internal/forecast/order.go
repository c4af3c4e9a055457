package forecast

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/couchcryptid/flood-data-etl/internal/domain"
)

// maxOrder bounds every polynomial degree so a typo cannot ask for a model
// with hundreds of parameters.
const maxOrder = 5

// Order is the non-seasonal (p, d, q) part of a model.
type Order struct {
	P int `json:"p"`
	D int `json:"d"`
	Q int `json:"q"`
}

// SeasonalOrder is the seasonal (P, D, Q, s) part of a model.
type SeasonalOrder struct {
	P int `json:"p"`
	D int `json:"d"`
	Q int `json:"q"`
	S int `json:"s"`
}

// DefaultOrder and DefaultSeasonalOrder are used when the caller supplies none.
var (
	DefaultOrder         = Order{P: 1, D: 0, Q: 1}
	DefaultSeasonalOrder = SeasonalOrder{P: 1, D: 0, Q: 1, S: 12}
)

func (o Order) String() string { return fmt.Sprintf("(%d,%d,%d)", o.P, o.D, o.Q) }

func (s SeasonalOrder) String() string {
	return fmt.Sprintf("(%d,%d,%d,%d)", s.P, s.D, s.Q, s.S)
}

// Validate checks every degree is in range.
func (o Order) Validate() error {
	for _, v := range []int{o.P, o.D, o.Q} {
		if v < 0 || v > maxOrder {
			return fmt.Errorf("%w: order %s: degrees must be between 0 and %d", domain.ErrInvalidOptions, o, maxOrder)
		}
	}
	return nil
}

// Validate checks every degree is in range and the period is usable.
func (s SeasonalOrder) Validate() error {
	for _, v := range []int{s.P, s.D, s.Q} {
		if v < 0 || v > maxOrder {
			return fmt.Errorf("%w: seasonal order %s: degrees must be between 0 and %d", domain.ErrInvalidOptions, s, maxOrder)
		}
	}
	seasonal := s.P+s.D+s.Q > 0
	if seasonal && s.S < 2 {
		return fmt.Errorf("%w: seasonal order %s: period must be at least 2", domain.ErrInvalidOptions, s)
	}
	if s.S < 0 {
		return fmt.Errorf("%w: seasonal order %s: period must not be negative", domain.ErrInvalidOptions, s)
	}
	return nil
}

// ParseOrder reads "p,d,q".
func ParseOrder(s string) (Order, error) {
	v, err := parseInts(s, 3)
	if err != nil {
		return Order{}, fmt.Errorf("%w: order %q: %v", domain.ErrInvalidOptions, s, err)
	}
	return Order{P: v[0], D: v[1], Q: v[2]}, nil
}

// ParseSeasonalOrder reads "P,D,Q,s".
func ParseSeasonalOrder(s string) (SeasonalOrder, error) {
	v, err := parseInts(s, 4)
	if err != nil {
		return SeasonalOrder{}, fmt.Errorf("%w: seasonal order %q: %v", domain.ErrInvalidOptions, s, err)
	}
	return SeasonalOrder{P: v[0], D: v[1], Q: v[2], S: v[3]}, nil
}

func parseInts(s string, n int) ([]int, error) {
	s = strings.Trim(strings.TrimSpace(s), "()")
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma-separated integers", n)
	}
	out := make([]int, n)
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
