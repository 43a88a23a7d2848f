// Package draft keeps the in-progress roll call of each user: the pavilions and
// cells being counted and the tallies so far. Drafts are a convenience cache and
// never authoritative; a lost draft only loses the unfinished count.
package draft

import (
	"context"
	"time"
)

// Cell is one cell of a pavilion with its expected and counted headcount.
type Cell struct {
	ID       string `json:"id" validate:"required"`
	Expected int    `json:"expected" validate:"gte=0"`
	Checked  int    `json:"checked" validate:"gte=0"`
}

// Pavilion groups the cells counted together.
type Pavilion struct {
	Name  string `json:"name" validate:"required"`
	Cells []Cell `json:"cells" validate:"dive"`
}

// Draft is a user's unfinished roll call.
type Draft struct {
	Pavilions []Pavilion `json:"pavilions" validate:"dive"`
	Note      string     `json:"note"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// Totals sums the expected and checked counts over every cell.
func (d Draft) Totals() (expected, checked int) {
	for _, p := range d.Pavilions {
		for _, c := range p.Cells {
			expected += c.Expected
			checked += c.Checked
		}
	}
	return expected, checked
}

// Store persists one draft per user. Load returns nil when the user has none.
type Store interface {
	Save(ctx context.Context, userID string, d Draft) error
	Load(ctx context.Context, userID string) (*Draft, error)
	Discard(ctx context.Context, userID string) error
}
