// Package taco is a small record store of taco designs with a reactive
// facade in front of it.
package taco

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
)

type Taco struct {
	ID          int64     `json:"id" yaml:"id"`
	Name        string    `json:"name" yaml:"name"`
	Ingredients []string  `json:"ingredients" yaml:"ingredients"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
}

func (t Taco) String() string {
	return fmt.Sprintf("#%d %s [%s]", t.ID, t.Name, strings.Join(t.Ingredients, ", "))
}

// PageRequest selects one page of designs, newest first.
type PageRequest struct {
	Page int
	Size int
}

type Page struct {
	Content []Taco
	Number  int
	Size    int
	Total   int
}

// Repository is the blocking store the reactive facade wraps.
type Repository interface {
	FindAll(ctx context.Context, req PageRequest) (Page, error)
	FindByID(ctx context.Context, id int64) (Taco, bool, error)
	Save(ctx context.Context, t Taco) (Taco, error)
}

// newestFirst orders by creation time descending, ids breaking ties.
func newestFirst(tacos []Taco) {
	sort.SliceStable(tacos, func(i, j int) bool {
		if tacos[i].CreatedAt.Equal(tacos[j].CreatedAt) {
			return tacos[i].ID > tacos[j].ID
		}
		return tacos[i].CreatedAt.After(tacos[j].CreatedAt)
	})
}

func paginate(all []Taco, req PageRequest) Page {
	page := Page{Number: req.Page, Size: req.Size, Total: len(all)}
	if req.Size <= 0 {
		page.Content = all
		return page
	}
	from := req.Page * req.Size
	if from >= len(all) || from < 0 {
		page.Content = []Taco{}
		return page
	}
	to := from + req.Size
	if to > len(all) {
		to = len(all)
	}
	page.Content = all[from:to]
	return page
}
