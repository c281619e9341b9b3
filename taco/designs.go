package taco

import (
	"context"

	reactive "github.com/iamtaegu/reactiveProgramming"
	"github.com/iamtaegu/reactiveProgramming/rx"
)

// Designs exposes a Repository as publishers. Each publisher queries the
// repository when subscribed, not when built.
type Designs struct {
	repo   Repository
	recent int
}

func NewDesigns(repo Repository) *Designs {
	recent := reactive.Settings().GetIntDefault(reactive.KeyTacoRecent, reactive.DefaultTacoRecent)
	if recent <= 0 {
		recent = reactive.DefaultTacoRecent
	}
	return &Designs{repo: repo, recent: recent}
}

// Recent publishes the most recent designs, newest first.
func (d *Designs) Recent(ctx context.Context) rx.Publisher[Taco] {
	return rx.Defer(func() rx.Publisher[Taco] {
		page, err := d.repo.FindAll(ctx, PageRequest{Page: 0, Size: d.recent})
		if err != nil {
			return rx.Error[Taco](reactive.E(reactive.UpstreamFailure, "recent", err))
		}
		return rx.Via(rx.FromSlice(page.Content), rx.Take[Taco](int64(d.recent)))
	})
}

// ByID publishes the design with the given id, or completes empty.
func (d *Designs) ByID(ctx context.Context, id int64) rx.Publisher[Taco] {
	return rx.Defer(func() rx.Publisher[Taco] {
		t, ok, err := d.repo.FindByID(ctx, id)
		switch {
		case err != nil:
			return rx.Error[Taco](reactive.E(reactive.UpstreamFailure, "byId", err))
		case !ok:
			return rx.Empty[Taco]()
		default:
			return rx.Just(t)
		}
	})
}

// Post saves every design of pub and publishes the stored records.
func (d *Designs) Post(ctx context.Context, pub rx.Publisher[Taco]) rx.Publisher[Taco] {
	return rx.Via(pub, rx.MapErr(func(t Taco) (Taco, error) {
		return d.repo.Save(ctx, t)
	}))
}
