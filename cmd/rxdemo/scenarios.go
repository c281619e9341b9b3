package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/iamtaegu/reactiveProgramming/rx"
	"github.com/iamtaegu/reactiveProgramming/rx/celfilter"
	"github.com/iamtaegu/reactiveProgramming/scheduler"
)

type scenario struct {
	desc  string
	build func(sched scheduler.Scheduler) rx.Publisher[string]
}

func show[T any]() rx.Operator[T, string] {
	return rx.Map(func(v T) string { return fmt.Sprint(v) })
}

func characters(sched scheduler.Scheduler) rx.Publisher[string] {
	return rx.Via(rx.Just("Garfield", "Kojak", "Barbossa"), rx.DelayElements[string](500*time.Millisecond, sched))
}

func foods(sched scheduler.Scheduler) rx.Publisher[string] {
	return rx.DelaySubscription(
		rx.Via(rx.Just("Lasagna", "Lollipops", "Apples"), rx.DelayElements[string](500*time.Millisecond, sched)),
		250*time.Millisecond, sched)
}

func perSecond(sched scheduler.Scheduler, items ...string) rx.Publisher[string] {
	return rx.Via(rx.Just(items...), rx.DelayElements[string](time.Second, sched))
}

var scenarios = map[string]scenario{
	"just": {
		desc: "five fruits from a fixed list",
		build: func(scheduler.Scheduler) rx.Publisher[string] {
			return rx.Just("Apple", "Orange", "Grape", "Banana", "Strawberry")
		},
	},
	"range": {
		desc: "the integers 1 to 5",
		build: func(scheduler.Scheduler) rx.Publisher[string] {
			return rx.Via(rx.Range(1, 5), show[int]())
		},
	},
	"interval": {
		desc: "a one second tick, first five ticks",
		build: func(sched scheduler.Scheduler) rx.Publisher[string] {
			return rx.Via(rx.Via(rx.Interval(time.Second, sched), rx.Take[int64](5)), show[int64]())
		},
	},
	"merge": {
		desc: "characters and foods interleaved as they arrive",
		build: func(sched scheduler.Scheduler) rx.Publisher[string] {
			return rx.MergeWith(characters(sched), foods(sched))
		},
	},
	"zip": {
		desc: "characters paired with foods",
		build: func(sched scheduler.Scheduler) rx.Publisher[string] {
			return rx.ZipWith(characters(sched), foods(sched), func(c, f string) string {
				return c + " eats " + f
			})
		},
	},
	"first": {
		desc: "the faster of two animal races",
		build: func(sched scheduler.Scheduler) rx.Publisher[string] {
			slow := rx.DelaySubscription(rx.Just("tortoise", "snail", "sloth"), 100*time.Millisecond, sched)
			fast := rx.Just("hare", "cheetah", "squirrel")
			return rx.FirstOf(slow, fast)
		},
	},
	"skip": {
		desc: "items after the first four seconds",
		build: func(sched scheduler.Scheduler) rx.Publisher[string] {
			return rx.Via(perSecond(sched, "one", "two", "skip a few", "ninety nine", "one hundred"),
				rx.SkipFor[string](4*time.Second, sched))
		},
	},
	"take": {
		desc: "national parks seen in three and a half seconds",
		build: func(sched scheduler.Scheduler) rx.Publisher[string] {
			return rx.Via(perSecond(sched, "Yellowstone", "Yosemite", "Grand Canyon", "Zion", "Grand Teton"),
				rx.TakeFor[string](3500*time.Millisecond, sched))
		},
	},
	"filter": {
		desc: "single word park names",
		build: func(scheduler.Scheduler) rx.Publisher[string] {
			return rx.Via(rx.Just("Yellowstone", "Yosemite", "Grand Canyon", "Zion", "Grand Teton"),
				celfilter.MustFilter[string](`!it.contains(" ")`))
		},
	},
	"distinct": {
		desc: "animals without repeats",
		build: func(scheduler.Scheduler) rx.Publisher[string] {
			return rx.Via(rx.Just("dog", "cat", "bird", "dog", "bird", "anteater"), rx.Distinct[string]())
		},
	},
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for name := range scenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
