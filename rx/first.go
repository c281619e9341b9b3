package rx

import "sync"

const (
	noWinner  = -1
	errWinner = -2
)

// FirstOf subscribes to every candidate and relays the one that emits an item
// first, cancelling all the others. A candidate completing empty before any
// item was seen drops out of the race; an error before that fails the result
// and cancels every candidate. Requests made before a winner is known are
// forwarded to all candidates.
func FirstOf[T any](pubs ...Publisher[T]) Publisher[T] {
	return PublisherFunc[T](func(s Subscriber[T]) {
		fs := &firstSubscription[T]{actual: Serialize(s), winner: noWinner}
		fs.inners = make([]*firstInner[T], len(pubs))
		for i := range pubs {
			in := &firstInner[T]{parent: fs, index: i}
			in.upstream.op = "firstOf"
			fs.inners[i] = in
		}
		s.OnSubscribe(fs)
		if len(pubs) == 0 {
			fs.mu.Lock()
			fs.winner = errWinner
			fs.mu.Unlock()
			fs.actual.OnComplete()
			return
		}
		for i, pub := range pubs {
			fs.mu.Lock()
			decided := fs.winner != noWinner || fs.cancelled
			fs.mu.Unlock()
			if decided {
				break
			}
			pub.Subscribe(fs.inners[i])
		}
	})
}

type firstSubscription[T any] struct {
	actual    Subscriber[T]
	inners    []*firstInner[T]
	mu        sync.Mutex
	winner    int
	empties   int
	cancelled bool
}

func (fs *firstSubscription[T]) Request(n int64) {
	if n <= 0 {
		fs.mu.Lock()
		fs.winner = errWinner
		fs.mu.Unlock()
		fs.cancelAll(-1)
		fs.actual.OnError(badRequest("firstOf", n))
		return
	}
	fs.mu.Lock()
	w := fs.winner
	fs.mu.Unlock()
	if w >= 0 {
		fs.inners[w].upstream.request(n)
		return
	}
	for _, in := range fs.inners {
		in.upstream.request(n)
	}
}

func (fs *firstSubscription[T]) Cancel() {
	fs.mu.Lock()
	fs.cancelled = true
	fs.mu.Unlock()
	fs.cancelAll(-1)
}

func (fs *firstSubscription[T]) cancelAll(except int) {
	for i, in := range fs.inners {
		if i != except {
			in.upstream.cancel()
		}
	}
}

type firstInner[T any] struct {
	parent   *firstSubscription[T]
	index    int
	upstream upstreamRef
}

// won reports whether this candidate is the winner, electing it when the
// race is still open and electIt is set.
func (in *firstInner[T]) won(electIt bool) (bool, bool) {
	fs := in.parent
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.winner == noWinner && electIt && !fs.cancelled {
		fs.winner = in.index
		return true, true
	}
	return fs.winner == in.index, false
}

func (in *firstInner[T]) OnSubscribe(s Subscription) {
	if _, err := in.upstream.set(s); err != nil {
		in.OnError(err)
	}
}

func (in *firstInner[T]) OnNext(v T) {
	won, elected := in.won(true)
	if !won {
		in.upstream.cancel()
		return
	}
	if elected {
		in.parent.cancelAll(in.index)
	}
	in.parent.actual.OnNext(v)
}

func (in *firstInner[T]) OnError(err error) {
	fs := in.parent
	fs.mu.Lock()
	switch {
	case fs.winner == in.index:
		fs.mu.Unlock()
		fs.actual.OnError(err)
	case fs.winner == noWinner && !fs.cancelled:
		fs.winner = errWinner
		fs.mu.Unlock()
		fs.cancelAll(in.index)
		fs.actual.OnError(err)
	default:
		fs.mu.Unlock()
		OnErrorDropped(err)
	}
}

func (in *firstInner[T]) OnComplete() {
	fs := in.parent
	fs.mu.Lock()
	switch {
	case fs.winner == in.index:
		fs.mu.Unlock()
		fs.actual.OnComplete()
	case fs.winner == noWinner && !fs.cancelled:
		fs.empties++
		all := fs.empties == len(fs.inners)
		if all {
			fs.winner = errWinner
		}
		fs.mu.Unlock()
		if all {
			fs.actual.OnComplete()
		}
	default:
		fs.mu.Unlock()
	}
}
