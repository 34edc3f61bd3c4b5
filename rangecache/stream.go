package rangecache

import (
	"context"
	"sync"
	"time"

	"github.com/dailyyoga/gridcache/logger"
	"github.com/dailyyoga/gridcache/routine"
	"github.com/smallnest/chanx"
)

// Kind identifies which event a Notification came from
type Kind int

const (
	KindLoading Kind = iota
	KindLoaded
	KindFirstLoad
)

func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindLoaded:
		return "loaded"
	case KindFirstLoad:
		return "first_load"
	default:
		return "unknown"
	}
}

// Notification is a single event delivered through Stream
type Notification struct {
	Kind Kind
	Item WorkItem
}

const (
	streamInitCapacity = 16
	// streamDrainTimeout bounds how long a backlog is kept for a reader after
	// its ctx is done
	streamDrainTimeout = 5 * time.Second
)

// stream subscribes to the three events and forwards them, in emission order,
// onto an unbounded channel that is closed once ctx is done. Notifications
// still buffered drain to the reader for up to drain; anything left after
// that is dropped and the channel closes.
func stream(ctx context.Context, log logger.Logger, name string, drain time.Duration, loading, loaded, firstLoad *Event) <-chan Notification {
	// The buffer outlives ctx so the In side never blocks, but not the reader.
	bufCtx, stopBuf := context.WithCancel(context.Background())
	ch := chanx.NewUnboundedChan[Notification](bufCtx, streamInitCapacity)

	var (
		mu     sync.Mutex
		closed bool
	)
	forward := func(kind Kind) Listener {
		return func(item WorkItem) {
			mu.Lock()
			defer mu.Unlock()
			if closed {
				return
			}
			ch.In <- Notification{Kind: kind, Item: item}
		}
	}

	unsubs := []func(){
		loading.Subscribe(forward(KindLoading)),
		loaded.Subscribe(forward(KindLoaded)),
		firstLoad.Subscribe(forward(KindFirstLoad)),
	}

	routine.GoNamed(log, name+"-stream", func() {
		<-ctx.Done()
		for _, unsub := range unsubs {
			unsub()
		}
		mu.Lock()
		closed = true
		close(ch.In)
		mu.Unlock()
		time.AfterFunc(drain, stopBuf)
	})

	return ch.Out
}
