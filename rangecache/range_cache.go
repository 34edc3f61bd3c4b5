package rangecache

import (
	"context"
	"sync"
	"time"

	"github.com/dailyyoga/gridcache/logger"
	"github.com/dailyyoga/gridcache/routine"
	"go.uber.org/zap"
)

// rangeCache is the default RangeCache.
//
// Every state transition (public calls, the debounce timer, fetch completion)
// runs under mu, so the cache behaves as a single logical thread. Notifications
// are collected while locked and delivered after unlocking, which lets
// listeners call back into the cache.
type rangeCache struct {
	// Dependencies
	logger    logger.Logger
	fetcher   Fetcher
	runner    routine.Runner
	afterFunc afterFunc

	// Configuration
	name         string
	debounce     time.Duration
	batchSize    int
	fetchTimeout time.Duration
	query        Query

	store       *Store
	onLoading   *Event
	onLoaded    *Event
	onFirstLoad *Event

	// Runtime state
	mu           sync.Mutex
	fetches      sync.WaitGroup
	sched        scheduler
	seq          uint64
	hadFirstLoad bool
	closed       bool
}

// New creates a RangeCache that loads missing rows through fetcher.
// seed, when non-nil, is merged up front to avoid the initial round trip and
// counts as the first load, so OnFirstLoad never fires for a seeded cache.
func New(log logger.Logger, cfg *Config, fetcher Fetcher, seed *Payload) (RangeCache, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	} else {
		cfg = cfg.MergeDefaults()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if fetcher == nil {
		return nil, ErrNilFetcher
	}

	c := &rangeCache{
		logger:       log,
		fetcher:      fetcher,
		runner:       routine.New(log),
		afterFunc:    realAfterFunc,
		name:         cfg.Name,
		debounce:     cfg.Debounce,
		batchSize:    cfg.BatchSize,
		fetchTimeout: cfg.FetchTimeout,
		query:        cfg.Query(),
		store:        newStore(),
		onLoading:    newEvent(log, cfg.Name+"-loading"),
		onLoaded:     newEvent(log, cfg.Name+"-loaded"),
		onFirstLoad:  newEvent(log, cfg.Name+"-first-load"),
	}

	if seed != nil {
		written := c.store.merge(seed, log)
		c.hadFirstLoad = true
		log.Debug("cache seeded",
			zap.String("cache", c.name),
			zap.Int("total_length", seed.TotalLength),
			zap.Int("rows", written),
		)
	}
	return c, nil
}

func (c *rangeCache) Length() int {
	return c.store.Length()
}

func (c *rangeCache) Store() *Store {
	return c.store
}

func (c *rangeCache) OnDataLoading() *Event { return c.onLoading }
func (c *rangeCache) OnDataLoaded() *Event  { return c.onLoaded }
func (c *rangeCache) OnFirstLoad() *Event   { return c.onFirstLoad }

func (c *rangeCache) Stream(ctx context.Context) <-chan Notification {
	return stream(ctx, c.logger, c.name, streamDrainTimeout, c.onLoading, c.onLoaded, c.onFirstLoad)
}

func (c *rangeCache) State() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sched.phase
}

func (c *rangeCache) EnsureData(item WorkItem) {
	var fx effects
	c.mu.Lock()
	if c.acceptLocked(item) {
		c.ensureLocked(item, &fx, false)
	}
	c.mu.Unlock()
	fx.run()
}

func (c *rangeCache) ForceData(item WorkItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.acceptLocked(item) {
		c.forceLocked(item)
	}
}

func (c *rangeCache) CancelPendingRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sched.cancelPending()
}

func (c *rangeCache) TerminateActiveRequests() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.terminateLocked()
}

func (c *rangeCache) Close() {
	c.mu.Lock()
	c.closed = true
	c.terminateLocked()
	c.mu.Unlock()

	// fetches settle before their listeners run, so a listener may call Close
	c.fetches.Wait()
	c.logger.Info("cache closed", zap.String("cache", c.name))
}

func (c *rangeCache) acceptLocked(item WorkItem) bool {
	if c.closed {
		c.logger.Warn("ignoring demand",
			zap.String("cache", c.name),
			itemField("item", item),
			zap.Error(ErrCacheClosed),
		)
		return false
	}
	return true
}

func (c *rangeCache) terminateLocked() {
	if req := c.sched.terminate(); req != nil {
		c.logger.Debug("fetch aborted",
			zap.String("cache", c.name),
			zap.Uint64("seq", req.seq),
			itemField("item", req.item),
		)
	}
}

// ensureLocked resolves item against the store. A satisfied range is reported
// as loaded; otherwise the missing part is queued behind the debounce timer,
// or dispatched at once when immediate is set.
func (c *rangeCache) ensureLocked(item WorkItem, fx *effects, immediate bool) {
	shrunk, missing := c.store.resolve(item)
	if !missing {
		fx.notify(c.onLoaded, shrunk)
		return
	}
	if immediate {
		c.dispatchLocked(shrunk, fx)
		return
	}
	c.forceLocked(shrunk)
}

func (c *rangeCache) forceLocked(item WorkItem) {
	if c.sched.queue(item) {
		c.armLocked()
	}
}

func (c *rangeCache) armLocked() {
	c.sched.arm(func(seq uint64) timer {
		return c.afterFunc(c.debounce, func() { c.onTimer(seq) })
	})
}

func (c *rangeCache) onTimer(seq uint64) {
	defer routine.Recover(c.logger, c.name+"-timer")

	var fx effects
	func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if item, ok := c.sched.fire(seq); ok {
			c.dispatchLocked(item, &fx)
		}
	}()
	fx.run()
}

// dispatchLocked maximizes demand and starts its fetch. The fetch is counted
// while locked so Close always waits for it, but the goroutine holds off until
// the loading notification has been delivered.
func (c *rangeCache) dispatchLocked(demand WorkItem, fx *effects) {
	item := c.store.maximize(demand, c.batchSize)

	c.seq++
	ctx, cancel := context.WithTimeout(context.Background(), c.fetchTimeout)
	c.fetches.Add(1)
	req := &request{
		seq:    c.seq,
		demand: demand,
		item:   item,
		cancel: cancel,
		done:   sync.OnceFunc(c.fetches.Done),
	}
	c.sched.begin(req)

	c.logger.Debug("dispatching fetch",
		zap.String("cache", c.name),
		zap.Uint64("seq", req.seq),
		itemField("demand", demand),
		itemField("item", item),
	)

	ready := make(chan struct{})
	c.runner.GoNamedWithContext(ctx, c.name+"-fetch", func(ctx context.Context) {
		defer req.done()
		select {
		case <-ready:
		case <-ctx.Done():
		}
		c.fetch(ctx, req)
	})
	fx.notify(c.onLoading, item)
	fx.then(func() { close(ready) })
}

func (c *rangeCache) fetch(ctx context.Context, req *request) {
	defer req.cancel()
	defer func() {
		if rec := recover(); rec != nil {
			c.fail(req, ErrFetch(req.item.window(), ErrFetcherPanic(rec)))
		}
	}()

	payload, err := c.fetcher.Fetch(ctx, c.query, req.item.window())
	if err == nil && payload == nil {
		err = ErrEmptyPayload
	}
	if err != nil {
		c.fail(req, ErrFetch(req.item.window(), err))
		return
	}
	c.complete(req, payload)
}

func (c *rangeCache) complete(req *request, payload *Payload) {
	var fx effects
	c.mu.Lock()
	defer func() {
		c.mu.Unlock()
		req.done()
		fx.run()
	}()

	if _, ok := c.sched.finish(req.seq); !ok {
		c.logger.Debug("discarding stale fetch result",
			zap.String("cache", c.name),
			zap.Uint64("seq", req.seq),
		)
		return
	}

	written := c.store.merge(payload, c.logger)
	c.logger.Debug("fetch completed",
		zap.String("cache", c.name),
		zap.Uint64("seq", req.seq),
		itemField("item", req.item),
		zap.Int("total_length", payload.TotalLength),
		zap.Int("rows", written),
	)

	if c.hadFirstLoad {
		fx.notify(c.onLoaded, req.item)
	} else {
		c.hadFirstLoad = true
		fx.notify(c.onFirstLoad, req.item)
	}

	// demand that arrived mid-flight and whose debounce already elapsed is
	// serviced now rather than after another debounce
	if pending, ok := c.sched.takeElapsed(); ok {
		c.ensureLocked(pending, &fx, true)
	}
}

func (c *rangeCache) fail(req *request, err error) {
	var fx effects
	c.mu.Lock()
	defer func() {
		c.mu.Unlock()
		req.done()
		fx.run()
	}()

	if _, ok := c.sched.finish(req.seq); !ok {
		c.logger.Debug("discarding aborted fetch",
			zap.String("cache", c.name),
			zap.Uint64("seq", req.seq),
			zap.Error(err),
		)
		return
	}

	c.logger.Error("fetch failed",
		zap.String("cache", c.name),
		zap.Uint64("seq", req.seq),
		itemField("item", req.item),
		zap.Error(err),
	)
	fx.notify(c.onLoaded, req.demand)

	// no retry; demand queued behind the failed fetch goes back through the
	// debounce timer
	if c.sched.hasPending() && !c.sched.armed() {
		c.armLocked()
	}
}
