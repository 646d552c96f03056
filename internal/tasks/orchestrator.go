package tasks

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/trax/internal/services"
	"github.com/desertthunder/trax/internal/shared"
	"github.com/desertthunder/trax/internal/store"
)

// DefaultDebounce is the quiet window for search-as-you-type.
const DefaultDebounce = 300 * time.Millisecond

// supersedable identifies the intent kinds running under latest-wins.
type supersedable int

const (
	kindExchange supersedable = iota
	kindSession
)

// Orchestrator dispatches one workflow per intent under that intent's
// concurrency policy and is the sole writer of the [store.Store].
type Orchestrator struct {
	store   *store.Store
	auth    services.Authorizer
	catalog services.Catalog
	logger  *log.Logger
	open    func(url string) error
	wait    time.Duration

	wg sync.WaitGroup

	mu           sync.Mutex
	gens         map[supersedable]uint64
	cancels      map[supersedable]context.CancelFunc
	searchTimer  *time.Timer
	pendingQuery string
	pendingCtx   context.Context
}

// Opts contains construction options for [Orchestrator].
type Opts struct {
	Store   *store.Store
	Auth    services.Authorizer
	Catalog services.Catalog
	Logger  *log.Logger
	// OpenURL navigates the user to the authorization endpoint. Defaults to
	// [shared.OpenBrowser].
	OpenURL func(url string) error
	// Debounce overrides the search quiet window. Defaults to [DefaultDebounce].
	Debounce time.Duration
}

// NewOrchestrator creates an orchestrator with the provided dependencies.
func NewOrchestrator(opts Opts) *Orchestrator {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}

	return &Orchestrator{
		store:   opts.Store,
		auth:    opts.Auth,
		catalog: opts.Catalog,
		logger:  opts.Logger,
		open:    opts.OpenURL,
		wait:    opts.Debounce,
		gens:    map[supersedable]uint64{},
		cancels: map[supersedable]context.CancelFunc{},
	}
}

// Dispatch routes an intent to its workflow under the intent's policy.
//
// Request events are applied synchronously before the workflow launches, so a
// snapshot taken after Dispatch returns already reflects the in-flight state.
func (o *Orchestrator) Dispatch(ctx context.Context, it Intent) {
	switch it := it.(type) {
	case Login:
		o.store.Apply(store.LoginRequested{})
		o.runEvery(ctx, o.login)

	case AuthorizationDenied:
		o.logger.Warn("authorization denied", "reason", it.Reason)
		o.store.Apply(store.LoginFailed{Message: shared.ErrAuthDenied.Error() + ": " + it.Reason})

	case ExchangeCode:
		o.store.Apply(store.LoginRequested{})
		o.runLatest(ctx, kindExchange, func(ctx context.Context, gen uint64) {
			o.exchangeCode(ctx, gen, it.Code)
		})

	case CheckSession:
		o.store.Apply(store.LoginRequested{})
		o.runLatest(ctx, kindSession, o.checkSession)

	case Logout:
		if err := o.auth.ClearToken(); err != nil {
			o.logger.Warn("failed to clear persisted token", "error", err)
		}
		o.store.Apply(store.LoggedOut{})

	case FetchPlaylists:
		o.store.Apply(store.PlaylistsRequested{})
		o.runEvery(ctx, o.fetchPlaylists)

	case SelectPlaylist:
		o.store.Apply(store.PlaylistSelected{Playlist: it.Playlist})
		o.Dispatch(ctx, FetchTracks{PlaylistID: it.Playlist.ID})

	case FetchTracks:
		o.store.Apply(store.TracksRequested{Offset: it.Offset})
		o.runEvery(ctx, func(ctx context.Context) {
			o.fetchTracks(ctx, it.PlaylistID, it.Offset)
		})

	case LoadMoreTracks:
		st := o.store.State().Playlist
		if st.Selected == nil || st.Loading || !st.HasMore {
			return
		}
		o.Dispatch(ctx, FetchTracks{PlaylistID: st.Selected.ID, Offset: st.Offset})

	case AddTrack:
		o.store.Apply(store.TrackAddRequested{})
		o.runEvery(ctx, func(ctx context.Context) {
			o.addTrack(ctx, it.PlaylistID, it.TrackURI)
		})

	case RemoveTrack:
		o.store.Apply(store.TrackRemoveRequested{})
		o.runEvery(ctx, func(ctx context.Context) {
			o.removeTrack(ctx, it.PlaylistID, it.TrackURI)
		})

	case CreatePlaylist:
		o.store.Apply(store.PlaylistCreateRequested{})
		o.runEvery(ctx, func(ctx context.Context) {
			o.createPlaylist(ctx, it.Name, it.Description)
		})

	case QueryChanged:
		o.store.Apply(store.QueryChanged{Query: it.Query})
		o.scheduleSearch(ctx, it.Query)

	case LoadMoreSearch:
		st := o.store.State().Search
		if strings.TrimSpace(st.Query) == "" || st.Loading || !st.HasMore {
			return
		}
		o.store.Apply(store.SearchRequested{Offset: st.Offset})
		query, offset := st.Query, st.Offset
		o.runEvery(ctx, func(ctx context.Context) {
			o.search(ctx, query, offset)
		})
	}
}

// Wait blocks until every launched workflow has completed. A pending debounce
// timer that has not fired yet is not waited on.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// runEvery launches a workflow with no dedup and no cancellation.
func (o *Orchestrator) runEvery(ctx context.Context, fn func(context.Context)) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		fn(ctx)
	}()
}

// runLatest launches a workflow that supersedes any pending instance of the
// same kind. The prior instance's context is cancelled and its generation
// invalidated, so a late-arriving outcome cannot apply.
func (o *Orchestrator) runLatest(ctx context.Context, kind supersedable, fn func(context.Context, uint64)) {
	ctx, cancel := context.WithCancel(ctx)

	o.mu.Lock()
	if prior := o.cancels[kind]; prior != nil {
		prior()
	}
	o.gens[kind]++
	gen := o.gens[kind]
	o.cancels[kind] = cancel
	o.mu.Unlock()

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		fn(ctx, gen)
	}()
}

// current reports whether gen is still the live generation for kind.
func (o *Orchestrator) current(kind supersedable, gen uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gens[kind] == gen
}

// emitLatest applies an event only if the emitting instance has not been
// superseded.
func (o *Orchestrator) emitLatest(kind supersedable, gen uint64, ev store.Event) {
	if !o.current(kind, gen) {
		o.logger.Debug("dropping stale workflow outcome", "kind", kind, "gen", gen)
		return
	}
	o.store.Apply(ev)
}

// scheduleSearch arms the trailing-edge debounce timer for a query change. A
// blank query disarms the timer; the reducer has already cleared the results.
func (o *Orchestrator) scheduleSearch(ctx context.Context, query string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if strings.TrimSpace(query) == "" {
		o.pendingQuery = ""
		if o.searchTimer != nil {
			o.searchTimer.Stop()
		}
		return
	}

	o.pendingQuery = query
	o.pendingCtx = ctx
	if o.searchTimer == nil {
		o.searchTimer = time.AfterFunc(o.wait, o.fireSearch)
		return
	}
	o.searchTimer.Reset(o.wait)
}

// fireSearch runs the debounced search for the last query seen in the window.
func (o *Orchestrator) fireSearch() {
	o.mu.Lock()
	query := o.pendingQuery
	ctx := o.pendingCtx
	o.mu.Unlock()

	if strings.TrimSpace(query) == "" {
		return
	}

	o.store.Apply(store.SearchRequested{Offset: 0})
	o.runEvery(ctx, func(ctx context.Context) {
		o.search(ctx, query, 0)
	})
}

// token reads the current access token from the store snapshot.
func (o *Orchestrator) token() string {
	return o.store.State().Auth.AccessToken
}
