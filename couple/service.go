package couple

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	fetchcache "github.com/gabrielnfc/eivoucasar-sub001"
	"github.com/gabrielnfc/eivoucasar-sub001/fetch"
	"github.com/gabrielnfc/eivoucasar-sub001/source"
)

var (
	// DefaultLoadTimeout bounds every repository lookup, retries included.
	DefaultLoadTimeout = 10 * time.Second

	// DefaultPrefetchConcurrency is the number of concurrent loads of Prefetch.
	DefaultPrefetchConcurrency = 4
)

// Option is the interface for the options of the Service.
type Option interface {
	apply(*Service)
}

type optionFunc func(*Service)

func (f optionFunc) apply(s *Service) {
	f(s)
}

// WithLoadTimeout sets the bound of every repository lookup. Zero disables it.
func WithLoadTimeout(timeout time.Duration) Option {
	return optionFunc(func(s *Service) {
		s.loadTimeout = timeout
	})
}

// WithRetry retries transient repository failures up to attempts calls in total.
func WithRetry(attempts int, backoff time.Duration) Option {
	return optionFunc(func(s *Service) {
		s.retryAttempts = attempts
		s.retryBackoff = backoff
	})
}

// WithSharedLoads makes the Service share repository lookups through group,
// so services over the same repository issue one lookup per user at a time.
func WithSharedLoads(group *singleflight.Group) Option {
	return optionFunc(func(s *Service) {
		s.shared = group
	})
}

// WithPrefetchConcurrency sets the number of concurrent loads of Prefetch.
func WithPrefetchConcurrency(n int) Option {
	if n <= 0 {
		panic("prefetch concurrency must be positive")
	}
	return optionFunc(func(s *Service) {
		s.prefetchConcurrency = n
	})
}

// WithCoordinatorOptions passes options to the underlying fetch.Coordinator.
func WithCoordinatorOptions(opts ...fetch.Option[UserID, *Couple]) Option {
	return optionFunc(func(s *Service) {
		s.coordinatorOptions = append(s.coordinatorOptions, opts...)
	})
}

// Service serves couples from a Repository through a shared coordinator.
// Create one per process and share it with every consumer.
type Service struct {
	coordinator *fetch.Coordinator[UserID, *Couple]
	loader      fetchcache.Loader[UserID, *Couple]

	loadTimeout         time.Duration
	retryAttempts       int
	retryBackoff        time.Duration
	prefetchConcurrency int
	shared              *singleflight.Group
	coordinatorOptions  []fetch.Option[UserID, *Couple]
}

// NewService creates a new Service loading from repo.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		loadTimeout:         DefaultLoadTimeout,
		prefetchConcurrency: DefaultPrefetchConcurrency,
	}
	for _, o := range opts {
		o.apply(s)
	}

	var loader fetchcache.Loader[UserID, *Couple] = &source.LintLoader[UserID, *Couple]{
		Loader: fetchcache.LoaderFunc[UserID, *Couple](repo.FindByUserID),
	}
	if s.retryAttempts > 1 {
		loader = &source.RetryLoader[UserID, *Couple]{Loader: loader, Attempts: s.retryAttempts, Backoff: s.retryBackoff}
	}
	loader = &source.TimeoutLoader[UserID, *Couple]{Loader: loader, Timeout: s.loadTimeout}
	if s.shared != nil {
		loader = &source.SharedLoader[UserID, *Couple]{Loader: loader, Group: s.shared}
	}
	s.loader = loader
	s.coordinator = fetch.NewCoordinator(s.coordinatorOptions...)
	return s
}

// Get returns the couple of the user, loading it unless a fresh copy is cached.
// The returned couple is the caller's own copy.
func (s *Service) Get(ctx context.Context, userID UserID) (*Couple, error) {
	state, err := s.coordinator.EnsureLoaded(ctx, userID, s.loader)
	if err != nil {
		return nil, err
	}
	return state.Value.Clone(), nil
}

// Refresh reloads the couple of the user from the repository.
func (s *Service) Refresh(ctx context.Context, userID UserID) (*Couple, error) {
	state, err := s.coordinator.Refresh(ctx, userID, s.loader)
	if err != nil {
		return nil, err
	}
	return state.Value.Clone(), nil
}

// Invalidate drops the cached couple of the user.
func (s *Service) Invalidate(userID UserID) {
	s.coordinator.Invalidate(userID)
}

// Update applies p to the loaded couple of the user and notifies subscribers, without writing to the repository.
// It reports false when the user's couple is not loaded.
func (s *Service) Update(userID UserID, p Patch) (*Couple, bool) {
	if p.Empty() {
		state := s.coordinator.Snapshot(userID)
		return state.Value.Clone(), state.Ready()
	}
	state, ok := s.coordinator.PatchLocal(userID, p.Apply)
	if !ok {
		return nil, false
	}
	return state.Value.Clone(), true
}

// State returns the last published state of the user's couple.
func (s *Service) State(userID UserID) fetchcache.State[*Couple] {
	return s.coordinator.Snapshot(userID)
}

// Subscribe registers fn for the state transitions of the user's couple.
func (s *Service) Subscribe(userID UserID, fn func(fetchcache.State[*Couple])) (unsubscribe func()) {
	return s.coordinator.Subscribe(userID, fn)
}

// Prefetch loads the couples of the given users concurrently.
// Users without a couple are skipped; the first other failure is returned.
func (s *Service) Prefetch(ctx context.Context, userIDs ...UserID) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(s.prefetchConcurrency)
	for _, userID := range userIDs {
		eg.Go(func() error {
			_, err := s.coordinator.EnsureLoaded(ctx, userID, s.loader)
			if errors.Is(err, fetchcache.ErrNotFound) {
				return nil
			}
			return err
		})
	}
	return eg.Wait()
}

// Binding ties one consumer to the couple of one user at a time.
type Binding struct {
	*fetch.Binding[UserID, *Couple]
	loader fetchcache.Loader[UserID, *Couple]
}

// Bind creates a Binding reporting the bound user's states to onChange.
func (s *Service) Bind(onChange func(fetchcache.State[*Couple])) *Binding {
	return &Binding{
		Binding: fetch.NewBinding(s.coordinator, onChange),
		loader:  s.loader,
	}
}

// Request binds the user and loads the couple unless it is already loaded for this binding.
func (b *Binding) Request(ctx context.Context, userID UserID) (fetchcache.State[*Couple], error) {
	return b.Binding.Request(ctx, userID, b.loader)
}

// Update patches the bound couple locally.
func (b *Binding) Update(p Patch) (fetchcache.State[*Couple], error) {
	return b.Binding.PatchLocal(p.Apply)
}
