package profile

import (
	"regexp"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/events"
	"github.com/vladislavdragonenkov/storefront/internal/localstore"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/ledger"
	"github.com/vladislavdragonenkov/storefront/internal/service/productset"
	"github.com/vladislavdragonenkov/storefront/internal/service/recency"
	"github.com/vladislavdragonenkov/storefront/internal/service/state"
)

var profileIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Limits — ёмкости ограниченных наборов.
type Limits struct {
	Comparison     int
	Wishlist       int
	RecentlyViewed int
	SearchHistory  int
}

// DefaultLimits возвращает исходные ёмкости: сравнение 4, список желаний без лимита,
// просмотры 10, поиск 5.
func DefaultLimits() Limits {
	return Limits{
		Comparison:     productset.DefaultComparisonLimit,
		Wishlist:       0,
		RecentlyViewed: recency.DefaultViewLimit,
		SearchHistory:  recency.DefaultSearchLimit,
	}
}

// Options — зависимости реестра профилей.
type Options struct {
	Store    domain.KVStore
	Bus      *events.Bus
	Logger   *log.Entry
	Metrics  *metrics.StoreMetrics
	Limits   Limits
	Currency string

	// Now и NewID подменяются в тестах.
	Now   func() time.Time
	NewID func() string
}

// Registry лениво создаёт профили и кэширует их в памяти.
type Registry struct {
	mu       sync.Mutex
	opts     Options
	logger   *log.Entry
	profiles map[string]*Profile
	lastUsed map[string]time.Time
}

// NewRegistry создаёт реестр поверх общего хранилища и шины.
func NewRegistry(opts Options) *Registry {
	if opts.Bus == nil {
		opts.Bus = events.NewBus(opts.Logger, opts.Metrics)
	}
	if opts.Currency == "" {
		opts.Currency = ledger.DefaultCurrency
	}
	if opts.Limits == (Limits{}) {
		opts.Limits = DefaultLimits()
	}
	if opts.Limits.RecentlyViewed <= 0 {
		opts.Limits.RecentlyViewed = recency.DefaultViewLimit
	}
	if opts.Limits.SearchHistory <= 0 {
		opts.Limits.SearchHistory = recency.DefaultSearchLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	return &Registry{
		opts:     opts,
		logger:   logger.WithField("component", "profile-registry"),
		profiles: make(map[string]*Profile),
		lastUsed: make(map[string]time.Time),
	}
}

// ValidateID проверяет идентификатор профиля.
func ValidateID(id string) error {
	if !profileIDPattern.MatchString(id) {
		return domain.ErrProfileIDInvalid
	}
	return nil
}

// Get возвращает профиль, загружая его из хранилища при первом обращении.
func (r *Registry) Get(id string) (*Profile, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastUsed[id] = r.now()
	if p, ok := r.profiles[id]; ok {
		return p, nil
	}

	deps := state.Deps{
		Profile: id,
		Store:   r.adapterFor(id),
		Bus:     r.opts.Bus,
		Logger:  r.opts.Logger,
		Metrics: r.opts.Metrics,
		Now:     r.opts.Now,
		NewID:   r.opts.NewID,
	}
	p := newProfile(id, deps, r.opts.Limits, r.opts.Currency)
	r.profiles[id] = p
	r.opts.Metrics.SetActiveProfiles(len(r.profiles))
	r.logger.WithField("profile", id).Debug("profile loaded")

	return p, nil
}

// Reset удаляет данные профиля из хранилища и выгружает его из памяти.
//
// Очистка выполняется под блокировкой реестра: параллельный Get дождётся её
// окончания и загрузит уже пустой профиль.
func (r *Registry) Reset(id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.adapterFor(id).Clear()
	r.unloadLocked(id)
	return err
}

// Evict выгружает профиль из памяти; данные в хранилище сохраняются.
func (r *Registry) Evict(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.unloadLocked(id)
}

// EvictIdle выгружает не более limit профилей, к которым не обращались с момента before.
// Самые давно использованные выгружаются первыми.
func (r *Registry) EvictIdle(before time.Time, limit int) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	idle := make([]string, 0)
	for id := range r.profiles {
		if r.lastUsed[id].Before(before) {
			idle = append(idle, id)
		}
	}
	sort.Slice(idle, func(i, j int) bool {
		return r.lastUsed[idle[i]].Before(r.lastUsed[idle[j]])
	})
	if limit > 0 && len(idle) > limit {
		idle = idle[:limit]
	}

	for _, id := range idle {
		r.unloadLocked(id)
	}
	if len(idle) > 0 {
		r.logger.WithField("evicted", len(idle)).Debug("idle profiles unloaded")
	}
	return len(idle)
}

func (r *Registry) adapterFor(id string) *localstore.Adapter {
	return localstore.New(r.opts.Store, "profile/"+id, r.opts.Logger, r.opts.Metrics)
}

func (r *Registry) unloadLocked(id string) {
	delete(r.profiles, id)
	delete(r.lastUsed, id)
	r.opts.Metrics.SetActiveProfiles(len(r.profiles))
}

func (r *Registry) now() time.Time {
	if r.opts.Now != nil {
		return r.opts.Now()
	}
	return time.Now()
}

// Loaded возвращает отсортированные ID профилей в памяти.
func (r *Registry) Loaded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]string, 0, len(r.profiles))
	for id := range r.profiles {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Bus возвращает общую шину событий.
func (r *Registry) Bus() *events.Bus {
	return r.opts.Bus
}

// Store возвращает общее хранилище.
func (r *Registry) Store() domain.KVStore {
	return r.opts.Store
}
