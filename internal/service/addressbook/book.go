package addressbook

import (
	"sync"
	"time"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/events"
	"github.com/vladislavdragonenkov/storefront/internal/localstore"
	"github.com/vladislavdragonenkov/storefront/internal/service/state"
)

const managerName = "addressbook"

// Book хранит адреса профиля. Инвариант: в каждом разделе (shipping, billing)
// не больше одного адреса по умолчанию; адрес типа both входит в оба раздела.
type Book struct {
	mu    sync.Mutex
	deps  state.Deps
	items []domain.Address
}

// New загружает адресную книгу из хранилища профиля.
func New(deps state.Deps) *Book {
	deps = deps.ForManager(managerName)

	items, _ := localstore.Load[[]domain.Address](deps.Store, domain.KeyAddresses)
	return &Book{deps: deps, items: items}
}

// Add создаёт адрес. Первый адрес всегда становится адресом по умолчанию.
func (b *Book) Add(input domain.AddressInput) (_ domain.Address, err error) {
	defer b.deps.Observe(managerName, "add", time.Now(), &err)

	address := input.NewAddress()
	if err := domain.NewValidationError(address.Validate()); err != nil {
		return domain.Address{}, err
	}

	b.mu.Lock()
	now := b.deps.UTCNow()
	address.ID = b.deps.NewID()
	address.CreatedAt = now
	address.UpdatedAt = now

	if len(b.items) == 0 {
		address.IsDefault = true
	}
	if address.IsDefault {
		b.clearOverlapping(address.Type, "", now)
	}
	b.items = append(b.items, address)

	err = b.persist()
	count := len(b.items)
	b.mu.Unlock()

	b.deps.Publish(events.TopicAddressChanged, events.ActionAdded, address.ID, count)
	return address, err
}

// Update применяет патч. Если после слияния запись остаётся адресом
// по умолчанию, пересекающиеся записи теряют этот флаг.
func (b *Book) Update(id string, patch domain.AddressPatch) (_ domain.Address, err error) {
	defer b.deps.Observe(managerName, "update", time.Now(), &err)

	b.mu.Lock()
	idx := b.indexOf(id)
	if idx < 0 {
		b.mu.Unlock()
		return domain.Address{}, domain.ErrAddressNotFound
	}

	merged := patch.Apply(b.items[idx])
	if verr := domain.NewValidationError(merged.Validate()); verr != nil {
		b.mu.Unlock()
		return domain.Address{}, verr
	}

	now := b.deps.UTCNow()
	merged.UpdatedAt = now
	if merged.IsDefault {
		b.clearOverlapping(merged.Type, merged.ID, now)
	}
	b.items[idx] = merged

	err = b.persist()
	count := len(b.items)
	b.mu.Unlock()

	b.deps.Publish(events.TopicAddressChanged, events.ActionUpdated, id, count)
	return merged, err
}

// Remove удаляет адрес. Если он был адресом по умолчанию, флаг переходит
// к первому оставшемуся адресу из пересекающегося раздела.
func (b *Book) Remove(id string) (err error) {
	defer b.deps.Observe(managerName, "remove", time.Now(), &err)

	b.mu.Lock()
	idx := b.indexOf(id)
	if idx < 0 {
		b.mu.Unlock()
		return domain.ErrAddressNotFound
	}

	removed := b.items[idx]
	b.items = append(b.items[:idx:idx], b.items[idx+1:]...)

	if removed.IsDefault {
		for _, candidate := range b.items {
			if candidate.Type.Overlaps(removed.Type) {
				b.setDefaultLocked(candidate.ID)
				break
			}
		}
	}

	err = b.persist()
	count := len(b.items)
	b.mu.Unlock()

	b.deps.Publish(events.TopicAddressChanged, events.ActionRemoved, id, count)
	return err
}

// SetDefault делает адрес адресом по умолчанию в его разделах.
func (b *Book) SetDefault(id string) (err error) {
	defer b.deps.Observe(managerName, "set_default", time.Now(), &err)

	b.mu.Lock()
	if !b.setDefaultLocked(id) {
		b.mu.Unlock()
		return domain.ErrAddressNotFound
	}
	err = b.persist()
	count := len(b.items)
	b.mu.Unlock()

	b.deps.Publish(events.TopicAddressChanged, events.ActionDefaultSet, id, count)
	return err
}

// GetDefault возвращает первый адрес по умолчанию.
func (b *Book) GetDefault() (domain.Address, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, a := range b.items {
		if a.IsDefault {
			return a, true
		}
	}
	return domain.Address{}, false
}

// GetDefaultFor возвращает адрес по умолчанию для типа t (с учётом both).
func (b *Book) GetDefaultFor(t domain.AddressType) (domain.Address, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, a := range b.items {
		if a.IsDefault && matchesType(a.Type, t) {
			return a, true
		}
	}
	return domain.Address{}, false
}

// ListByType возвращает адреса типа t и адреса типа both.
func (b *Book) ListByType(t domain.AddressType) []domain.Address {
	b.mu.Lock()
	defer b.mu.Unlock()

	result := make([]domain.Address, 0, len(b.items))
	for _, a := range b.items {
		if matchesType(a.Type, t) {
			result = append(result, a)
		}
	}
	return result
}

// List возвращает копию всех адресов в порядке добавления.
func (b *Book) List() []domain.Address {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append(make([]domain.Address, 0, len(b.items)), b.items...)
}

func (b *Book) Get(id string) (domain.Address, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if idx := b.indexOf(id); idx >= 0 {
		return b.items[idx], nil
	}
	return domain.Address{}, domain.ErrAddressNotFound
}

// Len возвращает число адресов.
func (b *Book) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func matchesType(recordType, requested domain.AddressType) bool {
	return recordType == requested || recordType == domain.AddressTypeBoth
}

func (b *Book) indexOf(id string) int {
	for i := range b.items {
		if b.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (b *Book) setDefaultLocked(id string) bool {
	idx := b.indexOf(id)
	if idx < 0 {
		return false
	}
	now := b.deps.UTCNow()
	target := b.items[idx]
	b.clearOverlapping(target.Type, target.ID, now)
	if !target.IsDefault {
		b.items[idx].IsDefault = true
		b.items[idx].UpdatedAt = now
	}
	return true
}

// clearOverlapping снимает флаг по умолчанию со всех записей раздела t, кроме exceptID.
func (b *Book) clearOverlapping(t domain.AddressType, exceptID string, now time.Time) {
	for i := range b.items {
		if b.items[i].ID == exceptID || !b.items[i].IsDefault {
			continue
		}
		if b.items[i].Type.Overlaps(t) {
			b.items[i].IsDefault = false
			b.items[i].UpdatedAt = now
		}
	}
}

func (b *Book) persist() error {
	return localstore.Save(b.deps.Store, domain.KeyAddresses, b.items)
}
