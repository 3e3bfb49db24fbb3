package payments

import (
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/storefront/internal/domain"
	"github.com/vladislavdragonenkov/storefront/internal/events"
	"github.com/vladislavdragonenkov/storefront/internal/localstore"
	"github.com/vladislavdragonenkov/storefront/internal/metrics"
	"github.com/vladislavdragonenkov/storefront/internal/service/state"
)

const (
	managerName = "payments"
	walletName  = "wallet"
)

// Manager хранит способы оплаты профиля и баланс кошелька.
// Инвариант: во всей коллекции не больше одного способа по умолчанию;
// баланс кошелька никогда не становится отрицательным.
type Manager struct {
	mu      sync.Mutex
	deps    state.Deps
	methods []domain.PaymentMethod
	balance decimal.Decimal
}

// New загружает способы оплаты и баланс из хранилища профиля.
func New(deps state.Deps) *Manager {
	deps = deps.ForManager(managerName)

	methods, _ := localstore.Load[[]domain.PaymentMethod](deps.Store, domain.KeyPaymentMethods)
	for i := range methods {
		methods[i].WalletBalance = nil
	}

	balance, ok := localstore.Load[decimal.Decimal](deps.Store, domain.KeyWalletBalance)
	if !ok || balance.IsNegative() {
		balance = decimal.Zero
	}

	return &Manager{deps: deps, methods: methods, balance: balance}
}

// Add сохраняет способ оплаты. Первый способ становится способом по умолчанию.
func (m *Manager) Add(input domain.PaymentMethodInput) (_ domain.PaymentMethod, err error) {
	defer m.deps.Observe(managerName, "add", time.Now(), &err)

	method := input.NewPaymentMethod()
	now := m.deps.UTCNow()
	if err := domain.NewValidationError(method.Validate(now)); err != nil {
		return domain.PaymentMethod{}, err
	}

	m.mu.Lock()
	method.ID = m.deps.NewID()
	method.CreatedAt = now
	if len(m.methods) == 0 {
		method.IsDefault = true
	}
	if method.IsDefault {
		m.clearDefaults("")
	}
	m.methods = append(m.methods, method)

	err = m.persistMethods()
	count := len(m.methods)
	view := m.view(method)
	m.mu.Unlock()

	m.deps.Publish(events.TopicPaymentMethodChanged, events.ActionAdded, method.ID, count)
	return view, err
}

// Update применяет патч; тип способа оплаты не меняется.
// Истёкший срок карты проверяется, только если патч меняет срок действия.
func (m *Manager) Update(id string, patch domain.PaymentMethodPatch) (_ domain.PaymentMethod, err error) {
	defer m.deps.Observe(managerName, "update", time.Now(), &err)

	m.mu.Lock()
	idx := m.indexOf(id)
	if idx < 0 {
		m.mu.Unlock()
		return domain.PaymentMethod{}, domain.ErrPaymentMethodNotFound
	}

	merged := patch.Apply(m.methods[idx])
	errs := merged.Validate(m.deps.UTCNow())
	if patch.ExpiryMonth == nil && patch.ExpiryYear == nil {
		errs = withoutErr(errs, domain.ErrCardExpired)
	}
	if verr := domain.NewValidationError(errs); verr != nil {
		m.mu.Unlock()
		return domain.PaymentMethod{}, verr
	}

	if merged.IsDefault {
		m.clearDefaults(merged.ID)
	}
	m.methods[idx] = merged

	err = m.persistMethods()
	count := len(m.methods)
	view := m.view(merged)
	m.mu.Unlock()

	m.deps.Publish(events.TopicPaymentMethodChanged, events.ActionUpdated, id, count)
	return view, err
}

// Remove удаляет способ оплаты; если он был по умолчанию, флаг получает первый оставшийся.
func (m *Manager) Remove(id string) (err error) {
	defer m.deps.Observe(managerName, "remove", time.Now(), &err)

	m.mu.Lock()
	idx := m.indexOf(id)
	if idx < 0 {
		m.mu.Unlock()
		return domain.ErrPaymentMethodNotFound
	}

	removed := m.methods[idx]
	m.methods = append(m.methods[:idx:idx], m.methods[idx+1:]...)
	if removed.IsDefault && len(m.methods) > 0 {
		m.setDefaultLocked(m.methods[0].ID)
	}

	err = m.persistMethods()
	count := len(m.methods)
	m.mu.Unlock()

	m.deps.Publish(events.TopicPaymentMethodChanged, events.ActionRemoved, id, count)
	return err
}

// SetDefault делает способ оплаты единственным способом по умолчанию.
func (m *Manager) SetDefault(id string) (err error) {
	defer m.deps.Observe(managerName, "set_default", time.Now(), &err)

	m.mu.Lock()
	if !m.setDefaultLocked(id) {
		m.mu.Unlock()
		return domain.ErrPaymentMethodNotFound
	}
	err = m.persistMethods()
	count := len(m.methods)
	m.mu.Unlock()

	m.deps.Publish(events.TopicPaymentMethodChanged, events.ActionDefaultSet, id, count)
	return err
}

func (m *Manager) GetDefault() (domain.PaymentMethod, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, method := range m.methods {
		if method.IsDefault {
			return m.view(method), true
		}
	}
	return domain.PaymentMethod{}, false
}

func (m *Manager) Get(id string) (domain.PaymentMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if idx := m.indexOf(id); idx >= 0 {
		return m.view(m.methods[idx]), nil
	}
	return domain.PaymentMethod{}, domain.ErrPaymentMethodNotFound
}

// List возвращает способы оплаты в порядке добавления.
func (m *Manager) List() []domain.PaymentMethod {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]domain.PaymentMethod, 0, len(m.methods))
	for _, method := range m.methods {
		result = append(result, m.view(method))
	}
	return result
}

func (m *Manager) ListByType(t domain.PaymentMethodType) []domain.PaymentMethod {
	m.mu.Lock()
	defer m.mu.Unlock()

	result := make([]domain.PaymentMethod, 0, len(m.methods))
	for _, method := range m.methods {
		if method.Type == t {
			result = append(result, m.view(method))
		}
	}
	return result
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.methods)
}

// Balance возвращает текущий баланс кошелька.
func (m *Manager) Balance() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance
}

// TopUp пополняет кошелёк на положительную сумму и возвращает новый баланс.
func (m *Manager) TopUp(amount decimal.Decimal) (_ decimal.Decimal, err error) {
	defer m.deps.Observe(walletName, "topup", time.Now(), &err)

	if !amount.IsPositive() {
		return decimal.Decimal{}, domain.ErrAmountNotPositive
	}

	m.mu.Lock()
	m.balance = m.balance.Add(amount)
	balance := m.balance
	err = m.persistBalance()
	m.mu.Unlock()

	m.deps.Publish(events.TopicWalletChanged, events.ActionTopUp, "", 0)
	return balance, err
}

// Deduct списывает amount, если баланса достаточно. false означает отказ
// без изменения баланса; ошибка возвращается только для некорректной суммы
// или сбоя хранилища.
func (m *Manager) Deduct(amount decimal.Decimal) (bool, error) {
	started := time.Now()

	if !amount.IsPositive() {
		m.deps.Metrics.RecordOperation(walletName, "deduct", metrics.ResultInvalid, time.Since(started))
		return false, domain.ErrAmountNotPositive
	}

	m.mu.Lock()
	if m.balance.LessThan(amount) {
		m.mu.Unlock()
		m.deps.Logger.WithField("amount", amount.String()).Info("wallet deduct declined: insufficient balance")
		m.deps.Metrics.RecordOperation(walletName, "deduct", metrics.ResultRejected, time.Since(started))
		return false, nil
	}

	m.balance = m.balance.Sub(amount)
	err := m.persistBalance()
	m.mu.Unlock()

	m.deps.Metrics.RecordOperation(walletName, "deduct", state.Result(err), time.Since(started))
	m.deps.Publish(events.TopicWalletChanged, events.ActionDeduct, "", 0)
	return true, err
}

// view заполняет живой баланс для способов типа wallet.
func (m *Manager) view(method domain.PaymentMethod) domain.PaymentMethod {
	if method.Type == domain.PaymentMethodWallet {
		balance := m.balance
		method.WalletBalance = &balance
	}
	return method
}

func (m *Manager) indexOf(id string) int {
	for i := range m.methods {
		if m.methods[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) setDefaultLocked(id string) bool {
	idx := m.indexOf(id)
	if idx < 0 {
		return false
	}
	m.clearDefaults(id)
	m.methods[idx].IsDefault = true
	return true
}

func (m *Manager) clearDefaults(exceptID string) {
	for i := range m.methods {
		if m.methods[i].ID != exceptID {
			m.methods[i].IsDefault = false
		}
	}
}

func (m *Manager) persistMethods() error {
	return localstore.Save(m.deps.Store, domain.KeyPaymentMethods, m.methods)
}

func (m *Manager) persistBalance() error {
	return localstore.Save(m.deps.Store, domain.KeyWalletBalance, m.balance)
}

func withoutErr(errs []error, target error) []error {
	result := errs[:0:0]
	for _, err := range errs {
		if !errors.Is(err, target) {
			result = append(result, err)
		}
	}
	return result
}
