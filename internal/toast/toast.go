package toast

import (
	"sync"
	"time"

	"github.com/BearBump/ScanDesk/internal/models"
)

// StateLoading — тост создан в момент отправки запроса, до ответа сети.
// Терминальные состояния совпадают с models.Outcome*.
const StateLoading = "LOADING"

type Entry struct {
	ID        uint64               `json:"id"`
	Token     string               `json:"token"`
	State     string               `json:"state"`
	Message   string               `json:"message,omitempty"`
	Order     *models.OrderContext `json:"order,omitempty"`
	CreatedAt time.Time            `json:"createdAt"`
}

// Stack — упорядоченный набор тостов, новые добавляются в конец.
// LOADING-записи живут до резолва; терминальные сами удаляются спустя
// displayFor после перехода (не после создания).
type Stack struct {
	displayFor time.Duration

	mu        sync.Mutex
	entries   []*Entry
	listeners map[int]func([]Entry)
	nextSub   int
}

func New(displayFor time.Duration) *Stack {
	if displayFor <= 0 {
		displayFor = 2500 * time.Millisecond
	}
	return &Stack{
		displayFor: displayFor,
		listeners:  map[int]func([]Entry){},
	}
}

func (s *Stack) AddLoading(id uint64, token string) {
	s.mu.Lock()
	for _, e := range s.entries {
		if e.ID == id {
			s.mu.Unlock()
			return
		}
	}
	s.entries = append(s.entries, &Entry{
		ID:        id,
		Token:     token,
		State:     StateLoading,
		CreatedAt: time.Now().UTC(),
	})
	s.notifyLocked()
}

// Resolve переводит запись из LOADING в терминальное состояние ровно один раз
// и взводит таймер самоудаления. Поздний резолв по уже убранной записи — no-op.
func (s *Stack) Resolve(id uint64, outcome, message string, order *models.OrderContext) bool {
	s.mu.Lock()
	var found *Entry
	for _, e := range s.entries {
		if e.ID == id {
			found = e
			break
		}
	}
	if found == nil || found.State != StateLoading {
		s.mu.Unlock()
		return false
	}
	found.State = outcome
	found.Message = message
	found.Order = order
	s.notifyLocked()

	time.AfterFunc(s.displayFor, func() { s.Remove(id) })
	return true
}

// Remove безопасен при повторном вызове (ручной dismiss vs таймер).
func (s *Stack) Remove(id uint64) {
	s.mu.Lock()
	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			s.notifyLocked()
			return
		}
	}
	s.mu.Unlock()
}

func (s *Stack) Snapshot() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe регистрирует слушателя изменений; возвращает отписку.
func (s *Stack) Subscribe(fn func([]Entry)) func() {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

func (s *Stack) snapshotLocked() []Entry {
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	return out
}

// notifyLocked снимает снапшот под локом, а слушателей зовёт уже без него.
func (s *Stack) notifyLocked() {
	snap := s.snapshotLocked()
	fns := make([]func([]Entry), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}
