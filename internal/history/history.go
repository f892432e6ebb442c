package history

import (
	"sync"

	"github.com/BearBump/ScanDesk/internal/models"
)

// Stats — производные счётчики за текущую сессию.
type Stats struct {
	TotalToday   int `json:"totalToday"`
	ReturnsToday int `json:"returnsToday"`
}

// Log — ограниченный журнал завершённых сканов, новые записи первыми.
// Живёт только в памяти процесса: системой записи владеет lookup-сервис,
// журнал — удобство оператора.
type Log struct {
	capacity int

	mu        sync.Mutex
	records   []models.HistoryRecord
	listeners map[int]func([]models.HistoryRecord)
	nextSub   int
}

func New(capacity int) *Log {
	if capacity <= 0 {
		capacity = 50
	}
	return &Log{
		capacity:  capacity,
		listeners: map[int]func([]models.HistoryRecord){},
	}
}

// Append вставляет запись в начало и срезает хвост сверх ёмкости.
// Записи после вставки не меняются.
func (l *Log) Append(rec models.HistoryRecord) {
	l.mu.Lock()
	l.records = append([]models.HistoryRecord{rec}, l.records...)
	if len(l.records) > l.capacity {
		l.records = l.records[:l.capacity]
	}
	l.notifyLocked()
}

func (l *Log) Records() []models.HistoryRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]models.HistoryRecord, len(l.records))
	copy(out, l.records)
	return out
}

func (l *Log) Stats() Stats {
	l.mu.Lock()
	defer l.mu.Unlock()
	st := Stats{TotalToday: len(l.records)}
	for _, r := range l.records {
		if r.Outcome == models.OutcomeReturned {
			st.ReturnsToday++
		}
	}
	return st
}

func (l *Log) Subscribe(fn func([]models.HistoryRecord)) func() {
	l.mu.Lock()
	id := l.nextSub
	l.nextSub++
	l.listeners[id] = fn
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.listeners, id)
		l.mu.Unlock()
	}
}

func (l *Log) notifyLocked() {
	snap := make([]models.HistoryRecord, len(l.records))
	copy(snap, l.records)
	fns := make([]func([]models.HistoryRecord), 0, len(l.listeners))
	for _, fn := range l.listeners {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(snap)
	}
}
