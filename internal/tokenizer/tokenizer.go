package tokenizer

import (
	"strings"
	"sync"
	"time"
)

// Config задаёт пороги разграничения "сканер vs человек".
// Скорость железа у сканеров разная, поэтому всё настраиваемое.
type Config struct {
	MaxKeyGap  time.Duration // default: 35ms, максимум между символами одного скана
	MinLength  int           // default: 6, короче — случайный Enter, не скан
	FlushAfter time.Duration // default: 300ms, тишина без терминатора = человек печатал
}

func DefaultConfig() Config {
	return Config{
		MaxKeyGap:  35 * time.Millisecond,
		MinLength:  6,
		FlushAfter: 300 * time.Millisecond,
	}
}

// Tokenizer собирает быстрые подряд идущие символы в кандидат-токен.
// Состояния: пустой буфер (idle) и непустой (accumulating); emit происходит
// только на Enter при достаточной длине буфера.
type Tokenizer struct {
	cfg  Config
	emit func(token string)

	mu     sync.Mutex
	buf    []rune
	lastAt time.Time
	timer  *time.Timer
}

func New(cfg Config, emit func(token string)) *Tokenizer {
	def := DefaultConfig()
	if cfg.MaxKeyGap <= 0 {
		cfg.MaxKeyGap = def.MaxKeyGap
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = def.MinLength
	}
	if cfg.FlushAfter <= 0 {
		cfg.FlushAfter = def.FlushAfter
	}
	return &Tokenizer{cfg: cfg, emit: emit}
}

// Push добавляет печатный символ с меткой времени его keydown.
// Разрыв больше MaxKeyGap означает, что предыдущий буфер — человеческий ввод:
// он молча выбрасывается, а символ начинает новый кандидат.
func (t *Tokenizer) Push(ch rune, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.buf) > 0 && at.Sub(t.lastAt) > t.cfg.MaxKeyGap {
		t.buf = t.buf[:0]
	}
	t.buf = append(t.buf, ch)
	t.lastAt = at
	t.resetTimerLocked()
}

// Enter — терминатор. Буфер достаточной длины, набранный без больших пауз,
// уходит наверх как токен; всё остальное выбрасывается.
func (t *Tokenizer) Enter(at time.Time) {
	t.mu.Lock()

	if len(t.buf) == 0 {
		t.mu.Unlock()
		return
	}
	if at.Sub(t.lastAt) > t.cfg.MaxKeyGap || len(t.buf) < t.cfg.MinLength {
		t.discardLocked()
		t.mu.Unlock()
		return
	}

	token := strings.ToUpper(strings.TrimSpace(string(t.buf)))
	t.discardLocked()
	t.mu.Unlock()

	if token != "" && t.emit != nil {
		t.emit(token)
	}
}

// Reset сбрасывает буфер и таймер. Вызывается при отключении capture.
func (t *Tokenizer) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.discardLocked()
}

func (t *Tokenizer) discardLocked() {
	t.buf = t.buf[:0]
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *Tokenizer) resetTimerLocked() {
	if t.timer != nil {
		t.timer.Stop()
	}
	t.timer = time.AfterFunc(t.cfg.FlushAfter, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		// Enter так и не пришёл — это была обычная печать.
		t.buf = t.buf[:0]
		t.timer = nil
	})
}
