package capture

import (
	"sync"
	"time"
	"unicode/utf8"
)

// KeyEvent — один keydown из оболочки приложения.
// Editable=true значит, что фокус был в обычном поле ввода (не в поле ручного
// ввода трек-номера): такие события не наши, человек просто печатает.
type KeyEvent struct {
	Key      string    `json:"key"`
	Editable bool      `json:"editable"`
	At       time.Time `json:"at,omitempty"`
}

// Sink получает квалифицированные нажатия. Реализуется токенизатором.
type Sink interface {
	Push(ch rune, at time.Time)
	Enter(at time.Time)
}

// Capture — единственный на процесс приёмник keydown-событий.
// Attach/Detach связаны с жизненным циклом оболочки: после Detach события
// молча игнорируются, подписка не утекает между перезапусками.
type Capture struct {
	sink Sink

	mu       sync.Mutex
	attached bool
}

func New(sink Sink) *Capture {
	return &Capture{sink: sink}
}

func (c *Capture) Attach() {
	c.mu.Lock()
	c.attached = true
	c.mu.Unlock()
}

func (c *Capture) Detach() {
	c.mu.Lock()
	c.attached = false
	c.mu.Unlock()
	if r, ok := c.sink.(interface{ Reset() }); ok {
		r.Reset()
	}
}

// Handle пробрасывает печатные символы и Enter в sink; всё остальное
// (служебные клавиши, ввод в чужие поля, события до Attach) отбрасывает.
func (c *Capture) Handle(ev KeyEvent) {
	c.mu.Lock()
	attached := c.attached
	c.mu.Unlock()
	if !attached || ev.Editable {
		return
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	if ev.Key == "Enter" {
		c.sink.Enter(at)
		return
	}

	ch, size := utf8.DecodeRuneInString(ev.Key)
	if size == 0 || size != len(ev.Key) || ch == utf8.RuneError {
		// не одиночный символ — Shift, Tab, стрелки и т.п.
		return
	}
	if ch < 0x20 || ch == 0x7f {
		return
	}
	c.sink.Push(ch, at)
}
