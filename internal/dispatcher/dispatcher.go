package dispatcher

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BearBump/ScanDesk/internal/integrations/orderlookup"
	"github.com/BearBump/ScanDesk/internal/models"
)

type Lookup interface {
	Scan(ctx context.Context, trackingNumber string) (orderlookup.ScanResult, error)
}

type Toasts interface {
	AddLoading(id uint64, token string)
}

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

// Dispatcher принимает токены, отсекает дубли "в полёте" и гоняет lookup
// асинхронно. Каждый принятый токен ровно один раз завершается Resolution
// в выходном канале.
type Dispatcher struct {
	lookup Lookup
	toasts Toasts
	out    chan<- models.Resolution
	rl     RateLimiter

	maxInFlight        int
	rateLimitPerMinute int64
	sem                chan struct{}

	mu       sync.Mutex
	inflight map[string]uint64 // token -> id

	lastID atomic.Uint64

	totalSubmitted  atomic.Int64
	totalDuplicates atomic.Int64
	totalResolved   atomic.Int64
	lookupErrors    atomic.Int64
	inFlightCount   atomic.Int64
}

func New(lookup Lookup, toasts Toasts, out chan<- models.Resolution) *Dispatcher {
	d := &Dispatcher{
		lookup:      lookup,
		toasts:      toasts,
		out:         out,
		maxInFlight: 8,
		inflight:    map[string]uint64{},
	}
	d.sem = make(chan struct{}, d.maxInFlight)
	return d
}

func (d *Dispatcher) WithSettings(maxInFlight int, rlPerMin int64) *Dispatcher {
	if maxInFlight > 0 {
		d.maxInFlight = maxInFlight
		d.sem = make(chan struct{}, maxInFlight)
	}
	if rlPerMin > 0 {
		d.rateLimitPerMinute = rlPerMin
	}
	return d
}

func (d *Dispatcher) WithRateLimiter(rl RateLimiter) *Dispatcher {
	d.rl = rl
	return d
}

// Submit нормализует токен и запускает lookup. Повторный скан токена,
// который ещё не завершился, игнорируется: сканер любит дабл-фаер.
// Токен с уже завершённым итогом не дедуплицируется — идемпотентность
// повторной обработки обеспечивает lookup-сервис (already_processed).
func (d *Dispatcher) Submit(ctx context.Context, raw string) {
	token := strings.ToUpper(strings.TrimSpace(raw))
	if token == "" {
		return
	}

	d.mu.Lock()
	if _, ok := d.inflight[token]; ok {
		d.mu.Unlock()
		d.totalDuplicates.Add(1)
		slog.Debug("duplicate scan ignored", "token", token)
		return
	}
	id := d.nextID()
	d.inflight[token] = id
	d.mu.Unlock()

	d.totalSubmitted.Add(1)
	d.inFlightCount.Add(1)

	// Тост LOADING публикуем сразу, до сети: оператор должен видеть скан мгновенно.
	d.toasts.AddLoading(id, token)

	// Обработка живёт дольше вызвавшего запроса: HTTP-хендлер отвечает 202
	// и его контекст гаснет, а lookup ещё идёт. Таймаут сети — у клиента.
	go d.process(context.WithoutCancel(ctx), id, token)
}

func (d *Dispatcher) process(ctx context.Context, id uint64, token string) {
	defer d.inFlightCount.Add(-1)

	d.sem <- struct{}{}
	defer func() { <-d.sem }()

	if d.rl != nil && d.rateLimitPerMinute > 0 {
		minuteKey := fmt.Sprintf("rl:lookup:%s", time.Now().UTC().Format("200601021504"))
		allowed, n, err := d.rl.Allow(ctx, minuteKey, d.rateLimitPerMinute, 70*time.Second)
		if err != nil {
			slog.Warn("rate limiter unavailable", "error", err.Error())
		} else if !allowed {
			// Всплеск сканов: притормозим, чтобы не заливать lookup-сервис.
			slog.Warn("lookup rate limit exceeded", "count", n)
			time.Sleep(500 * time.Millisecond)
		}
	}

	res, err := d.lookup.Scan(ctx, token)
	resolution := models.Resolution{ID: id, Token: token}

	if err != nil {
		// Сетевая ошибка для оператора неотличима от "заказ не найден":
		// и там и там остаётся ручной ввод.
		d.lookupErrors.Add(1)
		slog.Error("order lookup failed", "token", token, "error", err.Error())
		resolution.Outcome = models.OutcomeNotFound
		resolution.Message = "could not resolve, try manual entry"
	} else {
		switch res.Result {
		case orderlookup.ResultMarkedReturned:
			resolution.Outcome = models.OutcomeReturned
			resolution.Message = res.Message
			if res.Order != nil {
				resolution.Order = &models.OrderContext{
					ExternalOrderID: res.Order.ExternalOrderID,
					CustomerName:    res.Order.CustomerName,
					RiskScore:       res.Order.RiskScore,
					RiskLevel:       res.Order.RiskLevel,
				}
			}
		case orderlookup.ResultAlreadyProcessed:
			resolution.Outcome = models.OutcomeAlreadyDone
			resolution.Message = res.Message
		default:
			resolution.Outcome = models.OutcomeNotFound
			resolution.Message = "no matching order"
		}
	}

	d.deliver(resolution)
}

// deliver снимает токен с учёта до отправки: повторный скан сразу после
// резолюции — это новый запрос, а не дубль. Отправка безусловная — каждый
// принятый токен обязан завершиться ровно одной резолюцией, иначе его тост
// навсегда останется в LOADING.
func (d *Dispatcher) deliver(r models.Resolution) {
	d.mu.Lock()
	delete(d.inflight, r.Token)
	d.mu.Unlock()

	d.out <- r
	d.totalResolved.Add(1)
}

// nextID — монотонный идентификатор на базе времени: уникален в пределах
// процесса даже при пачке сканов в один наносек-тик.
func (d *Dispatcher) nextID() uint64 {
	for {
		now := uint64(time.Now().UTC().UnixNano())
		last := d.lastID.Load()
		if now <= last {
			now = last + 1
		}
		if d.lastID.CompareAndSwap(last, now) {
			return now
		}
	}
}

type Stats struct {
	TotalSubmitted  int64 `json:"totalSubmitted"`
	TotalDuplicates int64 `json:"totalDuplicates"`
	TotalResolved   int64 `json:"totalResolved"`
	LookupErrors    int64 `json:"lookupErrors"`
	InFlight        int64 `json:"inFlight"`
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		TotalSubmitted:  d.totalSubmitted.Load(),
		TotalDuplicates: d.totalDuplicates.Load(),
		TotalResolved:   d.totalResolved.Load(),
		LookupErrors:    d.lookupErrors.Load(),
		InFlight:        d.inFlightCount.Load(),
	}
}
