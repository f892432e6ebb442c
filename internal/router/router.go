package router

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/BearBump/ScanDesk/internal/broker/messages"
	"github.com/BearBump/ScanDesk/internal/models"
)

type Toasts interface {
	Resolve(id uint64, outcome, message string, order *models.OrderContext) bool
}

type History interface {
	Append(rec models.HistoryRecord)
}

type Cues interface {
	Play(outcome string)
}

type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// seenLimit ограничивает память дедупликации: смена длинная, а id монотонные,
// так что пары давних повторов не бывает.
const seenLimit = 512

// Router — единственный писатель в тосты и историю. Диспетчер может гнать
// сколько угодно параллельных lookup'ов, но их итоги применяются здесь,
// по одному, в порядке прихода.
type Router struct {
	in       <-chan models.Resolution
	toasts   Toasts
	history  History
	cues     Cues
	producer Producer // optional
	topic    string

	seen      map[uint64]struct{}
	seenQueue []uint64
}

func New(in <-chan models.Resolution, toasts Toasts, history History, cues Cues) *Router {
	return &Router{
		in:      in,
		toasts:  toasts,
		history: history,
		cues:    cues,
		seen:    map[uint64]struct{}{},
	}
}

// WithProducer включает публикацию итогов в брокер (фид для переобучения).
func (r *Router) WithProducer(p Producer, topic string) *Router {
	r.producer = p
	r.topic = topic
	return r
}

func (r *Router) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-r.in:
			r.apply(ctx, res)
		}
	}
}

// apply идемпотентен по id: диспетчер обещает ровно одну доставку,
// но полагаться на это здесь не будем.
func (r *Router) apply(ctx context.Context, res models.Resolution) {
	if _, ok := r.seen[res.ID]; ok {
		return
	}
	r.seen[res.ID] = struct{}{}
	r.seenQueue = append(r.seenQueue, res.ID)
	if len(r.seenQueue) > seenLimit {
		delete(r.seen, r.seenQueue[0])
		r.seenQueue = r.seenQueue[1:]
	}

	// Тоста может уже не быть (убран вручную) — тогда просто мимо.
	if !r.toasts.Resolve(res.ID, res.Outcome, res.Message, res.Order) {
		slog.Debug("stale resolution dropped from toasts", "id", res.ID)
	}

	now := time.Now().UTC()
	r.history.Append(models.HistoryRecord{
		ID:            res.ID,
		Token:         res.Token,
		Outcome:       res.Outcome,
		Message:       res.Message,
		Order:         res.Order,
		ResolvedAt:    now,
		FormattedTime: now.Format("15:04:05"),
	})

	r.cues.Play(res.Outcome)

	if r.producer != nil && r.topic != "" {
		r.publish(ctx, res, now)
	}
}

func (r *Router) publish(ctx context.Context, res models.Resolution, at time.Time) {
	msg := messages.ScanResolved{
		ScanID:     res.ID,
		Token:      res.Token,
		Outcome:    res.Outcome,
		Message:    res.Message,
		ResolvedAt: at,
	}
	if res.Order != nil {
		msg.Order = &messages.ScanOrder{
			ExternalOrderID: res.Order.ExternalOrderID,
			CustomerName:    res.Order.CustomerName,
			RiskScore:       res.Order.RiskScore,
			RiskLevel:       res.Order.RiskLevel,
		}
	}

	b, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal scan.resolved", "error", err.Error())
		return
	}
	// best-effort: фид переобучения не должен ломать станцию
	if err := r.producer.Publish(ctx, r.topic, []byte(fmt.Sprintf("%d", res.ID)), b); err != nil {
		slog.Error("publish scan.resolved", "id", res.ID, "error", err.Error())
	}
}
