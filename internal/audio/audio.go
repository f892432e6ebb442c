package audio

import (
	"context"
	"time"

	"github.com/BearBump/ScanDesk/internal/models"
)

// Tone — один синусоидальный сигнал.
type Tone struct {
	Freq     float64
	Duration time.Duration
}

// PatternFor — чистое отображение итога скана в звуковой паттерн.
// returned: короткий высокий; already_done: средний; not_found: два низких.
func PatternFor(outcome string) []Tone {
	switch outcome {
	case models.OutcomeReturned:
		return []Tone{{Freq: 1320, Duration: 120 * time.Millisecond}}
	case models.OutcomeAlreadyDone:
		return []Tone{{Freq: 880, Duration: 150 * time.Millisecond}}
	case models.OutcomeNotFound:
		return []Tone{
			{Freq: 440, Duration: 100 * time.Millisecond},
			{Freq: 440, Duration: 100 * time.Millisecond},
		}
	default:
		return nil
	}
}

type Player interface {
	Play(ctx context.Context, pattern []Tone) error
}

// Cues озвучивает итоги сканов. Ошибки плеера глотаются: станция без звука
// должна работать так же, как со звуком.
type Cues struct {
	player Player
}

func NewCues(p Player) *Cues {
	return &Cues{player: p}
}

func (c *Cues) Play(outcome string) {
	if c == nil || c.player == nil {
		return
	}
	pattern := PatternFor(outcome)
	if len(pattern) == 0 {
		return
	}
	// Воспроизведение не должно задерживать обработку результатов.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = c.player.Play(ctx, pattern)
	}()
}
