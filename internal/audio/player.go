package audio

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os/exec"

	"github.com/pkg/errors"
)

const (
	sampleRate = 44100
	gapSamples = sampleRate / 20 // 50ms тишины между тонами
)

// CmdPlayer играет паттерн через внешний плеер (по умолчанию aplay),
// скармливая ему синтезированный WAV на stdin. Процесс живёт ровно один cue:
// захват и освобождение устройства ограничены этим вызовом.
type CmdPlayer struct {
	command string
	args    []string
}

func NewCmdPlayer(command string, args ...string) *CmdPlayer {
	if command == "" {
		command = "aplay"
		args = []string{"-q"}
	}
	return &CmdPlayer{command: command, args: args}
}

func (p *CmdPlayer) Play(ctx context.Context, pattern []Tone) error {
	if _, err := exec.LookPath(p.command); err != nil {
		// нет аудио-бэкенда — молча пропускаем
		return nil
	}

	cmd := exec.CommandContext(ctx, p.command, p.args...)
	cmd.Stdin = bytes.NewReader(synthWAV(pattern))
	if err := cmd.Run(); err != nil {
		return errors.Wrap(err, "play cue")
	}
	return nil
}

// synthWAV синтезирует 16-bit mono PCM WAV из паттерна.
func synthWAV(pattern []Tone) []byte {
	var pcm []int16
	for i, t := range pattern {
		if i > 0 {
			pcm = append(pcm, make([]int16, gapSamples)...)
		}
		n := int(float64(sampleRate) * t.Duration.Seconds())
		for s := 0; s < n; s++ {
			// лёгкий fade по краям, чтобы не щёлкало
			amp := 0.6
			edge := sampleRate / 100
			if s < edge {
				amp *= float64(s) / float64(edge)
			} else if n-s < edge {
				amp *= float64(n-s) / float64(edge)
			}
			v := amp * math.Sin(2*math.Pi*t.Freq*float64(s)/sampleRate)
			pcm = append(pcm, int16(v*math.MaxInt16))
		}
	}

	dataLen := len(pcm) * 2
	var buf bytes.Buffer
	buf.WriteString("RIFF")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVEfmt ")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(sampleRate*2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(2))
	_ = binary.Write(&buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	_ = binary.Write(&buf, binary.LittleEndian, uint32(dataLen))
	_ = binary.Write(&buf, binary.LittleEndian, pcm)
	return buf.Bytes()
}
