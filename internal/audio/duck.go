package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	maxVolume = 150
	fadeStep  = 10 * time.Millisecond
)

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

// sinkInput is one PulseAudio playback stream as pactl reports it.
type sinkInput struct {
	ID      int
	Volume  int
	AppName string
}

type fade struct {
	id       int
	from, to int
}

// pactlFunc runs pactl with args and returns its stdout.
type pactlFunc func(ctx context.Context, args ...string) ([]byte, error)

func runPactl(ctx context.Context, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, "pactl", args...).Output()
}

// Ducker fades every PulseAudio sink input down while the assistant talks,
// except the ones whose application.name is listed as our own.
type Ducker struct {
	pactl     pactlFunc
	selfNames map[string]bool
	minVolume int

	mu      sync.Mutex
	ducked  bool
	restore map[int]int // sink input id -> volume % before ducking
}

func NewDucker(selfNames []string, minVolume int) *Ducker {
	self := make(map[string]bool, len(selfNames))
	for _, n := range selfNames {
		self[n] = true
	}
	return &Ducker{
		pactl:     runPactl,
		selfNames: self,
		minVolume: clampVolume(minVolume),
	}
}

// DuckOthers scales foreign streams to factor of their volume, never below
// the floor given to NewDucker. Calling it while already ducked does nothing.
func (d *Ducker) DuckOthers(ctx context.Context, factor float64, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ducked {
		return nil
	}

	inputs, err := d.sinkInputs(ctx)
	if err != nil {
		return err
	}

	restore := make(map[int]int)
	var fades []fade
	for _, in := range inputs {
		if d.selfNames[in.AppName] {
			continue
		}
		target := int(math.Round(float64(in.Volume) * factor))
		restore[in.ID] = in.Volume
		fades = append(fades, fade{id: in.ID, from: in.Volume, to: clampVolume(max(target, d.minVolume))})
	}

	if err := d.fadeAll(ctx, fades, duration); err != nil {
		return err
	}
	d.restore = restore
	d.ducked = true

	return nil
}

// UnduckOthers fades foreign streams back to where DuckOthers found them.
// Streams that appeared in between are left alone.
func (d *Ducker) UnduckOthers(ctx context.Context, duration time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.ducked {
		return nil
	}

	inputs, err := d.sinkInputs(ctx)
	if err != nil {
		return err
	}

	var fades []fade
	for _, in := range inputs {
		if orig, ok := d.restore[in.ID]; ok {
			fades = append(fades, fade{id: in.ID, from: in.Volume, to: orig})
		}
	}

	if err := d.fadeAll(ctx, fades, duration); err != nil {
		return err
	}
	d.restore = nil
	d.ducked = false

	return nil
}

func (d *Ducker) sinkInputs(ctx context.Context) ([]sinkInput, error) {
	out, err := d.pactl(ctx, "list", "sink-inputs")
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}
	return parseSinkInputs(string(out)), nil
}

// fadeAll moves every stream linearly to its target in fadeStep increments.
func (d *Ducker) fadeAll(ctx context.Context, fades []fade, duration time.Duration) error {
	if len(fades) == 0 {
		return nil
	}

	steps := max(int(duration/fadeStep), 1)
	tick := duration / time.Duration(steps)

	for i := 1; i <= steps; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		frac := float64(i) / float64(steps)
		for _, f := range fades {
			v := int(math.Round(float64(f.from) + float64(f.to-f.from)*frac))
			arg := fmt.Sprintf("%d%%", clampVolume(v))
			if _, err := d.pactl(ctx, "set-sink-input-volume", strconv.Itoa(f.id), arg); err != nil {
				return fmt.Errorf("set volume of sink input %d: %w", f.id, err)
			}
		}

		if i < steps {
			time.Sleep(tick)
		}
	}

	return nil
}

// parseSinkInputs reads `pactl list sink-inputs`. Blocks with neither a
// volume nor an application name are skipped.
func parseSinkInputs(text string) []sinkInput {
	var res []sinkInput
	for _, block := range strings.Split(text, "Sink Input #")[1:] {
		header, body, _ := strings.Cut(block, "\n")
		id, err := strconv.Atoi(strings.TrimSpace(header))
		if err != nil {
			continue
		}

		in := sinkInput{ID: id}
		for _, line := range strings.Split(body, "\n") {
			line = strings.TrimSpace(line)

			switch {
			case strings.HasPrefix(line, "Volume:") && in.Volume == 0:
				if m := percentRe.FindStringSubmatch(line); m != nil {
					in.Volume, _ = strconv.Atoi(m[1])
				}
			case strings.HasPrefix(line, "application.name =") && in.AppName == "":
				if v, err := strconv.Unquote(strings.TrimSpace(strings.TrimPrefix(line, "application.name ="))); err == nil {
					in.AppName = v
				}
			}
		}

		if in.Volume == 0 && in.AppName == "" {
			continue
		}
		res = append(res, in)
	}

	return res
}

func clampVolume(v int) int {
	return min(max(v, 0), maxVolume)
}
