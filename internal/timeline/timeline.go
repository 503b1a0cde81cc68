// Package timeline switches a widget's option set at scripted playback
// offsets.
package timeline

import (
	"fmt"
	"log/slog"
	"sync"
)

// Cue shows SetID while VideoID plays between At and Until seconds, and
// switches to RevertTo when playback leaves that window. An empty VideoID
// matches every video; Until <= 0 keeps the window open to the end.
type Cue struct {
	VideoID  string  `json:"videoId,omitempty"`
	At       float64 `json:"at"`
	Until    float64 `json:"until,omitempty"`
	SetID    string  `json:"setId"`
	RevertTo string  `json:"revertTo,omitempty"`
}

func (c Cue) contains(videoID string, t float64) bool {
	if c.VideoID != "" && c.VideoID != videoID {
		return false
	}
	if t < c.At {
		return false
	}
	return c.Until <= 0 || t < c.Until
}

func (c Cue) Validate() error {
	if c.SetID == "" {
		return fmt.Errorf("cue at %v has no option set", c.At)
	}
	if c.At < 0 {
		return fmt.Errorf("cue %q starts before zero", c.SetID)
	}
	if c.Until > 0 && c.Until <= c.At {
		return fmt.Errorf("cue %q ends before it starts", c.SetID)
	}
	return nil
}

// Switcher is the part of a widget a Timeline drives.
type Switcher interface {
	ChangeOptions(setID string)
}

// Timeline evaluates cues on every time update. Each cue fires once when
// playback enters its window and once when it leaves.
type Timeline struct {
	mu     sync.Mutex
	cues   []Cue
	active []bool
	target Switcher
}

func New(target Switcher, cues []Cue) (*Timeline, error) {
	for _, c := range cues {
		if err := c.Validate(); err != nil {
			return nil, err
		}
	}
	return &Timeline{
		cues:   append([]Cue(nil), cues...),
		active: make([]bool, len(cues)),
		target: target,
	}, nil
}

// Observe has the shape of widget.TimeUpdateFunc.
func (tl *Timeline) Observe(currentTime, duration float64, videoID string) {
	tl.mu.Lock()
	var switches []string
	for i, c := range tl.cues {
		inside := c.contains(videoID, currentTime)
		switch {
		case inside && !tl.active[i]:
			tl.active[i] = true
			switches = append(switches, c.SetID)
		case !inside && tl.active[i]:
			tl.active[i] = false
			if c.RevertTo != "" {
				switches = append(switches, c.RevertTo)
			}
		}
	}
	tl.mu.Unlock()

	for _, setID := range switches {
		slog.Debug("timeline: switching options", "set_id", setID, "video_id", videoID, "at", currentTime)
		tl.target.ChangeOptions(setID)
	}
}
