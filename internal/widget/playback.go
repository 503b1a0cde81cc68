package widget

import (
	"context"
	"fmt"
)

// Media is the playback element the widget drives. Implementations report
// position changes by invoking the function passed to OnTimeUpdate.
type Media interface {
	Load(src string)
	Play(ctx context.Context) error
	Pause()
	CurrentTime() float64
	Seek(t float64)
	Duration() float64
	Unload()
	OnTimeUpdate(fn func())
}

// Loader converts a source URL into a locally owned handle so repeated
// playback does not fetch it again.
type Loader interface {
	Materialize(ctx context.Context, url string) (handle string, err error)
}

// TimeUpdateFunc observes playback position for the current video.
type TimeUpdateFunc func(currentTime, duration float64, videoID string)

// Player tracks the current video and drives a Media element. It is not
// safe for concurrent use; the Widget loop owns it.
type Player struct {
	media    Media
	videos   []Video
	current  string
	observer TimeUpdateFunc
	report   ReportFunc
}

func NewPlayer(media Media, videos []Video, report ReportFunc) *Player {
	if report == nil {
		report = logReport
	}
	p := &Player{media: media, report: report}
	p.videos = append(p.videos, videos...)
	return p
}

func (p *Player) Videos() []Video {
	out := make([]Video, len(p.videos))
	copy(out, p.videos)
	return out
}

func (p *Player) Current() (string, bool) {
	return p.current, p.current != ""
}

func (p *Player) find(id string) int {
	for i, v := range p.videos {
		if v.ID == id {
			return i
		}
	}
	return -1
}

// PlayByID loads and starts the video with id. It reports whether the id
// was known; unknown ids leave all state untouched.
func (p *Player) PlayByID(ctx context.Context, id string) bool {
	i := p.find(id)
	if i < 0 {
		return false
	}
	v := p.videos[i]
	p.media.Load(v.Source.Playable())
	p.current = id
	if err := p.media.Play(ctx); err != nil {
		p.report(fmt.Errorf("%w: video %q: %w", ErrPlayback, id, err))
	}
	return true
}

func (p *Player) Replay(ctx context.Context) {
	if p.current == "" {
		return
	}
	p.PlayByID(ctx, p.current)
}

// StopAll pauses, rewinds and releases the bound source. The current video
// id is kept so a later Replay can resume it.
func (p *Player) StopAll() {
	p.media.Pause()
	p.media.Seek(0)
	p.media.Unload()
}

// OnTimeUpdate replaces the registered observer; nil unregisters it.
func (p *Player) OnTimeUpdate(fn TimeUpdateFunc) {
	p.observer = fn
}

func (p *Player) notifyTimeUpdate() {
	if p.observer == nil {
		return
	}
	p.observer(p.media.CurrentTime(), p.media.Duration(), p.current)
}

// Add appends v, replacing an existing video with the same id in place.
func (p *Player) Add(v Video) {
	if i := p.find(v.ID); i >= 0 {
		p.videos[i] = v
		return
	}
	p.videos = append(p.videos, v)
}

// Remove deletes the video with id. Removing the current video stops it
// and advances to the new first video, or clears the current id when none
// remain.
func (p *Player) Remove(ctx context.Context, id string) bool {
	i := p.find(id)
	if i < 0 {
		return false
	}
	p.videos = append(p.videos[:i], p.videos[i+1:]...)
	if p.current != id {
		return true
	}

	p.StopAll()
	p.current = ""
	if len(p.videos) > 0 {
		p.PlayByID(ctx, p.videos[0].ID)
	}
	return true
}

// SetHandle records a materialised handle for id, provided the video still
// points at url.
func (p *Player) SetHandle(id, url, handle string) bool {
	i := p.find(id)
	if i < 0 || p.videos[i].Source.URL != url {
		return false
	}
	p.videos[i].Source.Handle = handle
	return true
}
