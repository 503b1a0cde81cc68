package widget

import (
	"encoding/json"
	"fmt"
)

// Action identifies what selecting an option does.
type Action int

const (
	ActionPlayVideo Action = iota + 1
	ActionOpenURL
	ActionStartChat
	ActionChangeOptions
)

var actionNames = map[Action]string{
	ActionPlayVideo:     "playVideo",
	ActionOpenURL:       "openUrl",
	ActionStartChat:     "startChat",
	ActionChangeOptions: "changeOptions",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("action(%d)", int(a))
}

func (a Action) Valid() bool {
	_, ok := actionNames[a]
	return ok
}

// ParseAction maps a wire tag to its Action.
func ParseAction(s string) (Action, error) {
	for a, name := range actionNames {
		if name == s {
			return a, nil
		}
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

func (a Action) MarshalJSON() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("marshal action: unknown action %d", int(a))
	}
	return json.Marshal(a.String())
}

func (a *Action) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode action: %w", err)
	}
	parsed, err := ParseAction(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Option is one entry of an interactive menu. Payload is interpreted by
// Action: a video id, a URL, a chat message or an option-set id.
type Option struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Action  Action `json:"action"`
	Payload string `json:"payload"`
}

// Source is where a video is played from. Handle is set once the URL has
// been materialised locally and takes precedence over URL.
type Source struct {
	URL    string
	Handle string
}

func (s Source) Playable() string {
	if s.Handle != "" {
		return s.Handle
	}
	return s.URL
}

type Video struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Source Source `json:"-"`
}

type videoJSON struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Src   string `json:"src"`
}

func (v Video) MarshalJSON() ([]byte, error) {
	return json.Marshal(videoJSON{ID: v.ID, Title: v.Title, Src: v.Source.URL})
}

func (v *Video) UnmarshalJSON(data []byte) error {
	var raw videoJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decode video: %w", err)
	}
	*v = Video{ID: raw.ID, Title: raw.Title, Source: Source{URL: raw.Src}}
	return nil
}

func cloneOptions(opts []Option) []Option {
	if len(opts) == 0 {
		return []Option{}
	}
	out := make([]Option, len(opts))
	copy(out, opts)
	return out
}
