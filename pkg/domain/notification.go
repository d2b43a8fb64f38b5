package domain

// EventType discriminates the messages written to a push subscription.
type EventType string

const (
	EventConnected      EventType = "connected"
	EventComplete       EventType = "complete"
	EventError          EventType = "error"
	EventLyricsComplete EventType = "lyrics_complete"
	EventLyricsError    EventType = "lyrics_error"
)

// Kind reports the task domain an event belongs to. Connected events have no domain.
func (t EventType) Kind() TaskKind {
	switch t {
	case EventComplete, EventError:
		return KindMusic
	case EventLyricsComplete, EventLyricsError:
		return KindLyrics
	}
	return ""
}

func (t EventType) IsError() bool {
	return t == EventError || t == EventLyricsError
}

type LyricsText struct {
	Title string `json:"title"`
	Text  string `json:"text"`
}

// Notification is the normalized event relayed to a waiting browser.
type Notification struct {
	Type    EventType        `json:"type"`
	TaskID  string           `json:"taskId"`
	Status  string           `json:"status,omitempty"`
	Music   []map[string]any `json:"music,omitempty"`
	Count   int              `json:"count,omitempty"`
	Lyrics  *LyricsText      `json:"lyrics,omitempty"`
	Error   string           `json:"error,omitempty"`
	Message string           `json:"message,omitempty"`
}
