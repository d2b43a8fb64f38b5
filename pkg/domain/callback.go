package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// LooseString holds the text of any JSON value. Provider callbacks are not strict
// about field types, and a field of the wrong type must not cost the acknowledgment.
// Strings are unquoted, null is empty, everything else keeps its raw JSON.
type LooseString string

func (s *LooseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case len(b) == 0 || string(b) == "null":
		*s = ""
	case b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = LooseString(v)
	default:
		*s = LooseString(b)
	}
	return nil
}

func (s LooseString) String() string { return string(s) }

// MusicCallback is the body the provider posts when a music task changes stage.
// Data stays raw until the deferred normalization step reads it.
type MusicCallback struct {
	TaskID LooseString     `json:"taskId"`
	Status LooseString     `json:"status"`
	Type   LooseString     `json:"type"`
	Data   json.RawMessage `json:"data"`
}

// MusicCallbackData.Response is either an object or a JSON-encoded string of one.
type MusicCallbackData struct {
	Response json.RawMessage `json:"response"`
}

// LyricsCallback.Code is a json.Number when the provider sends a number and a
// string otherwise; only the number 200 counts as success.
type LyricsCallback struct {
	Code any             `json:"code"`
	Msg  LooseString     `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (cb LyricsCallback) TaskID() string { return objectField(cb.Data, "task_id") }

func (cb LyricsCallback) CallbackType() string { return objectField(cb.Data, "callbackType") }

type LyricsCallbackData struct {
	TaskID       LooseString     `json:"task_id"`
	CallbackType LooseString     `json:"callbackType"`
	Data         []LyricsVariant `json:"data"`
}

type LyricsVariant struct {
	Title        string `json:"title"`
	Text         string `json:"text"`
	Status       string `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

type CoverCallback struct {
	Code any             `json:"code"`
	Msg  LooseString     `json:"msg"`
	Data json.RawMessage `json:"data"`
}

func (cb CoverCallback) TaskID() string { return objectField(cb.Data, "taskId") }

type CoverCallbackData struct {
	TaskID LooseString `json:"taskId"`
	Images []string    `json:"images"`
}

// CodeString renders a callback code the way it reads in dedup keys and logs.
func CodeString(code any) string {
	switch v := code.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// objectField returns key from raw when raw is a JSON object, "" otherwise.
func objectField(raw json.RawMessage, key string) string {
	var m map[string]LooseString
	if len(raw) == 0 || json.Unmarshal(raw, &m) != nil {
		return ""
	}
	return strings.TrimSpace(string(m[key]))
}

// CallbackAck is returned to the provider before any normalization happens.
type CallbackAck struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	TaskID      string `json:"taskId,omitempty"`
	ProcessedAt string `json:"processedAt,omitempty"`

	Duplicate bool `json:"-"`
}

// ISOMillis formats t the way browsers print Date.toISOString().
const ISOMillis = "2006-01-02T15:04:05.000Z07:00"

func FormatProcessedAt(t time.Time) string {
	return t.UTC().Format(ISOMillis)
}
