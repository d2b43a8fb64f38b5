package domain

type GenerationMode string

const (
	ModeBasic  GenerationMode = "basic"
	ModeCustom GenerationMode = "custom"
)

// GenerateMusicRequest carries the musical parameters picked in the studio.
type GenerateMusicRequest struct {
	Mode             GenerationMode `json:"mode"`
	Mood             string         `json:"mood,omitempty"`
	CustomPrompt     string         `json:"customPrompt,omitempty"`
	InstrumentalMode bool           `json:"instrumentalMode,omitempty"`

	Genre          string   `json:"genre,omitempty"`
	Vibe           string   `json:"vibe,omitempty"`
	SongTitle      string   `json:"songTitle,omitempty"`
	GrooveType     string   `json:"grooveType,omitempty"`
	LeadInstrument []string `json:"leadInstrument,omitempty"`
	DrumKit        string   `json:"drumKit,omitempty"`
	BassTone       string   `json:"bassTone,omitempty"`
	VocalStyle     string   `json:"vocalStyle,omitempty"`
	VocalGender    string   `json:"vocalGender,omitempty"`
	HarmonyPalette string   `json:"harmonyPalette,omitempty"`
	BPM            int      `json:"bpm,omitempty"`
}

type GenerateLyricsRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

type GenerateCoverRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// MusicParams is the provider's generate payload.
type MusicParams struct {
	Model               string   `json:"model"`
	CallBackURL         string   `json:"callBackUrl"`
	CustomMode          bool     `json:"customMode"`
	Instrumental        bool     `json:"instrumental"`
	Prompt              string   `json:"prompt,omitempty"`
	Style               string   `json:"style,omitempty"`
	Title               string   `json:"title,omitempty"`
	VocalGender         string   `json:"vocalGender,omitempty"`
	StyleWeight         *float64 `json:"styleWeight,omitempty"`
	WeirdnessConstraint *float64 `json:"weirdnessConstraint,omitempty"`
	AudioWeight         *float64 `json:"audioWeight,omitempty"`
	NegativeTags        string   `json:"negativeTags,omitempty"`
}

// GenerationTicket is what the browser receives after a generation request is accepted.
type GenerationTicket struct {
	TaskID string `json:"taskId"`
	Status string `json:"status"`
}

const TicketGenerating = "generating"
