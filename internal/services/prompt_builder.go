package services

import (
	"fmt"
	"strings"

	"github.com/osvaldoandrade/songbridge/pkg/domain"
)

const (
	providerModel     = "V3_5"
	customModeWeight  = 0.65
	negativeStyleTags = "edm, techno, trap, lo-fi hip-hop, distorted noise"
	defaultMoodStyle  = "soulful Contemporary R&B"
	defaultGenreStyle = "Contemporary R&B"
)

var moodStyles = map[string]string{
	"joyful":      "upbeat, happy, celebratory Contemporary R&B",
	"melancholic": "melancholy, introspective, emotional Contemporary R&B",
	"romantic":    "romantic, intimate, loving Contemporary R&B",
	"nostalgic":   "nostalgic, reminiscent, wistful Contemporary R&B",
	"mysterious":  "mysterious, enigmatic, sultry Contemporary R&B",
	"chill":       "relaxed, laid-back, chill Contemporary R&B",
	"energetic":   "energetic, vibrant, dynamic Contemporary R&B",
	"confident":   "confident, empowering, strong Contemporary R&B",
}

var genreStyles = map[string]string{
	"new-jack-swing":   "New Jack Swing",
	"hip-hop-soul":     "Hip-Hop Soul",
	"contemporary-rnb": "Contemporary R&B",
	"quiet-storm":      "Quiet Storm",
	"neo-soul":         "Neo-Soul",
}

var vibeStyles = map[string]string{
	"slow-jam": "smooth romantic slow tempo",
	"upbeat":   "energetic danceable",
	"chill":    "relaxed laid-back",
	"raw":      "authentic unpolished",
	"polished": "refined professional",
	"groovy":   "funky rhythmic dance",
}

var vocalGenders = map[string]string{
	"male":   "m",
	"female": "f",
}

// BuildMusicParams maps the studio form onto the provider's generate payload.
// Basic mode sends a single prompt; custom mode sends style, title and lyrics separately.
func BuildMusicParams(req domain.GenerateMusicRequest, callbackURL string) domain.MusicParams {
	p := domain.MusicParams{
		Model:        providerModel,
		CallBackURL:  callbackURL,
		Instrumental: req.InstrumentalMode,
	}
	if req.Mode != domain.ModeCustom {
		p.Prompt = basicPrompt(req)
		return p
	}

	p.CustomMode = true
	p.Style = customStyle(req)
	p.Title = strings.TrimSpace(req.SongTitle)
	if !req.InstrumentalMode {
		p.Prompt = req.CustomPrompt
		p.VocalGender = vocalGenders[strings.ToLower(req.VocalGender)]
	}
	w := customModeWeight
	p.StyleWeight = &w
	p.WeirdnessConstraint = &w
	p.AudioWeight = &w
	p.NegativeTags = negativeStyleTags
	return p
}

func basicPrompt(req domain.GenerateMusicRequest) string {
	style, ok := moodStyles[strings.ToLower(req.Mood)]
	if !ok {
		style = defaultMoodStyle
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Create a %s with authentic 1990s Black R&B production, period-appropriate instrumentation, vocals, and mixing. ", style)
	if prompt := strings.TrimSpace(req.CustomPrompt); prompt != "" {
		b.WriteString(prompt)
		b.WriteString(" ")
	}
	b.WriteString("High quality audio, professional production, polished 90s sound.")
	return b.String()
}

func customStyle(req domain.GenerateMusicRequest) string {
	parts := []string{defaultGenreStyle}
	if g, ok := genreStyles[req.Genre]; ok {
		parts[0] = g
	}
	if req.Vibe != "" {
		if v, ok := vibeStyles[req.Vibe]; ok {
			parts = append(parts, v)
		} else {
			parts = append(parts, req.Vibe)
		}
	}
	if req.GrooveType != "" {
		parts = append(parts, req.GrooveType+" groove")
	}
	if len(req.LeadInstrument) > 0 {
		parts = append(parts, "featuring "+strings.Join(req.LeadInstrument, " and "))
	}
	if req.DrumKit != "" {
		parts = append(parts, req.DrumKit+" drums")
	}
	if req.BassTone != "" {
		parts = append(parts, req.BassTone+" bass")
	}
	if req.HarmonyPalette != "" {
		parts = append(parts, req.HarmonyPalette+" harmonies")
	}
	if req.BPM > 0 {
		parts = append(parts, fmt.Sprintf("%d BPM", req.BPM))
	}
	return strings.Join(parts, ", ")
}
