package speech

// Voice describes one narrator available from the synthesis server.
type Voice struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Lang   string `json:"lang"`
	Gender string `json:"gender"`
}

var voices = []Voice{
	{ID: "am_adam", Name: "Adam", Lang: "American English", Gender: "Male"},
	{ID: "am_michael", Name: "Michael", Lang: "American English", Gender: "Male"},
	{ID: "af_heart", Name: "Heart", Lang: "American English", Gender: "Female"},
	{ID: "af_bella", Name: "Bella", Lang: "American English", Gender: "Female"},
	{ID: "af_nicole", Name: "Nicole", Lang: "American English", Gender: "Female"},
	{ID: "af_sarah", Name: "Sarah", Lang: "American English", Gender: "Female"},
	{ID: "af_sky", Name: "Sky", Lang: "American English", Gender: "Female"},
	{ID: "bf_emma", Name: "Emma", Lang: "British English", Gender: "Female"},
	{ID: "bf_isabella", Name: "Isabella", Lang: "British English", Gender: "Female"},
	{ID: "bm_george", Name: "George", Lang: "British English", Gender: "Male"},
	{ID: "bm_lewis", Name: "Lewis", Lang: "British English", Gender: "Male"},
}

// Voices returns the supported narrator catalog.
func Voices() []Voice {
	out := make([]Voice, len(voices))
	copy(out, voices)
	return out
}

// ValidVoice reports whether the identifier names a known narrator.
func ValidVoice(id string) bool {
	for _, v := range voices {
		if v.ID == id {
			return true
		}
	}
	return false
}

// VoiceName returns the display name for a narrator id, or "this voice"
// when the id is unknown.
func VoiceName(id string) string {
	for _, v := range voices {
		if v.ID == id {
			return v.Name
		}
	}
	return "this voice"
}
