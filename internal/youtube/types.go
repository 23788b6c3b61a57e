package youtube

// TranscriptLine is one caption cue. Offset and Duration are in seconds.
// Lines are produced in source order and never re-sorted.
type TranscriptLine struct {
	Text     string  `json:"text"`
	Offset   float64 `json:"offset"`
	Duration float64 `json:"duration"`
}

// CaptionTrack is one language-tagged caption stream for a video. BaseURL is
// always absolute by the time a track leaves the locator.
type CaptionTrack struct {
	BaseURL      string `json:"baseUrl"`
	LanguageCode string `json:"languageCode"`
	Kind         string `json:"kind"` // "asr" = auto-generated
}
