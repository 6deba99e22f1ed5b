package user

import "strings"

// Mood is the profile theme tag. The chat core copies it onto messages and
// otherwise treats it as opaque.
type Mood string

const (
	MoodDefault      Mood = "default"
	MoodHappy        Mood = "happy"
	MoodCalm         Mood = "calm"
	MoodRomantic     Mood = "romantic"
	MoodDark         Mood = "dark"
	MoodEnergetic    Mood = "energetic"
	MoodProfessional Mood = "professional"
)

var moods = map[Mood]struct{}{
	MoodDefault: {}, MoodHappy: {}, MoodCalm: {}, MoodRomantic: {},
	MoodDark: {}, MoodEnergetic: {}, MoodProfessional: {},
}

// ParseMood maps unknown or empty values to MoodDefault.
func ParseMood(s string) Mood {
	m := Mood(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := moods[m]; ok {
		return m
	}
	return MoodDefault
}

// Profile is the read-only view of a user owned by the user-management service.
type Profile struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatarUrl"`
	Mood      Mood   `json:"mood"`
}
