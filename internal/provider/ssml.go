// ABOUTME: SSML construction and voice selection
// ABOUTME: Inserts prosody breaks and pins voices to the supported neural set
package provider

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

const (
	BengaliVoice = "bn-BD-Neural2-A"
	EnglishVoice = "en-US-Neural2-F"

	DefaultCloneStyle = "Natural and clear"
)

var ssmlBreaks = strings.NewReplacer(
	",", `<break time="400ms"/>`,
	".", `<break time="900ms"/>`,
	"|", `<break time="900ms"/>`,
	"।", `<break time="900ms"/>`,
)

// BuildSSML wraps text in the studio prosody with pauses at punctuation
func BuildSSML(text string) string {
	clean := strings.TrimSpace(norm.NFC.String(text))
	return `<speak><prosody rate="0.92" pitch="-1st">` +
		ssmlBreaks.Replace(clean) +
		`<break time="1000ms"/></prosody></speak>`
}

// LockVoice maps any requested voice onto the supported neural voice for its language
func LockVoice(voice string) string {
	if isBengali(voice) {
		return BengaliVoice
	}
	return EnglishVoice
}

// Language returns the base language code for a voice name, "en" when unknown
func Language(voice string) string {
	if isBengali(voice) {
		return "bn"
	}
	base, conf := language.Make(voice).Base()
	if conf == language.No {
		return "en"
	}
	return base.String()
}

func isBengali(voice string) bool {
	if strings.HasPrefix(strings.ToLower(voice), "bn") {
		return true
	}
	base, _ := language.Make(voice).Base()
	bengali, _ := language.Bengali.Base()
	return base == bengali
}

// ClonePrompt is the instruction sent alongside a reference clip
func ClonePrompt(text, style string) string {
	if style == "" {
		style = DefaultCloneStyle
	}
	return fmt.Sprintf("Generate audio for the following text, mimicking the voice in the attached audio sample as closely as possible. Style: %s. Text: %q",
		style, norm.NFC.String(text))
}
