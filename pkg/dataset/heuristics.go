package dataset

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Speaker codes used by the speaker-encoded layout. A path component equal
// to one of these (case-insensitive) labels every file below it.
var (
	controlCodes    = []string{"FC01", "FC02", "FC03", "MC01", "MC02", "MC03", "MC04", "CONTROL"}
	dysarthricCodes = []string{"F01", "F03", "F04", "M01", "M02", "M03", "M04", "M05", "DYSARTHRIC"}
)

// ClassifyPath labels a file from its path components. The first component
// that names a known speaker or class wins. ok is false when no component
// matches, in which case the file is excluded.
func ClassifyPath(parts []string) (label Label, ok bool) {
	for _, p := range parts {
		up := strings.ToUpper(p)
		for _, c := range controlCodes {
			if up == c {
				return Control, true
			}
		}
		for _, c := range dysarthricCodes {
			if up == c {
				return Dysarthric, true
			}
		}
	}
	return "", false
}

var (
	// gender letter, optional control marker, digits; UASpeech control
	// speakers put the marker first (CF02, CM04).
	speakerToken  = regexp.MustCompile(`(?i)^C?[FM]C?\d+$`)
	speakerPrefix = regexp.MustCompile(`(?i)^C?[FM]C?\d+`)
	tokenSplit    = regexp.MustCompile(`[/\\_\-.\s]+`)
)

// SpeakerID derives a speaker identifier from a file path.
//
// The path is split into tokens on separators, underscores, dashes and dots
// and the first token that is a speaker code wins ("F02_B1_C1_M2.wav" ->
// "F02"). Otherwise a parent directory name starting with a speaker code is
// used ("M05S2/0001.wav" -> "M05"). Otherwise UnknownSpeaker.
func SpeakerID(path string) string {
	path = filepath.ToSlash(path)
	for _, tok := range tokenSplit.Split(path, -1) {
		if speakerToken.MatchString(tok) {
			return strings.ToUpper(tok)
		}
	}
	parent := filepath.Base(filepath.Dir(filepath.FromSlash(path)))
	if m := speakerPrefix.FindString(parent); m != "" {
		return strings.ToUpper(m)
	}
	return UnknownSpeaker
}
