package dataset

import "testing"

func TestClassifyPath(t *testing.T) {
	tests := []struct {
		parts []string
		label Label
		ok    bool
	}{
		{[]string{"FC01", "Session1", "a.wav"}, Control, true},
		{[]string{"mc04", "a.wav"}, Control, true},
		{[]string{"M05", "Session1", "a.wav"}, Dysarthric, true},
		{[]string{"data", "Dysarthric", "a.wav"}, Dysarthric, true},
		{[]string{"control", "M01", "a.wav"}, Control, true},
		{[]string{"M01", "control", "a.wav"}, Dysarthric, true},
		{[]string{"F02", "a.wav"}, "", false},
		{[]string{"misc", "a.wav"}, "", false},
		{nil, "", false},
	}
	for _, tt := range tests {
		label, ok := ClassifyPath(tt.parts)
		if label != tt.label || ok != tt.ok {
			t.Errorf("ClassifyPath(%v) = %q, %v; want %q, %v", tt.parts, label, ok, tt.label, tt.ok)
		}
	}
}

func TestSpeakerID(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"dysarthric/F02/F02_B1_C1_M2.wav", "F02"},
		{"control/CM04_B3_UW11_M5.wav", "CM04"},
		{"F01/Session1/wav_arrayMic/0001.wav", "F01"},
		{"fc02/session3/0123.wav", "FC02"},
		{"control/M05S2/0001.wav", "M05"},
		{"control/speaker-a/0001.wav", UnknownSpeaker},
		{"0001.wav", UnknownSpeaker},
	}
	for _, tt := range tests {
		if got := SpeakerID(tt.path); got != tt.want {
			t.Errorf("SpeakerID(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
