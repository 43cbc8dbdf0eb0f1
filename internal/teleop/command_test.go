package teleop

import (
	"strings"
	"testing"
)

func TestTranslateMove(t *testing.T) {
	tests := []struct {
		direction string
		key       string
	}{
		{"up", "\x1bOA"},
		{"down", "\x1bOB"},
		{"right", "\x1bOC"},
		{"left", "\x1bOD"},
	}
	for _, tt := range tests {
		t.Run(tt.direction, func(t *testing.T) {
			got, err := Translate(Move(tt.direction))
			if err != nil {
				t.Fatalf("Translate: %v", err)
			}
			if string(got) != strings.Repeat(tt.key, 5) {
				t.Errorf("Translate = %q, want %q x5", got, tt.key)
			}
		})
	}
}

func TestTranslateRotate(t *testing.T) {
	got, err := Translate(Rotate("left"))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if string(got) != "<<<<<" {
		t.Errorf("rotate left = %q, want <<<<<", got)
	}
	got, err = Translate(Rotate("right"))
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if string(got) != ">>>>>" {
		t.Errorf("rotate right = %q, want >>>>>", got)
	}
}

func TestTranslateSpeed(t *testing.T) {
	got, err := Translate(SpeedChange("increase"))
	if err != nil || string(got) != "+" {
		t.Errorf("increase = (%q, %v), want +", got, err)
	}
	got, err = Translate(SpeedChange("decrease"))
	if err != nil || string(got) != "-" {
		t.Errorf("decrease = (%q, %v), want -", got, err)
	}
}

func TestTranslateSpeedQueryIsSilent(t *testing.T) {
	got, err := Translate(SpeedQuery())
	if err != nil {
		t.Fatalf("Translate: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("SpeedQuery = %q, want no bytes", got)
	}
}

func TestTranslateRejectsOutOfEnum(t *testing.T) {
	tests := []struct {
		name string
		cmd  Command
	}{
		{"move diagonal", Move("diagonal")},
		{"move empty", Move("")},
		{"move uppercase", Move("UP")},
		{"rotate up", Rotate("up")},
		{"rotate down", Rotate("down")},
		{"speed faster", SpeedChange("faster")},
		{"speed empty", SpeedChange("")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Translate(tt.cmd)
			if KindOf(err) != KindInvalidParameter {
				t.Errorf("kind = %v, want invalid_parameter (err: %v)", KindOf(err), err)
			}
		})
	}
}
