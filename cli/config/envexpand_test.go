package config

import "testing"

func TestExpandEnv(t *testing.T) {
	t.Setenv("RP_SET", "real")
	t.Setenv("RP_EMPTY", "")

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"set", "UUID: ${RP_SET}", "UUID: real"},
		{"unset", "UUID: ${RP_UNSET_12345}", "UUID: "},
		{"default when unset", "host: ${RP_UNSET_12345:-http://localhost}", "host: http://localhost"},
		{"default ignored when set", "x: ${RP_SET:-fallback}", "x: real"},
		{"default when empty", "x: ${RP_EMPTY:-fallback}", "x: fallback"},
		{"multiple", "${RP_SET}-${RP_UNSET_12345:-d}", "real-d"},
		{"bare dollar untouched", "cost: $5 and $RP_SET", "cost: $5 and $RP_SET"},
		{"invalid name untouched", "${1BAD}", "${1BAD}"},
		{"no references", "projectName: demo", "projectName: demo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnv(tt.input); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
