package config

import "testing"

func TestExpandEnv(t *testing.T) {
	t.Setenv("FPGA_HOST", "board.lab")
	t.Setenv("FPGA_EMPTY", "")
	t.Setenv("HOOK_TOKEN", "secret")

	tests := []struct {
		name, in, want string
	}{
		{"set", "target: ${FPGA_HOST}:8051", "target: board.lab:8051"},
		{"unset", "target: ${FPGA_UNSET_12345}", "target: "},
		{"default when unset", "target: ${FPGA_UNSET_12345:-127.0.0.1:8051}", "target: 127.0.0.1:8051"},
		{"default ignored when set", "target: ${FPGA_HOST:-localhost}", "target: board.lab"},
		{"default when empty", "platform: ${FPGA_EMPTY:-zynqmp}", "platform: zynqmp"},
		{"multiple", "${FPGA_HOST}/${HOOK_TOKEN}", "board.lab/secret"},
		{"no vars", "no variables here", "no variables here"},
		{"bare dollar untouched", "cost: $5 and $HOME", "cost: $5 and $HOME"},
		{
			"nested yaml",
			"notify:\n  headers:\n    Authorization: Bearer ${HOOK_TOKEN}",
			"notify:\n  headers:\n    Authorization: Bearer secret",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExpandEnv(tt.in); got != tt.want {
				t.Errorf("ExpandEnv(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
