// SPDX-License-Identifier: MIT

package agent

import "testing"

func TestParseMeminfo(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  float64
	}{
		{
			name: "half used",
			input: "MemTotal:       1000 kB\n" +
				"MemFree:          100 kB\n" +
				"MemAvailable:     500 kB\n",
			want: 50,
		},
		{
			name: "fully available",
			input: "MemTotal:       2048 kB\n" +
				"MemAvailable:   2048 kB\n",
			want: 0,
		},
		{
			name:  "missing MemAvailable",
			input: "MemTotal:       1000 kB\n",
			want:  -1,
		},
		{
			name:  "garbage",
			input: "not a meminfo file",
			want:  -1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := parseMeminfo(tt.input); got != tt.want {
				t.Errorf("parseMeminfo() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSystemInfo(t *testing.T) {
	info := systemInfo()
	for _, key := range []string{"os", "arch", "go_version", "cpu_cores", "goroutines", "mem_alloc_mb"} {
		if _, ok := info[key]; !ok {
			t.Errorf("systemInfo() missing %q", key)
		}
	}
	if info["os"] == "" {
		t.Error("empty os")
	}
}

func TestOSDescriptor(t *testing.T) {
	if osDescriptor() == "" {
		t.Error("empty OS descriptor")
	}
}
