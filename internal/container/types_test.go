package container

import (
	"strings"
	"testing"
)

func TestMountArg(t *testing.T) {
	tests := []struct {
		name  string
		mount Mount
		want  string
	}{
		{
			name:  "read-write",
			mount: Mount{Source: "/home/user/plugin/.expel/build-obj", Target: "/home/build/plugin/obj"},
			want:  "type=bind,src=/home/user/plugin/.expel/build-obj,dst=/home/build/plugin/obj",
		},
		{
			name:  "read-only",
			mount: Mount{Source: "/home/user/plugin", Target: "/home/build/plugin", ReadOnly: true},
			want:  "type=bind,src=/home/user/plugin,dst=/home/build/plugin,readonly",
		},
		{
			name:  "windows source",
			mount: Mount{Source: `C:\Users\dev\plugin\.expel\build-bin`, Target: "/home/build/plugin/bin"},
			want:  `type=bind,src=C:\Users\dev\plugin\.expel\build-bin,dst=/home/build/plugin/bin`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.mount.Arg()
			if got != tt.want {
				t.Errorf("Arg() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestMountArgReadonlySuffixOnlyWhenReadOnly(t *testing.T) {
	for _, ro := range []bool{true, false} {
		arg := Mount{Source: "/src", Target: "/dst", ReadOnly: ro}.Arg()
		if !strings.HasPrefix(arg, "type=bind,src=/src,dst=/dst") {
			t.Errorf("Arg() = %q, missing bind prefix", arg)
		}
		if strings.HasSuffix(arg, ",readonly") != ro {
			t.Errorf("Arg() = %q, readonly suffix should be %v", arg, ro)
		}
	}
}
