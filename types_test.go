package svcmgr

import (
	"testing"
	"time"
)

func TestRestartPolicyDelaySeconds(t *testing.T) {
	tests := []struct {
		name   string
		policy RestartPolicy
		want   uint64
		ok     bool
	}{
		{"never ignores delay", RestartPolicy{Kind: RestartNever}.WithDelay(5 * time.Second), 0, false},
		{"no delay", RestartPolicy{Kind: RestartAlways}, 0, false},
		{"whole seconds", RestartPolicy{Kind: RestartOnFailure}.WithDelay(10 * time.Second), 10, true},
		{"rounds up", RestartPolicy{Kind: RestartAlways}.WithDelay(1500 * time.Millisecond), 2, true},
		{"zero", RestartPolicy{Kind: RestartOnSuccess}.WithDelay(0), 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := tt.policy.DelaySeconds()
			if got != tt.want || ok != tt.ok {
				t.Errorf("DelaySeconds() = (%d, %v), want (%d, %v)", got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestParseRestartKind(t *testing.T) {
	for _, k := range []RestartKind{RestartNever, RestartAlways, RestartOnFailure, RestartOnSuccess} {
		got, ok := ParseRestartKind(k.String())
		if !ok || got != k {
			t.Errorf("ParseRestartKind(%q) = (%v, %v), want (%v, true)", k.String(), got, ok, k)
		}
	}
	if _, ok := ParseRestartKind("sometimes"); ok {
		t.Error("ParseRestartKind(\"sometimes\") succeeded")
	}
}

func TestStatusString(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{Status{State: StateRunning}, "running"},
		{Status{State: StateStopped}, "stopped"},
		{Status{State: StateStopped, Reason: "Win32 error code: 1"}, "stopped (Win32 error code: 1)"},
		{Status{State: StateNotInstalled}, "not installed"},
		{Status{}, "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("%+v.String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestInstallCtxCmd(t *testing.T) {
	c := InstallCtx{Program: "/bin/prog", Args: []string{"a", "b"}}
	got := c.Cmd()
	want := []string{"/bin/prog", "a", "b"}
	if len(got) != len(want) {
		t.Fatalf("Cmd() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Cmd()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestServiceLevelString(t *testing.T) {
	if LevelSystem.String() != "system" || LevelUser.String() != "user" {
		t.Errorf("level strings = %q, %q", LevelSystem, LevelUser)
	}
}
