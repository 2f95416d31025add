package util

import "testing"

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("TG_STRING", "hello")
	t.Setenv("TG_FLOAT", "0.75")
	t.Setenv("TG_INT", "42")
	t.Setenv("TG_BOOL", "true")
	t.Setenv("TG_JUNK", "not-a-number")

	if got := GetEnv("TG_STRING"); got != "hello" {
		t.Errorf("GetEnv(TG_STRING) = %q", got)
	}
	if got := GetEnv("TG_UNSET"); got != "" {
		t.Errorf("GetEnv(TG_UNSET) = %q, want empty", got)
	}
	if got := GetEnvString("TG_UNSET", "fallback"); got != "fallback" {
		t.Errorf("GetEnvString(TG_UNSET) = %q", got)
	}
	if got := GetEnvNumeric("TG_FLOAT", 0); got != 0.75 {
		t.Errorf("GetEnvNumeric(TG_FLOAT) = %v", got)
	}
	if got := GetEnvNumeric("TG_JUNK", 1.5); got != 1.5 {
		t.Errorf("GetEnvNumeric(TG_JUNK) = %v, want default", got)
	}
	if got := GetEnvInt("TG_INT", 0); got != 42 {
		t.Errorf("GetEnvInt(TG_INT) = %v", got)
	}
	if got := GetEnvInt("TG_JUNK", 7); got != 7 {
		t.Errorf("GetEnvInt(TG_JUNK) = %v, want default", got)
	}
	if got := GetEnvBool("TG_BOOL", false); got != true {
		t.Errorf("GetEnvBool(TG_BOOL) = %v", got)
	}
	if got := GetEnvBool("TG_JUNK", true); got != true {
		t.Errorf("GetEnvBool(TG_JUNK) = %v, want default", got)
	}
}
