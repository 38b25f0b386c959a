package config

import (
	"os"
	"testing"
)

func TestConfigLoad_Defaults(t *testing.T) {
	// clear env vars
	_ = os.Unsetenv("INTRAY_HTTP_PORT")
	_ = os.Unsetenv("INTRAY_GEMINI_MODEL")
	_ = os.Unsetenv("INTRAY_TIME_ZONE")
	_ = os.Unsetenv("INTRAY_MAX_ANALYSIS_ATTEMPTS")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.HTTPPort != 8080 || cfg.GeminiModel != "gemini-2.0-flash" || cfg.TimeZone != "Asia/Seoul" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.MaxAnalysisAttempts != 3 {
		t.Fatalf("unexpected default analysis attempts: %d", cfg.MaxAnalysisAttempts)
	}
}

func TestConfigLoad_EnvOverride(t *testing.T) {
	_ = os.Setenv("INTRAY_GEMINI_MODEL", "test-model")
	_ = os.Setenv("INTRAY_HTTP_PORT", "9091")
	defer func() {
		_ = os.Unsetenv("INTRAY_GEMINI_MODEL")
		_ = os.Unsetenv("INTRAY_HTTP_PORT")
	}()

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.GeminiModel != "test-model" {
		t.Fatalf("gemini model env override failed, got %s", cfg.GeminiModel)
	}
	if cfg.GetHTTPAddr() != ":9091" {
		t.Fatalf("unexpected http addr: %s", cfg.GetHTTPAddr())
	}
}

func TestConfigLoad_StreamDefaults(t *testing.T) {
	// clear env vars
	_ = os.Unsetenv("INTRAY_STREAM_PING_SECONDS")
	_ = os.Unsetenv("INTRAY_STREAM_QUEUE_CAPACITY")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.StreamPingSeconds != 15 || cfg.StreamQueueCapacity != 32 {
		t.Fatalf("unexpected stream defaults: ping=%d cap=%d", cfg.StreamPingSeconds, cfg.StreamQueueCapacity)
	}
}

func TestParseCategoryList(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want []string
	}{
		{"empty", "", nil},
		{"json array", `["Work","Personal","Errands"]`, []string{"Work", "Personal", "Errands"}},
		{"comma separated", "Work, Personal ,Errands", []string{"Work", "Personal", "Errands"}},
		{"blank entries dropped", "Work,, ,Personal", []string{"Work", "Personal"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseCategoryList(tc.raw)
			if len(got) != len(tc.want) {
				t.Fatalf("ParseCategoryList(%q) = %v, want %v", tc.raw, got, tc.want)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("entry %d = %q, want %q", i, got[i], tc.want[i])
				}
			}
		})
	}
}

func TestLocation_Fallback(t *testing.T) {
	cfg := NewForTesting()
	cfg.TimeZone = "Not/AZone"
	if loc := cfg.Location(); loc.String() != "UTC" {
		t.Fatalf("expected UTC fallback, got %s", loc)
	}
}
