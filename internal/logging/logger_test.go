package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestInitJSONRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "warn", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	Info().Msg("hidden")
	Warn().Str("brand", "Toyota").Msg("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"brand":"Toyota"`) || !strings.Contains(out, `"message":"shown"`) {
		t.Fatalf("expected structured warn line, got: %s", out)
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel, "WARNING": zerolog.WarnLevel, "off": zerolog.Disabled, "bogus": zerolog.InfoLevel,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestWithAddsFields(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Format: "json", Output: &buf})
	t.Cleanup(func() { Init(Config{}) })

	l := With().Str("request_id", "abc").Logger()
	l.Info().Msg("request")
	if !strings.Contains(buf.String(), `"request_id":"abc"`) {
		t.Fatalf("expected child logger field, got: %s", buf.String())
	}
}
