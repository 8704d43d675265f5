package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestSetupAndWithComponent(t *testing.T) {
	var buf bytes.Buffer
	Setup(Options{Level: "warn", Output: &buf})

	log := WithComponent("parser")
	log.Info().Msg("hidden")
	log.Warn().Str("store", "CH01").Msg("visible")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info should be filtered at warn level: %s", out)
	}
	if !strings.Contains(out, `"component":"parser"`) || !strings.Contains(out, `"store":"CH01"`) {
		t.Fatalf("missing fields: %s", out)
	}
}
