package obs

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
)

func TestTimeLogsRequestAndError(t *testing.T) {
	var buf bytes.Buffer
	prev := log.Writer()
	log.SetOutput(&buf)
	defer log.SetOutput(prev)

	ctx := WithRequestID(context.Background(), "abc")
	if RequestID(ctx) != "abc" {
		t.Fatalf("RequestID = %q, want abc", RequestID(ctx))
	}

	err := errors.New("boom")
	Time(ctx, "population.import")(&err)

	out := buf.String()
	if !strings.Contains(out, "req_id=abc op=population.import") || !strings.Contains(out, "err=boom") {
		t.Fatalf("log = %q", out)
	}
}
