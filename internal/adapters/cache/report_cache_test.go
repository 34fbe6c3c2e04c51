package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"activity-plan-service/internal/adapters/repositories"
	"activity-plan-service/internal/platform/db"
	"activity-plan-service/internal/ports"
)

func TestReportKey(t *testing.T) {
	body := []byte("<population/>")
	if ReportKey(12, body) != ReportKey(12, body) {
		t.Fatalf("key is not stable")
	}
	if ReportKey(12, body) == ReportKey(11, body) {
		t.Fatalf("version does not change the key")
	}
	if ReportKey(12, body) == ReportKey(12, []byte("<population></population>")) {
		t.Fatalf("body does not change the key")
	}
}

func TestSealedReportRejectsOtherBody(t *testing.T) {
	body := []byte("<population/>")
	entry, err := SealReport(body, []byte(`{"valid":1}`))
	if err != nil {
		t.Fatalf("SealReport: %v", err)
	}

	got, ok := OpenReport(body, entry)
	if !ok || string(got) != `{"valid":1}` {
		t.Fatalf("OpenReport = %q, %v", got, ok)
	}
	if _, ok := OpenReport([]byte("<population></population>"), entry); ok {
		t.Fatalf("entry opened for a different body")
	}
	if _, ok := OpenReport(body, []byte(`{"valid":1}`)); ok {
		t.Fatalf("unsealed entry opened")
	}
}

func exerciseCache(t *testing.T, c ports.ReportCache) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := c.Get(ctx, "report:missing"); err != nil || ok {
		t.Fatalf("Get missing = ok %v err %v", ok, err)
	}
	if err := c.Put(ctx, "report:1", []byte(`{"valid":true}`)); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := c.Put(ctx, "report:1", []byte(`{"valid":false}`)); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err := c.Get(ctx, "report:1")
	if err != nil || !ok || string(got) != `{"valid":false}` {
		t.Fatalf("Get = %q ok %v err %v", got, ok, err)
	}
}

func TestSQLReportCache(t *testing.T) {
	conn, err := db.Open(db.DriverSQLite, "file::memory:")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()
	if err := repositories.InitSchema(conn); err != nil {
		t.Fatalf("InitSchema: %v", err)
	}

	c := NewSQLReportCache(conn, db.DriverSQLite, time.Hour)
	exerciseCache(t, c)

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, ok, err := c.Get(context.Background(), "report:1"); err != nil || ok {
		t.Fatalf("expired entry returned: ok %v err %v", ok, err)
	}
}

func TestRedisReportCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	c := NewRedisReportCache(client, time.Minute)
	exerciseCache(t, c)

	mr.FastForward(2 * time.Minute)
	if _, ok, err := c.Get(context.Background(), "report:1"); err != nil || ok {
		t.Fatalf("expired entry returned: ok %v err %v", ok, err)
	}
}
