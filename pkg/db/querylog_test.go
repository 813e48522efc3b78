package db

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/coverledger/pkg/logger"
)

func openLogged(t *testing.T, slow time.Duration) (*gorm.DB, *bytes.Buffer) {
	t.Helper()
	buf := &bytes.Buffer{}
	logg := logger.New(logger.Options{ServiceName: "db-test", Output: buf})
	conn, err := gorm.Open(sqlite.Open("file:querylog_"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: newQueryLog(logg, slow),
	})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	buf.Reset()
	return conn, buf
}

func TestQueryLogReportsFailures(t *testing.T) {
	conn, buf := openLogged(t, time.Hour)
	conn.Create(&testModel{Name: "a"})
	if buf.Len() != 0 {
		t.Fatalf("fast successful query should not log: %s", buf.String())
	}
	conn.Create(&testModel{Name: "a"})
	if !strings.Contains(buf.String(), "query failed") {
		t.Fatalf("expected failed query entry, got %s", buf.String())
	}
}

func TestQueryLogReportsSlowQueries(t *testing.T) {
	conn, buf := openLogged(t, time.Nanosecond)
	var rows []testModel
	conn.Find(&rows)
	if !strings.Contains(buf.String(), "slow query") || !strings.Contains(buf.String(), `"sql"`) {
		t.Fatalf("expected slow query entry, got %s", buf.String())
	}

	buf.Reset()
	conn.Session(&gorm.Session{Logger: conn.Logger.LogMode(gormlogger.Silent)}).Find(&rows)
	if buf.Len() != 0 {
		t.Fatalf("silent mode should not log: %s", buf.String())
	}
}

func TestQueryLogWithoutLoggerDiscards(t *testing.T) {
	if newQueryLog(nil, time.Second) != gormlogger.Discard {
		t.Fatal("expected discard logger without a service logger")
	}
}
