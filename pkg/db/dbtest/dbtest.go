// Package dbtest opens throwaway sqlite databases carrying the ledger schema.
package dbtest

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/coverledger/pkg/db"
	"github.com/angelmondragon/coverledger/pkg/db/models"
)

// Open returns a client on a fresh file-backed sqlite database. Writers take
// the database lock at BEGIN and wait on each other instead of failing.
func Open(t testing.TB) *db.Client {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "ledger_"+uuid.NewString()[:8]+".db") + "?_busy_timeout=5000&_txlock=immediate"
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		NowFunc:                func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(models.All()...); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}
	client := db.NewFromConn(conn)
	t.Cleanup(func() { _ = client.Close() })
	return client
}
