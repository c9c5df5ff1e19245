package db

import (
	"strings"
	"testing"

	"github.com/zulandar/switchboard/internal/config"
)

func TestDSN(t *testing.T) {
	tests := []struct {
		name     string
		user     string
		password string
		host     string
		port     int
		database string
		want     string
	}{
		{
			name:     "no password",
			user:     "root",
			host:     "127.0.0.1",
			port:     3306,
			database: "switchboard",
			want:     "root@tcp(127.0.0.1:3306)/switchboard?parseTime=true&charset=utf8mb4",
		},
		{
			name:     "with password",
			user:     "bot",
			password: "s3cret",
			host:     "10.0.0.5",
			port:     3307,
			database: "sb_alice",
			want:     "bot:s3cret@tcp(10.0.0.5:3307)/sb_alice?parseTime=true&charset=utf8mb4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DSN(tt.user, tt.password, tt.host, tt.port, tt.database)
			if got != tt.want {
				t.Errorf("DSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"})
	if err == nil {
		t.Fatal("expected error for unsupported driver")
	}
	if !strings.Contains(err.Error(), `unsupported driver "oracle"`) {
		t.Errorf("error = %q", err.Error())
	}
}

func TestAllModels_Count(t *testing.T) {
	if got := len(AllModels()); got != 4 {
		t.Errorf("AllModels() = %d models, want 4", got)
	}
}

func TestOpenMemory_MigratesTables(t *testing.T) {
	gdb, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	for _, table := range []string{"conversations", "lead_profiles", "log_entries", "sessions"} {
		if !gdb.Migrator().HasTable(table) {
			t.Errorf("table %s not created", table)
		}
	}
}

func TestAutoMigrate_Idempotent(t *testing.T) {
	gdb, err := OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	if err := AutoMigrate(gdb); err != nil {
		t.Fatalf("second AutoMigrate: %v", err)
	}
}
