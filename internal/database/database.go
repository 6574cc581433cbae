// Package database opens the PostgreSQL connection behind the postgres ledger
// backend. With PG_HOST=localhost and no password it starts an embedded
// server so a scanner station can run without any database setup.
package database

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	embeddedpostgres "github.com/fergusstrange/embedded-postgres"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/xelth-com/lotscan/internal/config"
	"github.com/xelth-com/lotscan/internal/logger"
)

const (
	embeddedDataPath = "./ledger_db"
	embeddedPort     = 5434
	embeddedPassword = "postgres"
)

var log = logger.GetLogger("app")

// DB wraps gorm.DB together with the embedded server it may own
type DB struct {
	*gorm.DB
	embedded *embeddedpostgres.EmbeddedPostgres
}

// IsEmbedded reports whether cfg selects the embedded server
func IsEmbedded(cfg config.DatabaseConfig) bool {
	return cfg.Host == "localhost" && cfg.Password == ""
}

// DSN builds the libpq connection string
func DSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database,
	)
}

// Connect opens the ledger database, starting the embedded server when needed
func Connect(cfg config.DatabaseConfig) (*DB, error) {
	var embedded *embeddedpostgres.EmbeddedPostgres

	if IsEmbedded(cfg) {
		var err error
		embedded, err = startEmbedded(cfg)
		if err != nil {
			return nil, err
		}
		cfg.Port = strconv.Itoa(embeddedPort)
		cfg.Password = embeddedPassword
	} else {
		log.Infof("Connecting to external PostgreSQL at %s:%s", cfg.Host, cfg.Port)
	}

	level := gormlogger.Warn
	if cfg.Quiet {
		level = gormlogger.Silent
	}

	db, err := gorm.Open(postgres.Open(DSN(cfg)), &gorm.Config{
		Logger: gormlogger.Default.LogMode(level),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		if embedded != nil {
			_ = embedded.Stop()
		}
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetMaxOpenConns(20)
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	log.Info("Ledger database connection established")
	return &DB{DB: db, embedded: embedded}, nil
}

func startEmbedded(cfg config.DatabaseConfig) (*embeddedpostgres.EmbeddedPostgres, error) {
	log.Info("Starting embedded PostgreSQL for the ledger")

	cleanupStaleServer()

	if isPortInUse(embeddedPort) {
		log.Warnf("Port %d still in use, waiting for release", embeddedPort)
		for i := 0; i < 6 && isPortInUse(embeddedPort); i++ {
			time.Sleep(500 * time.Millisecond)
		}
		if isPortInUse(embeddedPort) {
			return nil, fmt.Errorf("port %d is still in use by another process", embeddedPort)
		}
	}

	pg := embeddedpostgres.NewDatabase(embeddedpostgres.DefaultConfig().
		DataPath(embeddedDataPath).
		Port(uint32(embeddedPort)).
		Database(cfg.Database).
		Username(cfg.Username).
		Password(embeddedPassword))

	if err := pg.Start(); err != nil {
		return nil, fmt.Errorf("failed to start embedded database: %w", err)
	}
	log.Infof("Embedded PostgreSQL started on port %d", embeddedPort)
	return pg, nil
}

// cleanupStaleServer stops a server left behind by a crashed process
func cleanupStaleServer() {
	pidFile := filepath.Join(embeddedDataPath, "postmaster.pid")
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return
	}

	sc := bufio.NewScanner(strings.NewReader(string(data)))
	if !sc.Scan() {
		return
	}
	pid, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil {
		log.Warnf("Could not parse PID from postmaster.pid: %v", err)
		return
	}

	process, err := os.FindProcess(pid)
	if err != nil || process.Signal(syscall.Signal(0)) != nil {
		log.Infof("Removing stale postmaster.pid (PID %d not running)", pid)
		_ = os.Remove(pidFile)
		return
	}

	log.Warnf("Found orphaned PostgreSQL process (PID %d), stopping it", pid)
	_ = process.Signal(syscall.SIGTERM)
	for i := 0; i < 10; i++ {
		time.Sleep(500 * time.Millisecond)
		if process.Signal(syscall.Signal(0)) != nil {
			_ = os.Remove(pidFile)
			return
		}
	}

	log.Warn("Process did not stop gracefully, killing it")
	_ = process.Kill()
	time.Sleep(500 * time.Millisecond)
	_ = os.Remove(pidFile)
}

func isPortInUse(port int) bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", port), time.Second)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Close shuts down the connection and the embedded server
func (db *DB) Close() error {
	if db.embedded != nil {
		log.Info("Stopping embedded PostgreSQL")
		defer func() { _ = db.embedded.Stop() }()
	}

	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
