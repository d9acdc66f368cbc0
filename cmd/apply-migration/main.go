package main

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/KeviinASD/audi-back/internal/common/database"
	"github.com/KeviinASD/audi-back/internal/common/logger"
	"github.com/KeviinASD/audi-back/internal/config"
)

const defaultMigration = "db/migrations/001_audit_schema.sql"

func main() {
	path := defaultMigration
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "apply-migration")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	sqlBytes, err := os.ReadFile(path)
	if err != nil {
		log.Fatal("Failed to read migration file", zap.String("path", path), zap.Error(err))
	}

	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer database.Close(db)

	statements := splitStatements(string(sqlBytes))
	log.Info("Applying migration", zap.String("path", path), zap.Int("statements", len(statements)))

	for i, stmt := range statements {
		if _, err := db.Exec(stmt); err != nil {
			log.Fatal("Migration statement failed",
				zap.Int("statement", i+1),
				zap.String("sql", firstLine(stmt)),
				zap.Error(err),
			)
		}
		log.Debug("Statement applied", zap.Int("statement", i+1), zap.String("sql", firstLine(stmt)))
	}

	log.Info("Migration applied", zap.String("path", path))
}

// splitStatements drops full-line comments, then splits on ";".
func splitStatements(script string) []string {
	var b strings.Builder
	for _, line := range strings.Split(script, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "--") {
			continue
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	var out []string
	for _, stmt := range strings.Split(b.String(), ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out
}

func firstLine(stmt string) string {
	if i := strings.IndexByte(stmt, '\n'); i >= 0 {
		return stmt[:i]
	}
	return stmt
}
