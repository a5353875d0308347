package main

import (
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/erp/supplier-portal/internal/infrastructure/config"
	"github.com/erp/supplier-portal/internal/infrastructure/logger"
	"github.com/erp/supplier-portal/internal/infrastructure/migration"
)

// command is one migrate subcommand. Commands without a migrator only touch the
// migrations directory.
type command struct {
	usage    string
	args     int
	database bool
	run      func(env *env, args []string) error
}

type env struct {
	dir      string
	log      *zap.Logger
	migrator *migration.Migrator
}

var commands = map[string]command{
	"up":   {usage: "up", database: true, run: func(e *env, _ []string) error { return e.migrator.Up() }},
	"down": {usage: "down", database: true, run: func(e *env, _ []string) error { return e.migrator.Down() }},
	"step": {usage: "step <n>", args: 1, database: true, run: func(e *env, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("step count %q is not a number", args[0])
		}
		return e.migrator.Steps(n)
	}},
	"goto": {usage: "goto <version>", args: 1, database: true, run: func(e *env, args []string) error {
		v, err := strconv.ParseUint(args[0], 10, 32)
		if err != nil {
			return fmt.Errorf("version %q is not a number", args[0])
		}
		return e.migrator.GoTo(uint(v))
	}},
	"force": {usage: "force <version>", args: 1, database: true, run: func(e *env, args []string) error {
		v, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("version %q is not a number", args[0])
		}
		return e.migrator.Force(v)
	}},
	"status": {usage: "status", database: true, run: printStatus},
	"list":   {usage: "list", run: printScripts},
	"create": {usage: "create <name> [note]", args: 1, run: func(e *env, args []string) error {
		note := ""
		if len(args) > 1 {
			note = args[1]
		}
		s, err := migration.Scaffold(e.dir, args[0], note, time.Now())
		if err != nil {
			return err
		}
		e.log.Info("Migration created", zap.String("base", s.Base()), zap.String("dir", e.dir))
		return nil
	}},
}

func main() {
	var dir, logLevel string
	flag.StringVar(&dir, "path", "migrations", "Migrations directory")
	flag.StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() == 0 {
		printUsage()
		os.Exit(2)
	}
	name, args := flag.Arg(0), flag.Args()[1:]
	cmd, ok := commands[name]
	if !ok || len(args) < cmd.args {
		printUsage()
		os.Exit(2)
	}

	log, err := logger.New(&logger.Config{Level: logLevel, Format: "console", Output: "stdout"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}

	if err := execute(cmd, name, args, dir, log); err != nil {
		log.Error("Migration command failed", zap.String("command", name), zap.Error(err))
		_ = log.Sync()
		os.Exit(1)
	}
	_ = log.Sync()
}

func execute(cmd command, name string, args []string, dir string, log *zap.Logger) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return err
	}
	e := &env{dir: abs, log: log.With(zap.String("command", name))}
	if !cmd.database {
		return cmd.run(e, args)
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	if cfg.Database.Driver != "postgres" {
		return errors.New("SQL migrations target postgres; sqlite schemas are created by the server on start")
	}

	db, err := sql.Open("postgres", cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		return fmt.Errorf("ping %s:%d: %w", cfg.Database.Host, cfg.Database.Port, err)
	}

	e.migrator, err = migration.New(db, abs, log)
	if err != nil {
		return err
	}
	defer e.migrator.Close()
	return cmd.run(e, args)
}

func printStatus(e *env, _ []string) error {
	st, err := e.migrator.Status()
	if err != nil {
		return err
	}
	fmt.Printf("version %d", st.Version)
	if st.Dirty {
		fmt.Print(" (dirty)")
	}
	fmt.Printf(", %d pending\n", len(st.Pending))
	for _, s := range st.Pending {
		fmt.Println("  pending", s.Base())
	}
	return nil
}

func printScripts(e *env, _ []string) error {
	scripts, err := migration.Scan(e.dir)
	if err != nil {
		return err
	}
	for _, s := range scripts {
		down := ""
		if !s.HasDown {
			down = "  (no down script)"
		}
		fmt.Printf("%s%s\n", s.Base(), down)
	}
	return nil
}

func printUsage() {
	fmt.Fprint(os.Stderr, `Applies the supplier portal PostgreSQL schema.

Usage: migrate [-path dir] [-log-level level] <command>

Commands:
  up                 apply every pending script
  down               revert every applied script
  step <n>           move n scripts, negative to revert
  goto <version>     move to an exact version
  status             show the applied version and pending scripts
  force <version>    record a version after fixing a dirty schema by hand
  list               list scripts on disk
  create <name> [note]
                     scaffold the next up/down pair

Connection settings come from config.toml or PORTAL_DATABASE_* variables.
`)
}
