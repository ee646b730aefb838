package reviewflow

import (
	"context"
	"database/sql"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/openarchive/reviewflow/internal/actions"
	"github.com/openarchive/reviewflow/internal/config"
	"github.com/openarchive/reviewflow/internal/controllers"
	"github.com/openarchive/reviewflow/internal/definition"
	"github.com/openarchive/reviewflow/internal/domain"
	"github.com/openarchive/reviewflow/internal/engine"
	"github.com/openarchive/reviewflow/internal/migrations"
	"github.com/openarchive/reviewflow/internal/repository"

	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/lmittmann/tint"

	_ "github.com/go-sql-driver/mysql"
	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite3"
	_ "github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Options carries the host platform's collaborators. Items and ItemStore
// usually point at the same repository object; they are separate fields so
// hosts can split archival from metadata access if they need to.
type Options struct {
	Items  engine.ItemRepository
	Store  actions.ItemStore
	Groups engine.GroupDirectory
	Notify engine.NotificationSink

	// Extra actions registered alongside the built-in set.
	SelectionActions  []actions.UserSelectionAction
	ProcessingActions []actions.ProcessingAction

	// Mux to register routes on; a fresh one is created when nil.
	Mux *http.ServeMux
}

// Start boots the workflow engine and HTTP server. Definitions are loaded
// from RFLOW_DEFINITIONS_DIR and validated against the action registry
// before the server accepts traffic. This call blocks until the HTTP
// server stops.
func Start(opts Options) error {

	databaseType := config.GetSystemSettingString(config.DATABASE_TYPE)
	if databaseType == "" || (databaseType != config.DATABASE_TYPE_POSTGRES && databaseType != config.DATABASE_TYPE_MYSQL && databaseType != config.DATABASE_TYPE_SQLLITE) {
		panic("RFLOW_DATABASE_TYPE must be set to one of the following values: POSTGRES, MYSQL, SQLLITE")
	}

	var db *sql.DB
	if databaseType == config.DATABASE_TYPE_POSTGRES {
		db = setupPostgresDatabase()
		defer db.Close()
	}
	if databaseType == config.DATABASE_TYPE_SQLLITE {
		db = setupSqlLiteDatabase()
		defer db.Close()
	}
	if databaseType == config.DATABASE_TYPE_MYSQL {
		db = setupMysqlDatabase()
		defer db.Close()
	}

	store := repository.NewSQLStore(db)

	notify := opts.Notify
	if notify == nil {
		notify = &engine.SlogNotificationSink{}
	}
	resolver := engine.NewRoleResolver(opts.Groups)

	registry := actions.NewRegistry()
	registry.RegisterSelection(actions.NewRoleMembersSelection(
		func(ctx context.Context, item *domain.WorkflowItem, step *definition.StepDefinition) ([]string, error) {
			return resolver.EligiblePrincipals(ctx, store, step, item)
		}))
	registry.RegisterSelection(actions.NewAssignedReviewerSelection(opts.Store,
		config.GetSystemSettingString(config.ASSIGNED_REVIEWER_FIELD)))
	registry.RegisterProcessing(actions.NewReviewAction())
	registry.RegisterProcessing(actions.NewEditMetadataAction(opts.Store))
	registry.RegisterProcessing(actions.NewAutoApproveAction(opts.Store, false))
	for _, a := range opts.SelectionActions {
		registry.RegisterSelection(a)
	}
	for _, a := range opts.ProcessingActions {
		registry.RegisterProcessing(a)
	}

	defs, err := loadDefinitions(registry)
	if err != nil {
		slog.Error("Failed to load workflow definitions", "error", err)
		return err
	}

	systemPrincipal := config.GetSystemSettingString(config.SYSTEM_PRINCIPAL)
	wfEngine := engine.NewEngine(store, defs, registry, resolver, opts.Items, notify, engine.NewRealClock(), systemPrincipal)

	mux := opts.Mux
	if mux == nil {
		mux = http.NewServeMux()
	}
	itemsController := controllers.NewWorkflowItemsController(wfEngine)
	itemsController.RegisterRoutes(mux)
	tasksController := controllers.NewTasksController(wfEngine)
	tasksController.RegisterRoutes(mux)

	addr := ":" + config.GetSystemSettingString(config.SERVER_WEB_PORT)
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		addr = v
	}
	slog.Info("Starting HTTP server", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		slog.Error("HTTP server failed", "error", err)
		return err
	}
	return nil
}

func loadDefinitions(registry *actions.Registry) (*definition.Registry, error) {
	dir := config.GetSystemSettingString(config.DEFINITIONS_DIR)
	loader := definition.NewLoader()
	defs, err := loader.LoadAll([]string{dir})
	if err != nil {
		return nil, err
	}
	validator := definition.NewValidator(registry)
	if err := validator.ValidateAll(defs); err != nil {
		return nil, err
	}
	for _, def := range defs {
		slog.Info("Loaded workflow definition", "name", def.Name, "steps", len(def.Steps), "file", def.SourceFile)
	}
	return definition.NewRegistry(defs)
}

func setupPostgresDatabase() *sql.DB {
	dbURL := config.GetSystemSettingString(config.DATABASE_URL)
	if dbURL == "" {
		panic("RFLOW_DATABASE_URL must be set when using the POSTGRES database type")
	}
	slog.Info("Using Postgres database", "url", dbURL)
	slog.Info("Running migrations")
	if err := runMigrationsFromEmbed("postgres", dbURL); err != nil {
		slog.Error("DB migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Opening Postgres database")
	dbPostgres, err := sql.Open("postgres", dbURL)
	if err != nil {
		slog.Error("DB connection failed", "error", err)
		os.Exit(1)
	}
	return dbPostgres
}

func setupSqlLiteDatabase() *sql.DB {
	fileName := config.GetSystemSettingString(config.DATABASE_SQLLITE_FILE_NAME)
	if fileName == "" {
		panic("RFLOW_DATABASE_SQLLITE_FILE_NAME must be set")
	}
	dbURL := "sqlite3://" + fileName
	slog.Info("Using SQLite database", "file", fileName)
	slog.Info("Running migrations")
	if err := runMigrationsFromEmbed("sqllite3", dbURL); err != nil {
		slog.Error("DB migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Opening SQLite database")
	dbSqlLite, err := sql.Open("sqlite3", fileName)
	if err != nil {
		log.Fatalf("Failed to open SQLite DB: %v", err)
	}
	if err := dbSqlLite.Ping(); err != nil {
		log.Fatalf("Failed to ping SQLite DB: %v", err)
	}
	return dbSqlLite
}

func setupMysqlDatabase() *sql.DB {
	dbURL := config.GetSystemSettingString(config.DATABASE_URL)
	if dbURL == "" {
		panic("RFLOW_DATABASE_URL must be set when using the MYSQL database type")
	}
	if !strings.Contains(dbURL, "parseTime=true") {
		panic("RFLOW_DATABASE_URL must contain 'parseTime=true' for MySQL")
	}
	if !strings.HasPrefix(dbURL, "mysql://") {
		panic("RFLOW_DATABASE_URL must start with 'mysql://' for MySQL")
	}

	slog.Info("Using MySQL database", "url", dbURL)
	slog.Info("Running migrations")
	if err := runMigrationsFromEmbed("mysql", dbURL); err != nil {
		slog.Error("DB migration failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Opening MySQL database")
	dbMysql, err := sql.Open("mysql", strings.Replace(dbURL, "mysql://", "", 1))
	if err != nil {
		slog.Error("DB connection failed", "error", err)
		os.Exit(1)
	}
	return dbMysql
}

func runMigrationsFromEmbed(migrationsPath string, dbURL string) error {
	sub, err := fs.Sub(migrations.FS, migrationsPath)
	if err != nil {
		return err
	}
	source, err := iofs.New(sub, ".")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithSourceInstance("iofs", source, dbURL)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func SetupLogger() {
	w := os.Stderr
	_ = slog.New(tint.NewHandler(w, nil))
	slog.SetDefault(slog.New(
		tint.NewHandler(w, &tint.Options{
			Level:      slog.LevelInfo,
			TimeFormat: time.RFC3339Nano,
		}),
	))
}
