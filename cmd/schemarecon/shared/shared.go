package shared

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"os/exec"
	"path"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/optyshop/schemarecon"
	"github.com/optyshop/schemarecon/internal/targets"
)

type Flags struct {
	LogFormat  *string // see root.go
	Verbose    *bool   // see root.go
	Database   *string // see root.go
	TableName  *string // see root.go
	ConfigFile *string // see root.go
	EnvFile    *string // see root.go
}

type Config struct {
	Database  string    `yaml:"database"`
	LogFormat LogFormat `yaml:"log_format"`
	TableName string    `yaml:"table_name"`
}

type StateT struct {
	Flags  Flags
	Config Config
}

var State StateT //nolint:gochecknoglobals

// Parse loads the env file, then the config file, if either exists.
func (state *StateT) Parse() error {
	if err := state.loadEnv(); err != nil {
		return ConfigError(err)
	}
	cf := state.Configfile()
	if !cf.IsSet() {
		return nil
	}
	file, err := os.Open(cf.Value())
	if err != nil {
		return ConfigError(fmt.Errorf("open config: %w", err))
	}
	defer file.Close()

	contents, err := io.ReadAll(file)
	if err != nil {
		return ConfigError(fmt.Errorf("read config: %w", err))
	}
	if err := yaml.Unmarshal(contents, &state.Config); err != nil {
		return ConfigError(fmt.Errorf("parse config: %w", err))
	}
	return nil
}

// loadEnv reads KEY=value pairs from the env file into the environment.
// Variables that are already set win. A missing default file is not an error.
func (state *StateT) loadEnv() error {
	envFile := state.EnvFile()
	err := godotenv.Load(envFile.Value())
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) && !state.flagSet(state.Flags.EnvFile) {
		return nil
	}
	return fmt.Errorf("load env file: %w", err)
}

func (state StateT) flagSet(value *string) bool {
	return value != nil && *value != ""
}

func (state StateT) EnvFile() Variable[string] {
	return NewVariable(
		"env-file",
		Flag(stringFlag(state.Flags.EnvFile)),
		Env("SCHEMARECON_ENVFILE"),
		Default(".env"),
	)
}

func (state StateT) Configfile() Variable[string] {
	return NewVariable(
		"config-file",
		Flag(stringFlag(state.Flags.ConfigFile)),
		Env("SCHEMARECON_CONFIGFILE"),
		From("cwd", CheckPath(".schemarecon.yaml")),
		From("repo root", RepoPath(".schemarecon.yaml")),
	)
}

func (state StateT) Database() Variable[string] {
	return NewVariable(
		"database",
		Flag(stringFlag(state.Flags.Database)),
		Env("SCHEMARECON_DATABASE"),
		Env("DATABASE_URL"),
		FromConfig(state.Config.Database),
	)
}

func (state StateT) LogFormat() Variable[LogFormat] {
	return NewVariable(
		"log-format",
		Flag(LogFormat(stringFlag(state.Flags.LogFormat))),
		From("env SCHEMARECON_LOG_FORMAT", LogFormat(os.Getenv("SCHEMARECON_LOG_FORMAT"))),
		FromConfig(state.Config.LogFormat),
		Default(LogFormatText),
	)
}

func (state StateT) TableName() Variable[string] {
	return NewVariable(
		"table-name",
		Flag(stringFlag(state.Flags.TableName)),
		Env("SCHEMARECON_TABLENAME"),
		FromConfig(state.Config.TableName),
		Default(schemarecon.DefaultTableName),
	)
}

func (state StateT) Verbose() Variable[bool] {
	return NewVariable(
		"verbose",
		Flag(state.Flags.Verbose != nil && *state.Flags.Verbose),
		From("env SCHEMARECON_VERBOSE", os.Getenv("SCHEMARECON_VERBOSE") != ""),
	)
}

func (state StateT) Logger() (*log.Logger, LogAdapter, error) {
	format := state.LogFormat().Value()
	logger, err := NewLogger(os.Stdout, format)
	if err != nil {
		return nil, LogAdapter{}, ConfigError(err)
	}
	if state.Verbose().Value() {
		logger.SetLevel(log.DebugLevel)
	}
	return logger, LogAdapter{logger}, nil
}

// Reconciler returns a reconciler over every known target, configured with
// the ledger table name and logger.
func (state StateT) Reconciler(dialect schemarecon.Dialect, logger schemarecon.Logger) *schemarecon.Reconciler {
	r := schemarecon.NewReconciler(dialect, targets.All()...)
	r.TableName = state.TableName().Value()
	r.Logger = logger
	return r
}

// Targets resolves target names, or every known target when all is true.
func Targets(names []string, all bool) ([]schemarecon.Target, error) {
	if all && len(names) != 0 {
		return nil, ConfigError(fmt.Errorf("--all and target names are mutually exclusive"))
	}
	if all {
		return targets.All(), nil
	}
	if len(names) == 0 {
		return nil, ConfigError(fmt.Errorf("must pass at least one target name or --all"))
	}
	var selected []schemarecon.Target
	var unknown []string
	for _, name := range names {
		target, ok := targets.ByName(name)
		if !ok {
			unknown = append(unknown, name)
			continue
		}
		selected = append(selected, target)
	}
	if len(unknown) != 0 {
		return nil, ConfigError(fmt.Errorf(
			`unknown target(s) "%s", known targets are "%s"`,
			strings.Join(unknown, `", "`), strings.Join(targets.Names(), `", "`),
		))
	}
	return selected, nil
}

// Redact hides the password of a connection string. Values that are not URLs
// are returned unchanged.
func Redact(dburl string) string {
	u, err := url.Parse(dburl)
	if err != nil || u.User == nil {
		return dburl
	}
	return u.Redacted()
}

func stringFlag(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func RepoPath(p string) string {
	root, err := exec.Command("git", "rev-parse", "--show-toplevel").Output()
	if err != nil {
		return ""
	}
	rootConfig := path.Join(strings.TrimSpace(string(root)), p)
	return CheckPath(rootConfig)
}

func CheckPath(p string) string {
	p, err := filepath.Abs(p)
	if err != nil {
		return ""
	}
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}
