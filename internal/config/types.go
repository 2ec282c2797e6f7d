package config

// AuthType enumerates the supported remote authentication methods.
type AuthType string

const (
	AuthTypeNone  AuthType = "none"
	AuthTypeToken AuthType = "token"
	AuthTypeBasic AuthType = "basic"
	AuthTypeSSH   AuthType = "ssh"
)

var authTypeNormalizer = newEnumNormalizer("auth type", map[string]AuthType{
	"none":  AuthTypeNone,
	"token": AuthTypeToken,
	"basic": AuthTypeBasic,
	"ssh":   AuthTypeSSH,
}, AuthTypeNone)

// DatabaseDriver selects the exercise store backend.
type DatabaseDriver string

const (
	DatabaseSQLite   DatabaseDriver = "sqlite"
	DatabasePostgres DatabaseDriver = "postgres"
	DatabaseMemory   DatabaseDriver = "memory" // ephemeral, for local runs and tests
)

var databaseDriverNormalizer = newEnumNormalizer("database driver", map[string]DatabaseDriver{
	"sqlite":     DatabaseSQLite,
	"postgres":   DatabasePostgres,
	"postgresql": DatabasePostgres,
	"pgx":        DatabasePostgres,
	"memory":     DatabaseMemory,
}, DatabaseSQLite)
