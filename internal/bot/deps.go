package bot

import (
	"database/sql"
	"errors"

	"github.com/aws/aws-sdk-go/service/s3/s3iface"
	"github.com/redis/go-redis/v9"

	"panterabot/internal/bot/notify"
	"panterabot/internal/bot/sqldb"
)

// Logger provides minimal logging required by the bot module.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// BotDeps groups external dependencies needed by the bot module.
type BotDeps struct {
	// DB backs the sql settings store, the bid journal and the push token registry.
	DB      *sql.DB
	Dialect sqldb.Dialect
	RDB     *redis.Client
	S3      s3iface.S3API
	// Push delivers FCM messages; nil disables push notifications.
	Push   notify.Sender
	Logger Logger
	Config BotConfig
	module *moduleState
}

// Validate ensures required dependencies are provided.
func (d *BotDeps) Validate() error {
	if d.Logger == nil {
		return errors.New("bot deps: Logger is required")
	}
	switch d.Config.SettingsStore {
	case StoreRedis:
		if d.RDB == nil {
			return errors.New("bot deps: RDB is required for the redis settings store")
		}
	case StoreS3:
		if d.S3 == nil {
			return errors.New("bot deps: S3 is required for the s3 settings store")
		}
	case StoreSQL:
		if d.DB == nil {
			return errors.New("bot deps: DB is required for the sql settings store")
		}
	default:
		return errors.New("bot deps: unknown settings store")
	}
	if d.DB != nil && d.Dialect == "" {
		d.Dialect = sqldb.DialectMySQL
	}
	return nil
}
