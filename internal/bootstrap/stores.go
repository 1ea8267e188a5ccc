package bootstrap

import (
	"github.com/eleven-am/proctor-backend/internal/session"
	"github.com/eleven-am/proctor-backend/internal/violation"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func ProvideSessionStore(redisClient *redis.Client) *session.Store {
	return session.NewStore(redisClient)
}

func ProvideArchive(db *gorm.DB) *violation.Archive {
	return violation.NewArchive(db)
}

func RunMigrations(archive *violation.Archive) error {
	return archive.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideSessionStore,
		ProvideArchive,
	),
	fx.Invoke(RunMigrations),
)
