package commands

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"ajosave/internal/config"
	"ajosave/internal/db"
	"ajosave/internal/realtime"
	"ajosave/internal/rpc"
	"ajosave/internal/service"
	"ajosave/internal/store"
)

// Env is what the commands need from outside the process. Tests replace the
// openers with in-memory fakes.
type Env struct {
	Now    func() time.Time
	Repo   func() (store.Repository, error)
	Procs  func() (service.ProcedureCaller, error)
	Events func() (realtime.Publisher, error) // Nil result skips publishing
}

// DefaultEnv connects lazily using the environment configuration.
func DefaultEnv() *Env {
	var (
		once sync.Once
		cfg  *config.Config
		gdb  *gorm.DB
		err  error
	)
	connect := func() (*gorm.DB, error) {
		once.Do(func() {
			cfg = config.LoadConfig()
			gdb, err = db.Open(cfg.DSN(), false)
		})
		return gdb, err
	}
	return &Env{
		Now: time.Now,
		Repo: func() (store.Repository, error) {
			gdb, err := connect()
			if err != nil {
				return nil, err
			}
			return store.New(gdb), nil
		},
		Procs: func() (service.ProcedureCaller, error) {
			gdb, err := connect()
			if err != nil {
				return nil, err
			}
			return rpc.NewCaller(gdb), nil
		},
		Events: func() (realtime.Publisher, error) {
			if _, err := connect(); err != nil {
				return nil, err
			}
			rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPass, DB: cfg.RedisDB})
			if err := rdb.Ping(context.Background()).Err(); err != nil {
				return nil, fmt.Errorf("connecting to redis: %w", err)
			}
			return realtime.NewRedisBus(rdb), nil
		},
	}
}
