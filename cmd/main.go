package main

import (
	"fmt"
	"log"
	"os"

	goex "github.com/nntaoli-project/goex/v2"

	api "tradeflow/cmd/tradeflow"
	"tradeflow/internal/config"
	"tradeflow/internal/middleware"
	"tradeflow/pkg/cache"
	"tradeflow/pkg/db"
	"tradeflow/pkg/logger"
)

func main() {

	// 加载配置文件
	if err := config.LoadConfig("config.yaml"); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appCfg := &config.AppConfig
	logger.InitLogger(&appCfg.Log, appCfg.AppName)

	if appCfg.Okx.Simulated {
		// 设置为模拟环境
		goex.DefaultHttpCli.SetHeaders("x-simulated-trading", "1")
	}

	dbUser := os.Getenv("DB_USER")
	dbPass := os.Getenv("DB_PASSWORD")
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")
	dbName := os.Getenv("DB_NAME")
	if dbUser == "" || dbPass == "" || dbHost == "" {
		dbUser = appCfg.Db.Username
		dbPass = appCfg.Db.Password
		dbHost = appCfg.Db.Host
		dbPort = appCfg.Db.Port
		dbName = appCfg.Db.DbName
	}

	datasource := db.Init(db.NewConfig(dbUser, dbPass, dbHost, dbPort, dbName))

	redisHost := os.Getenv("REDIS_HOST")
	redisPort := os.Getenv("REDIS_PORT")
	if redisHost != "" && redisPort != "" {
		appCfg.Redis.Addr = fmt.Sprintf("%s:%s", redisHost, redisPort)
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		appCfg.Redis.Password = redisPassword
	}
	cache.InitRedis(appCfg.Redis)

	srv := api.NewServer(appCfg)

	core, err := api.InitCore(appCfg, datasource)
	if err != nil {
		logger.Fatalf("init core failed: %v", err)
	}
	srvRouter := api.InitRouter(appCfg, datasource, core)

	srv.RegisterOnShutdown(func() {
		core.Stop()
		if datasource != nil {
			if m, err := datasource.DB(); err == nil {
				_ = m.Close()
			}
		}
		cache.CloseRedis()
	})

	core.Start()
	srv.Run(middleware.NewMiddleware(), srvRouter)
}
