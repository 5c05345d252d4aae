package cache

import (
	"context"
	"tradeflow/internal/config"

	"github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedis 初始化redisClient
func InitRedis(redisCfg config.RedisConfig) {
	redisClient = redis.NewClient(&redis.Options{
		DB:           redisCfg.Db,
		Addr:         redisCfg.Addr,
		Password:     redisCfg.Password,
		PoolSize:     redisCfg.PoolSize,
		MinIdleConns: redisCfg.MinIdleConns,
	})
	_, err := redisClient.Ping(context.TODO()).Result()
	if err != nil {
		panic(err)
	}
}

func GetRedisClient() *redis.Client {
	if nil == redisClient {
		panic("Please initialize the Redis client first!")
	}
	return redisClient
}

func CloseRedis() {
	if redisClient != nil {
		_ = redisClient.Close()
	}
}
