package server

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config 运行时配置，全部可由环境变量覆盖
// 抢答惩罚延迟（毫秒）对应原版 10 秒的兜底扣分窗口
type Config struct {
	Addr            string `env:"QUIZBUZZ_ADDR" envDefault:":8080"`
	DBPath          string `env:"QUIZBUZZ_DB" envDefault:"quizbuzz.db"`
	LogFile         string `env:"QUIZBUZZ_LOG" envDefault:"app.log"`
	BuzzPenaltyMs   int    `env:"QUIZBUZZ_BUZZ_PENALTY_MS" envDefault:"10000"`
	LeaderboardSize int    `env:"QUIZBUZZ_LEADERBOARD_SIZE" envDefault:"10"`
}

// LoadConfig 从环境变量解析配置
func LoadConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// BuzzPenalty 返回惩罚延迟的 time.Duration 形式
func (c Config) BuzzPenalty() time.Duration {
	return time.Duration(c.BuzzPenaltyMs) * time.Millisecond
}
