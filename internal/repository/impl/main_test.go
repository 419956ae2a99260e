package impl

import (
	"fmt"
	"os"
	"testing"
)

// 仓储层测试需要真实的 Postgres（battle_runtime schema 已迁移）。
// 默认跳过，CI 中通过 RUN_REPOSITORY_TESTS=1 与 TSU_BATTLE_DATABASE_URL 开启。
func TestMain(m *testing.M) {
	if os.Getenv("RUN_REPOSITORY_TESTS") == "1" {
		os.Exit(m.Run())
	}
	fmt.Println("[SKIP] repository tests require RUN_REPOSITORY_TESTS=1 and a reachable Postgres with the battle_runtime schema")
	os.Exit(0)
}
