package main

import (
	"context"
	"fmt"
	"time"

	"tsu-battle/internal/modules/battle"
	"tsu-battle/internal/pkg/config"
	natshealth "tsu-battle/internal/pkg/nats"
	"tsu-battle/internal/pkg/notify"

	"github.com/liangdas/mqant"
	"github.com/liangdas/mqant/module"
	"github.com/liangdas/mqant/registry"
	"github.com/liangdas/mqant/registry/consul"
	"github.com/nats-io/nats.go"
)

func main() {
	fmt.Println("==============================================")
	fmt.Println("  TSU Battle Server")
	fmt.Println("  Version: 1.0.0")
	fmt.Println("==============================================")
	fmt.Println()

	// Consul address
	consulAddr := config.GetEnvOrDefault("CONSUL_ADDRESS", "localhost:8500")
	fmt.Printf("[Main] Consul address: %s\n", consulAddr)

	// NATS address
	natsAddr := config.GetEnvOrDefault("NATS_ADDRESS", "localhost:4222")
	fmt.Printf("[Main] NATS address: %s\n", natsAddr)

	// Connect to NATS
	nc, err := nats.Connect("nats://"+natsAddr,
		nats.MaxReconnects(10),
		nats.ReconnectWait(1*time.Second),
	)
	if err != nil {
		fmt.Printf("[Main] Failed to connect to NATS: %v\n", err)
		return
	}
	fmt.Println("[Main] Connected to NATS successfully")
	// 设置全局通知通道（战斗事件广播）
	notify.SetNatsConn(nc)

	// 启动 NATS 连接健康检查，断连时周期性告警
	healthChecker := natshealth.NewHealthChecker(nc, 10*time.Second)
	go healthChecker.Start(context.Background())
	defer healthChecker.Stop()
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for range ticker.C {
			if !healthChecker.IsHealthy() {
				fmt.Println("[Main] NATS connection unhealthy, battle events are being dropped")
			}
		}
	}()

	// Create Consul registry
	rs := consul.NewRegistry(func(options *registry.Options) {
		options.Addrs = []string{consulAddr}
	})

	// Create mqant app with configuration
	// 注意：RegisterTTL 和 RegisterInterval 应该在各个模块的 OnInit 中配置
	// 而不是在全局 app 配置中设置（参考 mqant 官方文档）
	app := mqant.CreateApp(
		module.Configure("./configs/server/battle-server.json"),
		module.Debug(false),
		module.Nats(nc),
		module.Registry(rs),
	)

	fmt.Println("[Main] Configuration loaded")

	// Run with modules
	app.Run(
		battle.Module(),
	)
}
