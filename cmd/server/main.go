package main

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/taoyao-code/soundweb-gateway/internal/app/bootstrap"
	cfgpkg "github.com/taoyao-code/soundweb-gateway/internal/config"
	"github.com/taoyao-code/soundweb-gateway/internal/logging"
)

func main() {
	var configPath string
	rootCmd := &cobra.Command{
		Use:           "soundweb-gateway",
		Short:         "Soundweb device gateway: TCP control link plus HTTP control API",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// 1) 加载配置：--config > SWG_CONFIG > ./configs/example.yaml
			cfg, err := cfgpkg.Load(configPath)
			if err != nil {
				return err
			}

			// 2) 初始化日志
			logger, err := logging.InitLogger(cfg.Logging)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			zap.ReplaceGlobals(logger)

			if cfg.App.Env == "prod" {
				gin.SetMode(gin.ReleaseMode)
			}

			// 3) 启动
			return bootstrap.Run(cfg, logger)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "config file path")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
