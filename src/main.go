package main

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/VectorBits/SmartScan/src/cmd"
	"github.com/VectorBits/SmartScan/src/internal/ui"
	"github.com/VectorBits/SmartScan/src/strategy/prompts"
)

//go:embed config/settings.example.yaml
var embeddedFiles embed.FS

func main() {
	// 初始化默认资源文件 (配置和提示词模板)
	if err := initResources(); err != nil {
		cmd.PrintFatal(err)
	}

	ui.PrintBanner()
	if err := cmd.Run(os.Args[1:]); err != nil {
		cmd.PrintFatal(err)
	}
}

func initResources() error {
	if err := initConfigFile(); err != nil {
		return fmt.Errorf("failed to init config file: %w", err)
	}
	if err := initStrategyFiles(); err != nil {
		return fmt.Errorf("failed to init strategy files: %w", err)
	}
	return nil
}

func initConfigFile() error {
	targetDir := "config"
	targetFile := filepath.Join(targetDir, "settings.yaml")

	if _, err := os.Stat(targetFile); err == nil {
		return nil // 已存在，跳过
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return err
	}

	data, err := embeddedFiles.ReadFile("config/settings.example.yaml")
	if err != nil {
		return err
	}
	if err := os.WriteFile(targetFile, data, 0600); err != nil {
		return err
	}

	fmt.Printf(ui.Green+"✅ Created default config file: %s"+ui.Reset+"\n", targetFile)
	return nil
}

func initStrategyFiles() error {
	written, err := prompts.ExtractTemplates(filepath.Join("strategy", "prompts", "audit"))
	for _, path := range written {
		fmt.Printf(ui.Green+"✅ Restored strategy file: %s"+ui.Reset+"\n", path)
	}
	return err
}
