package main

import (
	"log"
	"os"
	"path/filepath"

	"ghosttab/logger"
)

// Setup logger to log to a file in the same directory as the executable.
// Caller must defer logger.Close()
func setupLogger(logLevel string) {
	execDir := executableDir()
	logPath := filepath.Join(execDir, "ghosttab.log")

	f, err := os.OpenFile(logPath, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		log.Fatalf("error opening log file: %v", err)
	}

	logger.Init(f, logger.ParseLogLevel(logLevel))
}

func executableDir() string {
	execPath, err := os.Executable()
	if err != nil {
		log.Fatalf("error getting executable path: %v", err)
	}
	return filepath.Dir(execPath)
}

func getSocketPath() string {
	return filepath.Join(executableDir(), "ghosttab.sock")
}

func getPidPath() string {
	return filepath.Join(executableDir(), "ghosttab.pid")
}

func configPathBesideExecutable() string {
	return filepath.Join(executableDir(), "ghosttab.toml")
}

func runDaemon() {
	config, err := loadConfig()
	if err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	setupLogger(config.LogLevel)
	defer logger.Close()

	daemon := NewDaemon(config)
	if err := daemon.Start(); err != nil {
		logger.Fatal("error starting daemon: %v", err)
	}
}

func runClient() {
	client := NewClient()

	if err := client.EnsureDaemonRunning(); err != nil {
		log.Fatalf("error ensuring daemon is running: %v", err)
	}

	if err := client.Connect(); err != nil {
		log.Fatalf("error connecting to daemon: %v", err)
	}
}

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--daemon" {
		runDaemon()
		return
	}
	runClient()
}
