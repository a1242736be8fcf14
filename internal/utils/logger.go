package utils

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

type AgentLogger struct {
	file       *os.File
	logger     *log.Logger
	multiWrite io.Writer
}

// NewAgentLogger creates a logger writing to both stdout and a timestamped
// file under logs/<component>/.
func NewAgentLogger(component string) (*AgentLogger, error) {
	sanitized := strings.ReplaceAll(strings.ToLower(component), " ", "_")

	logsDir := "logs"
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	componentDir := filepath.Join(logsDir, sanitized)
	if err := os.MkdirAll(componentDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create component directory: %w", err)
	}

	timestamp := time.Now().Format("2006-01-02_15-04-05")
	logPath := filepath.Join(componentDir, fmt.Sprintf("%s_%s.log", sanitized, timestamp))

	file, err := os.Create(logPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}

	multiWrite := io.MultiWriter(os.Stdout, file)
	logger := log.New(multiWrite, "", log.Ldate|log.Ltime|log.Lmicroseconds)

	return &AgentLogger{
		file:       file,
		logger:     logger,
		multiWrite: multiWrite,
	}, nil
}

func (al *AgentLogger) LogInfo(format string, v ...interface{}) {
	al.log("INFO", format, v...)
}

func (al *AgentLogger) LogError(format string, v ...interface{}) {
	al.log("ERROR", format, v...)
}

func (al *AgentLogger) LogDebug(format string, v ...interface{}) {
	al.log("DEBUG", format, v...)
}

func (al *AgentLogger) log(level string, format string, v ...interface{}) {
	message := fmt.Sprintf(format, v...)
	al.logger.Printf("[%s] %s", level, message)
}

func (al *AgentLogger) Close() error {
	return al.file.Close()
}
