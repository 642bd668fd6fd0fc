package action

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ExecLog appends one JSON record per script execution step to an append-only
// file, one file per calendar day.
type ExecLog struct {
	dir string

	mu     sync.Mutex
	day    string
	logger *zap.Logger
	file   *os.File
}

func NewExecLog(dir string) *ExecLog {
	return &ExecLog{dir: dir}
}

func (l *ExecLog) forToday() *zap.Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	day := time.Now().Format("2006-01-02")
	if l.logger != nil && day == l.day {
		return l.logger
	}
	if l.file != nil {
		l.file.Close()
	}
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.StacktraceKey = ""
	fileEncoder := zapcore.NewJSONEncoder(encoderConfig)

	if err := os.MkdirAll(l.dir, 0755); err != nil {
		return zap.NewNop()
	}
	logFile, err := os.OpenFile(filepath.Join(l.dir, "scripts-"+day+".log"), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return zap.NewNop()
	}
	core := zapcore.NewCore(fileEncoder, zapcore.AddSync(logFile), zapcore.InfoLevel)
	l.day = day
	l.file = logFile
	l.logger = zap.New(core)
	return l.logger
}

func (l *ExecLog) Called(project string, workflowID string, state string, script string) {
	l.forToday().Info("called", zap.String("project", project), zap.String("workflow", workflowID), zap.String("state", state), zap.String("script", script))
}

func (l *ExecLog) Succeeded(project string, workflowID string, state string, script string) {
	l.forToday().Info("succeeded", zap.String("project", project), zap.String("workflow", workflowID), zap.String("state", state), zap.String("script", script))
}

func (l *ExecLog) Errored(project string, workflowID string, state string, script string, reason string) {
	l.forToday().Info("error", zap.String("project", project), zap.String("workflow", workflowID), zap.String("state", state), zap.String("script", script), zap.String("reason", reason))
}
