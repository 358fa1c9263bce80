// Package lifecycle starts and stops worker processes on behalf of the
// dashboard's operator controls. It is the only part of queuedash with a
// side effect outside its own process.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"

	"github.com/logyard/queuedash/internal/config"
)

// ErrUnknownAgentType is returned for worker types without a launcher script.
var ErrUnknownAgentType = errors.New("lifecycle: unknown agent type")

// Launcher starts and stops worker processes by type.
type Launcher interface {
	Start(ctx context.Context, agentType string) error
	Stop(ctx context.Context, agentType string) error
}

// PIDSource lists the recorded process ids of a worker type.
type PIDSource interface {
	ListAgentPIDs(ctx context.Context, name string) ([]int, error)
}

// ScriptLauncher runs the catalog's shell scripts.
type ScriptLauncher struct {
	catalog    config.Catalog
	scriptsDir string
	logDir     string
	pids       PIDSource
	logger     *slog.Logger

	// signal is swapped out in tests.
	signal func(pid int, sig os.Signal) error
}

// NewScriptLauncher creates a launcher for the catalog's scripts.
func NewScriptLauncher(catalog config.Catalog, scriptsDir, logDir string, pids PIDSource, logger *slog.Logger) *ScriptLauncher {
	return &ScriptLauncher{
		catalog:    catalog,
		scriptsDir: scriptsDir,
		logDir:     logDir,
		pids:       pids,
		logger:     logger,
		signal:     signalPID,
	}
}

func (l *ScriptLauncher) worker(agentType string) (config.WorkerType, error) {
	w, ok := l.catalog.Lookup(agentType)
	if !ok || w.Script == "" {
		return config.WorkerType{}, fmt.Errorf("%w: %q", ErrUnknownAgentType, agentType)
	}
	return w, nil
}

// Start launches one more instance of a worker type. The process is
// detached from the request and outlives it; its output is appended to
// <logDir>/<type>.log.
func (l *ScriptLauncher) Start(ctx context.Context, agentType string) error {
	w, err := l.worker(agentType)
	if err != nil {
		return err
	}
	script := filepath.Join(l.scriptsDir, w.Script)
	if _, err := os.Stat(script); err != nil {
		return fmt.Errorf("lifecycle: script for %s: %w", agentType, err)
	}
	if err := os.MkdirAll(l.logDir, 0o750); err != nil {
		return fmt.Errorf("lifecycle: create log dir: %w", err)
	}
	logPath := filepath.Join(l.logDir, agentType+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640) //nolint:gosec // path built from catalog name
	if err != nil {
		return fmt.Errorf("lifecycle: open log: %w", err)
	}

	// Not CommandContext: the worker must survive the request.
	cmd := exec.Command("/bin/sh", script) //nolint:gosec // script comes from the operator's catalog
	cmd.Dir = filepath.Dir(l.scriptsDir)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.SysProcAttr = detached()
	if err := cmd.Start(); err != nil {
		_ = logFile.Close()
		return fmt.Errorf("lifecycle: start %s: %w", agentType, err)
	}
	l.logger.InfoContext(ctx, "lifecycle: started worker", "type", agentType, "pid", cmd.Process.Pid, "log", logPath)

	go func() {
		err := cmd.Wait()
		_ = logFile.Close()
		l.logger.Info("lifecycle: worker exited", "type", agentType, "pid", cmd.Process.Pid, "error", err)
	}()
	return nil
}

// Stop sends SIGTERM to every recorded process of a worker type. Processes
// that already exited are skipped.
func (l *ScriptLauncher) Stop(ctx context.Context, agentType string) error {
	if _, err := l.worker(agentType); err != nil {
		return err
	}
	pids, err := l.pids.ListAgentPIDs(ctx, agentType)
	if err != nil {
		return fmt.Errorf("lifecycle: list %s processes: %w", agentType, err)
	}
	var errs []error
	signalled := 0
	for _, pid := range pids {
		err := l.signal(pid, syscall.SIGTERM)
		switch {
		case err == nil:
			signalled++
		case errors.Is(err, os.ErrProcessDone), errors.Is(err, syscall.ESRCH):
			l.logger.DebugContext(ctx, "lifecycle: process already gone", "type", agentType, "pid", pid)
		default:
			errs = append(errs, fmt.Errorf("pid %d: %w", pid, err))
		}
	}
	l.logger.InfoContext(ctx, "lifecycle: stopped workers", "type", agentType, "signalled", signalled, "recorded", len(pids))
	if len(errs) > 0 {
		return fmt.Errorf("lifecycle: stop %s: %w", agentType, errors.Join(errs...))
	}
	return nil
}

func signalPID(pid int, sig os.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Signal(sig)
}
