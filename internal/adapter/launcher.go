package adapter

import (
	"log/slog"
	"os/exec"
	"runtime"

	"go.trai.ch/zerr"
)

// Viewer opens downloaded files (covers) in an external program
type Viewer struct {
	command string // configured viewer, empty for system default
	args    []string
	goos    string
	logger  *slog.Logger
}

// NewViewer creates a viewer from configuration
func NewViewer(cfg ViewerConfig, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Viewer{
		command: cfg.Command,
		args:    cfg.Args,
		goos:    runtime.GOOS,
		logger:  logger,
	}
}

// Command returns the program and arguments used to open path
func (v *Viewer) Command(path string) (string, []string) {
	if v.command != "" {
		args := append(append([]string{}, v.args...), path)
		return v.command, args
	}

	switch v.goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "cmd", []string{"/c", "start", "", path}
	default:
		// Linux and other Unix-like systems
		return "xdg-open", []string{path}
	}
}

// Open starts the viewer without waiting for it to exit
func (v *Viewer) Open(path string) error {
	name, args := v.Command(path)

	if _, err := exec.LookPath(name); err != nil {
		return zerr.With(zerr.Wrap(err, "viewer not found"), "command", name)
	}

	v.logger.Info("opening file", "command", name, "args", args)
	if err := exec.Command(name, args...).Start(); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to start viewer"), "command", name)
	}
	return nil
}
