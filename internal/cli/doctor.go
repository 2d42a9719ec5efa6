package cli

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/agentdevice/agent-device/internal/config"
	"github.com/agentdevice/agent-device/internal/daemon"
	"github.com/agentdevice/agent-device/internal/domain"
)

// DoctorCmd checks the local environment (spec.md §6), grounded on the
// teacher's doctor.go: the same checkResult/name-status-message-details
// shape, generalized from Xcode/simctl/tmux checks to the full adb +
// xcrun/simctl/devicectl + tmux + config + daemon surface this tool
// depends on.
type DoctorCmd struct{}

type checkResult struct {
	Name    string
	Status  string // "ok", "warning", "error"
	Message string
	Details string
}

func (c *DoctorCmd) Run(globals *Globals) error {
	var checks []checkResult
	checks = append(checks, checkBinary("adb", "version"))
	checks = append(checks, checkBinary("xcrun", "--version"))
	checks = append(checks, checkSimctl())
	if err := exec.Command("xcrun", "devicectl", "--help").Run(); err != nil {
		checks = append(checks, checkResult{Name: "devicectl", Status: "warning", Message: "devicectl not accessible", Details: "only needed for physical ios devices"})
	} else {
		checks = append(checks, checkResult{Name: "devicectl", Status: "ok", Message: "devicectl available"})
	}
	checks = append(checks, checkTmux())
	checks = append(checks, checkHomeDir(globals.Config))
	checks = append(checks, checkConfigFile())
	checks = append(checks, checkDaemon(globals.Config))

	errorCount, warnCount := 0, 0
	for _, chk := range checks {
		switch chk.Status {
		case "error":
			errorCount++
		case "warning":
			warnCount++
		}
	}

	if globals.JSON {
		data := map[string]interface{}{
			"checks":     checksToMaps(checks),
			"allPassed":  errorCount == 0,
			"errorCount": errorCount,
			"warnCount":  warnCount,
		}
		globals.render(domain.OKResponse(data))
		if errorCount > 0 {
			return &CLIError{Code: "DOCTOR_FAILED", Message: fmt.Sprintf("%d check(s) failed", errorCount)}
		}
		return nil
	}

	fmt.Fprintln(globals.Stdout, "agent-device doctor")
	fmt.Fprintln(globals.Stdout, "====================")
	fmt.Fprintln(globals.Stdout)
	for _, chk := range checks {
		icon := "✓"
		if chk.Status == "warning" {
			icon = "⚠"
		} else if chk.Status == "error" {
			icon = "✗"
		}
		fmt.Fprintf(globals.Stdout, "%s %s\n", icon, chk.Name)
		if chk.Message != "" {
			fmt.Fprintf(globals.Stdout, "  %s\n", chk.Message)
		}
		if chk.Details != "" {
			fmt.Fprintf(globals.Stdout, "  %s\n", chk.Details)
		}
	}
	fmt.Fprintln(globals.Stdout)
	if errorCount == 0 && warnCount == 0 {
		fmt.Fprintln(globals.Stdout, "All checks passed.")
		return nil
	}
	fmt.Fprintf(globals.Stdout, "Errors: %d, Warnings: %d\n", errorCount, warnCount)
	if errorCount > 0 {
		return &CLIError{Code: "DOCTOR_FAILED", Message: fmt.Sprintf("%d check(s) failed", errorCount)}
	}
	return nil
}

func checkBinary(name string, versionArgs ...string) checkResult {
	path, err := exec.LookPath(name)
	if err != nil {
		return checkResult{
			Name:    name,
			Status:  "warning",
			Message: name + " not found on PATH",
			Details: "only needed for " + platformHintFor(name) + " devices",
		}
	}
	out, _ := exec.Command(name, versionArgs...).Output()
	return checkResult{Name: name, Status: "ok", Message: firstLine(string(out)), Details: path}
}

func platformHintFor(name string) string {
	if name == "adb" {
		return "android"
	}
	return "ios"
}

func checkSimctl() checkResult {
	if err := exec.Command("xcrun", "simctl", "help").Run(); err != nil {
		return checkResult{Name: "simctl", Status: "warning", Message: "simctl not accessible", Details: "install Xcode or its command line tools"}
	}
	return checkResult{Name: "simctl", Status: "ok", Message: "simctl available"}
}

func checkTmux() checkResult {
	path, err := exec.LookPath("tmux")
	if err != nil {
		return checkResult{Name: "tmux", Status: "warning", Message: "tmux not found (optional)", Details: "required only for `record start --mirror`"}
	}
	out, _ := exec.Command("tmux", "-V").Output()
	return checkResult{Name: "tmux", Status: "ok", Message: firstLine(string(out)), Details: path}
}

func checkHomeDir(cfg *config.Config) checkResult {
	home := cfg.HomeDir()
	if err := os.MkdirAll(home, 0o700); err != nil {
		return checkResult{Name: "home directory", Status: "error", Message: "cannot create " + home, Details: err.Error()}
	}
	probe := home + "/.doctor_probe"
	if err := os.WriteFile(probe, []byte("ok"), 0o600); err != nil {
		return checkResult{Name: "home directory", Status: "error", Message: "cannot write to " + home, Details: err.Error()}
	}
	os.Remove(probe)
	return checkResult{Name: "home directory", Status: "ok", Message: home}
}

func checkConfigFile() checkResult {
	path := config.ConfigFile()
	if path == "" {
		return checkResult{Name: "config", Status: "ok", Message: "using built-in defaults (no config file found)"}
	}
	_, meta, err := config.LoadWithMeta()
	if err != nil {
		return checkResult{Name: "config", Status: "error", Message: "config file has errors", Details: err.Error()}
	}
	sources := config.ComputeSources(meta, nil)
	details := ""
	for i, s := range sources {
		if i > 0 {
			details += ", "
		}
		details += s.Key + "=" + s.Origin
	}
	return checkResult{Name: "config", Status: "ok", Message: "loaded from " + path, Details: details}
}

func checkDaemon(cfg *config.Config) checkResult {
	path := daemon.InfoPath(cfg.HomeDir())
	info, err := daemon.ReadInfo(path)
	if err != nil {
		return checkResult{Name: "daemon", Status: "ok", Message: "not currently running (will be started on demand)"}
	}
	if proc, perr := os.FindProcess(info.PID); info.PID <= 0 || perr != nil || proc.Signal(syscall.Signal(0)) != nil {
		return checkResult{
			Name:    "daemon",
			Status:  "warning",
			Message: fmt.Sprintf("stale %s: pid %d is not running", path, info.PID),
			Details: "the file is left in place; a new daemon is started on demand",
		}
	}
	return checkResult{
		Name:    "daemon",
		Status:  "ok",
		Message: fmt.Sprintf("recorded at %s, pid %d, port %d", path, info.PID, info.Port),
	}
}

func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i]
		}
	}
	return s
}

func checksToMaps(checks []checkResult) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(checks))
	for _, c := range checks {
		out = append(out, map[string]interface{}{
			"name": c.Name, "status": c.Status, "message": c.Message, "details": c.Details,
		})
	}
	return out
}
