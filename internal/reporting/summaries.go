package reporting

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"devstack/internal/gitsync"
	"devstack/internal/shutdown"
	"devstack/internal/supervisor"
)

func portCell(port int) string {
	if port <= 0 {
		return "-"
	}
	return strconv.Itoa(port)
}

func pidCell(pid int) string {
	if pid <= 0 {
		return "-"
	}
	return strconv.Itoa(pid)
}

func errCell(err error) string {
	if err == nil {
		return ""
	}
	return strings.ReplaceAll(err.Error(), "\n", "; ")
}

// StartSummary renders one row per configured service.
func StartSummary(w io.Writer, report supervisor.StartReport) error {
	t := NewTable("SERVICE", "STATUS", "PORT", "PID", "DETAIL")
	t.StatusColumn = 1
	for _, res := range report.Services {
		status := "started"
		detail := res.LogFile
		switch {
		case errors.Is(res.Err, supervisor.ErrAlreadyRunning):
			status, detail = "already running", errCell(res.Err)
		case res.Err != nil:
			status, detail = "failed", errCell(res.Err)
		case len(res.Warnings) > 0:
			status, detail = "warning", errCell(errors.Join(res.Warnings...))
		}
		port := portCell(res.Port)
		if res.Err == nil && res.Port != res.Preferred {
			port = fmt.Sprintf("%d (wanted %d)", res.Port, res.Preferred)
		}
		t.AddRow(res.Service, status, port, pidCell(res.PID), detail)
	}
	return t.Render(w)
}

// StopSummary renders the processes and ports handled by a shutdown.
func StopSummary(w io.Writer, report shutdown.Report) error {
	t := NewTable("SERVICE", "STATUS", "PORT", "PID", "PHASE", "DETAIL")
	t.StatusColumn = 1
	for _, p := range report.Processes {
		status := "stopped"
		if p.Err != nil {
			status = "failed"
		}
		t.AddRow(p.Service, status, portCell(p.Port), pidCell(p.PID), string(p.Phase), errCell(p.Err))
	}
	for _, p := range report.Ports {
		status := "free"
		if p.Err != nil {
			status = "in use"
		}
		t.AddRow(p.Service, status, portCell(p.Port), "-", string(shutdown.PhaseSweep), errCell(p.Err))
	}
	if err := t.Render(w); err != nil {
		return err
	}
	for _, warn := range report.Warnings {
		Notice(w, "warning", "warning: "+warn.Error())
	}
	return nil
}

// StatusSummary renders the observed state of every known service.
func StatusSummary(w io.Writer, statuses []supervisor.ServiceStatus) error {
	t := NewTable("SERVICE", "STATUS", "PORT", "PID", "STARTED", "LOG")
	t.StatusColumn = 1
	for _, st := range statuses {
		status := statusText(st)
		started := "-"
		if !st.StartedAt.IsZero() {
			started = st.StartedAt.Local().Format("2006-01-02 15:04:05")
		}
		t.AddRow(st.Service, status, portCell(st.Port), pidCell(st.PID), started, st.LogFile)
	}
	return t.Render(w)
}

func statusText(st supervisor.ServiceStatus) string {
	switch {
	case st.Err != nil:
		return "error"
	case st.Registered && st.Alive:
		return "running"
	case st.Registered:
		return "stale"
	case st.Listening:
		return "in use"
	default:
		return "not running"
	}
}

// SyncSummary renders the outcome of a repository sync.
func SyncSummary(w io.Writer, res gitsync.Result) error {
	t := NewTable("STATE", "LOCAL", "REMOTE", "STRATEGY", "OUTCOME", "PUBLISHED")
	t.StatusColumn = 4
	strategy := string(res.Strategy)
	if strategy == "" {
		strategy = "-"
	}
	published := "no"
	if res.Published {
		published = "yes"
	}
	remote := res.RemoteBranch
	if remote == "" {
		remote = "(empty)"
	}
	t.AddRow(string(res.State), res.LocalBranch, remote, strategy, string(res.Outcome), published)
	return t.Render(w)
}
