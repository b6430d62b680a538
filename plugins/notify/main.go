// Package main provides a notification plugin that shows coaching feedback
// as a desktop notification: osascript on macOS, notify-send on Linux.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action   string          `json:"action"`
	Event    string          `json:"event"`
	Exercise string          `json:"exercise"`
	Text     string          `json:"text"`
	Severity string          `json:"severity"`
	Reps     int             `json:"reps"`
	Config   json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the per-binding configuration.
type Config struct {
	Title string `json:"title"`
	Sound bool   `json:"sound"`
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Action != "show" {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	body := strings.TrimSpace(req.Text)
	if body == "" {
		writeErrorResponse("empty notification")
		return
	}

	cfg := Config{Title: "formcheck"}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}
	title := cfg.Title
	if req.Exercise != "" {
		title = fmt.Sprintf("%s: %s (%d)", title, req.Exercise, req.Reps)
	}

	if err := show(title, body, req.Severity, cfg.Sound); err != nil {
		writeErrorResponse(fmt.Sprintf("show failed: %v", err))
		return
	}

	writeSuccessResponse()
}

func show(title, body, severity string, sound bool) error {
	switch runtime.GOOS {
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", strconv.Quote(body), strconv.Quote(title))
		if sound {
			script += ` sound name "Ping"`
		}
		return run("osascript", "-e", script)
	case "linux":
		return run("notify-send", "-u", urgency(severity), "-a", "formcheck", title, body)
	default:
		return fmt.Errorf("unsupported platform %s", runtime.GOOS)
	}
}

// urgency maps a feedback severity to a notify-send urgency level.
func urgency(severity string) string {
	switch severity {
	case "error":
		return "critical"
	case "warning", "success":
		return "normal"
	default:
		return "low"
	}
}

func run(name string, args ...string) error {
	output, err := exec.Command(name, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("%w: %s", err, strings.TrimSpace(string(output)))
	}
	return nil
}

// writeErrorResponse writes an error response to stdout.
func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

// writeSuccessResponse writes a success response to stdout.
func writeSuccessResponse() {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true})
}
