// Package main provides a voice plugin that speaks coaching feedback with
// the platform speech engine: say on macOS, espeak or spd-say on Linux.
package main

import (
	"encoding/json"
	"errors"
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
	Reps     int             `json:"reps"`
	Config   json.RawMessage `json:"config"`
	Params   json.RawMessage `json:"params"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the per-binding configuration.
type Config struct {
	Voice string `json:"voice"`
	Rate  int    `json:"rate"` // words per minute
}

// SayParams overrides the spoken text.
type SayParams struct {
	Text string `json:"text"`
}

var errNoEngine = errors.New("no speech engine found")

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Action != "say" {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	text := req.Text
	if len(req.Params) > 0 {
		var params SayParams
		if err := json.Unmarshal(req.Params, &params); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid params: %v", err))
			return
		}
		if params.Text != "" {
			text = params.Text
		}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		writeErrorResponse("nothing to say")
		return
	}

	var cfg Config
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("invalid config: %v", err))
			return
		}
	}

	engine, err := speak(text, cfg)
	if err != nil {
		writeErrorResponse(fmt.Sprintf("say failed: %v", err))
		return
	}

	data, _ := json.Marshal(map[string]string{"engine": engine, "text": text})
	writeSuccessResponse(data)
}

// speak runs the first available engine and returns its name.
func speak(text string, cfg Config) (string, error) {
	if runtime.GOOS == "darwin" {
		args := []string{}
		if cfg.Voice != "" {
			args = append(args, "-v", cfg.Voice)
		}
		if cfg.Rate > 0 {
			args = append(args, "-r", strconv.Itoa(cfg.Rate))
		}
		return "say", run("say", append(args, text)...)
	}

	if path, err := exec.LookPath("espeak"); err == nil {
		args := []string{}
		if cfg.Voice != "" {
			args = append(args, "-v", cfg.Voice)
		}
		if cfg.Rate > 0 {
			args = append(args, "-s", strconv.Itoa(cfg.Rate))
		}
		return "espeak", run(path, append(args, text)...)
	}

	if path, err := exec.LookPath("spd-say"); err == nil {
		// spd-say blocks until the phrase is spoken with -w.
		return "spd-say", run(path, "-w", text)
	}

	return "", errNoEngine
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
func writeSuccessResponse(data json.RawMessage) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}
