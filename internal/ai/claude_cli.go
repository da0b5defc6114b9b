package ai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
)

// cleanEnv returns os.Environ() without the variables that mark a running
// agent session, which would make the nested CLI refuse to start.
func cleanEnv() []string {
	env := make([]string, 0, len(os.Environ()))
	for _, e := range os.Environ() {
		key, _, _ := strings.Cut(e, "=")
		if key == "CLAUDECODE" || strings.HasPrefix(key, "CLAUDE_CODE_") {
			continue
		}
		env = append(env, e)
	}
	return env
}

// ClaudeCLI drafts plans by running the claude command line tool with a
// JSON schema for the output.
type ClaudeCLI struct {
	Model      string
	Version    PromptVersion
	Binary     string // defaults to "claude" on PATH
	logger     *slog.Logger
	OnThinking func(text string) // optional: called with streaming text chunks
}

func NewClaudeCLI(model string, logger *slog.Logger) *ClaudeCLI {
	if model == "" {
		model = "sonnet"
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &ClaudeCLI{Model: model, Version: FewShotCoT, logger: logger}
}

func (c *ClaudeCLI) GeneratePlan(ctx context.Context, req PlanRequest) ([]Session, error) {
	systemPrompt, err := SystemPrompt(c.Version, req.Locale)
	if err != nil {
		return nil, err
	}
	userPrompt := UserPrompt(c.Version, req)

	args := []string{
		"-p", userPrompt,
		"--output-format", "json",
		"--model", c.Model,
		"--system-prompt", systemPrompt,
		"--json-schema", planSchemaJSON,
		"--no-session-persistence",
	}

	c.logger.Debug("invoking claude CLI",
		"model", c.Model,
		"prompt_version", c.Version,
		"free_slots", len(req.FreeSlots),
		"assessments", len(req.Assessments),
		"system_prompt_len", len(systemPrompt),
		"user_prompt_len", len(userPrompt),
		"schema_len", len(planSchemaJSON),
	)

	result, err := c.runCLI(ctx, args)
	if err != nil {
		return nil, err
	}

	c.logger.Debug("plan result to parse",
		"result_len", len(result),
		"result", truncateStr(result, 2000),
	)

	sessions, err := ParseSessions(result)
	if err != nil {
		c.logger.Error("failed to parse plan",
			"error", err,
			"raw", truncateStr(result, 2000),
		)
		return nil, err
	}

	c.logger.Debug("parsed plan", "sessions", len(sessions))
	for i, s := range sessions {
		c.logger.Debug("session",
			"index", i,
			"date", s.Date,
			"start", s.Start,
			"end", s.End,
			"module", s.Module,
			"topic", s.Topic,
		)
	}
	return sessions, nil
}

// runCLI executes the claude CLI, using streaming if OnThinking is set.
func (c *ClaudeCLI) runCLI(ctx context.Context, args []string) (string, error) {
	if c.OnThinking != nil {
		return c.runStreamingCLI(ctx, args)
	}
	return c.runBufferedCLI(ctx, args)
}

func (c *ClaudeCLI) command(ctx context.Context, args []string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, c.binary(), args...)
	cmd.Env = cleanEnv()
	return cmd
}

func (c *ClaudeCLI) binary() string {
	if c.Binary != "" {
		return c.Binary
	}
	return "claude"
}

// cliError turns a failed run into an error, reporting timeouts plainly.
func (c *ClaudeCLI) cliError(ctx context.Context, err error, elapsed time.Duration, stderr string) error {
	c.logger.Error("claude CLI failed",
		"error", err,
		"elapsed", elapsed,
		"stderr", stderr,
	)
	if ctx.Err() != nil {
		return fmt.Errorf("claude CLI timed out after %s", elapsed.Truncate(time.Second))
	}
	return fmt.Errorf("running claude CLI: %w (stderr: %s)", err, stderr)
}

// runBufferedCLI runs the CLI and captures all output at once.
func (c *ClaudeCLI) runBufferedCLI(ctx context.Context, args []string) (string, error) {
	cmd := c.command(ctx, args)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err := cmd.Run()
	elapsed := time.Since(started)

	c.logger.Debug("claude CLI finished",
		"elapsed", elapsed,
		"stdout_bytes", stdout.Len(),
		"stderr_bytes", stderr.Len(),
	)
	if err != nil {
		return "", c.cliError(ctx, err, elapsed, stderr.String())
	}

	if out, ok := unwrapEnvelope(stdout.Bytes()); ok {
		return out, nil
	}
	c.logger.Debug("no envelope in CLI output, using raw stdout")
	return stdout.String(), nil
}

// envelope is the --output-format json wrapper, also used by the final
// "result" event of stream-json.
type envelope struct {
	Type             string          `json:"type"`
	Subtype          string          `json:"subtype,omitempty"`
	Result           json.RawMessage `json:"result,omitempty"`
	StructuredOutput json.RawMessage `json:"structured_output,omitempty"`
}

// unwrapEnvelope extracts the model output from a CLI envelope. The typed
// structured_output wins over result; result may be a JSON string or a
// raw JSON value.
func unwrapEnvelope(data []byte) (string, bool) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return "", false
	}
	if len(env.StructuredOutput) > 0 && (env.StructuredOutput[0] == '{' || env.StructuredOutput[0] == '[') {
		return string(env.StructuredOutput), true
	}
	if len(env.Result) == 0 {
		return "", false
	}
	var s string
	if err := json.Unmarshal(env.Result, &s); err == nil {
		if s == "" {
			return "", false
		}
		// The text may itself be another envelope.
		if inner, ok := unwrapEnvelope([]byte(s)); ok {
			return inner, true
		}
		return s, true
	}
	if env.Result[0] == '{' || env.Result[0] == '[' {
		return string(env.Result), true
	}
	return "", false
}

// streamEvent represents a single event in the stream-json output.
type streamEvent struct {
	envelope
	Delta struct {
		Text string `json:"text,omitempty"`
	} `json:"delta"`
	Message struct {
		Content []struct {
			Type string `json:"type,omitempty"`
			Text string `json:"text,omitempty"`
		} `json:"content,omitempty"`
	} `json:"message"`
}

// runStreamingCLI runs the CLI with stream-json output, calling OnThinking
// for text chunks and returning the output of the final result event.
func (c *ClaudeCLI) runStreamingCLI(ctx context.Context, args []string) (string, error) {
	streamArgs := make([]string, 0, len(args)+1)
	for i, a := range args {
		if a == "json" && i > 0 && args[i-1] == "--output-format" {
			a = "stream-json"
		}
		streamArgs = append(streamArgs, a)
	}
	// stream-json with -p requires --verbose
	streamArgs = append(streamArgs, "--verbose")

	cmd := c.command(ctx, streamArgs)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", fmt.Errorf("creating stdout pipe: %w", err)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	started := time.Now()
	if err := cmd.Start(); err != nil {
		return "", fmt.Errorf("starting claude CLI: %w", err)
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var result string
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var ev streamEvent
		if err := json.Unmarshal(line, &ev); err != nil {
			c.logger.Debug("skipping unparseable stream line",
				"error", err,
				"line", truncateStr(string(line), 200),
			)
			continue
		}

		switch ev.Type {
		case "content_block_delta":
			if ev.Delta.Text != "" {
				c.OnThinking(ev.Delta.Text)
			}
		case "assistant":
			for _, block := range ev.Message.Content {
				if block.Type == "text" && block.Text != "" {
					c.OnThinking(block.Text)
				}
			}
		case "result":
			if out, ok := unwrapEnvelope(line); ok {
				result = out
			}
			c.logger.Debug("stream result event",
				"subtype", ev.Subtype,
				"result_len", len(result),
			)
		}
	}

	elapsed := time.Since(started)
	if err := cmd.Wait(); err != nil {
		return "", c.cliError(ctx, err, elapsed, stderr.String())
	}
	c.logger.Debug("claude CLI streaming finished",
		"elapsed", elapsed,
		"result_len", len(result),
	)

	if result == "" {
		return "", fmt.Errorf("no result received from claude CLI stream")
	}
	return result, nil
}
