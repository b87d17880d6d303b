package oracles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Chative-core-poc-v1/companion/internal/agent/model"
	errx "github.com/Chative-core-poc-v1/companion/internal/core/error"
)

const (
	DefaultTimeout = 20 * time.Second
	maxContentLen  = 64 * 1024
	maxErrSnippet  = 200
)

var errNoJSON = errors.New("no json object in response")

// caller issues one bounded chat-model request and decodes strict JSON.
type caller struct {
	cm       einomodel.BaseChatModel
	timeout  time.Duration
	validate *validator.Validate
}

func newCaller(cm einomodel.BaseChatModel, timeout time.Duration) caller {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return caller{cm: cm, timeout: timeout, validate: validator.New()}
}

func (c caller) generate(ctx context.Context, system, user string) (string, error) {
	if c.cm == nil {
		return "", errx.Oracle(errors.New("chat model is nil"))
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msgs := []*schema.Message{schema.SystemMessage(system)}
	if strings.TrimSpace(user) != "" {
		msgs = append(msgs, schema.UserMessage(user))
	}
	out, err := c.cm.Generate(ctx, msgs)
	if err != nil {
		return "", errx.Oracle(err)
	}
	if out == nil || strings.TrimSpace(out.Content) == "" {
		return "", errx.Oracle(errors.New("empty response"))
	}
	content := out.Content
	if len(content) > maxContentLen {
		content = content[:maxContentLen]
	}
	return content, nil
}

// generateJSON decodes the response into out and validates its struct tags.
func (c caller) generateJSON(ctx context.Context, system, user string, out any) error {
	content, err := c.generate(ctx, system, user)
	if err != nil {
		return err
	}
	raw, err := extractJSON(content)
	if err != nil {
		return errx.Oracle(fmt.Errorf("%w: %s", err, safeSnippet(content)))
	}
	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return errx.Oracle(fmt.Errorf("decode: %w", err))
	}
	if err := c.validate.Struct(out); err != nil {
		return errx.Oracle(fmt.Errorf("validate: %w", err))
	}
	return nil
}

// extractJSON returns the outermost JSON object in s, tolerating markdown
// code fences and surrounding prose.
func extractJSON(s string) (string, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", errNoJSON
	}
	return s[start : end+1], nil
}

func safeSnippet(s string) string {
	s = strings.TrimSpace(s)
	if len(s) <= maxErrSnippet {
		return s
	}
	return s[:maxErrSnippet]
}

// NewSuite builds every oracle over a classifier model (JSON verdicts) and a
// response model (free text).
func NewSuite(classifier, response einomodel.BaseChatModel, timeout time.Duration) model.Oracles {
	return model.Oracles{
		Intent:    NewIntentClassifier(classifier, timeout),
		Plan:      NewPlanner(classifier, timeout),
		Interrupt: NewInterruptClassifier(classifier, timeout),
		Text:      NewResponder(response, timeout),
		Mood:      NewMoodAnalyzer(classifier, timeout),
	}
}
