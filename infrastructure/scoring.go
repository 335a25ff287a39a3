package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"referral-intake/domain"
)

// Scorer asks the oracle for a fit score and degrades to the fallback
// assessment on any failure.
type Scorer struct {
	gen     TextGenerator
	timeout time.Duration
	retry   *RetryConfig
	metrics *Metrics
	logger  *zap.Logger
}

var _ domain.Scorer = (*Scorer)(nil)

// NewScorer wraps gen with a per-attempt timeout and an attempt budget.
// metrics may be nil.
func NewScorer(gen TextGenerator, timeout time.Duration, maxAttempts int, metrics *Metrics, logger *zap.Logger) *Scorer {
	return &Scorer{
		gen:     gen,
		timeout: timeout,
		retry:   RetryConfigForAttempts(maxAttempts),
		metrics: metrics,
		logger:  logger.Named("scorer"),
	}
}

func (s *Scorer) Score(ctx context.Context, in domain.ScoringInput) domain.Assessment {
	start := time.Now()
	prompt := BuildScoringPrompt(in)

	var raw string
	attempts := 0
	err := DoIfRetryable(ctx, s.retry, func() error {
		attempts++
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		text, err := s.gen.Generate(callCtx, prompt)
		if err != nil {
			var oErr *domain.OracleError
			if !errors.As(err, &oErr) {
				return transportError(callCtx, err)
			}
			return err
		}
		raw = text
		return nil
	})

	var a domain.Assessment
	if err == nil {
		a, err = ParseAssessment(raw)
	}
	if err != nil {
		s.logger.Warn("Scoring failed, using fallback assessment",
			zap.String("model", s.gen.Model()),
			zap.Int("attempts", attempts),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		a = domain.FallbackAssessment()
	} else {
		if a.Score < 1 || a.Score > 10 {
			s.logger.Warn("Oracle score outside 1-10, storing as returned", zap.Int("score", a.Score))
		}
		s.logger.Info("Scored referral",
			zap.String("model", s.gen.Model()),
			zap.Int("score", a.Score),
			zap.Int("attempts", attempts),
			zap.Duration("elapsed", time.Since(start)))
	}

	s.metrics.ObserveScoring(a.Status, time.Since(start))
	return a
}

// BuildScoringPrompt renders the oracle prompt for one candidate.
func BuildScoringPrompt(in domain.ScoringInput) string {
	jobIDs, _ := json.Marshal(in.JobIDs)
	return fmt.Sprintf(`Analyze this candidate for the following roles: %s.
Primary Role Title: %s
Candidate's "Why I'm a fit": %s
Resume Content: %s

Provide a Fit Score (1-10) based on the overall match for these roles and a 3-bullet point summary of pros/cons.
Format the response as JSON:
{
  "score": number,
  "summary": "bullet 1\nbullet 2\nbullet 3"
}

Return ONLY the raw JSON without any markdown formatting, code blocks, or additional text.`,
		jobIDs, in.RoleTitle, in.WhyFit, in.ResumeText)
}

type rawAssessment struct {
	Score   json.RawMessage `json:"score"`
	Summary *string         `json:"summary"`
}

// ParseAssessment decodes the oracle reply. The score must be a JSON number
// holding an integer that fits the fit_score column, and the summary a
// non-empty string; anything else is an OracleParse error.
func ParseAssessment(text string) (domain.Assessment, error) {
	cleaned := cleanJSONResponse(text)

	var raw rawAssessment
	if err := json.Unmarshal([]byte(cleaned), &raw); err != nil {
		return domain.Assessment{}, parseError(fmt.Errorf("failed to parse JSON: %w", err), cleaned)
	}
	score, err := parseScore(raw.Score)
	if err != nil {
		return domain.Assessment{}, parseError(err, cleaned)
	}
	if raw.Summary == nil || strings.TrimSpace(*raw.Summary) == "" {
		return domain.Assessment{}, parseError(errors.New("missing summary"), cleaned)
	}

	return domain.Assessment{
		Score:   score,
		Summary: strings.TrimSpace(*raw.Summary),
		Status:  domain.ScoringStatusScored,
	}, nil
}

// parseScore accepts a bare JSON number with an integral value in the int32
// range. Quoted numbers are rejected.
func parseScore(raw json.RawMessage) (int, error) {
	literal := strings.TrimSpace(string(raw))
	if literal == "" || literal == "null" {
		return 0, errors.New("missing score")
	}
	if strings.HasPrefix(literal, `"`) {
		return 0, fmt.Errorf("score %s is a string, not a number", literal)
	}

	var num json.Number
	if err := json.Unmarshal([]byte(literal), &num); err != nil {
		return 0, fmt.Errorf("score %s is not a number", literal)
	}
	if n, err := num.Int64(); err == nil {
		if n < math.MinInt32 || n > math.MaxInt32 {
			return 0, fmt.Errorf("score %s is out of range", literal)
		}
		return int(n), nil
	}
	f, err := num.Float64()
	if err != nil || f != math.Trunc(f) {
		return 0, fmt.Errorf("score %s is not an integer", literal)
	}
	if f < math.MinInt32 || f > math.MaxInt32 {
		return 0, fmt.Errorf("score %s is out of range", literal)
	}
	return int(f), nil
}

func parseError(err error, response string) *domain.OracleError {
	return &domain.OracleError{
		Kind: domain.OracleParse,
		Err:  fmt.Errorf("%w (response: %s)", err, truncate(response, 256)),
	}
}

// cleanJSONResponse strips markdown fences and surrounding prose around the
// outermost JSON object.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)

	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
	}
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start != -1 && end != -1 && end > start {
		content = content[start : end+1]
	}

	return strings.TrimSpace(content)
}
