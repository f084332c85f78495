package validation

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
)

// ValidationStep represents a single validation step with its status.
type ValidationStep struct {
	Name    string
	Status  StepStatus
	Message string
	Error   error
	Latency time.Duration
}

// StepStatus represents the status of a validation step.
type StepStatus int

const (
	StepPending StepStatus = iota
	StepRunning
	StepPassed
	StepFailed
	StepWarning
	StepSkipped
)

// String returns the string representation of a step status.
func (s StepStatus) String() string {
	switch s {
	case StepPending:
		return "pending"
	case StepRunning:
		return "running"
	case StepPassed:
		return "passed"
	case StepFailed:
		return "failed"
	case StepWarning:
		return "warning"
	case StepSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// SuiteResult represents the complete result of validation suite execution.
type SuiteResult struct {
	Steps       []ValidationStep
	TotalSteps  int
	PassedSteps int
	FailedSteps int
	Warnings    int
	Duration    time.Duration
	Success     bool
}

// ValidationSuite orchestrates all validation molecules for complete startup validation.
// This is an organism that composes ConfigValidator, ConnectivityChecker, and
// OCRChecker to provide comprehensive validation with progress output.
//
// Failed steps block startup; warning steps (missing .env, unreachable
// embeddings server, missing tesseract) let the service start degraded.
type ValidationSuite struct {
	output               io.Writer
	configValidator      *ConfigValidator
	connectivityChecker  *ConnectivityChecker
	ocrChecker           *OCRChecker
	allowSelfSignedCerts bool
	timeout              time.Duration
	showProgress         bool
	failFast             bool
}

// NewValidationSuite creates a new ValidationSuite with default settings.
func NewValidationSuite() *ValidationSuite {
	return &ValidationSuite{
		output:               os.Stdout,
		configValidator:      NewConfigValidator(),
		connectivityChecker:  NewConnectivityChecker(),
		ocrChecker:           NewOCRChecker(),
		allowSelfSignedCerts: false,
		timeout:              30 * time.Second,
		showProgress:         true,
		failFast:             false,
	}
}

// WithOutput sets the output writer for progress messages.
func (s *ValidationSuite) WithOutput(w io.Writer) *ValidationSuite {
	s.output = w
	return s
}

// WithAllowSelfSignedCerts configures whether to allow self-signed certificates.
func (s *ValidationSuite) WithAllowSelfSignedCerts(allow bool) *ValidationSuite {
	s.allowSelfSignedCerts = allow
	s.connectivityChecker.WithAllowSelfSignedCerts(allow)
	return s
}

// WithTimeout sets the timeout for network operations.
func (s *ValidationSuite) WithTimeout(timeout time.Duration) *ValidationSuite {
	s.timeout = timeout
	s.connectivityChecker.WithTimeout(timeout)
	s.ocrChecker.WithTimeout(timeout)
	return s
}

// WithShowProgress enables or disables progress output.
func (s *ValidationSuite) WithShowProgress(show bool) *ValidationSuite {
	s.showProgress = show
	return s
}

// WithFailFast stops validation on first failure if enabled.
func (s *ValidationSuite) WithFailFast(failFast bool) *ValidationSuite {
	s.failFast = failFast
	return s
}

// WithEnvPath sets a custom path for the .env file.
func (s *ValidationSuite) WithEnvPath(path string) *ValidationSuite {
	s.configValidator.WithEnvPath(path)
	return s
}

// Validate runs all validation checks in sequence with progress output.
// Returns a SuiteResult with complete validation results.
func (s *ValidationSuite) Validate() SuiteResult {
	startTime := time.Now()
	steps := make([]ValidationStep, 0, 6)

	// Header
	if s.showProgress {
		s.printHeader("jandocs Startup Validation")
	}

	// Step 1: Check .env file (warning only; defaults cover everything)
	step := s.runStep("Environment File", func() (StepStatus, string, error) {
		result := s.configValidator.CheckEnvFile()
		return result.Status, result.Message, result.Error
	})
	steps = append(steps, step)

	// Step 2: Check embeddings URL format
	step = s.runStep("Embeddings URL", func() (StepStatus, string, error) {
		result := s.configValidator.CheckEmbeddingsURL()
		return result.Status, result.Message, result.Error
	})
	steps = append(steps, step)
	urlOK := step.Status != StepFailed
	if s.failFast && step.Status == StepFailed {
		return s.buildResult(steps, startTime)
	}

	// Step 3: Check data directory
	step = s.runStep("Data Directory", func() (StepStatus, string, error) {
		result := s.configValidator.CheckDataDirectory()
		return result.Status, result.Message, result.Error
	})
	steps = append(steps, step)
	if s.failFast && step.Status == StepFailed {
		return s.buildResult(steps, startTime)
	}

	// Step 4: Check worker count and thresholds file
	step = s.runStep("Scheduler Settings", func() (StepStatus, string, error) {
		result := s.configValidator.CheckWorkerConfig()
		return result.Status, result.Message, result.Error
	})
	steps = append(steps, step)
	if s.failFast && step.Status == StepFailed {
		return s.buildResult(steps, startTime)
	}

	// Step 5: Check embeddings server connectivity (only if the URL parses).
	// An unreachable server is a warning: ingestion fails later but the API
	// comes up and reports the condition.
	if urlOK {
		step = s.runStep("Embeddings Connectivity", func() (StepStatus, string, error) {
			result := s.connectivityChecker.CheckEmbeddingsConnectivity()
			msg := result.Message
			if result.Latency > 0 {
				msg = fmt.Sprintf("%s (latency: %v)", msg, result.Latency.Round(time.Millisecond))
			}
			if !result.Reachable {
				return StepWarning, msg, result.Error
			}
			return StepPassed, msg, nil
		})
	} else {
		step = ValidationStep{
			Name:    "Embeddings Connectivity",
			Status:  StepSkipped,
			Message: "Skipped due to configuration errors",
		}
		if s.showProgress {
			s.printStep(step)
		}
	}
	steps = append(steps, step)

	// Step 6: Check OCR runtime (warning if missing)
	step = s.runStep("OCR Runtime", func() (StepStatus, string, error) {
		result := s.ocrChecker.Check()
		if !result.Available {
			return StepWarning, result.Message, result.Error
		}
		return StepPassed, result.Message, nil
	})
	steps = append(steps, step)

	result := s.buildResult(steps, startTime)

	// Summary
	if s.showProgress {
		s.printSummary(result)
	}

	return result
}

// ValidateQuick runs only essential configuration checks (no network calls,
// no subprocess probes). Useful for fast startup validation.
func (s *ValidationSuite) ValidateQuick() SuiteResult {
	startTime := time.Now()
	steps := make([]ValidationStep, 0, 4)

	if s.showProgress {
		s.printHeader("Quick Configuration Check")
	}

	checks := []struct {
		name string
		fn   func() ValidationResult
	}{
		{"Environment File", s.configValidator.CheckEnvFile},
		{"Embeddings URL", s.configValidator.CheckEmbeddingsURL},
		{"Data Directory", s.configValidator.CheckDataDirectory},
		{"Scheduler Settings", s.configValidator.CheckWorkerConfig},
	}

	for _, check := range checks {
		step := s.runStep(check.name, func() (StepStatus, string, error) {
			result := check.fn()
			return result.Status, result.Message, result.Error
		})
		steps = append(steps, step)
		if s.failFast && step.Status == StepFailed {
			break
		}
	}

	result := s.buildResult(steps, startTime)

	if s.showProgress {
		s.printSummary(result)
	}

	return result
}

// runStep executes a validation step with timing and progress output.
func (s *ValidationSuite) runStep(name string, fn func() (StepStatus, string, error)) ValidationStep {
	step := ValidationStep{Name: name, Status: StepRunning}

	if s.showProgress {
		s.printStepStart(name)
	}

	startTime := time.Now()
	status, message, err := fn()
	step.Latency = time.Since(startTime)
	step.Status = status
	step.Message = message
	step.Error = err

	if s.showProgress {
		s.printStep(step)
	}

	return step
}

// buildResult creates a SuiteResult from completed steps.
func (s *ValidationSuite) buildResult(steps []ValidationStep, startTime time.Time) SuiteResult {
	result := SuiteResult{
		Steps:      steps,
		TotalSteps: len(steps),
		Duration:   time.Since(startTime),
		Success:    true,
	}

	for _, step := range steps {
		switch step.Status {
		case StepPassed:
			result.PassedSteps++
		case StepFailed:
			result.FailedSteps++
			result.Success = false
		case StepWarning:
			result.Warnings++
		}
	}

	return result
}

// printHeader prints a validation header.
func (s *ValidationSuite) printHeader(title string) {
	fmt.Fprintln(s.output)
	headerColor := color.New(color.FgCyan, color.Bold)
	headerColor.Fprintf(s.output, "━━━ %s ━━━\n", title)
	fmt.Fprintln(s.output)
}

// printStepStart prints the step name before execution (for real-time feedback).
func (s *ValidationSuite) printStepStart(name string) {
	fmt.Fprintf(s.output, "  ◌ %s...", name)
}

// printStep prints a completed validation step with status indicator.
func (s *ValidationSuite) printStep(step ValidationStep) {
	var icon string
	var clr *color.Color

	switch step.Status {
	case StepPassed:
		icon = "✓"
		clr = color.New(color.FgGreen)
	case StepFailed:
		icon = "✗"
		clr = color.New(color.FgRed)
	case StepWarning:
		icon = "!"
		clr = color.New(color.FgYellow)
	case StepSkipped:
		icon = "○"
		clr = color.New(color.FgHiBlack)
	default:
		icon = "?"
		clr = color.New(color.FgWhite)
	}

	// Clear the "running" line and print result
	fmt.Fprintf(s.output, "\r")
	clr.Fprintf(s.output, "  %s %s", icon, step.Name)

	// Add message if present
	if step.Message != "" {
		dim := color.New(color.FgHiBlack)
		dim.Fprintf(s.output, " - %s", step.Message)
	}

	fmt.Fprintln(s.output)

	// Print error details for failed steps
	if step.Status == StepFailed && step.Error != nil {
		errColor := color.New(color.FgRed)
		errColor.Fprintf(s.output, "    └─ %s\n", step.Error.Error())
	}
}

// printSummary prints the validation summary.
func (s *ValidationSuite) printSummary(result SuiteResult) {
	fmt.Fprintln(s.output)

	if result.Success {
		successColor := color.New(color.FgGreen, color.Bold)
		successColor.Fprintf(s.output, "━━━ Validation Passed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d/%d checks passed in %v)",
			result.PassedSteps, result.TotalSteps, result.Duration.Round(time.Millisecond))
		successColor.Fprintln(s.output, " ━━━")
	} else {
		failColor := color.New(color.FgRed, color.Bold)
		failColor.Fprintf(s.output, "━━━ Validation Failed ")
		color.New(color.FgHiBlack).Fprintf(s.output, "(%d passed, %d failed)",
			result.PassedSteps, result.FailedSteps)
		failColor.Fprintln(s.output, " ━━━")
	}

	fmt.Fprintln(s.output)
}

// GetErrors returns all errors from failed steps.
func (r SuiteResult) GetErrors() []error {
	errors := make([]error, 0)
	for _, step := range r.Steps {
		if step.Status == StepFailed && step.Error != nil {
			errors = append(errors, step.Error)
		}
	}
	return errors
}

// GetFirstError returns the first error from failed steps, or nil if none failed.
func (r SuiteResult) GetFirstError() error {
	for _, step := range r.Steps {
		if step.Status == StepFailed && step.Error != nil {
			return step.Error
		}
	}
	return nil
}

// Summary returns a human-readable summary string.
func (r SuiteResult) Summary() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Validation %s: ", map[bool]string{true: "Passed", false: "Failed"}[r.Success]))
	sb.WriteString(fmt.Sprintf("%d/%d checks passed", r.PassedSteps, r.TotalSteps))
	if r.FailedSteps > 0 {
		sb.WriteString(fmt.Sprintf(", %d failed", r.FailedSteps))
	}
	if r.Warnings > 0 {
		sb.WriteString(fmt.Sprintf(", %d warnings", r.Warnings))
	}
	sb.WriteString(fmt.Sprintf(" (took %v)", r.Duration.Round(time.Millisecond)))
	return sb.String()
}
