package errors

import (
	"fmt"
	"os"
	"strings"
)

type Category string

const (
	CategoryModelValidation Category = "model_validation"
	CategoryGeneration      Category = "generation"
	CategoryExecution       Category = "execution"
	CategoryEnvironment     Category = "environment"
	CategoryTimeout         Category = "timeout"
	CategoryLeak            Category = "leak"
	CategorySchema          Category = "schema"
	CategoryConfig          Category = "config"
	CategoryIO              Category = "io"
	CategoryInternal        Category = "internal"
)

type HarnessError struct {
	Category Category
	Code     string
	Message  string
	Wrapped  error
	Context  map[string]string
}

func (e *HarnessError) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

func (e *HarnessError) Unwrap() error {
	return e.Wrapped
}

func (e *HarnessError) WithContext(key, value string) *HarnessError {
	if e.Context == nil {
		e.Context = make(map[string]string)
	}
	e.Context[key] = value
	return e
}

func New(category Category, code, message string) *HarnessError {
	return &HarnessError{
		Category: category,
		Code:     code,
		Message:  message,
	}
}

func Wrap(category Category, code, message string, err error) *HarnessError {
	return &HarnessError{
		Category: category,
		Code:     code,
		Message:  message,
		Wrapped:  err,
	}
}

func ModelValidationFailed(modelID, reason string) *HarnessError {
	return New(CategoryModelValidation, "FAILED",
		fmt.Sprintf("model '%s' failed validation: %s", modelID, reason)).
		WithContext("model_id", modelID)
}

func DanglingTransition(modelID, transitionID, missingStateID string) *HarnessError {
	return New(CategoryModelValidation, "DANGLING_TRANSITION",
		fmt.Sprintf("model '%s': transition '%s' references undeclared state '%s'", modelID, transitionID, missingStateID)).
		WithContext("model_id", modelID).
		WithContext("transition_id", transitionID).
		WithContext("missing_state_id", missingStateID)
}

func MultipleInitialStates(modelID string, count int) *HarnessError {
	return New(CategoryModelValidation, "INITIAL_STATE",
		fmt.Sprintf("model '%s' declares %d initial states, expected exactly 1", modelID, count)).
		WithContext("model_id", modelID)
}

func GenerationFailed(modelID, elementID, reason string) *HarnessError {
	return New(CategoryGeneration, "FAILED",
		fmt.Sprintf("cannot synthesize test for model '%s' element '%s': %s", modelID, elementID, reason)).
		WithContext("model_id", modelID).
		WithContext("element_id", elementID)
}

func UnresolvableTrigger(modelID, transitionID, trigger string) *HarnessError {
	return New(CategoryGeneration, "UNRESOLVABLE_TRIGGER",
		fmt.Sprintf("model '%s': trigger '%s' on transition '%s' matches no module operation", modelID, trigger, transitionID)).
		WithContext("model_id", modelID).
		WithContext("transition_id", transitionID)
}

func ExecutionFailed(testID, reason string) *HarnessError {
	return New(CategoryExecution, "FAILED",
		fmt.Sprintf("test '%s' failed: %s", testID, reason)).
		WithContext("test_id", testID)
}

func DispatchFailed(testID, op string, err error) *HarnessError {
	return Wrap(CategoryExecution, "DISPATCH_FAILED",
		fmt.Sprintf("test '%s': dispatch of operation '%s' failed", testID, op), err).
		WithContext("test_id", testID).
		WithContext("op", op)
}

func EnvironmentLaunchFailed(envName string, err error) *HarnessError {
	return Wrap(CategoryEnvironment, "LAUNCH_FAILED",
		fmt.Sprintf("environment '%s' failed to launch", envName), err).
		WithContext("environment", envName)
}

func EnvironmentNotReady(envName, timeout string) *HarnessError {
	return New(CategoryEnvironment, "NOT_READY",
		fmt.Sprintf("environment '%s' did not signal readiness within %s", envName, timeout)).
		WithContext("environment", envName)
}

func Timeout(operation, bound string) *HarnessError {
	return New(CategoryTimeout, "EXCEEDED",
		fmt.Sprintf("%s exceeded bounded wait of %s", operation, bound))
}

func HandleLeak(testID string, handles []string) *HarnessError {
	return New(CategoryLeak, "HANDLES_OUTSTANDING",
		fmt.Sprintf("test '%s' left %d handle(s) unreleased at teardown: %s", testID, len(handles), strings.Join(handles, ", "))).
		WithContext("test_id", testID)
}

func SchemaNotFound(schemaName string) *HarnessError {
	return New(CategorySchema, "NOT_FOUND", fmt.Sprintf("schema not found: %s", schemaName))
}

func SchemaCompileFailed(schemaName string, err error) *HarnessError {
	return Wrap(CategorySchema, "COMPILE_FAILED", fmt.Sprintf("failed to compile schema: %s", schemaName), err)
}

func SchemaValidationFailed(schemaName string, violations []string) *HarnessError {
	return New(CategorySchema, "VALIDATION_FAILED",
		fmt.Sprintf("schema validation failed for %s: %s", schemaName, strings.Join(violations, "; ")))
}

func ConfigMissing(key string) *HarnessError {
	return New(CategoryConfig, "MISSING", fmt.Sprintf("required config missing: %s", key))
}

func ConfigInvalid(key, reason string) *HarnessError {
	return New(CategoryConfig, "INVALID", fmt.Sprintf("invalid config '%s': %s", key, reason))
}

func IOReadFailed(path string, err error) *HarnessError {
	return Wrap(CategoryIO, "READ_FAILED", fmt.Sprintf("failed to read: %s", path), err)
}

func IOWriteFailed(path string, err error) *HarnessError {
	return Wrap(CategoryIO, "WRITE_FAILED", fmt.Sprintf("failed to write: %s", path), err)
}

func IONotExists(path string) *HarnessError {
	return New(CategoryIO, "NOT_EXISTS", fmt.Sprintf("path does not exist: %s", path))
}

func Internal(message string, err error) *HarnessError {
	if err != nil {
		return Wrap(CategoryInternal, "ERROR", message, err)
	}
	return New(CategoryInternal, "ERROR", message)
}

func FormatForStderr(err error) string {
	if he, ok := err.(*HarnessError); ok {
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("ERROR [%s:%s]\n", he.Category, he.Code))
		sb.WriteString(fmt.Sprintf("  Message: %s\n", he.Message))
		if he.Wrapped != nil {
			sb.WriteString(fmt.Sprintf("  Cause: %v\n", he.Wrapped))
		}
		if len(he.Context) > 0 {
			sb.WriteString("  Context:\n")
			for k, v := range he.Context {
				sb.WriteString(fmt.Sprintf("    %s: %s\n", k, v))
			}
		}
		return sb.String()
	}
	return fmt.Sprintf("ERROR: %v\n", err)
}

func PrintToStderr(err error) {
	fmt.Fprint(os.Stderr, FormatForStderr(err))
}

func IsCategory(err error, category Category) bool {
	if he, ok := err.(*HarnessError); ok {
		return he.Category == category
	}
	return false
}

func GetCode(err error) string {
	if he, ok := err.(*HarnessError); ok {
		return he.Code
	}
	return ""
}
