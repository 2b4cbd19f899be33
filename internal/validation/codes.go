package validation

// Code identifies the kind of validation failure. The set is closed:
// callers switch on codes programmatically, so new failure modes must be
// added here rather than invented at the call site.
type Code string

const (
	// Schema / shape failures
	CodeRequiredField Code = "REQUIRED_FIELD"
	CodeInvalidType   Code = "INVALID_TYPE"
	CodeInvalidFormat Code = "INVALID_FORMAT"
	CodeOutOfRange    Code = "OUT_OF_RANGE"

	// Constraint failures
	CodeDuplicateValue      Code = "DUPLICATE_VALUE"
	CodeForeignKeyViolation Code = "FOREIGN_KEY_VIOLATION"
	CodeConstraintViolation Code = "CONSTRAINT_VIOLATION"
	CodeCircularDependency  Code = "CIRCULAR_DEPENDENCY"

	// Business rule failures
	CodeBusinessRuleViolation  Code = "BUSINESS_RULE_VIOLATION"
	CodeInvalidStateTransition Code = "INVALID_STATE_TRANSITION"

	// Access / lookup failures
	CodePermissionDenied Code = "PERMISSION_DENIED"
	CodeResourceNotFound Code = "RESOURCE_NOT_FOUND"

	// Internal failures: the check itself broke, not the data
	CodeValidationError    Code = "VALIDATION_ERROR"
	CodeConstraintError    Code = "CONSTRAINT_ERROR"
	CodeBusinessRuleError  Code = "BUSINESS_RULE_ERROR"
	CodeFKConstraintError  Code = "FK_CONSTRAINT_ERROR"
	CodeValidatorNotFound  Code = "VALIDATOR_NOT_FOUND"
	CodeRuleExecutionError Code = "RULE_EXECUTION_ERROR"
)

// Severity grades a validation finding. Only SeverityError gates success;
// warnings and infos are reported but never fail a result.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
	SeverityInfo    Severity = "info"
)
