package errors

// ErrorBuilder provides a fluent API for creating ClassifiedError instances.
type ErrorBuilder struct {
	category ErrorCategory
	severity ErrorSeverity
	retry    RetryStrategy
	message  string
	cause    error
	context  ErrorContext
}

// NewError starts a builder with the given category and message.
func NewError(category ErrorCategory, message string) *ErrorBuilder {
	return &ErrorBuilder{
		category: category,
		severity: SeverityError,
		retry:    RetryNever,
		message:  message,
		context:  make(ErrorContext),
	}
}

// WrapError starts a builder that wraps err.
func WrapError(err error, category ErrorCategory, message string) *ErrorBuilder {
	b := NewError(category, message)
	b.cause = err
	return b
}

func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.severity = severity
	return b
}

func (b *ErrorBuilder) WithRetry(strategy RetryStrategy) *ErrorBuilder {
	b.retry = strategy
	return b
}

func (b *ErrorBuilder) WithContext(key string, value any) *ErrorBuilder {
	b.context = b.context.Set(key, value)
	return b
}

func (b *ErrorBuilder) Fatal() *ErrorBuilder     { return b.WithSeverity(SeverityFatal) }
func (b *ErrorBuilder) Warning() *ErrorBuilder   { return b.WithSeverity(SeverityWarning) }
func (b *ErrorBuilder) Retryable() *ErrorBuilder { return b.WithRetry(RetryBackoff) }

// Build creates the final ClassifiedError.
func (b *ErrorBuilder) Build() *ClassifiedError {
	return &ClassifiedError{
		category: b.category,
		severity: b.severity,
		retry:    b.retry,
		message:  b.message,
		cause:    b.cause,
		context:  b.context,
	}
}

// Convenience constructors for common error patterns

func ConfigError(message string) *ErrorBuilder {
	return NewError(CategoryConfig, message).Fatal().WithRetry(RetryUserAction)
}

func ValidationError(message string) *ErrorBuilder {
	return NewError(CategoryValidation, message).Fatal().WithRetry(RetryUserAction)
}

func NotFoundError(message string) *ErrorBuilder {
	return NewError(CategoryNotFound, message)
}

// SpecError reports a broken library spec or navigation file. It fails one library only.
func SpecError(message string) *ErrorBuilder {
	return NewError(CategorySpec, message)
}

func TypeDocError(message string) *ErrorBuilder {
	return NewError(CategoryTypeDoc, message)
}

func GitError(message string) *ErrorBuilder {
	return NewError(CategoryGit, message).Retryable()
}

func PublishError(message string) *ErrorBuilder {
	return NewError(CategoryPublish, message).Retryable()
}

func StoreError(message string) *ErrorBuilder {
	return NewError(CategoryStore, message)
}

func BuildError(message string) *ErrorBuilder {
	return NewError(CategoryBuild, message).Fatal()
}

func FileSystemError(message string) *ErrorBuilder {
	return NewError(CategoryFileSystem, message).Retryable()
}

func RuntimeError(message string) *ErrorBuilder {
	return NewError(CategoryRuntime, message).Fatal()
}

func InternalError(message string) *ErrorBuilder {
	return NewError(CategoryInternal, message).Fatal()
}
