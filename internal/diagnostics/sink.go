package diagnostics

// ErrorSink receives compile errors as they are found.
type ErrorSink interface {
	AddError(err *CodeError)
	HasErrors() bool
	Errors() []*CodeError
}

// ListErrorSink keeps errors in order of arrival.
type ListErrorSink struct {
	errs []*CodeError
}

func NewListErrorSink() *ListErrorSink {
	return &ListErrorSink{}
}

func (s *ListErrorSink) AddError(err *CodeError) {
	s.errs = append(s.errs, err)
}

func (s *ListErrorSink) HasErrors() bool {
	return len(s.errs) > 0
}

func (s *ListErrorSink) Errors() []*CodeError {
	return s.errs
}

// Reset drops collected errors so the sink can be reused.
func (s *ListErrorSink) Reset() {
	s.errs = s.errs[:0]
}

// AsError converts collected errors into a *CompilationError, or nil.
func AsError(s ErrorSink, moduleName string) error {
	if !s.HasErrors() {
		return nil
	}
	errs := s.Errors()
	out := make([]*CodeError, len(errs))
	for i, err := range errs {
		if err.ModuleName == "" {
			err.ModuleName = moduleName
		}
		out[i] = err
	}
	return &CompilationError{Errors: out}
}
