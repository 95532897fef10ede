package domain

//go:generate mockgen -source=interfaces.go -destination=mocks/mock_interfaces.go -package=mocks

// Severity of a user-facing notification
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityError
)

func (s Severity) String() string {
	switch s {
	case SeveritySuccess:
		return "success"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// Notifier receives user-visible feedback produced by the client layer.
// Implemented by the presentation layer (TUI, CLI printer).
type Notifier interface {
	Notify(message string, severity Severity)
}

// LoadingObserver is told when the global loading flag flips.
type LoadingObserver interface {
	LoadingChanged(loading bool)
}

// NoOpNotifier discards notifications
type NoOpNotifier struct{}

func (NoOpNotifier) Notify(string, Severity) {}

// NoOpLoadingObserver discards loading changes
type NoOpLoadingObserver struct{}

func (NoOpLoadingObserver) LoadingChanged(bool) {}

// NotifierFunc adapts a function to Notifier
type NotifierFunc func(message string, severity Severity)

func (f NotifierFunc) Notify(message string, severity Severity) { f(message, severity) }

// LoadingFunc adapts a function to LoadingObserver
type LoadingFunc func(loading bool)

func (f LoadingFunc) LoadingChanged(loading bool) { f(loading) }
