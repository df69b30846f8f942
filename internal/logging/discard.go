package logging

type discardLogger struct{}

var discard Logger = discardLogger{}

// Discard returns a Logger that drops every entry. It is the sink handed to
// collaborators whose output should stay silent.
func Discard() Logger {
	return discard
}

func (discardLogger) Debug(string, ...Field)                 {}
func (discardLogger) Info(string, ...Field)                  {}
func (discardLogger) Warn(string, ...Field)                  {}
func (discardLogger) Error(string, ...Field)                 {}
func (d discardLogger) WithFields(...Field) Logger           { return d }
func (d discardLogger) WithField(string, interface{}) Logger { return d }
func (discardLogger) Close() error                           { return nil }
