package logger

// Fields attaches arbitrary key/value pairs to a log message, in the style
// of the logrus.Fields API.
type Fields map[string]string

// FieldNameTarget carries the ID of the target a log line belongs to, so
// sinks that aggregate output per target can group lines without parsing
// the visible prefix.
const FieldNameTarget = "target"
