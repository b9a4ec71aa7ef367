package interfaces

type Logger interface {
	Info(message string)
	Success(message string)
	Error(message string)
	Warn(message string)
	Debug(message string)
}
