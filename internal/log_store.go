package internal

// LogStore is an optional durable sink for log messages. Station state is
// never persisted; only the simulation log stream goes here.
type LogStore interface {
	WriteLogMessage(data Data) error
	ReadLog(limit int64) ([]FeatureLogMessage, error)
}

type Data interface {
	DataType() string
}
