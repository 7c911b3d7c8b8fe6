// internal/utils/logger/config.go
package logger

// Config controls console and rotating-file output.
type Config struct {
	// LogFile is the JSON log path; empty disables file output.
	LogFile     string
	MaxSize     int  // megabytes
	MaxAge      int  // days
	MaxBackups  int  // files
	Compress    bool // gzip rotated files
	Development bool
}

// DefaultConfig returns production settings writing to launchpad.log.
func DefaultConfig() *Config {
	return &Config{
		LogFile:     "launchpad.log",
		MaxSize:     100,
		MaxAge:      7,
		MaxBackups:  3,
		Compress:    true,
		Development: false,
	}
}
