package logger

import "sync"

var named sync.Map // string -> *Logger

// Register makes l the logger Get returns for name.
func Register(name string, l *Logger) {
	named.Store(name, l)
}

// Get returns the logger registered under name. Unregistered names get the
// global logger scoped to component name, so packages can call Get before the
// process has configured logging.
func Get(name string) *Logger {
	if l, ok := named.Load(name); ok {
		return l.(*Logger)
	}
	return GetGlobalLogger().WithComponent(name)
}
