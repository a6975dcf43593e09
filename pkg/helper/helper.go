package helper

import (
	"runtime"
	"strings"
)

// GetFuncName returns the caller's function name without its import path,
// e.g. "bookservice.(*BookService).CreateBook".
func GetFuncName() string {
	pc, _, _, ok := runtime.Caller(1)
	if !ok {
		return "unknown"
	}
	name := runtime.FuncForPC(pc).Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	return name
}
