package main

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"
)

var jsonLogger = log.New(os.Stdout, "", 0)

// logJSON writes one structured line. level is DEBUG, INFO, WARN or ERROR.
func logJSON(level, message string, fields map[string]any) {
	entry := map[string]any{
		"severity": level,
		"message":  message,
		"time":     time.Now().Format(time.RFC3339),
	}
	for k, v := range fields {
		entry[k] = v
	}
	line, err := json.Marshal(entry)
	if err != nil {
		jsonLogger.Printf(`{"severity":"ERROR","message":"marshalling log entry: %v"}`, err)
		return
	}
	jsonLogger.Println(string(line))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		level := "INFO"
		if rec.status >= http.StatusInternalServerError {
			level = "ERROR"
		}
		logJSON(level, "request", map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"duration": time.Since(start).String(),
		})
	})
}

// serverError logs err and replies with a generic 500.
func serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logJSON("ERROR", msg, map[string]any{
		"error": err.Error(),
		"path":  r.URL.Path,
	})
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}
