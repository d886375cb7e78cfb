package api

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"regexp"
	"strings"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, code int) {
	writeJSON(w, code, map[string]string{"error": msg})
}

func jsonResponse(w http.ResponseWriter, text string) {
	writeJSON(w, http.StatusOK, map[string]string{"response": strings.TrimSpace(text)})
}

var (
	// Anthropic keys first; the generic sk- pattern would otherwise eat the prefix.
	anthropicKeyPattern = regexp.MustCompile(`sk-ant-[a-zA-Z0-9\-_]+`)
	openaiKeyPattern    = regexp.MustCompile(`sk-[a-zA-Z0-9]{10,}`)
	queryKeyPattern     = regexp.MustCompile(`(?i)([?&](?:key|api_key)=)[^&\s"]+`)
	bearerPattern       = regexp.MustCompile(`(?i)(bearer\s+)[a-zA-Z0-9\-_.]+`)
)

// SanitizeError returns err's message with API keys masked, for logging.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	msg = anthropicKeyPattern.ReplaceAllString(msg, "sk-ant-****")
	msg = openaiKeyPattern.ReplaceAllString(msg, "sk-****")
	msg = queryKeyPattern.ReplaceAllString(msg, "${1}****")
	msg = bearerPattern.ReplaceAllString(msg, "${1}****")
	return msg
}

func sanitizeFilename(name string) string {
	// Strip path components, keep only the base name.
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.ReplaceAll(name, "..", "_")
	if name == "" || name == "." || name == "/" {
		name = "unnamed"
	}
	return name
}
