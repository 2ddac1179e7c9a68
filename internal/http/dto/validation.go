package dto

import (
	"fmt"
	"path/filepath"
	"strings"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func ToMap(errs []ValidationError) map[string]string {
	result := make(map[string]string)
	for _, e := range errs {
		result[e.Field] = e.Message
	}
	return result
}

func ToResponse(errs []ValidationError) string {
	var msgs []string
	for _, e := range errs {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// EnqueueRequest is the body of POST /api/queue. URLs may also be given as a
// single newline separated Text block, the way they are pasted.
type EnqueueRequest struct {
	Text string   `json:"text,omitempty"`
	URLs []string `json:"urls"`
}

// Lines returns every candidate URL from both fields, trimmed, blanks
// removed.
func (r *EnqueueRequest) Lines() []string {
	var lines []string
	for _, u := range r.URLs {
		if u = strings.TrimSpace(u); u != "" {
			lines = append(lines, u)
		}
	}
	for _, u := range strings.Split(r.Text, "\n") {
		if u = strings.TrimSpace(u); u != "" {
			lines = append(lines, u)
		}
	}
	return lines
}

// Validate only rejects an empty body. Lines that are not http(s) URLs are
// dropped by the queue.
func (r *EnqueueRequest) Validate() []ValidationError {
	if len(r.Lines()) == 0 {
		return []ValidationError{{Field: "urls", Message: "at least one URL is required"}}
	}
	return nil
}

type ImportRequest struct {
	Folder string `json:"folder"`
}

func (r *ImportRequest) Validate() []ValidationError {
	return validateFolder("folder", r.Folder, false)
}

type RootFolderRequest struct {
	Path string `json:"path"`
}

func (r *RootFolderRequest) Validate() []ValidationError {
	return validateFolder("path", r.Path, true)
}

func validateFolder(field, path string, required bool) []ValidationError {
	var errs []ValidationError
	switch {
	case strings.TrimSpace(path) == "":
		if required {
			errs = append(errs, ValidationError{Field: field, Message: "is required"})
		}
	case !filepath.IsAbs(path):
		errs = append(errs, ValidationError{Field: field, Message: "must be an absolute path"})
	}
	return errs
}
