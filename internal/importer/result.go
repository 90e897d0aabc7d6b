package importer

import "fmt"

// Result reports one import run. It is never persisted.
type Result struct {
	Processed       int      `json:"processed"`
	Created         int      `json:"created"`
	Updated         int      `json:"updated"`
	VariantsCreated int      `json:"variantsCreated"`
	Errors          []string `json:"errors"`
	Warnings        []string `json:"warnings"`
	Success         bool     `json:"success"`
}

func newResult() Result {
	return Result{Errors: []string{}, Warnings: []string{}, Success: true}
}

func (r *Result) errorf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Result) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Merge folds next into r: counts are summed, messages concatenated and success AND-ed.
func (r *Result) Merge(next Result) {
	r.Processed += next.Processed
	r.Created += next.Created
	r.Updated += next.Updated
	r.VariantsCreated += next.VariantsCreated
	r.Errors = append(r.Errors, next.Errors...)
	r.Warnings = append(r.Warnings, next.Warnings...)
	r.Success = r.Success && next.Success
}
