// Copyright 2026 The Artificer Authors
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.

package artificer

import (
	"errors"
	"fmt"
)

// ErrorCode classifies a ConversionError.
type ErrorCode string

const (
	// CodeInvalidJSON marks input that is not syntactically valid JSON.
	CodeInvalidJSON ErrorCode = "INVALID_JSON"
	// CodeInvalidFormat marks input whose top-level shape no importer recognizes.
	CodeInvalidFormat ErrorCode = "INVALID_FORMAT"
	// CodeEmptyExport marks an export file that contains no pages.
	CodeEmptyExport ErrorCode = "EMPTY_EXPORT"
	// CodeDuplicatePlugin marks a registration under an already-taken name.
	CodeDuplicatePlugin ErrorCode = "DUPLICATE_PLUGIN"
	// CodeImporterNotFound marks an import request naming an unknown importer.
	CodeImporterNotFound ErrorCode = "IMPORTER_NOT_FOUND"
	// CodeExporterNotFound marks an export request for an unhandled format.
	CodeExporterNotFound ErrorCode = "EXPORTER_NOT_FOUND"
	// CodeDetectionFailed marks input no registered importer detects.
	CodeDetectionFailed ErrorCode = "DETECTION_FAILED"
)

// ConversionError is the single error type produced by the conversion core.
// Registry misconfiguration and malformed input both surface through it,
// distinguished by Code.
type ConversionError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Err     error
}

func (e *ConversionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ConversionError) Unwrap() error {
	return e.Err
}

// newError builds a ConversionError without details or a cause.
func newError(code ErrorCode, format string, args ...any) *ConversionError {
	return &ConversionError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf returns the ErrorCode carried by err, or "" when err is not a
// ConversionError.
func CodeOf(err error) ErrorCode {
	var ce *ConversionError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// IsCode reports whether err is a ConversionError with the given code.
func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}
