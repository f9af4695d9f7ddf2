package manifest

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorKind distinguishes the ways a manifest load can fail, so the
// server layer can answer 503 "manifest missing" separately from a
// malformed document.
type ErrorKind int

const (
	// KindMissing means the manifest file does not exist at the path.
	KindMissing ErrorKind = iota
	// KindInvalid means the file exists but is not valid JSON.
	KindInvalid
	// KindSchema means the document parsed but violates the schema.
	KindSchema
)

// LoadError is returned by Load for any failure. For KindSchema it
// carries the dotted path of the first violation.
type LoadError struct {
	Kind ErrorKind
	Path string
	msg  string
	err  error
}

func (e *LoadError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s: %s", e.Path, e.msg)
	}
	return e.msg
}

func (e *LoadError) Unwrap() error { return e.err }

// AsLoadError unwraps err into a *LoadError if possible.
func AsLoadError(err error) (*LoadError, bool) {
	var le *LoadError
	if errors.As(err, &le) {
		return le, true
	}
	return nil, false
}

var (
	connectorIDPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)
	semverPattern      = regexp.MustCompile(`^\d+\.\d+\.\d+$`)
)

// violation is one schema failure addressed by dotted path.
type violation struct {
	path    string
	message string
}

func newValidator() *validator.Validate {
	v := validator.New()

	// Report json field names in error namespaces instead of Go names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("connector_id", func(fl validator.FieldLevel) bool {
		return connectorIDPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("semverish", func(fl validator.FieldLevel) bool {
		return semverPattern.MatchString(fl.Field().String())
	})

	return v
}

// Load reads and schema-validates the manifest at path. It performs a
// single file read and no caching; callers own any caching policy.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, &LoadError{
				Kind: KindMissing,
				msg:  fmt.Sprintf("manifest not found at %s", path),
				err:  err,
			}
		}
		return nil, &LoadError{
			Kind: KindInvalid,
			msg:  fmt.Sprintf("failed to read manifest at %s: %v", path, err),
			err:  err,
		}
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, &LoadError{
			Kind: KindInvalid,
			msg:  fmt.Sprintf("manifest is not valid JSON: %v", err),
			err:  err,
		}
	}

	if err := validate(&m); err != nil {
		return nil, err
	}

	return &m, nil
}

// validate runs schema validation plus cross-field checks and reports
// the first violation in deterministic (path-sorted) order.
func validate(m *Manifest) error {
	var violations []violation

	if err := newValidator().Struct(m); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &LoadError{Kind: KindSchema, msg: err.Error(), err: err}
		}
		for _, fe := range verrs {
			violations = append(violations, violation{
				path:    fieldPath(fe),
				message: fieldMessage(fe),
			})
		}
	}

	// Uniqueness of connector ids spans entries, which field-level
	// validation cannot see.
	seen := make(map[string]bool, len(m.Connectors))
	for i := range m.Connectors {
		id := m.Connectors[i].ID
		if id == "" {
			continue
		}
		if seen[id] {
			violations = append(violations, violation{
				path:    fmt.Sprintf("connectors[%d].id", i),
				message: fmt.Sprintf("duplicate connector id %q", id),
			})
		}
		seen[id] = true
	}

	if len(violations) == 0 {
		return nil
	}

	// Sort all violations by path so the reported failure is stable
	// across runs regardless of validator iteration order.
	sort.Slice(violations, func(i, j int) bool {
		if violations[i].path != violations[j].path {
			return violations[i].path < violations[j].path
		}
		return violations[i].message < violations[j].message
	})

	first := violations[0]
	return &LoadError{
		Kind: KindSchema,
		Path: first.path,
		msg:  first.message,
	}
}

// fieldPath converts a validator namespace like
// "Manifest.connectors[0].ttl_seconds" into the dotted document path.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return ns
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field is required"
	case "min":
		return fmt.Sprintf("must have at least %s items or characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "unique":
		return "items must be unique"
	case "connector_id":
		return "must match ^[a-z0-9][a-z0-9-]{1,62}$"
	case "semverish":
		return "must be a semantic version (e.g. 1.0.0)"
	case "datetime":
		return "must be an RFC 3339 timestamp"
	default:
		return fmt.Sprintf("failed %s validation", fe.Tag())
	}
}
