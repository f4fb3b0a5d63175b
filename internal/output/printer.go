package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/jtomassoni/monaghans-sub000/internal/contract"
)

type Mode string

const (
	ModeAuto  Mode = "auto"
	ModeJSON  Mode = "json"
	ModeJSONL Mode = "jsonl"
	ModePlain Mode = "plain"
)

type Printer struct {
	Mode          Mode
	Command       string
	Fields        []string
	Quiet         bool
	SchemaVersion string
	Out           io.Writer
	Err           io.Writer
}

// EffectiveSuccessMode resolves auto to plain.
func (p Printer) EffectiveSuccessMode() Mode {
	if p.Mode == "" || p.Mode == ModeAuto {
		return ModePlain
	}
	return p.Mode
}

func (p Printer) Success(data any, meta map[string]any, warnings []string) error {
	out := p.out()
	switch p.EffectiveSuccessMode() {
	case ModeJSON:
		if warnings == nil {
			warnings = []string{}
		}
		env := contract.SuccessEnvelope{
			SchemaVersion: p.schemaVersion(),
			Command:       p.Command,
			GeneratedAt:   time.Now().UTC(),
			Data:          data,
			Meta:          meta,
			Warnings:      warnings,
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	case ModeJSONL:
		v := reflect.ValueOf(data)
		if v.IsValid() && v.Kind() == reflect.Slice {
			enc := json.NewEncoder(out)
			for i := 0; i < v.Len(); i++ {
				if err := enc.Encode(v.Index(i).Interface()); err != nil {
					return err
				}
			}
			return nil
		}
		return json.NewEncoder(out).Encode(data)
	default:
		if err := p.printPlain(data); err != nil {
			return err
		}
		for _, w := range warnings {
			_, _ = fmt.Fprintf(p.err(), "warning: %s\n", w)
		}
		return nil
	}
}

func (p Printer) Error(code contract.ErrorCode, message, hint string) error {
	return p.Fail(contract.ErrorBody{Code: code, Message: message, Hint: hint})
}

// Fail writes a full error body, including the offending field when known.
func (p Printer) Fail(body contract.ErrorBody) error {
	w := p.err()
	if p.Mode == ModeJSON || p.Mode == ModeJSONL {
		env := contract.ErrorEnvelope{
			SchemaVersion: p.schemaVersion(),
			Error:         body,
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	}
	msg := body.Message
	if body.Field != "" && !strings.Contains(msg, body.Field) {
		msg = body.Field + ": " + msg
	}
	if body.Hint != "" {
		_, _ = fmt.Fprintf(w, "error: %s\nhint: %s\n", msg, body.Hint)
		return nil
	}
	_, _ = fmt.Fprintf(w, "error: %s\n", msg)
	return nil
}

func (p Printer) out() io.Writer {
	if p.Out != nil {
		return p.Out
	}
	return os.Stdout
}

func (p Printer) err() io.Writer {
	if p.Err != nil {
		return p.Err
	}
	return os.Stderr
}

func (p Printer) schemaVersion() string {
	if p.SchemaVersion == "" {
		return contract.SchemaVersion
	}
	return p.SchemaVersion
}

func (p Printer) printPlain(data any) error {
	out := p.out()
	v := reflect.ValueOf(data)
	if !v.IsValid() || (v.Kind() == reflect.Slice && v.Len() == 0) {
		if !p.Quiet {
			_, _ = fmt.Fprintln(out, "no results")
		}
		return nil
	}
	if v.Kind() == reflect.Slice {
		for i := 0; i < v.Len(); i++ {
			if _, err := fmt.Fprintln(out, flatten(v.Index(i).Interface(), p.Fields)); err != nil {
				return err
			}
		}
		return nil
	}
	if p.Quiet {
		return nil
	}
	_, err := fmt.Fprintln(out, flatten(data, p.Fields))
	return err
}

func flatten(v any, fields []string) string {
	if len(fields) == 0 {
		b, _ := json.Marshal(v)
		return string(b)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		b, _ := json.Marshal(v)
		return string(b)
	}
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		fv := rv.FieldByNameFunc(func(name string) bool {
			return strings.EqualFold(name, strings.ReplaceAll(f, "_", "")) || strings.EqualFold(name, f)
		})
		if !fv.IsValid() {
			parts = append(parts, "")
			continue
		}
		parts = append(parts, plainValue(fv))
	}
	return strings.Join(parts, "\t")
}

func plainValue(v reflect.Value) string {
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	if t, ok := v.Interface().(time.Time); ok {
		return t.Format(time.RFC3339)
	}
	return fmt.Sprint(v.Interface())
}
