// cmd/contactform/validate.go
//
// validate – run the form validator without a server.  Values are submitted
// once; on success the Submission is printed as JSON, otherwise every error
// is printed and the command fails.  With --json the errors are printed as
// one JSON object keyed by field name.
//
//	contactform validate --first-name Jack --last-name Nunnink --email jack@example.com
//	contactform validate --form ./forms/other.yaml --set name=value
package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yanizio/contactform/components/contact"
	"github.com/yanizio/contactform/internal/form"
)

// errInvalid is returned when the submitted values fail validation.
var errInvalid = errors.New("validation failed")

// contactFlags maps built-in contact fields to their flag names.
var contactFlags = map[string]string{
	"firstName": "first-name",
	"lastName":  "last-name",
	"email":     "email",
	"message":   "message",
}

type validateOptions struct {
	formPath string
	fields   map[string]*string
	set      map[string]string
	asJSON   bool
}

func newValidateCmd() *cobra.Command {
	opts := &validateOptions{fields: make(map[string]*string, len(contactFlags))}

	cmd := &cobra.Command{
		Use:          "validate",
		Aliases:      []string{"v"},
		Short:        "Validate contact form values offline",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runValidate(cmd, opts)
		},
	}

	f := cmd.Flags()
	for field, flag := range contactFlags {
		opts.fields[field] = f.String(flag, "", "value for "+field)
	}
	f.StringVar(&opts.formPath, "form", "", "form definition YAML (default: built-in contact form)")
	f.StringToStringVar(&opts.set, "set", nil, "extra field values as name=value")
	f.BoolVar(&opts.asJSON, "json", false, "print validation errors as a JSON object")
	return cmd
}

func runValidate(cmd *cobra.Command, opts *validateOptions) error {
	fd, err := loadDefinition(opts.formPath)
	if err != nil {
		return err
	}

	s := form.NewState(fd)
	for name, v := range opts.values(cmd) {
		if err := s.Set(name, v); err != nil {
			return err
		}
	}

	sub, err := s.Submit()
	out := cmd.OutOrStdout()
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err != nil {
		if !form.IsValidationError(err) {
			return err
		}
		if opts.asJSON {
			if err := enc.Encode(form.FieldErrors(err).Map()); err != nil {
				return err
			}
			return errInvalid
		}
		for _, fe := range form.FieldErrors(err) {
			fmt.Fprintln(out, fe.Message)
		}
		return errInvalid
	}
	return enc.Encode(sub)
}

// loadDefinition returns the definition at path, or the built-in one.
func loadDefinition(path string) (*form.FormDef, error) {
	if path != "" {
		return form.LoadFormDef(path)
	}
	return contact.Definition()
}

// values merges the named flags the user set with --set pairs.  --set wins
// on conflict.
func (o *validateOptions) values(cmd *cobra.Command) map[string]string {
	vals := make(map[string]string, len(o.fields)+len(o.set))
	for field, flag := range contactFlags {
		if cmd.Flags().Changed(flag) {
			vals[field] = *o.fields[field]
		}
	}
	for k, v := range o.set {
		vals[k] = v
	}
	return vals
}
